package dto

import "account-center/internal/model"

// ============================================================================
// Model → DTO (Repository 层 → Service 层)
// ============================================================================

// FromModel model.User → UserProfileDTO
func FromModel(user *model.User) *UserProfileDTO {
	if user == nil {
		return nil
	}
	return &UserProfileDTO{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.EmailOrEmpty(),
		ProfilePicture: user.ProfilePicture,
		LastLoginAt:    user.LastLoginAt,
		CreatedAt:      user.CreatedAt,
	}
}

// FromActivityModels []model.ActivityLog → []ActivityDTO
func FromActivityModels(logs []*model.ActivityLog) []ActivityDTO {
	items := make([]ActivityDTO, 0, len(logs))
	for _, l := range logs {
		items = append(items, ActivityDTO{
			Action:    l.Action,
			CreatedAt: l.CreatedAt,
		})
	}
	return items
}

// ============================================================================
// DTO → Model (Service 层 → Repository 层)
// ============================================================================

// ToModel RegisterDTO → model.User，密码哈希与ID由调用方填充
func (d *RegisterDTO) ToModel(id uint64, passwordHash string) *model.User {
	user := &model.User{
		ID:           id,
		Username:     d.Username,
		PasswordHash: passwordHash,
	}
	if d.Email != "" {
		email := d.Email
		user.Email = &email
	}
	return user
}
