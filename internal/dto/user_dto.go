package dto

import (
	"io"
	"time"
)

// ============================================================================
// 用户信息 DTO
// ============================================================================

// UserProfileDTO 用户公开信息（用于响应）
type UserProfileDTO struct {
	ID             uint64
	Username       string
	Email          string
	ProfilePicture string // 存储中的对象名，空表示使用默认头像
	LastLoginAt    *time.Time
	CreatedAt      time.Time
}

// ActivityDTO 单条活动记录
type ActivityDTO struct {
	Action    string
	CreatedAt time.Time
}

// ActivityPageDTO 最近活动 + 总数
type ActivityPageDTO struct {
	Items []ActivityDTO
	Total int64
}

// ProfileViewDTO 个人主页视图
type ProfileViewDTO struct {
	Profile        *UserProfileDTO
	Activity       *ActivityPageDTO
	SessionMinutes int64
}

// ============================================================================
// 操作 DTO
// ============================================================================

// UpdateProfileDTO 修改资料，空字段表示不修改
type UpdateProfileDTO struct {
	UserID   uint64 `validate:"required"`
	Username string `validate:"omitempty,username"`
	Email    string `validate:"omitempty,email,max=255"`
}

// UploadPictureDTO 上传头像
type UploadPictureDTO struct {
	UserID      uint64 `validate:"required"`
	Filename    string // 客户端提供的原始文件名
	Size        int64
	ContentType string
	Content     io.Reader
}

// ============================================================================
// 方法
// ============================================================================

// HasPicture 是否上传过头像
func (p *UserProfileDTO) HasPicture() bool {
	return p.ProfilePicture != ""
}

// IsEmpty 检查UserProfile是否为空
func (p *UserProfileDTO) IsEmpty() bool {
	return p == nil || p.ID == 0
}
