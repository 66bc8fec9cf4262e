package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"account-center/internal/model"
	"account-center/pkg/db"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrDuplicateUsername = fmt.Errorf("%w: username", ErrDuplicate)
	ErrDuplicateEmail    = fmt.Errorf("%w: email", ErrDuplicate)
)

// UserRepository 用户仓储接口
type UserRepository interface {
	// GetByUsername 根据用户名查询用户（用于登录）
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// GetByID 根据ID查询用户
	GetByID(ctx context.Context, id uint64) (*model.User, error)

	// Create 创建用户
	Create(ctx context.Context, user *model.User) error

	// UpdateLastLogin 更新最近登录时间
	UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error

	// UpdateProfilePicture 更新用户头像
	UpdateProfilePicture(ctx context.Context, id uint64, profilePicture string) error

	// UpdateProfile 在一条语句中更新用户名/邮箱，nil 表示不修改
	UpdateProfile(ctx context.Context, id uint64, username, email *string) error

	// Delete 删除用户及其活动记录（同一事务）
	Delete(ctx context.Context, id uint64) error

	// BatchCreate 批量创建用户（用于生成测试数据）
	BatchCreate(ctx context.Context, users []*model.User) error
}

const userColumns = `id, username, email, password_hash, profile_picture, last_login_at, created_at`

// userRepository 用户仓储实现
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository 创建用户仓储实例
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByUsername 根据用户名查询用户
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE username = ?`)

	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, username)
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

// GetByID 根据ID查询用户
func (r *userRepository) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := r.db.Rebind(`INSERT INTO users (id, username, email, password_hash, profile_picture, created_at)
              VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.ProfilePicture, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", duplicateError(err))
	}
	return nil
}

// UpdateLastLogin 更新最近登录时间
func (r *userRepository) UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error {
	query := r.db.Rebind(`UPDATE users SET last_login_at = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return checkAffected(result, id)
}

// UpdateProfilePicture 更新用户头像
func (r *userRepository) UpdateProfilePicture(ctx context.Context, id uint64, profilePicture string) error {
	query := r.db.Rebind(`UPDATE users SET profile_picture = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, profilePicture, id)
	if err != nil {
		return fmt.Errorf("failed to update profile picture: %w", err)
	}
	return checkAffected(result, id)
}

// UpdateProfile 更新用户名/邮箱
func (r *userRepository) UpdateProfile(ctx context.Context, id uint64, username, email *string) error {
	var (
		sets []string
		args []interface{}
	)
	if username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *username)
	}
	if email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *email)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := r.db.Rebind(`UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", duplicateError(err))
	}
	return checkAffected(result, id)
}

// Delete 先删活动记录再删用户
func (r *userRepository) Delete(ctx context.Context, id uint64) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM activity_logs WHERE user_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete activity: %w", err)
		}

		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return checkAffected(result, id)
	})
}

// BatchCreate 批量创建用户
func (r *userRepository) BatchCreate(ctx context.Context, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}

	return db.WithTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO users (id, username, email, password_hash, profile_picture, created_at)
              VALUES (?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, user := range users {
			_, err := stmt.ExecContext(ctx,
				user.ID, user.Username, user.Email, user.PasswordHash, user.ProfilePicture, user.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert user %s: %w", user.Username, duplicateError(err))
			}
		}
		return nil
	})
}

// ============================================================================
// 工具函数
// ============================================================================

func checkAffected(result sql.Result, id uint64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return nil
}

// duplicateError 把唯一约束冲突转换为对应字段的哨兵错误
func duplicateError(err error) error {
	name, ok := db.DuplicateKeyName(err)
	if !ok {
		return err
	}
	switch {
	case strings.Contains(name, db.UniqueUsername):
		return fmt.Errorf("%w: %w", ErrDuplicateUsername, err)
	case strings.Contains(name, db.UniqueEmail):
		return fmt.Errorf("%w: %w", ErrDuplicateEmail, err)
	default:
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
}
