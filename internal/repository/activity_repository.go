package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"account-center/internal/model"
)

// ActivityRepository 活动记录仓储接口
type ActivityRepository interface {
	// Create 追加一条活动记录
	Create(ctx context.Context, log *model.ActivityLog) error

	// ListRecent 最近的活动记录，按时间倒序
	ListRecent(ctx context.Context, userID uint64, limit int) ([]*model.ActivityLog, error)

	// CountByUser 用户的活动记录总数
	CountByUser(ctx context.Context, userID uint64) (int64, error)

	// DeleteByUser 删除用户的全部活动记录
	DeleteByUser(ctx context.Context, userID uint64) (int64, error)
}

type activityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository 创建活动记录仓储实例
func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, log *model.ActivityLog) error {
	query := r.db.Rebind(`INSERT INTO activity_logs (id, user_id, action, created_at) VALUES (?, ?, ?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, log.ID, log.UserID, log.Action, log.CreatedAt); err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// ListRecent 同一时间戳按ID倒序，ID单调递增
func (r *activityRepository) ListRecent(ctx context.Context, userID uint64, limit int) ([]*model.ActivityLog, error) {
	query := r.db.Rebind(`SELECT id, user_id, action, created_at FROM activity_logs
              WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`)

	logs := make([]*model.ActivityLog, 0, limit)
	if err := r.db.SelectContext(ctx, &logs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return logs, nil
}

func (r *activityRepository) CountByUser(ctx context.Context, userID uint64) (int64, error) {
	var total int64
	query := r.db.Rebind(`SELECT COUNT(*) FROM activity_logs WHERE user_id = ?`)

	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count activity: %w", err)
	}
	return total, nil
}

func (r *activityRepository) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
	query := r.db.Rebind(`DELETE FROM activity_logs WHERE user_id = ?`)

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete activity: %w", err)
	}
	return result.RowsAffected()
}
