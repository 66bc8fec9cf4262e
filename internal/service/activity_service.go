package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"account-center/internal/dto"
	"account-center/internal/model"
	"account-center/internal/repository"
	"account-center/pkg/db"

	log "account-center/pkg/logger"
)

// DefaultRecentLimit 最近活动默认条数
const DefaultRecentLimit = 15

// ============================================================================
// ActivityService 接口
// ============================================================================

type ActivityService interface {
	// Record 追加一条活动记录
	Record(ctx context.Context, userID uint64, action string) error

	// Recent 最近的活动记录及总数
	Recent(ctx context.Context, userID uint64) (*dto.ActivityPageDTO, error)

	// Clear 清空活动记录，随后记录一条 "Cleared activity history"
	Clear(ctx context.Context, userID uint64) error
}

type activityService struct {
	repo  repository.ActivityRepository
	ids   db.IDGenerator
	limit int
	now   func() time.Time
}

// NewActivityService 创建ActivityService实例
func NewActivityService(repo repository.ActivityRepository, ids db.IDGenerator, recentLimit int) ActivityService {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &activityService{
		repo:  repo,
		ids:   ids,
		limit: recentLimit,
		now:   time.Now,
	}
}

func (s *activityService) Record(ctx context.Context, userID uint64, action string) error {
	id, err := s.ids.NextID()
	if err != nil {
		return wrap(ErrPersistence, err)
	}

	entry := &model.ActivityLog{
		ID:        id,
		UserID:    userID,
		Action:    action,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return wrap(ErrPersistence, err)
	}
	return nil
}

func (s *activityService) Recent(ctx context.Context, userID uint64) (*dto.ActivityPageDTO, error) {
	logs, err := s.repo.ListRecent(ctx, userID, s.limit)
	if err != nil {
		log.Error("查询最近活动失败", zap.Error(err), zap.Uint64("user_id", userID))
		return nil, wrap(ErrPersistence, err)
	}

	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		log.Error("统计活动总数失败", zap.Error(err), zap.Uint64("user_id", userID))
		return nil, wrap(ErrPersistence, err)
	}

	return &dto.ActivityPageDTO{
		Items: dto.FromActivityModels(logs),
		Total: total,
	}, nil
}

// Clear 清空后追加的记录会让列表剩下一条
func (s *activityService) Clear(ctx context.Context, userID uint64) error {
	deleted, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		log.Error("清空活动记录失败", zap.Error(err), zap.Uint64("user_id", userID))
		return wrap(ErrPersistence, err)
	}

	if err := s.Record(ctx, userID, model.ActionClearedActivity); err != nil {
		log.Warn("记录清空操作失败", zap.Error(err), zap.Uint64("user_id", userID))
	}

	log.Info("活动记录已清空", zap.Uint64("user_id", userID), zap.Int64("deleted", deleted))
	return nil
}

// recordBestEffort 活动记录失败不影响主流程
func recordBestEffort(ctx context.Context, activity ActivityService, userID uint64, action string) {
	if err := activity.Record(ctx, userID, action); err != nil {
		log.Warn("记录活动失败",
			zap.Error(err),
			zap.Uint64("user_id", userID),
			zap.String("action", action))
	}
}
