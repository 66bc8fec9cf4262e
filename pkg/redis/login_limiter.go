package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	log "account-center/pkg/logger"
)

// LoginFailKeyPrefix 登录失败计数键前缀
const LoginFailKeyPrefix = "login_fail:"

// LoginLimiter 登录限制器接口
type LoginLimiter interface {
	// RecordLoginFail 记录登录失败（计数器+1）
	RecordLoginFail(ctx context.Context, username string) (int64, error)

	// GetLoginFailCount 获取登录失败次数
	GetLoginFailCount(ctx context.Context, username string) (int64, error)

	// ResetLoginFail 重置登录失败计数（登录成功后调用）
	ResetLoginFail(ctx context.Context, username string) error
}

// loginLimiter 登录限制器实现
type loginLimiter struct {
	client Client
	window time.Duration
}

// NewLoginLimiter 创建登录限制器，window 为计数窗口
func NewLoginLimiter(client Client, window time.Duration) LoginLimiter {
	return &loginLimiter{client: client, window: window}
}

// RecordLoginFail 记录登录失败
// 键设计: login_fail:{username}，首次失败时设置窗口过期
func (ll *loginLimiter) RecordLoginFail(ctx context.Context, username string) (int64, error) {
	key := LoginFailKeyPrefix + username

	count, err := ll.client.Incr(ctx, key)
	if err != nil {
		return 0, err
	}

	if count == 1 {
		if err := ll.client.Expire(ctx, key, ll.window); err != nil {
			// 计数已成功，过期时间失败不影响主流程
			log.Error("设置登录失败计数过期时间失败", zap.Error(err), zap.String("key", key))
		}
	}

	log.Warn("记录登录失败", zap.String("username", username), zap.Int64("fail_count", count))
	return count, nil
}

// GetLoginFailCount 获取登录失败次数
func (ll *loginLimiter) GetLoginFailCount(ctx context.Context, username string) (int64, error) {
	countStr, err := ll.client.Get(ctx, LoginFailKeyPrefix+username)
	if err != nil {
		if IsNil(err) {
			return 0, nil
		}
		return 0, err
	}

	count, err := strconv.ParseInt(countStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("解析登录失败计数失败: %w", err)
	}
	return count, nil
}

// ResetLoginFail 重置登录失败计数
func (ll *loginLimiter) ResetLoginFail(ctx context.Context, username string) error {
	return ll.client.Del(ctx, LoginFailKeyPrefix+username)
}
