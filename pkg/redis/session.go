package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	log "account-center/pkg/logger"
)

// SessionKeyPrefix Session键前缀
const SessionKeyPrefix = "sess:"

var ErrSessionNotFound = errors.New("Session不存在或已过期")

// Session 服务端会话数据
type Session struct {
	UserID     uint64     `json:"user_id"`
	Username   string     `json:"username,omitempty"`
	LoginAt    *time.Time `json:"login_at,omitempty"`
	Persistent bool       `json:"persistent"`
}

// SessionPolicy 会话有效期策略
type SessionPolicy struct {
	RememberTTL time.Duration // 勾选"记住我"：浏览器关闭后仍有效
	IdleTTL     time.Duration // 浏览器会话：服务端空闲过期时间
}

// TTL 服务端保存时长
func (p SessionPolicy) TTL(persistent bool) time.Duration {
	if persistent {
		return p.RememberTTL
	}
	return p.IdleTTL
}

// CookieMaxAge Cookie 的 MaxAge（秒），0 表示浏览器会话 Cookie
func (p SessionPolicy) CookieMaxAge(persistent bool) int {
	if persistent {
		return int(p.RememberTTL / time.Second)
	}
	return 0
}

// SessionManager Session管理器接口
type SessionManager interface {
	// CreateSession 创建Session（生成token并存储到Redis）
	CreateSession(ctx context.Context, sess *Session) (string, error)

	// GetSession 根据token读取Session，不存在时返回 ErrSessionNotFound
	GetSession(ctx context.Context, token string) (*Session, error)

	// DestroySession 销毁Session
	DestroySession(ctx context.Context, token string) error

	// RefreshSession 刷新Session有效期
	RefreshSession(ctx context.Context, token string, persistent bool) error

	// Policy 当前会话有效期策略
	Policy() SessionPolicy
}

// sessionManager Session管理器实现
type sessionManager struct {
	client Client
	policy SessionPolicy
}

// NewSessionManager 创建Session管理器
func NewSessionManager(client Client, policy SessionPolicy) SessionManager {
	return &sessionManager{client: client, policy: policy}
}

func (sm *sessionManager) CreateSession(ctx context.Context, sess *Session) (string, error) {
	token := uuid.NewString()
	ttl := sm.policy.TTL(sess.Persistent)

	if err := sm.client.SetJSON(ctx, SessionKeyPrefix+token, sess, ttl); err != nil {
		log.Error("创建Session失败", zap.Error(err), zap.Uint64("user_id", sess.UserID))
		return "", fmt.Errorf("创建Session失败: %w", err)
	}

	log.Debug("创建Session成功",
		zap.Uint64("user_id", sess.UserID),
		zap.Bool("persistent", sess.Persistent),
		zap.Duration("ttl", ttl))
	return token, nil
}

func (sm *sessionManager) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	var sess Session
	if err := sm.client.GetJSON(ctx, SessionKeyPrefix+token, &sess); err != nil {
		if IsNil(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("读取Session失败: %w", err)
	}
	if sess.UserID == 0 {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (sm *sessionManager) DestroySession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := sm.client.Del(ctx, SessionKeyPrefix+token); err != nil {
		log.Error("销毁Session失败", zap.Error(err))
		return err
	}
	return nil
}

func (sm *sessionManager) RefreshSession(ctx context.Context, token string, persistent bool) error {
	return sm.client.Expire(ctx, SessionKeyPrefix+token, sm.policy.TTL(persistent))
}

func (sm *sessionManager) Policy() SessionPolicy {
	return sm.policy
}
