package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"account-center/config"
	log "account-center/pkg/logger"
)

// ErrNil 键不存在
var ErrNil = redis.Nil

// IsNil 判断是否为键不存在错误
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Client Redis客户端接口
type Client interface {
	// Get 获取字符串值
	Get(ctx context.Context, key string) (string, error)

	// Del 删除一个或多个键
	Del(ctx context.Context, keys ...string) error

	// Expire 设置键的过期时间
	Expire(ctx context.Context, key string, expiration time.Duration) error

	// TTL 获取键的剩余生存时间
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Incr 将键的值加1
	Incr(ctx context.Context, key string) (int64, error)

	// SetJSON 设置JSON格式的值
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// GetJSON 获取JSON格式的值并反序列化，键不存在时返回 ErrNil
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// Ping 测试Redis连接
	Ping(ctx context.Context) error

	// Close 关闭Redis连接
	Close() error
}

// redisClient Redis客户端实现
type redisClient struct {
	client redis.UniversalClient
}

// NewClient 包装已有的 go-redis 客户端
func NewClient(client redis.UniversalClient) Client {
	return &redisClient{client: client}
}

// InitRedis 初始化Redis连接
func InitRedis(cfg *config.Config) (Client, error) {
	log.Info("开始初始化Redis连接",
		zap.String("addr", cfg.Redis.GetAddr()),
		zap.Int("db", cfg.Redis.DB),
	)

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.GetAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.GetDialTimeout(),
		ReadTimeout:  cfg.Redis.GetReadTimeout(),
		WriteTimeout: cfg.Redis.GetWriteTimeout(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.Error("Redis连接测试失败", zap.Error(err))
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	log.Info("Redis连接成功",
		zap.String("addr", cfg.Redis.GetAddr()),
		zap.Int("pool_size", cfg.Redis.PoolSize),
	)

	return NewClient(client), nil
}

func (r *redisClient) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *redisClient) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return r.client.Expire(ctx, key, expiration).Err()
}

func (r *redisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, key).Result()
}

func (r *redisClient) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *redisClient) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *redisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("JSON反序列化失败: %w", err)
	}
	return nil
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
