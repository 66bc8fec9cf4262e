package container

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"

	"account-center/config"
	"account-center/internal/handler"
	"account-center/internal/repository"
	"account-center/internal/router"
	"account-center/internal/service"
	"account-center/pkg/db"
	"account-center/pkg/redis"
	"account-center/pkg/storage"
)

// New 创建依赖注入容器并注册所有提供者
func New(cfg *config.Config, opts ...dig.Option) (*dig.Container, error) {
	c := dig.New(opts...)

	providers := []interface{}{
		// 配置
		func() *config.Config { return cfg },

		// 基础设施
		db.InitDB,
		provideIDGenerator,
		redis.InitRedis,
		provideSessionManager,
		provideLoginLimiter,
		redis.NewManager,
		provideStorage,

		// 仓储层
		repository.NewUserRepository,
		repository.NewActivityRepository,

		// 业务层
		service.NewOptions,
		provideActivityService,
		service.NewAccountService,

		// 接口层
		handler.NewAccountHandler,
		provideActivityHandler,
		provideHealthHandler,
		router.SetupRouter,
	}

	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ============================================================================
// 提供者
// ============================================================================

func provideIDGenerator(cfg *config.Config) (db.IDGenerator, error) {
	return db.NewSnowflake(cfg.Snowflake.MachineID)
}

func provideSessionManager(client redis.Client, cfg *config.Config) redis.SessionManager {
	return redis.NewSessionManager(client, redis.SessionPolicy{
		RememberTTL: cfg.Session.GetRememberTTL(),
		IdleTTL:     cfg.Session.GetIdleTTL(),
	})
}

func provideLoginLimiter(client redis.Client, cfg *config.Config) redis.LoginLimiter {
	return redis.NewLoginLimiter(client, cfg.Auth.GetFailureWindow())
}

func provideStorage(cfg *config.Config) (storage.Storage, error) {
	return storage.New(context.Background(), cfg)
}

func provideActivityService(repo repository.ActivityRepository, ids db.IDGenerator, cfg *config.Config) service.ActivityService {
	return service.NewActivityService(repo, ids, cfg.Activity.RecentLimit)
}

func provideActivityHandler(activity service.ActivityService, cfg *config.Config) *handler.ActivityHandler {
	return handler.NewActivityHandler(activity, cfg.Session.LoginPath)
}

func provideHealthHandler(conn *sqlx.DB, client redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(conn, handler.PingerFunc(client.Ping))
}
