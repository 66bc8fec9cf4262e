package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // 注册 pgx 驱动
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL 驱动
	"go.uber.org/zap"

	"account-center/config"
	log "account-center/pkg/logger"
)

// DriverName 将配置中的驱动名映射为 database/sql 注册名
func DriverName(driver string) (string, error) {
	switch driver {
	case "mysql":
		return "mysql", nil
	case "postgres", "pgsql":
		return "postgres", nil
	case "pgx":
		return "pgx", nil
	default:
		return "", fmt.Errorf("不支持的数据库驱动: %s", driver)
	}
}

// InitDB 初始化数据库连接（使用 sqlx）
func InitDB(cfg *config.Config) (*sqlx.DB, error) {
	log.Info("开始初始化数据库连接",
		zap.String("driver", cfg.Database.Driver),
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Database),
	)

	driverName, err := DriverName(cfg.Database.Driver)
	if err != nil {
		log.Error("不支持的数据库驱动", zap.String("driver", cfg.Database.Driver))
		return nil, err
	}

	db, err := sqlx.Open(driverName, cfg.Database.GetDSN())
	if err != nil {
		log.Error("打开数据库失败", zap.Error(err), zap.String("driver", driverName))
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// 配置连接池
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.GetConnMaxLifetime())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		log.Error("数据库连接测试失败", zap.Error(err))
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	log.Info("数据库连接成功",
		zap.String("driver", driverName),
		zap.String("database", cfg.Database.Database),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)

	return db, nil
}
