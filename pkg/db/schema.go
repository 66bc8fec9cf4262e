package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	log "account-center/pkg/logger"
)

// 唯一约束名，DuplicateKeyName 据此区分冲突字段
const (
	UniqueUsername = "uk_users_username"
	UniqueEmail    = "uk_users_email"
)

// 二进制排序规则：用户名、邮箱的唯一约束与查询区分大小写
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGINT UNSIGNED NOT NULL,
		username        VARCHAR(50)     NOT NULL,
		email           VARCHAR(255)    NULL,
		password_hash   VARCHAR(255)    NOT NULL,
		profile_picture VARCHAR(255)    NOT NULL DEFAULT '',
		last_login_at   DATETIME(3)     NULL,
		created_at      DATETIME(3)     NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY ` + UniqueUsername + ` (username),
		UNIQUE KEY ` + UniqueEmail + ` (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id         BIGINT UNSIGNED NOT NULL,
		user_id    BIGINT UNSIGNED NOT NULL,
		action     VARCHAR(255)    NOT NULL,
		created_at DATETIME(3)     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_activity_user_time (user_id, created_at),
		CONSTRAINT fk_activity_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGINT       PRIMARY KEY,
		username        VARCHAR(50)  NOT NULL,
		email           VARCHAR(255) NULL,
		password_hash   VARCHAR(255) NOT NULL,
		profile_picture VARCHAR(255) NOT NULL DEFAULT '',
		last_login_at   TIMESTAMPTZ  NULL,
		created_at      TIMESTAMPTZ  NOT NULL,
		CONSTRAINT ` + UniqueUsername + ` UNIQUE (username),
		CONSTRAINT ` + UniqueEmail + ` UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id         BIGINT       PRIMARY KEY,
		user_id    BIGINT       NOT NULL REFERENCES users (id),
		action     VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ  NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_user_time ON activity_logs (user_id, created_at)`,
}

// SchemaFor 返回驱动对应的建表语句
func SchemaFor(driverName string) ([]string, error) {
	switch driverName {
	case "mysql":
		return mysqlSchema, nil
	case "postgres", "pgx":
		return postgresSchema, nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", driverName)
	}
}

// EnsureSchema 创建缺失的表（仅做启动引导，不负责版本迁移）
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	stmts, err := SchemaFor(db.DriverName())
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Error("初始化表结构失败", zap.Error(err))
			return fmt.Errorf("初始化表结构失败: %w", err)
		}
	}

	log.Info("表结构检查完成", zap.String("driver", db.DriverName()))
	return nil
}
