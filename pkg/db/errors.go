package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	mysqlDuplicateEntry = 1062
	pgUniqueViolation   = "23505"
)

// IsDuplicateKey 判断是否为唯一约束冲突
func IsDuplicateKey(err error) bool {
	_, ok := DuplicateKeyName(err)
	return ok
}

// DuplicateKeyName 返回冲突的唯一约束名（MySQL 从错误信息中解析）
func DuplicateKeyName(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return mysqlKeyName(mysqlErr.Message), true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return pqErr.Constraint, true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}

	return "", false
}

// mysqlKeyName 解析 "Duplicate entry 'x' for key 'users.uk_users_email'"
func mysqlKeyName(message string) string {
	idx := strings.LastIndex(message, "for key '")
	if idx < 0 {
		return ""
	}
	key := strings.TrimSuffix(message[idx+len("for key '"):], "'")
	// MySQL 8 带表名前缀
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	return key
}
