package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// WithTx 开启事务执行 fn，fn 返回错误或 panic 时回滚，否则提交
//
//	err := db.WithTx(ctx, conn, func(ctx context.Context, tx *sqlx.Tx) error {
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, conn *sqlx.DB, fn func(ctx context.Context, tx *sqlx.Tx) error) (err error) {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("failed to commit transaction: %w", err)
		}
	}()

	return fn(ctx, tx)
}
