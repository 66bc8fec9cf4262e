package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"account-center/internal/model"
)

// sqlite 仅用于测试，语句与生产方言兼容的子集
var testSchema = []string{
	`CREATE TABLE users (
		id              INTEGER PRIMARY KEY,
		username        VARCHAR(50)  NOT NULL UNIQUE,
		email           VARCHAR(255) NULL UNIQUE,
		password_hash   VARCHAR(255) NOT NULL,
		profile_picture VARCHAR(255) NOT NULL DEFAULT '',
		last_login_at   DATETIME     NULL,
		created_at      DATETIME     NOT NULL
	)`,
	`CREATE TABLE activity_logs (
		id         INTEGER PRIMARY KEY,
		user_id    INTEGER      NOT NULL REFERENCES users (id),
		action     VARCHAR(255) NOT NULL,
		created_at DATETIME     NOT NULL
	)`,
}

func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := sqlx.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name))
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	for _, stmt := range testSchema {
		_, err := conn.Exec(stmt)
		require.NoError(t, err)
	}
	return conn
}

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newUser(id uint64, username string, email *string) *model.User {
	return &model.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "hash-" + username,
		CreatedAt:    base,
	}
}

func strPtr(s string) *string { return &s }

// ============================================================================
// UserRepository
// ============================================================================

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser(1, "alice", strPtr("a@example.com"))))
	require.NoError(t, repo.Create(ctx, newUser(2, "bob", nil)))

	u, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	assert.Equal(t, "a@example.com", u.EmailOrEmpty())
	assert.Nil(t, u.LastLoginAt)

	u, err = repo.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.Nil(t, u.Email)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_Updates(t *testing.T) {
	repo := NewUserRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newUser(1, "alice", nil)))

	login := base.Add(time.Hour)
	require.NoError(t, repo.UpdateLastLogin(ctx, 1, login))
	require.NoError(t, repo.UpdateProfilePicture(ctx, 1, "user_1_5_a.png"))
	require.NoError(t, repo.UpdateProfile(ctx, 1, strPtr("alice2"), strPtr("new@example.com")))

	u, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)
	assert.Equal(t, "new@example.com", u.EmailOrEmpty())
	assert.Equal(t, "user_1_5_a.png", u.ProfilePicture)
	require.NotNil(t, u.LastLoginAt)
	assert.True(t, login.Equal(*u.LastLoginAt))

	// 只改邮箱
	require.NoError(t, repo.UpdateProfile(ctx, 1, nil, strPtr("x@example.com")))
	u, err = repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)
	assert.Equal(t, "x@example.com", u.EmailOrEmpty())

	assert.ErrorIs(t, repo.UpdateProfilePicture(ctx, 42, "x"), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateProfile(ctx, 42, strPtr("ghost"), nil), ErrNotFound)
	assert.NoError(t, repo.UpdateProfile(ctx, 1, nil, nil))
}

func TestUserRepository_DeleteRemovesActivity(t *testing.T) {
	conn := setupDB(t)
	users := NewUserRepository(conn)
	activity := NewActivityRepository(conn)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, newUser(1, "alice", nil)))
	require.NoError(t, users.Create(ctx, newUser(2, "bob", nil)))
	require.NoError(t, activity.Create(ctx, &model.ActivityLog{ID: 10, UserID: 1, Action: model.ActionAccountCreated, CreatedAt: base}))
	require.NoError(t, activity.Create(ctx, &model.ActivityLog{ID: 11, UserID: 2, Action: model.ActionAccountCreated, CreatedAt: base}))

	require.NoError(t, users.Delete(ctx, 1))

	_, err := users.GetByID(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := activity.CountByUser(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, n)

	// 其他用户不受影响
	n, err = activity.CountByUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.ErrorIs(t, users.Delete(ctx, 1), ErrNotFound)
}

func TestUserRepository_BatchCreate(t *testing.T) {
	repo := NewUserRepository(setupDB(t))
	ctx := context.Background()

	batch := []*model.User{newUser(1, "seed_1", nil), newUser(2, "seed_2", nil), newUser(3, "seed_3", nil)}
	require.NoError(t, repo.BatchCreate(ctx, batch))
	require.NoError(t, repo.BatchCreate(ctx, nil))

	u, err := repo.GetByUsername(ctx, "seed_3")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)

	// 任意一条失败整批回滚
	err = repo.BatchCreate(ctx, []*model.User{newUser(4, "seed_4", nil), newUser(5, "seed_1", nil)})
	assert.Error(t, err)
	_, err = repo.GetByUsername(ctx, "seed_4")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// ActivityRepository
// ============================================================================

func TestActivityRepository_RecentAndCount(t *testing.T) {
	conn := setupDB(t)
	repo := NewActivityRepository(conn)
	ctx := context.Background()
	require.NoError(t, NewUserRepository(conn).Create(ctx, newUser(7, "carol", nil)))

	for i := 1; i <= 20; i++ {
		require.NoError(t, repo.Create(ctx, &model.ActivityLog{
			ID:        uint64(i),
			UserID:    7,
			Action:    fmt.Sprintf("action-%02d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	// 与最后一条同一时间戳，按ID区分先后
	require.NoError(t, repo.Create(ctx, &model.ActivityLog{ID: 21, UserID: 7, Action: "action-21", CreatedAt: base.Add(20 * time.Second)}))

	logs, err := repo.ListRecent(ctx, 7, 15)
	require.NoError(t, err)
	require.Len(t, logs, 15)
	assert.Equal(t, "action-21", logs[0].Action)
	assert.Equal(t, "action-20", logs[1].Action)
	assert.Equal(t, "action-07", logs[14].Action)

	total, err := repo.CountByUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)

	deleted, err := repo.DeleteByUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(21), deleted)

	logs, err = repo.ListRecent(ctx, 7, 15)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestActivityRepository_UnknownUser(t *testing.T) {
	conn := setupDB(t)
	repo := NewActivityRepository(conn)
	ctx := context.Background()

	err := repo.Create(ctx, &model.ActivityLog{ID: 1, UserID: 404, Action: model.ActionLoggedIn, CreatedAt: base})
	assert.Error(t, err)

	total, err := repo.CountByUser(ctx, 404)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUserRepository_ForeignKeyEnforced(t *testing.T) {
	conn := setupDB(t)
	ctx := context.Background()
	require.NoError(t, NewUserRepository(conn).Create(ctx, newUser(1, "alice", nil)))
	require.NoError(t, NewActivityRepository(conn).Create(ctx, &model.ActivityLog{ID: 10, UserID: 1, Action: model.ActionLoggedIn, CreatedAt: base}))

	// 外键生效：直接删除用户行会失败，Delete 必须先删活动记录
	_, err := conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, 1)
	assert.Error(t, err)

	require.NoError(t, NewUserRepository(conn).Delete(ctx, 1))
}

func TestUserRepository_CaseSensitiveUniqueness(t *testing.T) {
	repo := NewUserRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser(1, "alice", strPtr("a@example.com"))))
	require.NoError(t, repo.Create(ctx, newUser(2, "Alice", strPtr("A@example.com"))))

	u, err := repo.GetByUsername(ctx, "ALICE")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, u)

	u, err = repo.GetByUsername(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), u.ID)
}

// ============================================================================
// 唯一约束错误映射
// ============================================================================

func TestDuplicateError(t *testing.T) {
	unrelated := errors.New("connection reset by peer")

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantNot error
	}{
		{
			name: "mysql email",
			err: fmt.Errorf("failed to create user: %w", &mysql.MySQLError{
				Number:  1062,
				Message: "Duplicate entry 'a@example.com' for key 'users.uk_users_email'",
			}),
			wantIs:  ErrDuplicateEmail,
			wantNot: ErrDuplicateUsername,
		},
		{
			name: "mysql 5.7 username without table prefix",
			err: &mysql.MySQLError{
				Number:  1062,
				Message: "Duplicate entry 'alice' for key 'uk_users_username'",
			},
			wantIs:  ErrDuplicateUsername,
			wantNot: ErrDuplicateEmail,
		},
		{
			name:    "lib/pq username",
			err:     fmt.Errorf("failed to create user: %w", &pq.Error{Code: "23505", Constraint: "uk_users_username"}),
			wantIs:  ErrDuplicateUsername,
			wantNot: ErrDuplicateEmail,
		},
		{
			name:    "pgx other constraint",
			err:     fmt.Errorf("failed to create user: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"}),
			wantIs:  ErrDuplicate,
			wantNot: ErrDuplicateUsername,
		},
		{
			name:    "pgx email",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "uk_users_email"},
			wantIs:  ErrDuplicateEmail,
			wantNot: ErrDuplicateUsername,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := duplicateError(tt.err)
			assert.ErrorIs(t, got, tt.wantIs)
			assert.ErrorIs(t, got, ErrDuplicate)
			assert.NotErrorIs(t, got, tt.wantNot)
			// 原始驱动错误仍可取出
			assert.ErrorIs(t, got, tt.err)
		})
	}

	t.Run("unrelated error passes through", func(t *testing.T) {
		got := duplicateError(unrelated)
		assert.Same(t, unrelated, got)
		assert.NotErrorIs(t, got, ErrDuplicate)
	})

	t.Run("mysql non-duplicate code", func(t *testing.T) {
		lockErr := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
		assert.NotErrorIs(t, duplicateError(lockErr), ErrDuplicate)
	})
}
