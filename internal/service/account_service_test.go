package service

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"account-center/internal/dto"
	"account-center/internal/model"
	"account-center/internal/repository"
	"account-center/pkg/redis"
)

var testPolicy = redis.SessionPolicy{
	RememberTTL: 30 * 24 * time.Hour,
	IdleTTL:     120 * time.Minute,
}

type testEnv struct {
	svc      *accountService
	activity ActivityService
	users    *memUserRepo
	logs     *memActivityRepo
	sessions *memSessions
	limiter  *memLimiter
	store    *memStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logs := &memActivityRepo{}
	users := newMemUserRepo(logs)
	sessions := newMemSessions(testPolicy)
	limiter := newMemLimiter()
	store := newMemStorage()
	ids := &seqIDs{}

	activity := NewActivityService(logs, ids, DefaultRecentLimit)
	svc := NewAccountService(users, redis.NewManager(nil, sessions, limiter), activity, store, ids, Options{
		BcryptCost:        bcrypt.MinCost,
		MaxLoginFailures:  5,
		MaxUploadSize:     5 * 1024 * 1024,
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
	}).(*accountService)

	return &testEnv{
		svc:      svc,
		activity: activity,
		users:    users,
		logs:     logs,
		sessions: sessions,
		limiter:  limiter,
		store:    store,
	}
}

func (e *testEnv) register(t *testing.T, username, email string) *dto.UserProfileDTO {
	t.Helper()
	p, err := e.svc.Register(context.Background(), &dto.RegisterDTO{
		Username:        username,
		Email:           email,
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) login(t *testing.T, username string, remember bool) *dto.AuthDTO {
	t.Helper()
	res, err := e.svc.Login(context.Background(), &dto.LoginDTO{Username: username, Password: "secret123", Remember: remember})
	require.NoError(t, err)
	auth, err := e.svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	return auth
}

// ============================================================================
// Register / Login
// ============================================================================

func TestRegisterThenLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile := env.register(t, "alice", "alice@example.com")
	assert.Equal(t, "alice", profile.Username)
	assert.Empty(t, env.sessions.sessions, "注册不创建会话")

	stored, err := env.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)

	res, err := env.svc.Login(ctx, &dto.LoginDTO{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, 0, res.CookieMaxAge, "未勾选记住我时为浏览器会话")
	assert.Equal(t, 120*time.Minute, env.sessions.ttl[res.Token])
	require.NotNil(t, res.Profile.LastLoginAt)

	page, err := env.activity.Recent(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, model.ActionLoggedIn, page.Items[0].Action)
	assert.Equal(t, model.ActionAccountCreated, page.Items[1].Action)
}

func TestRegister_BlankEmailStoredAsNull(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "nomail", "  ")
	env.register(t, "nomail2", "")

	u, err := env.users.GetByUsername(context.Background(), "nomail")
	require.NoError(t, err)
	assert.Nil(t, u.Email)
}

func TestRegister_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "alice@example.com")

	_, err := env.svc.Register(ctx, &dto.RegisterDTO{
		Username: "alice", Password: "another1", ConfirmPassword: "another1",
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = env.svc.Register(ctx, &dto.RegisterDTO{
		Username: "alice2", Email: "alice@example.com", Password: "another1", ConfirmPassword: "another1",
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrEmailTaken)

	// 邮箱区分大小写
	_, err = env.svc.Register(ctx, &dto.RegisterDTO{
		Username: "alice3", Email: "Alice@example.com", Password: "another1", ConfirmPassword: "another1",
	})
	assert.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, &dto.RegisterDTO{Username: "bob", Password: "secret1", ConfirmPassword: "secret2"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, dto.ErrPasswordMismatch)

	_, err = env.svc.Register(ctx, &dto.RegisterDTO{Username: "b", Password: "secret1", ConfirmPassword: "secret1"})
	assert.ErrorIs(t, err, ErrValidation)

	// bcrypt 只接受72字节以内的密码
	long := strings.Repeat("p", 80)
	_, err = env.svc.Register(ctx, &dto.RegisterDTO{Username: "bob", Password: long, ConfirmPassword: long})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, dto.ErrPasswordTooLong)

	assert.Empty(t, env.users.users)
}

func TestRegister_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	const n = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Register(context.Background(), &dto.RegisterDTO{
				Username: "racer", Password: "secret123", ConfirmPassword: "secret123",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrUsernameTaken):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, env.users.users, 1)
}

func TestLogin_InvalidCredentialsIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "")

	_, wrongPassword := env.svc.Login(ctx, &dto.LoginDTO{Username: "alice", Password: "wrong-pass"})
	_, unknownUser := env.svc.Login(ctx, &dto.LoginDTO{Username: "nobody", Password: "secret123"})

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	assert.Equal(t, int64(1), env.limiter.counts["alice"])
	assert.Equal(t, int64(1), env.limiter.counts["nobody"])
	assert.Empty(t, env.sessions.sessions)
}

func TestLogin_RememberMe(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "")

	res, err := env.svc.Login(context.Background(), &dto.LoginDTO{Username: "alice", Password: "secret123", Remember: true})
	require.NoError(t, err)

	assert.Equal(t, 30*24*time.Hour, env.sessions.ttl[res.Token])
	assert.Equal(t, 30*24*60*60, res.CookieMaxAge)
	assert.True(t, env.sessions.sessions[res.Token].Persistent)
}

func TestLogin_LimitExceeded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "")

	for i := 0; i < 5; i++ {
		_, err := env.svc.Login(ctx, &dto.LoginDTO{Username: "alice", Password: "bad-pass"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// 正确密码也被拒绝
	_, err := env.svc.Login(ctx, &dto.LoginDTO{Username: "alice", Password: "secret123"})
	assert.ErrorIs(t, err, ErrLoginLimitExceeded)

	// 计数重置后恢复
	require.NoError(t, env.limiter.ResetLoginFail(ctx, "alice"))
	_, err = env.svc.Login(ctx, &dto.LoginDTO{Username: "alice", Password: "secret123"})
	assert.NoError(t, err)
	assert.Zero(t, env.limiter.counts["alice"])
}

func TestLogin_Validation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Login(context.Background(), &dto.LoginDTO{Username: "", Password: "x"})
	assert.ErrorIs(t, err, ErrValidation)
}

// ============================================================================
// Authenticate / Logout
// ============================================================================

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	profile := env.register(t, "alice", "")

	_, err := env.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = env.svc.Authenticate(ctx, "forged")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	auth := env.login(t, "alice", false)
	assert.Equal(t, profile.ID, auth.UserID)
	assert.Equal(t, "alice", auth.Username)
	assert.NotNil(t, auth.LoginAt)
	assert.Equal(t, 1, env.sessions.refreshed, "浏览器会话续期")

	remembered := env.login(t, "alice", true)
	assert.True(t, remembered.Persistent)
	assert.Equal(t, 1, env.sessions.refreshed, "持久会话不续期")
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "")
	auth := env.login(t, "alice", false)

	// 绕过服务直接删除用户
	require.NoError(t, env.users.Delete(ctx, auth.UserID))

	_, err := env.svc.Authenticate(ctx, auth.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, ok := env.sessions.sessions[auth.Token]
	assert.False(t, ok, "失效会话被销毁")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "")
	auth := env.login(t, "alice", false)

	require.NoError(t, env.svc.Logout(ctx, auth.Token))
	_, err := env.svc.Authenticate(ctx, auth.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	page, err := env.activity.Recent(ctx, auth.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.ActionLoggedOut, page.Items[0].Action)

	// 未登录时登出不报错
	assert.NoError(t, env.svc.Logout(ctx, ""))
	assert.NoError(t, env.svc.Logout(ctx, auth.Token))
}

// ============================================================================
// GetProfile
// ============================================================================

func TestGetProfile_SessionMinutes(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "")
	auth := env.login(t, "alice", false)

	env.svc.now = func() time.Time { return auth.LoginAt.Add(42*time.Minute + 59*time.Second) }

	view, err := env.svc.GetProfile(context.Background(), auth)
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.SessionMinutes)
	assert.Equal(t, "alice", view.Profile.Username)
	assert.Equal(t, int64(2), view.Activity.Total)
}

func TestSessionMinutes(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-90 * time.Second)
	future := now.Add(time.Hour)

	assert.Equal(t, int64(1), SessionMinutes(now, &past))
	assert.Equal(t, int64(0), SessionMinutes(now, nil))
	assert.Equal(t, int64(0), SessionMinutes(now, &future))
}

// ============================================================================
// UpdateProfile
// ============================================================================

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "alice@example.com")
	env.register(t, "bob", "bob@example.com")

	_, err := env.svc.UpdateProfile(ctx, &dto.UpdateProfileDTO{UserID: alice.ID, Username: " ", Email: ""})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, dto.ErrNothingToUpdate)

	_, err = env.svc.UpdateProfile(ctx, &dto.UpdateProfileDTO{UserID: alice.ID, Username: "bob"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = env.svc.UpdateProfile(ctx, &dto.UpdateProfileDTO{UserID: alice.ID, Username: "alice_new", Email: "bob@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// 冲突时两个字段都未修改
	u, err := env.users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	p, err := env.svc.UpdateProfile(ctx, &dto.UpdateProfileDTO{UserID: alice.ID, Username: "alice_new", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice_new", p.Username)
	assert.Equal(t, "new@example.com", p.Email)

	page, err := env.activity.Recent(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ActionUpdatedProfile, page.Items[0].Action)

	_, err = env.svc.UpdateProfile(ctx, &dto.UpdateProfileDTO{UserID: 999, Username: "ghost_user"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

// ============================================================================
// UploadProfilePicture
// ============================================================================

func upload(name, body string, userID uint64) *dto.UploadPictureDTO {
	return &dto.UploadPictureDTO{
		UserID:      userID,
		Filename:    name,
		Size:        int64(len(body)),
		ContentType: "image/png",
		Content:     strings.NewReader(body),
	}
}

func TestUploadProfilePicture(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "")

	_, err := env.svc.UploadProfilePicture(ctx, upload("photo.EXE", "MZ", alice.ID))
	assert.ErrorIs(t, err, ErrInvalidUpload)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
	assert.Empty(t, env.store.objects)

	p, err := env.svc.UploadProfilePicture(ctx, upload("photo.PNG", "png-bytes", alice.ID))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^user_\d+_\d+_photo\.PNG$`), p.ProfilePicture)
	assert.True(t, env.store.has(p.ProfilePicture))

	u, err := env.users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ProfilePicture, u.ProfilePicture)

	// 再次上传，旧头像被清理
	p2, err := env.svc.UploadProfilePicture(ctx, upload("../../etc/my photo.png", "png-2", alice.ID))
	require.NoError(t, err)
	assert.NotEqual(t, p.ProfilePicture, p2.ProfilePicture)
	assert.Contains(t, p2.ProfilePicture, "_my_photo.png")
	assert.False(t, env.store.has(p.ProfilePicture))

	rc, ref, err := env.svc.OpenProfilePicture(ctx, alice.ID)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "png-2", string(data))
	assert.Equal(t, p2.ProfilePicture, ref)

	page, err := env.activity.Recent(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ActionUpdatedPicture, page.Items[0].Action)
}

func TestUploadProfilePicture_Invalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "")

	tooBig := upload("big.png", "x", alice.ID)
	tooBig.Size = 5*1024*1024 + 1
	_, err := env.svc.UploadProfilePicture(ctx, tooBig)
	assert.ErrorIs(t, err, ErrInvalidUpload)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = env.svc.UploadProfilePicture(ctx, upload("empty.png", "", alice.ID))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = env.svc.UploadProfilePicture(ctx, upload("", "x", alice.ID))
	assert.ErrorIs(t, err, ErrInvalidUpload)

	assert.Empty(t, env.store.objects)
}

func TestUploadProfilePicture_UpdateFailureRemovesObject(t *testing.T) {
	logs := &memActivityRepo{}
	ids := &seqIDs{}
	store := newMemStorage()
	repo := new(MockUserRepository)
	ctx := context.Background()

	repo.On("GetByID", ctx, uint64(7)).Return(&model.User{ID: 7, Username: "alice"}, nil)
	repo.On("UpdateProfilePicture", ctx, uint64(7), mock.AnythingOfType("string")).Return(errors.New("deadlock"))

	svc := NewAccountService(repo, redis.NewManager(nil, newMemSessions(testPolicy), newMemLimiter()),
		NewActivityService(logs, ids, 0), store, ids, Options{
			MaxUploadSize:     1024,
			AllowedExtensions: []string{"png"},
		})

	_, err := svc.UploadProfilePicture(ctx, upload("a.png", "data", 7))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, store.objects, "数据库更新失败时删除已写入的文件")
	assert.Empty(t, logs.logs)
	repo.AssertExpectations(t)
}

func TestUploadProfilePicture_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	env.store.saveErr = errors.New("disk full")

	_, err := env.svc.UploadProfilePicture(context.Background(), upload("a.png", "data", alice.ID))
	assert.ErrorIs(t, err, ErrPersistence)

	u, _ := env.users.GetByID(context.Background(), alice.ID)
	assert.Empty(t, u.ProfilePicture)
}

func TestOpenProfilePicture_NoPicture(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "")

	_, _, err := env.svc.OpenProfilePicture(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNoPicture)

	// 引用存在但文件丢失
	require.NoError(t, env.users.UpdateProfilePicture(ctx, alice.ID, "user_1_1_gone.png"))
	_, _, err = env.svc.OpenProfilePicture(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNoPicture)
}

// ============================================================================
// DeleteAccount
// ============================================================================

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "")
	bob := env.register(t, "bob", "")
	auth := env.login(t, "alice", true)

	p, err := env.svc.UploadProfilePicture(ctx, upload("me.png", "img", alice.ID))
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteAccount(ctx, auth))

	_, err = env.users.GetByID(ctx, alice.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	n, _ := env.logs.CountByUser(ctx, alice.ID)
	assert.Zero(t, n)
	assert.False(t, env.store.has(p.ProfilePicture))

	// 会话已销毁，再次访问需要重新登录
	_, err = env.svc.Authenticate(ctx, auth.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, env.svc.DeleteAccount(ctx, auth), ErrUnauthenticated)

	// 其他用户不受影响
	n, _ = env.logs.CountByUser(ctx, bob.ID)
	assert.Equal(t, int64(1), n)

	// 用户名可以重新注册
	env.register(t, "alice", "")
}
