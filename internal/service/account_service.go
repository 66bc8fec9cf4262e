package service

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"account-center/config"
	"account-center/internal/dto"
	"account-center/internal/model"
	"account-center/internal/repository"
	"account-center/pkg/db"
	"account-center/pkg/metrics"
	"account-center/pkg/redis"
	"account-center/pkg/storage"

	log "account-center/pkg/logger"
)

// ============================================================================
// 配置
// ============================================================================

// Options AccountService 的业务参数
type Options struct {
	BcryptCost        int
	MaxLoginFailures  int64 // 0 表示不限制
	MaxUploadSize     int64
	AllowedExtensions []string
}

// NewOptions 从配置中提取业务参数
func NewOptions(cfg *config.Config) Options {
	exts := make([]string, 0, len(cfg.Upload.AllowedExtensions))
	for _, ext := range cfg.Upload.AllowedExtensions {
		exts = append(exts, fileExt("."+ext))
	}
	return Options{
		BcryptCost:        cfg.Auth.BcryptCost,
		MaxLoginFailures:  int64(cfg.Auth.MaxLoginFailures),
		MaxUploadSize:     cfg.Upload.MaxSize,
		AllowedExtensions: exts,
	}
}

// ============================================================================
// AccountService 接口
// ============================================================================

type AccountService interface {
	// Register 注册账号，不创建会话
	Register(ctx context.Context, registerDTO *dto.RegisterDTO) (*dto.UserProfileDTO, error)

	// Login 登录并创建会话
	Login(ctx context.Context, loginDTO *dto.LoginDTO) (*dto.LoginResultDTO, error)

	// Logout 登出，token 无效时仅清理
	Logout(ctx context.Context, token string) error

	// Authenticate 校验会话，返回当前主体
	Authenticate(ctx context.Context, token string) (*dto.AuthDTO, error)

	// GetHome 首页信息
	GetHome(ctx context.Context, userID uint64) (*dto.UserProfileDTO, error)

	// GetProfile 个人主页：资料 + 最近活动 + 会话时长
	GetProfile(ctx context.Context, auth *dto.AuthDTO) (*dto.ProfileViewDTO, error)

	// UpdateProfile 修改用户名/邮箱
	UpdateProfile(ctx context.Context, updateDTO *dto.UpdateProfileDTO) (*dto.UserProfileDTO, error)

	// UploadProfilePicture 上传头像
	UploadProfilePicture(ctx context.Context, uploadDTO *dto.UploadPictureDTO) (*dto.UserProfileDTO, error)

	// OpenProfilePicture 读取头像，没有头像时返回 ErrNoPicture
	OpenProfilePicture(ctx context.Context, userID uint64) (io.ReadCloser, string, error)

	// DeleteAccount 删除账号及其活动记录并销毁会话
	DeleteAccount(ctx context.Context, auth *dto.AuthDTO) error
}

// ============================================================================
// accountService 实现
// ============================================================================

type accountService struct {
	userRepo     repository.UserRepository
	redisManager redis.Manager
	activity     ActivityService
	store        storage.Storage
	ids          db.IDGenerator
	opts         Options

	now    func() time.Time
	stamps *stampSource

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAccountService 创建AccountService实例
func NewAccountService(
	userRepo repository.UserRepository,
	redisManager redis.Manager,
	activity ActivityService,
	store storage.Storage,
	ids db.IDGenerator,
	opts Options,
) AccountService {
	return &accountService{
		userRepo:     userRepo,
		redisManager: redisManager,
		activity:     activity,
		store:        store,
		ids:          ids,
		opts:         opts,
		now:          time.Now,
		stamps:       uploadStamps,
	}
}

// ============================================================================
// Register 注册
// ============================================================================

func (s *accountService) Register(ctx context.Context, registerDTO *dto.RegisterDTO) (*dto.UserProfileDTO, error) {
	// 1. 验证DTO
	registerDTO.Normalize()
	if err := registerDTO.Validate(); err != nil {
		log.Warn("注册参数验证失败", zap.Error(err), zap.String("username", registerDTO.Username))
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, wrap(ErrValidation, err)
	}

	// 2. 密码哈希
	hash, err := bcrypt.GenerateFromPassword([]byte(registerDTO.Password), s.opts.BcryptCost)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, wrap(ErrValidation, dto.ErrPasswordTooLong)
		}
		log.Error("密码哈希失败", zap.Error(err))
		return nil, wrap(ErrPersistence, err)
	}

	// 3. 生成ID并写库，唯一约束保证并发注册只有一个成功
	id, err := s.ids.NextID()
	if err != nil {
		log.Error("生成用户ID失败", zap.Error(err))
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, wrap(ErrPersistence, err)
	}

	user := registerDTO.ToModel(id, string(hash))
	user.CreatedAt = s.now()

	if err := s.userRepo.Create(ctx, user); err != nil {
		err = conflictError(err)
		if errors.Is(err, ErrConflict) {
			log.Warn("注册冲突", zap.Error(err), zap.String("username", user.Username))
			metrics.RegistrationsTotal.WithLabelValues(metrics.ResultConflict).Inc()
		} else {
			log.Error("创建用户失败", zap.Error(err), zap.String("username", user.Username))
			metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		}
		return nil, err
	}

	// 4. 记录活动
	recordBestEffort(ctx, s.activity, user.ID, model.ActionAccountCreated)

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	log.Info("用户注册成功", zap.String("username", user.Username), zap.Uint64("user_id", user.ID))

	return dto.FromModel(user), nil
}

// ============================================================================
// Login 登录
// ============================================================================

func (s *accountService) Login(ctx context.Context, loginDTO *dto.LoginDTO) (*dto.LoginResultDTO, error) {
	// 1. 验证DTO
	if err := loginDTO.Validate(); err != nil {
		log.Warn("登录参数验证失败", zap.Error(err), zap.String("username", loginDTO.Username))
		return nil, wrap(ErrValidation, err)
	}

	limiter := s.redisManager.GetLoginLimiter()

	// 2. 检查登录失败次数限制
	if s.opts.MaxLoginFailures > 0 {
		failCount, err := limiter.GetLoginFailCount(ctx, loginDTO.Username)
		if err != nil {
			log.Error("获取登录失败次数失败", zap.Error(err), zap.String("username", loginDTO.Username))
			// 降级策略：失败不影响登录流程
		}
		if failCount >= s.opts.MaxLoginFailures {
			log.Warn("登录失败次数过多",
				zap.String("username", loginDTO.Username),
				zap.Int64("fail_count", failCount))
			metrics.LoginsTotal.WithLabelValues(metrics.ResultLimited).Inc()
			return nil, ErrLoginLimitExceeded
		}
	}

	// 3. 查询用户
	user, err := s.userRepo.GetByUsername(ctx, loginDTO.Username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error("查询用户失败", zap.Error(err), zap.String("username", loginDTO.Username))
			metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
			return nil, wrap(ErrPersistence, err)
		}
		// 用户不存在时同样做一次哈希比较，响应时间与密码错误一致
		_ = bcrypt.CompareHashAndPassword(s.dummyPasswordHash(), []byte(loginDTO.Password))
		log.Warn("用户不存在", zap.String("username", loginDTO.Username))
		s.recordLoginFail(ctx, loginDTO.Username)
		return nil, ErrInvalidCredentials
	}

	// 4. 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginDTO.Password)); err != nil {
		log.Warn("密码错误", zap.String("username", loginDTO.Username))
		s.recordLoginFail(ctx, loginDTO.Username)
		return nil, ErrInvalidCredentials
	}

	// 5. 创建Session
	now := s.now()
	sessions := s.redisManager.GetSession()
	token, err := sessions.CreateSession(ctx, &redis.Session{
		UserID:     user.ID,
		Username:   user.Username,
		LoginAt:    &now,
		Persistent: loginDTO.Remember,
	})
	if err != nil {
		log.Error("创建Session失败", zap.Error(err), zap.Uint64("user_id", user.ID))
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, wrap(ErrPersistence, err)
	}

	// 6. 更新最近登录时间
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Warn("更新最近登录时间失败", zap.Error(err), zap.Uint64("user_id", user.ID))
	} else {
		user.LastLoginAt = &now
	}

	// 7. 清空登录失败次数
	if err := limiter.ResetLoginFail(ctx, loginDTO.Username); err != nil {
		log.Error("重置登录失败次数失败", zap.Error(err))
	}

	// 8. 记录活动
	recordBestEffort(ctx, s.activity, user.ID, model.ActionLoggedIn)

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	log.Info("用户登录成功",
		zap.String("username", user.Username),
		zap.Uint64("user_id", user.ID),
		zap.Bool("remember", loginDTO.Remember))

	return &dto.LoginResultDTO{
		Token:        token,
		CookieMaxAge: sessions.Policy().CookieMaxAge(loginDTO.Remember),
		Profile:      dto.FromModel(user),
	}, nil
}

func (s *accountService) recordLoginFail(ctx context.Context, username string) {
	metrics.LoginsTotal.WithLabelValues(metrics.ResultInvalidCredentials).Inc()
	if s.opts.MaxLoginFailures <= 0 {
		return
	}
	if _, err := s.redisManager.GetLoginLimiter().RecordLoginFail(ctx, username); err != nil {
		log.Error("记录登录失败次数失败", zap.Error(err))
	}
}

func (s *accountService) dummyPasswordHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("account-center"), s.opts.BcryptCost)
	})
	return s.dummyHash
}

// ============================================================================
// Logout 登出
// ============================================================================

// Logout 先记录 "Logged out" 再销毁会话
func (s *accountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sessions := s.redisManager.GetSession()
	if sess, err := sessions.GetSession(ctx, token); err == nil {
		recordBestEffort(ctx, s.activity, sess.UserID, model.ActionLoggedOut)
		log.Info("用户登出", zap.Uint64("user_id", sess.UserID))
	}

	if err := sessions.DestroySession(ctx, token); err != nil {
		log.Error("销毁Session失败", zap.Error(err))
		return wrap(ErrPersistence, err)
	}
	return nil
}

// ============================================================================
// Authenticate 会话校验
// ============================================================================

func (s *accountService) Authenticate(ctx context.Context, token string) (*dto.AuthDTO, error) {
	sessions := s.redisManager.GetSession()

	// 1. 读取Session
	sess, err := sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, redis.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		log.Error("读取Session失败", zap.Error(err))
		return nil, wrap(ErrPersistence, err)
	}

	// 2. 用户已被删除时销毁会话
	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("会话对应的用户不存在", zap.Uint64("user_id", sess.UserID))
			if err := sessions.DestroySession(ctx, token); err != nil {
				log.Warn("销毁失效Session失败", zap.Error(err))
			}
			return nil, ErrUnauthenticated
		}
		log.Error("查询用户失败", zap.Error(err), zap.Uint64("user_id", sess.UserID))
		return nil, wrap(ErrPersistence, err)
	}

	// 3. 浏览器会话按空闲时间续期
	if !sess.Persistent {
		if err := sessions.RefreshSession(ctx, token, false); err != nil {
			log.Warn("刷新Session失败", zap.Error(err), zap.Uint64("user_id", user.ID))
		}
	}

	return &dto.AuthDTO{
		Token:      token,
		UserID:     user.ID,
		Username:   user.Username,
		LoginAt:    sess.LoginAt,
		Persistent: sess.Persistent,
	}, nil
}

// ============================================================================
// GetHome / GetProfile
// ============================================================================

func (s *accountService) GetHome(ctx context.Context, userID uint64) (*dto.UserProfileDTO, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.FromModel(user), nil
}

func (s *accountService) GetProfile(ctx context.Context, auth *dto.AuthDTO) (*dto.ProfileViewDTO, error) {
	user, err := s.getUser(ctx, auth.UserID)
	if err != nil {
		return nil, err
	}

	page, err := s.activity.Recent(ctx, auth.UserID)
	if err != nil {
		return nil, err
	}

	return &dto.ProfileViewDTO{
		Profile:        dto.FromModel(user),
		Activity:       page,
		SessionMinutes: SessionMinutes(s.now(), auth.LoginAt),
	}, nil
}

// SessionMinutes 登录至今的整分钟数，缺失登录时间按 0 计
func SessionMinutes(now time.Time, loginAt *time.Time) int64 {
	if loginAt == nil {
		return 0
	}
	minutes := int64(now.Sub(*loginAt) / time.Minute)
	if minutes < 0 {
		return 0
	}
	return minutes
}

func (s *accountService) getUser(ctx context.Context, userID uint64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		log.Error("查询用户失败", zap.Error(err), zap.Uint64("user_id", userID))
		return nil, wrap(ErrPersistence, err)
	}
	return user, nil
}

// ============================================================================
// UpdateProfile 修改资料
// ============================================================================

func (s *accountService) UpdateProfile(ctx context.Context, updateDTO *dto.UpdateProfileDTO) (*dto.UserProfileDTO, error) {
	// 1. 验证DTO
	if err := updateDTO.Validate(); err != nil {
		log.Warn("修改资料参数验证失败", zap.Error(err), zap.Uint64("user_id", updateDTO.UserID))
		return nil, wrap(ErrValidation, err)
	}

	// 2. 单条UPDATE语句写入全部字段
	var username, email *string
	if updateDTO.Username != "" {
		username = &updateDTO.Username
	}
	if updateDTO.Email != "" {
		email = &updateDTO.Email
	}

	if err := s.userRepo.UpdateProfile(ctx, updateDTO.UserID, username, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		err = conflictError(err)
		log.Warn("修改资料失败", zap.Error(err), zap.Uint64("user_id", updateDTO.UserID))
		return nil, err
	}

	// 3. 记录活动
	recordBestEffort(ctx, s.activity, updateDTO.UserID, model.ActionUpdatedProfile)
	log.Info("修改资料成功", zap.Uint64("user_id", updateDTO.UserID))

	// 4. 重新查询用户信息
	return s.GetHome(ctx, updateDTO.UserID)
}

// ============================================================================
// UploadProfilePicture 上传头像
// ============================================================================

func (s *accountService) UploadProfilePicture(ctx context.Context, uploadDTO *dto.UploadPictureDTO) (*dto.UserProfileDTO, error) {
	// 1. 验证文件
	if err := s.validateUpload(uploadDTO); err != nil {
		log.Warn("头像文件校验失败",
			zap.Error(err),
			zap.Uint64("user_id", uploadDTO.UserID),
			zap.String("filename", uploadDTO.Filename))
		metrics.UploadsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, err
	}

	sanitized, err := SanitizeFilename(uploadDTO.Filename)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, wrap(ErrInvalidUpload, err)
	}

	user, err := s.getUser(ctx, uploadDTO.UserID)
	if err != nil {
		return nil, err
	}

	// 2. 先写存储
	name := pictureObjectName(user.ID, s.stamps.Next(), sanitized, fileExt(uploadDTO.Filename))
	ref, err := s.store.Save(ctx, name, uploadDTO.Content, uploadDTO.Size, uploadDTO.ContentType)
	if err != nil {
		log.Error("保存头像文件失败", zap.Error(err), zap.String("name", name))
		metrics.UploadsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, wrap(ErrPersistence, err)
	}

	// 3. 再更新数据库，失败时删除刚写入的文件
	if err := s.userRepo.UpdateProfilePicture(ctx, user.ID, ref); err != nil {
		log.Error("更新头像失败", zap.Error(err), zap.Uint64("user_id", user.ID))
		if removeErr := s.store.Delete(ctx, ref); removeErr != nil {
			log.Warn("删除文件失败", zap.Error(removeErr), zap.String("ref", ref))
		}
		metrics.UploadsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, wrap(ErrPersistence, err)
	}

	// 4. 清理旧头像
	if old := user.ProfilePicture; old != "" && old != ref {
		if err := s.store.Delete(ctx, old); err != nil {
			log.Warn("删除旧头像失败", zap.Error(err), zap.String("ref", old))
		}
	}

	recordBestEffort(ctx, s.activity, user.ID, model.ActionUpdatedPicture)
	metrics.UploadsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	log.Info("更新头像成功", zap.Uint64("user_id", user.ID), zap.String("ref", ref))

	user.ProfilePicture = ref
	return dto.FromModel(user), nil
}

func (s *accountService) validateUpload(uploadDTO *dto.UploadPictureDTO) error {
	if err := uploadDTO.Validate(); err != nil {
		return wrap(ErrInvalidUpload, err)
	}
	if !slices.Contains(s.opts.AllowedExtensions, fileExt(uploadDTO.Filename)) {
		return wrap(ErrInvalidUpload, ErrUnsupportedFileType)
	}
	if uploadDTO.Size == 0 {
		return wrap(ErrInvalidUpload, ErrEmptyFile)
	}
	if s.opts.MaxUploadSize > 0 && uploadDTO.Size > s.opts.MaxUploadSize {
		return wrap(ErrInvalidUpload, ErrFileTooLarge)
	}
	return nil
}

// ============================================================================
// OpenProfilePicture 读取头像
// ============================================================================

func (s *accountService) OpenProfilePicture(ctx context.Context, userID uint64) (io.ReadCloser, string, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user.ProfilePicture == "" {
		return nil, "", ErrNoPicture
	}

	rc, err := s.store.Open(ctx, user.ProfilePicture)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn("读取头像失败", zap.Error(err), zap.String("ref", user.ProfilePicture))
		}
		return nil, "", ErrNoPicture
	}
	return rc, user.ProfilePicture, nil
}

// ============================================================================
// DeleteAccount 删除账号
// ============================================================================

func (s *accountService) DeleteAccount(ctx context.Context, auth *dto.AuthDTO) error {
	user, err := s.getUser(ctx, auth.UserID)
	if err != nil {
		return err
	}

	// 1. 删除活动记录与用户（同一事务）
	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthenticated
		}
		log.Error("删除账号失败", zap.Error(err), zap.Uint64("user_id", user.ID))
		return wrap(ErrPersistence, err)
	}

	// 2. 销毁会话
	if err := s.redisManager.GetSession().DestroySession(ctx, auth.Token); err != nil {
		log.Warn("销毁Session失败", zap.Error(err), zap.Uint64("user_id", user.ID))
	}

	// 3. 删除头像文件
	if user.ProfilePicture != "" {
		if err := s.store.Delete(ctx, user.ProfilePicture); err != nil {
			log.Warn("删除头像文件失败", zap.Error(err), zap.String("ref", user.ProfilePicture))
		}
	}

	log.Info("账号已删除", zap.Uint64("user_id", user.ID), zap.String("username", user.Username))
	return nil
}
