package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"account-center/config"
	"account-center/internal/dto"
	"account-center/internal/middleware"
	"account-center/internal/service"
	"account-center/pkg/response"

	log "account-center/pkg/logger"
)

const (
	// HomePath 登录成功后的跳转地址
	HomePath = "/api/v1/home"
	// PicturePath 头像地址
	PicturePath = "/api/v1/profile/picture"

	// PictureField 上传头像的表单字段
	PictureField = "profile_pic"

	requestTimeout = 5 * time.Second
	uploadTimeout  = 30 * time.Second
)

// ============================================================================
// Handler 结构体
// ============================================================================

type AccountHandler struct {
	accounts       service.AccountService
	session        *config.SessionConfig
	defaultPicture string
}

// NewAccountHandler 创建 AccountHandler 实例
func NewAccountHandler(accounts service.AccountService, cfg *config.Config) *AccountHandler {
	return &AccountHandler{
		accounts:       accounts,
		session:        &cfg.Session,
		defaultPicture: cfg.Upload.DefaultPicture,
	}
}

// ============================================================================
// 请求 / 响应结构体
// ============================================================================

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type UpdateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ProfileResponse struct {
	ID          uint64     `json:"id,string"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	PictureURL  string     `json:"picture_url"`
	HasPicture  bool       `json:"has_picture"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ActivityResponse struct {
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

type ActivityPageResponse struct {
	Items []ActivityResponse `json:"items"`
	Total int64              `json:"total"`
}

type ProfileViewResponse struct {
	Profile        *ProfileResponse      `json:"profile"`
	Activity       *ActivityPageResponse `json:"activity"`
	SessionMinutes int64                 `json:"session_minutes"`
}

type LoginResponse struct {
	Profile  *ProfileResponse `json:"profile"`
	Redirect string           `json:"redirect"`
}

// ============================================================================
// Handler 方法
// ============================================================================

// Register 注册，成功后提示跳转登录
func (h *AccountHandler) Register(c *gin.Context) {
	if _, ok := middleware.GetAuth(c); ok {
		response.SuccessWithMessage(c, "已登录", response.RedirectData{Redirect: HomePath})
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数错误")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if _, err := h.accounts.Register(ctx, &dto.RegisterDTO{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}); err != nil {
		respondError(c, err, h.session.LoginPath)
		return
	}

	response.Created(c, "注册成功，请登录", response.RedirectData{Redirect: h.session.LoginPath})
}

// Login 登录，已登录时直接返回当前用户
func (h *AccountHandler) Login(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if auth, ok := middleware.GetAuth(c); ok {
		profile, err := h.accounts.GetHome(ctx, auth.UserID)
		if err == nil {
			response.Success(c, LoginResponse{Profile: toProfileResponse(profile), Redirect: HomePath})
			return
		}
		if !errors.Is(err, service.ErrUnauthenticated) {
			respondError(c, err, h.session.LoginPath)
			return
		}
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数错误")
		return
	}

	result, err := h.accounts.Login(ctx, &dto.LoginDTO{
		Username: req.Username,
		Password: req.Password,
		Remember: req.Remember,
	})
	if err != nil {
		respondError(c, err, h.session.LoginPath)
		return
	}

	// 设置Cookie（必须在写响应之前）
	middleware.SetSessionCookie(c, h.session, result.Token, result.CookieMaxAge)

	response.Success(c, LoginResponse{
		Profile:  toProfileResponse(result.Profile),
		Redirect: HomePath,
	})
}

// Logout 登出，无论是否登录都清除Cookie
func (h *AccountHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.session.CookieName)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.accounts.Logout(ctx, token); err != nil {
		log.Warn("登出时销毁会话失败", zap.Error(err))
	}

	middleware.ClearSessionCookie(c, h.session)
	response.SuccessWithMessage(c, "已退出登录", response.RedirectData{Redirect: h.session.LoginPath})
}

// Home 首页
func (h *AccountHandler) Home(c *gin.Context) {
	auth := mustAuth(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profile, err := h.accounts.GetHome(ctx, auth.UserID)
	if err != nil {
		respondError(c, err, h.session.LoginPath)
		return
	}

	response.Success(c, toProfileResponse(profile))
}

// GetProfile 个人主页
func (h *AccountHandler) GetProfile(c *gin.Context) {
	auth := mustAuth(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	view, err := h.accounts.GetProfile(ctx, auth)
	if err != nil {
		respondError(c, err, h.session.LoginPath)
		return
	}

	response.Success(c, ProfileViewResponse{
		Profile:        toProfileResponse(view.Profile),
		Activity:       toActivityPageResponse(view.Activity),
		SessionMinutes: view.SessionMinutes,
	})
}

// UpdateProfile 修改用户名/邮箱
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	auth := mustAuth(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数错误")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profile, err := h.accounts.UpdateProfile(ctx, &dto.UpdateProfileDTO{
		UserID:   auth.UserID,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		respondError(c, err, h.session.LoginPath)
		return
	}

	response.SuccessWithMessage(c, "资料已更新", toProfileResponse(profile))
}

// UploadProfilePicture 上传头像
func (h *AccountHandler) UploadProfilePicture(c *gin.Context) {
	auth := mustAuth(c)

	file, err := c.FormFile(PictureField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, response.CodeFileTooLarge, "")
			return
		}
		response.Error(c, response.CodeInvalidFile, dto.ErrFileMissing.Error())
		return
	}

	content, err := file.Open()
	if err != nil {
		log.Error("打开上传文件失败", zap.Error(err))
		response.Error(c, response.CodeInvalidFile, "")
		return
	}
	defer content.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), uploadTimeout)
	defer cancel()

	profile, err := h.accounts.UploadProfilePicture(ctx, &dto.UploadPictureDTO{
		UserID:      auth.UserID,
		Filename:    file.Filename,
		Size:        file.Size,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		respondError(c, err, h.session.LoginPath)
		return
	}

	response.SuccessWithMessage(c, "头像已更新", toProfileResponse(profile))
}

// GetProfilePicture 获取头像，没有头像时返回默认头像
func (h *AccountHandler) GetProfilePicture(c *gin.Context) {
	auth := mustAuth(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), uploadTimeout)
	defer cancel()

	rc, ref, err := h.accounts.OpenProfilePicture(ctx, auth.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoPicture) {
			h.serveDefaultPicture(c)
			return
		}
		respondError(c, err, h.session.LoginPath)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(ref))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, no-cache")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

// serveDefaultPicture 返回默认头像
func (h *AccountHandler) serveDefaultPicture(c *gin.Context) {
	if h.defaultPicture == "" {
		c.Status(http.StatusNotFound)
		return
	}
	if _, err := os.Stat(h.defaultPicture); err != nil {
		log.Error("默认头像文件不存在", zap.String("path", h.defaultPicture))
		c.Status(http.StatusNotFound)
		return
	}
	c.File(h.defaultPicture)
}

// DeleteAccount 删除账号
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	auth := mustAuth(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.accounts.DeleteAccount(ctx, auth); err != nil {
		respondError(c, err, h.session.LoginPath)
		return
	}

	middleware.ClearSessionCookie(c, h.session)
	response.SuccessWithMessage(c, "账号已删除", response.RedirectData{Redirect: h.session.LoginPath})
}

// ============================================================================
// 工具函数
// ============================================================================

// mustAuth 仅用于 SessionGuard 之后的路由
func mustAuth(c *gin.Context) *dto.AuthDTO {
	auth, ok := middleware.GetAuth(c)
	if !ok {
		panic("handler: 路由缺少 SessionGuard")
	}
	return auth
}

func toProfileResponse(p *dto.UserProfileDTO) *ProfileResponse {
	if p.IsEmpty() {
		return nil
	}
	return &ProfileResponse{
		ID:          p.ID,
		Username:    p.Username,
		Email:       p.Email,
		PictureURL:  PicturePath,
		HasPicture:  p.HasPicture(),
		LastLoginAt: p.LastLoginAt,
		CreatedAt:   p.CreatedAt,
	}
}

func toActivityPageResponse(page *dto.ActivityPageDTO) *ActivityPageResponse {
	if page == nil {
		return &ActivityPageResponse{Items: []ActivityResponse{}}
	}
	items := make([]ActivityResponse, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, ActivityResponse{Action: item.Action, CreatedAt: item.CreatedAt})
	}
	return &ActivityPageResponse{Items: items, Total: page.Total}
}
