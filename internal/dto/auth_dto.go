package dto

import "time"

// ============================================================================
// 注册 / 登录相关 DTO
// ============================================================================

// RegisterDTO 注册请求
type RegisterDTO struct {
	Username        string `validate:"required,username"`
	Email           string `validate:"omitempty,email,max=255"` // 选填
	Password        string `validate:"required,min=6,max=100"`  // 明文密码
	ConfirmPassword string `validate:"required"`
}

// LoginDTO 登录请求
type LoginDTO struct {
	Username string `validate:"required"`
	Password string `validate:"required"` // 明文密码
	Remember bool   // 记住我：浏览器关闭后会话仍有效
}

// LoginResultDTO 登录结果
type LoginResultDTO struct {
	Token        string
	CookieMaxAge int // 0 表示浏览器会话 Cookie
	Profile      *UserProfileDTO
}

// ============================================================================
// 会话 DTO
// ============================================================================

// AuthDTO 已认证的会话主体
type AuthDTO struct {
	Token      string
	UserID     uint64
	Username   string
	LoginAt    *time.Time
	Persistent bool
}
