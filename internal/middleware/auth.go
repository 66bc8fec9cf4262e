package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"account-center/config"
	"account-center/internal/dto"
	"account-center/internal/service"
	"account-center/pkg/response"

	log "account-center/pkg/logger"
)

// AuthKey gin.Context 中保存当前会话主体的键
const AuthKey = "auth"

// GetAuth 获取当前会话主体
func GetAuth(c *gin.Context) (*dto.AuthDTO, bool) {
	v, ok := c.Get(AuthKey)
	if !ok {
		return nil, false
	}
	auth, ok := v.(*dto.AuthDTO)
	return auth, ok && auth != nil
}

// SessionGuard 需要登录的路由
// 未登录：浏览器 303 跳转登录页，API 客户端 401 + data.redirect
func SessionGuard(accounts service.AccountService, cfg *config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(cfg.CookieName)

		auth, err := accounts.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				if token != "" {
					ClearSessionCookie(c, cfg)
				}
				response.Unauthenticated(c, cfg.LoginPath)
				return
			}
			log.Error("会话校验失败", zap.Error(err))
			response.AbortWithError(c, response.CodeInternalServerError, "")
			return
		}

		c.Set(AuthKey, auth)
		c.Next()
	}
}

// OptionalAuth 尽量识别会话，失败不拦截
func OptionalAuth(accounts service.AccountService, cfg *config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cfg.CookieName)
		if err == nil && token != "" {
			if auth, err := accounts.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(AuthKey, auth)
			}
		}
		c.Next()
	}
}

// ============================================================================
// Cookie
// ============================================================================

// SetSessionCookie 写入会话Cookie，maxAge 为 0 时是浏览器会话Cookie
func SetSessionCookie(c *gin.Context, cfg *config.SessionConfig, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		cfg.CookieName,
		token,
		maxAge,
		"/",
		"",
		cfg.CookieSecure,
		true, // HttpOnly: 防止XSS读取
	)
}

// ClearSessionCookie 清除会话Cookie
func ClearSessionCookie(c *gin.Context, cfg *config.SessionConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.CookieSecure, true)
}
