package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	"account-center/config"
	"account-center/internal/handler"
	"account-center/internal/middleware"
	"account-center/internal/service"
)

// multipartOverhead 上传请求中表单边界等额外字节
const multipartOverhead = 64 << 10

// Params 路由所需依赖
type Params struct {
	dig.In

	Config          *config.Config
	Accounts        service.AccountService
	AccountHandler  *handler.AccountHandler
	ActivityHandler *handler.ActivityHandler
	HealthHandler   *handler.HealthHandler
}

// SetupRouter 设置路由
func SetupRouter(p Params) *gin.Engine {
	gin.SetMode(ginMode(p.Config.Server.Mode))

	// 创建 Gin Engine（不使用默认中间件）
	r := gin.New()

	// 全局中间件
	r.Use(middleware.RecoveryMiddleware())                         // Panic 恢复
	r.Use(middleware.CORSMiddleware(p.Config.CORS.AllowedOrigins)) // CORS
	r.Use(middleware.MetricsMiddleware())                          // 指标
	r.Use(middleware.LoggerMiddleware())                           // 日志

	// 探针与指标
	r.GET("/health", p.HealthHandler.Liveness)
	r.GET("/health/ready", p.HealthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	session := &p.Config.Session
	optionalAuth := middleware.OptionalAuth(p.Accounts, session)
	requireAuth := middleware.SessionGuard(p.Accounts, session)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 认证相关
		auth := api.Group("/auth", optionalAuth)
		{
			auth.POST("/register", p.AccountHandler.Register)
			auth.POST("/login", p.AccountHandler.Login)
			auth.POST("/logout", p.AccountHandler.Logout)
		}

		// 以下路由需要登录
		guarded := api.Group("", requireAuth)
		{
			guarded.GET("/home", p.AccountHandler.Home)
			guarded.DELETE("/account", p.AccountHandler.DeleteAccount)

			// 用户信息相关
			profile := guarded.Group("/profile")
			{
				profile.GET("", p.AccountHandler.GetProfile)
				profile.PATCH("", p.AccountHandler.UpdateProfile)
				profile.POST("/picture",
					middleware.BodyLimit(p.Config.Upload.MaxSize+multipartOverhead),
					p.AccountHandler.UploadProfilePicture)
				profile.GET("/picture", p.AccountHandler.GetProfilePicture)
			}

			// 活动记录
			activity := guarded.Group("/activity")
			{
				activity.GET("", p.ActivityHandler.List)
				activity.DELETE("", p.ActivityHandler.Clear)
			}
		}
	}

	return r
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
