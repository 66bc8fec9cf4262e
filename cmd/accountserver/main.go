package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"account-center/config"
	"account-center/pkg/container"
	"account-center/pkg/redis"

	log "account-center/pkg/logger"
)

var (
	configPath = flag.String("config", "config/config.yaml", "配置文件路径")
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 1. 加载 .env（不存在时忽略）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic("加载 .env 失败: " + err.Error())
	}

	// 2. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("加载配置失败: " + err.Error())
	}

	// 3. 初始化日志
	logConfig := &log.Config{
		Level:    cfg.Log.Level,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}
	if err := log.Init(logConfig); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer log.Sync()

	log.Info("Account Server 启动中...")
	log.Info("配置加载成功", zap.String("config_path", *configPath))

	// 4. 初始化依赖注入容器
	c, err := container.New(cfg)
	if err != nil {
		log.Fatal("初始化容器失败", zap.Error(err))
	}
	log.Info("依赖注入容器初始化成功")

	// 5. 从容器获取路由与需要关闭的连接
	var (
		engine      *gin.Engine
		conn        *sqlx.DB
		redisClient redis.Client
	)
	if err := c.Invoke(func(e *gin.Engine, db *sqlx.DB, rc redis.Client) {
		engine, conn, redisClient = e, db, rc
	}); err != nil {
		log.Fatal("构建依赖失败", zap.Error(err))
	}
	defer conn.Close()
	defer redisClient.Close()

	// 6. 启动 HTTP Server（在 goroutine 中）
	addr := cfg.Server.GetHTTPAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}
	go func() {
		log.Info("Account Server 启动成功",
			zap.String("addr", addr),
			zap.String("mode", cfg.Server.Mode))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("启动 HTTP Server 失败", zap.Error(err))
		}
	}()

	// 7. 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("收到退出信号，开始优雅关闭...")

	// 8. 优雅关闭 HTTP Server
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP Server 关闭超时", zap.Error(err))
	}
	log.Info("Account Server 已关闭")
}
