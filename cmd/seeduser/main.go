package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"account-center/config"
	"account-center/internal/model"
	"account-center/internal/repository"
	"account-center/pkg/container"
	"account-center/pkg/db"

	log "account-center/pkg/logger"
)

var (
	configPath = flag.String("config", "config/config.yaml", "配置文件路径")
	prefix     = flag.String("prefix", "demo_user_", "用户名前缀")
	count      = flag.Int("count", 10, "创建的用户数量")
	password   = flag.String("password", "password", "所有用户共用的密码")
	withEmail  = flag.Bool("email", true, "是否生成 {username}@example.com 邮箱")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("加载配置失败: " + err.Error())
	}

	// 2. 初始化日志
	logConfig := &log.Config{
		Level:    cfg.Log.Level,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}
	if err := log.Init(logConfig); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer log.Sync()

	if *count <= 0 {
		log.Fatal("count 必须大于 0", zap.Int("count", *count))
	}

	log.Info("开始创建测试用户...", zap.String("prefix", *prefix), zap.Int("count", *count))

	// 3. 初始化依赖注入容器
	c, err := container.New(cfg)
	if err != nil {
		log.Fatal("初始化容器失败", zap.Error(err))
	}

	// 4. 获取 UserRepository 与 ID 生成器
	var (
		userRepo repository.UserRepository
		ids      db.IDGenerator
	)
	if err := c.Invoke(func(repo repository.UserRepository, gen db.IDGenerator) {
		userRepo, ids = repo, gen
	}); err != nil {
		log.Fatal("获取 UserRepository 失败", zap.Error(err))
	}

	// 5. 密码只哈希一次，所有用户共用
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(*password), cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatal("加密密码失败", zap.Error(err))
	}

	// 6. 构造用户
	now := time.Now()
	users := make([]*model.User, 0, *count)
	for i := 1; i <= *count; i++ {
		id, err := ids.NextID()
		if err != nil {
			log.Fatal("生成雪花ID失败", zap.Error(err))
		}

		user := &model.User{
			ID:           id,
			Username:     fmt.Sprintf("%s%d", *prefix, i),
			PasswordHash: string(passwordHash),
			CreatedAt:    now,
		}
		if *withEmail {
			email := user.Username + "@example.com"
			user.Email = &email
		}
		users = append(users, user)
	}

	// 7. 同一事务批量写入
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := userRepo.BatchCreate(ctx, users); err != nil {
		log.Fatal("批量创建用户失败", zap.Error(err))
	}

	// 8. 成功提示
	log.Info("测试用户创建成功", zap.Int("count", len(users)))

	fmt.Println("\n=========================================")
	fmt.Printf("已创建 %d 个测试账号\n", len(users))
	fmt.Println("=========================================")
	fmt.Printf("用户名:  %s1 ... %s%d\n", *prefix, *prefix, *count)
	fmt.Printf("密码:    %s\n", *password)
	fmt.Println("=========================================")
	fmt.Printf("\n测试命令：\n")
	fmt.Printf("curl -X POST http://localhost:%d/api/v1/auth/login \\\n", cfg.Server.Port)
	fmt.Printf("  -H \"Content-Type: application/json\" \\\n")
	fmt.Printf("  -d '{\"username\": \"%s1\", \"password\": \"%s\"}'\n\n", *prefix, *password)
}
