package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Log       LogConfig       `yaml:"log"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	Upload    UploadConfig    `yaml:"upload"`
	Storage   StorageConfig   `yaml:"storage"`
	Activity  ActivityConfig  `yaml:"activity"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig HTTP Server 配置
type ServerConfig struct {
	Host            string `yaml:"host" env:"SERVER_HOST, overwrite"`
	Port            int    `yaml:"port" env:"SERVER_PORT, overwrite"`
	Mode            string `yaml:"mode" env:"SERVER_MODE, overwrite"`
	ShutdownTimeout int    `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT, overwrite"` // 秒
}

// GetHTTPAddr 获取 HTTP Server 地址
func (s *ServerConfig) GetHTTPAddr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// GetShutdownTimeout 获取优雅关闭超时时间
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `yaml:"driver" env:"DB_DRIVER, overwrite"` // 数据库驱动: mysql, postgres, pgx
	Host            string `yaml:"host" env:"DB_HOST, overwrite"`
	Port            int    `yaml:"port" env:"DB_PORT, overwrite"`
	Username        string `yaml:"username" env:"DB_USERNAME, overwrite"`
	Password        string `yaml:"password" env:"DB_PASSWORD, overwrite"`
	Database        string `yaml:"database" env:"DB_NAME, overwrite"`
	Charset         string `yaml:"charset"`
	ParseTime       bool   `yaml:"parse_time"`
	Loc             string `yaml:"loc"`
	SSLMode         string `yaml:"ssl_mode" env:"DB_SSL_MODE, overwrite"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 秒
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE, overwrite"`
}

// GetDSN 获取数据库连接字符串
func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "postgres", "pgsql", "pgx":
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host,
			d.Port,
			d.Username,
			d.Password,
			d.Database,
			sslMode,
		)
	default:
		// clientFoundRows: 值未变化的 UPDATE 也返回匹配行数
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s&clientFoundRows=true",
			d.Username,
			d.Password,
			d.Host,
			d.Port,
			d.Database,
			d.Charset,
			d.ParseTime,
			d.Loc,
		)
	}
}

// GetConnMaxLifetime 获取连接最大存活时间
func (d *DatabaseConfig) GetConnMaxLifetime() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string `yaml:"host" env:"REDIS_HOST, overwrite"`
	Port         int    `yaml:"port" env:"REDIS_PORT, overwrite"`
	Password     string `yaml:"password" env:"REDIS_PASSWORD, overwrite"`
	DB           int    `yaml:"db" env:"REDIS_DB, overwrite"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
	MaxRetries   int    `yaml:"max_retries"`
	DialTimeout  int    `yaml:"dial_timeout"`  // 秒
	ReadTimeout  int    `yaml:"read_timeout"`  // 秒
	WriteTimeout int    `yaml:"write_timeout"` // 秒
}

// GetAddr 获取Redis地址
func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GetDialTimeout 获取连接超时时间
func (r *RedisConfig) GetDialTimeout() time.Duration {
	return time.Duration(r.DialTimeout) * time.Second
}

// GetReadTimeout 获取读超时时间
func (r *RedisConfig) GetReadTimeout() time.Duration {
	return time.Duration(r.ReadTimeout) * time.Second
}

// GetWriteTimeout 获取写超时时间
func (r *RedisConfig) GetWriteTimeout() time.Duration {
	return time.Duration(r.WriteTimeout) * time.Second
}

// SnowflakeConfig 雪花ID配置
type SnowflakeConfig struct {
	MachineID int64 `yaml:"machine_id" env:"SNOWFLAKE_MACHINE_ID, overwrite"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL, overwrite"`
	Output   string `yaml:"output" env:"LOG_OUTPUT, overwrite"`
	FilePath string `yaml:"file_path" env:"LOG_FILE_PATH, overwrite"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	CookieName   string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME, overwrite"`
	CookieSecure bool   `yaml:"cookie_secure" env:"SESSION_COOKIE_SECURE, overwrite"`
	RememberDays int    `yaml:"remember_days"`
	IdleTTL      int    `yaml:"idle_ttl"` // 分钟，未勾选"记住我"时服务端保留时长
	LoginPath    string `yaml:"login_path"`
}

// GetRememberTTL "记住我"会话的有效期
func (s *SessionConfig) GetRememberTTL() time.Duration {
	return time.Duration(s.RememberDays) * 24 * time.Hour
}

// GetIdleTTL 浏览器会话在服务端的空闲过期时间
func (s *SessionConfig) GetIdleTTL() time.Duration {
	return time.Duration(s.IdleTTL) * time.Minute
}

// AuthConfig 认证配置
type AuthConfig struct {
	BcryptCost       int `yaml:"bcrypt_cost"`
	MaxLoginFailures int `yaml:"max_login_failures"` // 0 表示不限制
	FailureWindow    int `yaml:"failure_window"`     // 分钟
}

// GetFailureWindow 登录失败计数窗口
func (a *AuthConfig) GetFailureWindow() time.Duration {
	return time.Duration(a.FailureWindow) * time.Minute
}

// UploadConfig 上传配置
type UploadConfig struct {
	MaxSize           int64    `yaml:"max_size"` // 字节
	AllowedExtensions []string `yaml:"allowed_extensions"`
	DefaultPicture    string   `yaml:"default_picture"`
}

// StorageConfig 文件存储配置
type StorageConfig struct {
	Driver   string   `yaml:"driver" env:"STORAGE_DRIVER, overwrite"` // local, s3
	LocalDir string   `yaml:"local_dir" env:"STORAGE_LOCAL_DIR, overwrite"`
	S3       S3Config `yaml:"s3"`
}

// S3Config S3/MinIO 配置
type S3Config struct {
	Bucket          string `yaml:"bucket" env:"S3_BUCKET, overwrite"`
	Region          string `yaml:"region" env:"S3_REGION, overwrite"`
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT, overwrite"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID, overwrite"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY, overwrite"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// ActivityConfig 活动日志配置
type ActivityConfig struct {
	RecentLimit int `yaml:"recent_limit"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

var (
	ErrUnsupportedDriver  = errors.New("不支持的数据库驱动")
	ErrUnsupportedStorage = errors.New("不支持的存储驱动")
	ErrInvalidLimit       = errors.New("配置项不能为负数")
)

// Load 加载配置文件，随后用环境变量覆盖
func Load(configPath string) (*Config, error) {
	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析YAML
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 环境变量覆盖
	if err := envconfig.Process(context.Background(), &config); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDefaults 填充未配置的默认值
func (c *Config) applyDefaults() {
	if c.Session.CookieName == "" {
		c.Session.CookieName = "session_id"
	}
	if c.Session.RememberDays == 0 {
		c.Session.RememberDays = 30
	}
	if c.Session.IdleTTL == 0 {
		c.Session.IdleTTL = 120
	}
	if c.Session.LoginPath == "" {
		c.Session.LoginPath = "/api/v1/auth/login"
	}
	if c.Auth.FailureWindow == 0 {
		c.Auth.FailureWindow = 15
	}
	if c.Upload.MaxSize == 0 {
		c.Upload.MaxSize = 5 * 1024 * 1024
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = []string{"png", "jpg", "jpeg", "gif"}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = "./uploads/profile_pics"
	}
	if c.Activity.RecentLimit == 0 {
		c.Activity.RecentLimit = 15
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "pgsql", "pgx":
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDriver, c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local", "s3":
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedStorage, c.Storage.Driver)
	}

	if c.Upload.MaxSize < 0 || c.Activity.RecentLimit < 0 || c.Session.RememberDays < 0 || c.Session.IdleTTL < 0 {
		return ErrInvalidLimit
	}
	return nil
}
