package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger 全局日志实例
	Logger = zap.NewNop()
	Sugar  = Logger.Sugar()
)

// Config 日志配置
type Config struct {
	Level    string // debug, info, warn, error, fatal
	Output   string // stdout, file
	FilePath string // 文件路径
}

// Init 初始化日志
func Init(cfg *Config) error {
	level := parseLevel(cfg.Level)

	var (
		writeSyncer zapcore.WriteSyncer
		encoder     zapcore.Encoder
	)
	encoderConfig := newEncoderConfig()

	if cfg.Output == "file" {
		if dir := filepath.Dir(cfg.FilePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		writeSyncer = zapcore.AddSync(file)
		// 文件输出不带颜色
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		writeSyncer = zapcore.AddSync(os.Stdout)
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)

	Logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	Sugar = Logger.Sugar()

	return nil
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// customLevelEncoder 自定义日志级别编码器（带颜色）
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	const (
		colorReset  = "\033[0m"
		colorRed    = "\033[31m"
		colorGreen  = "\033[32m"
		colorYellow = "\033[33m"
		colorBlue   = "\033[34m"
	)

	var coloredLevel string
	switch level {
	case zapcore.DebugLevel:
		coloredLevel = colorBlue + "[DEBUG]" + colorReset
	case zapcore.InfoLevel:
		coloredLevel = colorGreen + "[INFO] " + colorReset
	case zapcore.WarnLevel:
		coloredLevel = colorYellow + "[WARN] " + colorReset
	case zapcore.ErrorLevel:
		coloredLevel = colorRed + "[ERROR]" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		coloredLevel = colorRed + "[PANIC]" + colorReset
	case zapcore.FatalLevel:
		coloredLevel = colorRed + "[FATAL]" + colorReset
	default:
		coloredLevel = "[UNKNOWN]"
	}

	enc.AppendString(coloredLevel)
}

// Info 记录 Info 级别日志
func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

// Warn 记录 Warn 级别日志
func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

// Error 记录 Error 级别日志
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

// Debug 记录 Debug 级别日志
func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

// Fatal 记录 Fatal 级别日志（会退出程序）
func Fatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, fields...)
}

// Sync 同步日志（程序退出前调用）
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
