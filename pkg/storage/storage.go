package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"account-center/config"
)

var (
	ErrNotFound    = errors.New("对象不存在")
	ErrInvalidName = errors.New("非法的对象名")
)

// Storage 头像文件存储接口
// ref 为存储内的对象名，即落库到 users.profile_picture 的值
type Storage interface {
	// Save 保存对象，同名对象会被覆盖
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)

	// Open 打开对象，不存在时返回 ErrNotFound
	Open(ctx context.Context, ref string) (io.ReadCloser, error)

	// Delete 删除对象，对象不存在不视为错误
	Delete(ctx context.Context, ref string) error
}

// New 根据配置创建存储实现
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "", "local":
		return NewLocalStorage(cfg.Storage.LocalDir)
	case "s3":
		return NewS3Storage(ctx, cfg.Storage.S3)
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedStorage, cfg.Storage.Driver)
	}
}

// validName 对象名只能是单级文件名
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
