package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	log "account-center/pkg/logger"
)

// LocalStorage 本地目录存储
type LocalStorage struct {
	dir string
}

// NewLocalStorage 创建本地存储，目录不存在时自动创建
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		return nil, errors.New("本地存储目录不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	log.Info("本地文件存储已就绪", zap.String("dir", dir))
	return &LocalStorage{dir: dir}, nil
}

// Save 先写临时文件再重命名，避免读到半截文件
func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && size >= 0 && written != size {
		err = fmt.Errorf("写入字节数不一致: 期望 %d, 实际 %d", size, written)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("保存文件失败: %w", err)
	}

	log.Debug("文件已保存", zap.String("name", name), zap.Int64("size", written))
	return name, nil
}

func (s *LocalStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := validName(ref); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStorage) Delete(ctx context.Context, ref string) error {
	if err := validName(ref); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
