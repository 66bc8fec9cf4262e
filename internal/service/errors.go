package service

import (
	"errors"
	"fmt"

	"account-center/internal/repository"
)

// ============================================================================
// 业务错误定义
// ============================================================================
//
// 具体原因通过 fmt.Errorf("%w: %w", kind, detail) 挂在分类错误之后，
// 调用方使用 errors.Is 判断分类。

var (
	ErrValidation         = errors.New("参数校验失败")
	ErrConflict           = errors.New("数据冲突")
	ErrUsernameTaken      = fmt.Errorf("%w: 用户名已被占用", ErrConflict)
	ErrEmailTaken         = fmt.Errorf("%w: 邮箱已被占用", ErrConflict)
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUnauthenticated    = errors.New("未登录或会话已过期")
	ErrPersistence        = errors.New("数据保存失败")
	ErrInvalidUpload      = errors.New("无效的上传文件")
	ErrLoginLimitExceeded = errors.New("登录失败次数过多，请稍后再试")

	// 上传错误的具体原因
	ErrUnsupportedFileType = errors.New("不支持的文件类型")
	ErrFileTooLarge        = errors.New("文件过大")
	ErrEmptyFile           = errors.New("文件内容为空")
	ErrBadFilename         = errors.New("文件名无效")

	// ErrNoPicture 用户没有可读取的头像
	ErrNoPicture = errors.New("头像不存在")
)

func wrap(kind, detail error) error {
	return fmt.Errorf("%w: %w", kind, detail)
}

// conflictError 把仓储层的唯一约束错误转换为业务冲突错误
func conflictError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		return ErrUsernameTaken
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrEmailTaken
	case errors.Is(err, repository.ErrDuplicate):
		return wrap(ErrConflict, err)
	default:
		return wrap(ErrPersistence, err)
	}
}
