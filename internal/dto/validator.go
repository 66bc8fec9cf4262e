package dto

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// 用户名规则：3-50个字符，字母、数字、下划线
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
	return v
}

// ============================================================================
// 验证错误
// ============================================================================

var (
	ErrUsernameEmpty    = errors.New("用户名不能为空")
	ErrUsernameInvalid  = errors.New("用户名格式不正确（3-50个字符，仅限字母、数字、下划线）")
	ErrEmailInvalid     = errors.New("邮箱格式不正确")
	ErrPasswordEmpty    = errors.New("密码不能为空")
	ErrPasswordTooShort = errors.New("密码长度不能少于6位")
	ErrPasswordTooLong  = errors.New("密码长度不能超过100位")
	ErrConfirmEmpty     = errors.New("请再次输入密码")
	ErrPasswordMismatch = errors.New("两次输入的密码不一致")
	ErrNothingToUpdate  = errors.New("请至少填写一项需要修改的内容")
	ErrUserIDInvalid    = errors.New("用户ID无效")
	ErrFileMissing      = errors.New("请选择要上传的文件")
)

// translate 把 validator 的字段错误转换为业务错误
func translate(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}

	fe := ve[0]
	switch fe.Field() {
	case "Username":
		if fe.Tag() == "required" {
			return ErrUsernameEmpty
		}
		return ErrUsernameInvalid
	case "Email":
		return ErrEmailInvalid
	case "Password":
		switch fe.Tag() {
		case "required":
			return ErrPasswordEmpty
		case "min":
			return ErrPasswordTooShort
		default:
			return ErrPasswordTooLong
		}
	case "ConfirmPassword":
		return ErrConfirmEmpty
	case "UserID":
		return ErrUserIDInvalid
	}
	return fmt.Errorf("字段 %s 校验失败(%s)", fe.Field(), fe.Tag())
}

// ============================================================================
// RegisterDTO 验证
// ============================================================================

// Normalize 去除用户名、邮箱首尾空白，密码保持原样
func (d *RegisterDTO) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.TrimSpace(d.Email)
}

// Validate 验证注册DTO
func (d *RegisterDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return translate(err)
	}
	if d.Password != d.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// ============================================================================
// LoginDTO 验证
// ============================================================================

// Validate 验证登录DTO
// 只检查非空，格式错误的用户名按"账号或密码错误"处理
func (d *LoginDTO) Validate() error {
	d.Username = strings.TrimSpace(d.Username)
	if err := validate.Struct(d); err != nil {
		return translate(err)
	}
	return nil
}

// ============================================================================
// UpdateProfileDTO 验证
// ============================================================================

// Validate 验证修改资料DTO
func (d *UpdateProfileDTO) Validate() error {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.TrimSpace(d.Email)
	if d.Username == "" && d.Email == "" {
		return ErrNothingToUpdate
	}
	if err := validate.Struct(d); err != nil {
		return translate(err)
	}
	return nil
}

// ============================================================================
// UploadPictureDTO 验证
// ============================================================================

// Validate 验证上传DTO，扩展名与大小由业务层按配置校验
func (d *UploadPictureDTO) Validate() error {
	if d.UserID == 0 {
		return ErrUserIDInvalid
	}
	if d.Content == nil || strings.TrimSpace(d.Filename) == "" {
		return ErrFileMissing
	}
	return nil
}
