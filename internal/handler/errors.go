package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"account-center/internal/dto"
	"account-center/internal/service"
	"account-center/pkg/response"
)

// respondError 将业务错误映射为响应码
// 未登录走 response.Unauthenticated，持久化错误只返回通用消息
func respondError(c *gin.Context, err error, loginPath string) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		response.Unauthenticated(c, loginPath)

	case errors.Is(err, service.ErrValidation):
		switch {
		case errors.Is(err, dto.ErrPasswordMismatch):
			response.Error(c, response.CodePasswordMismatch, dto.ErrPasswordMismatch.Error())
		case errors.Is(err, dto.ErrNothingToUpdate):
			response.Error(c, response.CodeNothingToUpdate, dto.ErrNothingToUpdate.Error())
		default:
			response.Error(c, response.CodeInvalidParams, detailMessage(err, service.ErrValidation))
		}

	case errors.Is(err, service.ErrUsernameTaken):
		response.Error(c, response.CodeUsernameExists, "")
	case errors.Is(err, service.ErrEmailTaken):
		response.Error(c, response.CodeEmailExists, "")
	case errors.Is(err, service.ErrConflict):
		response.Error(c, response.CodeConflict, "")

	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, response.CodeInvalidCredentials, "")
	case errors.Is(err, service.ErrLoginLimitExceeded):
		response.Error(c, response.CodeTooManyRequests, service.ErrLoginLimitExceeded.Error())

	case errors.Is(err, service.ErrInvalidUpload):
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.Error(c, response.CodeUnsupportedFileType, "")
		case errors.Is(err, service.ErrFileTooLarge):
			response.Error(c, response.CodeFileTooLarge, "")
		default:
			response.Error(c, response.CodeInvalidFile, detailMessage(err, service.ErrInvalidUpload))
		}

	default:
		// 不暴露内部细节
		response.Error(c, response.CodeInternalServerError, "")
	}
}

// detailMessage 取出 "kind: detail" 中的 detail 部分作为提示
func detailMessage(err, kind error) string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			if e != kind {
				return e.Error()
			}
		}
	}
	return kind.Error()
}
