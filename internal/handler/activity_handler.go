package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"account-center/internal/service"
	"account-center/pkg/response"
)

type ActivityHandler struct {
	activity  service.ActivityService
	loginPath string
}

// NewActivityHandler 创建 ActivityHandler 实例
func NewActivityHandler(activity service.ActivityService, loginPath string) *ActivityHandler {
	return &ActivityHandler{
		activity:  activity,
		loginPath: loginPath,
	}
}

// List 最近活动
func (h *ActivityHandler) List(c *gin.Context) {
	auth := mustAuth(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	page, err := h.activity.Recent(ctx, auth.UserID)
	if err != nil {
		respondError(c, err, h.loginPath)
		return
	}

	response.Success(c, toActivityPageResponse(page))
}

// Clear 清空活动记录
func (h *ActivityHandler) Clear(c *gin.Context) {
	auth := mustAuth(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.activity.Clear(ctx, auth.UserID); err != nil {
		respondError(c, err, h.loginPath)
		return
	}

	page, err := h.activity.Recent(ctx, auth.UserID)
	if err != nil {
		respondError(c, err, h.loginPath)
		return
	}

	response.SuccessWithMessage(c, "活动记录已清空", toActivityPageResponse(page))
}
