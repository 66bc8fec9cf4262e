package response

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RedirectData 需要客户端跳转时携带的数据
type RedirectData struct {
	Redirect string `json:"redirect"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "OK",
		Data:    data,
	})
}

// SuccessWithMessage 返回带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Created 返回201响应
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Error 返回错误响应，message 为空时使用错误码默认消息
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 返回带数据的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	if message == "" {
		message = GetMessage(code)
	}
	c.JSON(HTTPStatus(code), Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// AbortWithError 返回错误响应并中断后续处理
func AbortWithError(c *gin.Context, code int, message string) {
	Error(c, code, message)
	c.Abort()
}

// Unauthenticated 未登录：浏览器跳转到登录页，API 客户端返回 401 和跳转地址
func Unauthenticated(c *gin.Context, loginPath string) {
	if wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, loginPath)
		c.Abort()
		return
	}
	ErrorWithData(c, CodeUnauthorized, "", RedirectData{Redirect: loginPath})
	c.Abort()
}

// HTTPStatus 根据业务错误码获取HTTP状态码
func HTTPStatus(code int) int {
	if code == CodeSuccess {
		return http.StatusOK
	}
	status := code / 100
	if status < 400 || status > 599 || http.StatusText(status) == "" {
		return http.StatusInternalServerError
	}
	return status
}

func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html")
}
