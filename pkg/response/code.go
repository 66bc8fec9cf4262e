package response

// 业务错误码定义
// 错误码 / 100 即为对应的 HTTP 状态码
const (
	// 成功
	CodeSuccess = 0

	// 客户端错误 (400xx)
	CodeBadRequest          = 40000 // 请求参数错误
	CodeInvalidParams       = 40001 // 参数验证失败
	CodePasswordMismatch    = 40002 // 两次密码不一致
	CodeNothingToUpdate     = 40003 // 没有需要更新的字段
	CodeInvalidFile         = 40004 // 无效文件
	CodeUnsupportedFileType = 40006 // 不支持的文件类型

	// 认证错误 (401xx)
	CodeUnauthorized       = 40100 // 未认证
	CodeSessionExpired     = 40102 // 会话已过期
	CodeInvalidCredentials = 40103 // 用户名或密码错误

	// 资源错误 (404xx)
	CodeNotFound     = 40400 // 资源不存在
	CodeUserNotFound = 40401 // 用户不存在

	// 业务冲突 (409xx)
	CodeConflict       = 40900 // 资源冲突
	CodeUsernameExists = 40902 // 用户名已存在
	CodeEmailExists    = 40903 // 邮箱已存在

	// 请求体过大 (413xx)
	CodeFileTooLarge = 41300 // 文件过大

	// 频率限制 (429xx)
	CodeTooManyRequests = 42900 // 登录失败次数过多

	// 服务端错误 (500xx)
	CodeInternalServerError = 50000 // 服务器内部错误
	CodeDatabaseError       = 50001 // 数据库错误
	CodeRedisError          = 50003 // Redis错误
	CodeStorageError        = 50004 // 文件存储错误
)

// CodeMessage 错误信息映射
var CodeMessage = map[int]string{
	CodeSuccess: "OK",

	CodeBadRequest:          "请求参数错误",
	CodeInvalidParams:       "参数验证失败",
	CodePasswordMismatch:    "两次输入的密码不一致",
	CodeNothingToUpdate:     "没有需要更新的内容",
	CodeInvalidFile:         "请选择有效的图片文件",
	CodeUnsupportedFileType: "不支持的文件类型",

	CodeUnauthorized:       "请先登录",
	CodeSessionExpired:     "会话已过期，请重新登录",
	CodeInvalidCredentials: "用户名或密码错误",

	CodeNotFound:     "资源不存在",
	CodeUserNotFound: "用户不存在",

	CodeConflict:       "资源冲突",
	CodeUsernameExists: "用户名已被占用",
	CodeEmailExists:    "邮箱已被占用",

	CodeFileTooLarge: "文件过大",

	CodeTooManyRequests: "登录失败次数过多，请稍后再试",

	CodeInternalServerError: "服务器内部错误",
	CodeDatabaseError:       "服务暂时不可用，请稍后再试",
	CodeRedisError:          "服务暂时不可用，请稍后再试",
	CodeStorageError:        "文件保存失败，请稍后再试",
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := CodeMessage[code]; ok {
		return msg
	}
	return "未知错误"
}
