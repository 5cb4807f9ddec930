package response

import (
	"errors"
	"net/http"

	"social-system/pkg/apperr"
	"social-system/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`             // 状态码：0表示成功，其他表示错误
	Message string      `json:"message"`          // 响应消息
	Reason  string      `json:"reason,omitempty"` // 业务错误码，区分具体失败原因
	Data    interface{} `json:"data,omitempty"`   // 响应数据
	Error   string      `json:"error,omitempty"`  // 错误详情（仅在开发环境显示）
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithDetails 带错误详情的错误响应
func ErrorWithDetails(c *gin.Context, code int, message string, err error) {
	response := Response{
		Code:    code,
		Message: message,
	}

	// 在开发环境下显示错误详情
	if gin.Mode() == gin.DebugMode && err != nil {
		response.Error = err.Error()
	}

	c.JSON(http.StatusOK, response)
}

// CodeForKind 业务错误分类对应的响应码
func CodeForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return 404
	case apperr.KindConflict:
		return 409
	case apperr.KindForbidden:
		return 403
	case apperr.KindInvalidState, apperr.KindSelfReferential:
		return 422
	case apperr.KindInvalidArgument:
		return 400
	default:
		return 500
	}
}

// FromError 根据错误类型输出响应：业务错误带上错误码，其他错误记录日志并返回500
func FromError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(http.StatusOK, Response{
			Code:    CodeForKind(appErr.Kind),
			Message: appErr.Message,
			Reason:  appErr.Code,
		})
		return
	}

	logger.Error("请求处理失败",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	ErrorWithDetails(c, 500, "服务器内部错误", err)
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, 401, message)
}
