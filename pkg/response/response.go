package response

import (
	"net/http"
	"time"

	"pointshop/pkg/apperr"
	"pointshop/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// Body 统一响应结构
// 成功：{success: true, data, timestamp}
// 失败：{success: false, message, timestamp}
type Body struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
	Timestamp  string      `json:"timestamp"`
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, Timestamp: now()})
}

// Created 201 成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data, Timestamp: now()})
}

// Paginated 偏移分页响应
func Paginated(c *gin.Context, data interface{}, meta pagination.OffsetMeta) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, Pagination: meta, Timestamp: now()})
}

// CursorPaginated 游标分页响应
func CursorPaginated(c *gin.Context, data interface{}, meta pagination.CursorMeta) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, Pagination: meta, Timestamp: now()})
}

// Fail 业务错误出口，错误类别到 HTTP 状态码的映射只存在这一处
func Fail(c *gin.Context, err error) {
	c.JSON(statusOf(apperr.KindOf(err)), Body{
		Success:   false,
		Message:   apperr.MessageOf(err),
		Timestamp: now(),
	})
}

// FailValidation 请求体/参数校验失败，不进入任何事务
func FailValidation(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Message: message, Timestamp: now()})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInsufficientPoints, apperr.KindInsufficientStock:
		// 积分/库存不足属于客户端可修正的业务拒绝
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
