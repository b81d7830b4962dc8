package apperr

import (
	"errors"
)

// ============================================================================
// 业务错误模型
// ============================================================================
//
// 所有业务失败统一用「错误类别 + 消息」表达，替代层层继承的异常体系。
// repository / service 只负责返回带类别的错误，
// HTTP 状态码的映射集中在 pkg/response 一处完成。
//
// ============================================================================

// Kind 业务错误类别
type Kind int

const (
	KindInternal Kind = iota // 未预期的存储/系统错误
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindInsufficientPoints
	KindInsufficientStock
)

// Error 带类别的业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error // 底层原因，可为 nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 支持 errors.Is 按类别 + 消息匹配哨兵错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// New 创建业务错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 包装底层错误并标注类别
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 提取错误类别，非业务错误一律视为内部错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf 提取用户可见消息，非业务错误返回兜底文案
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "服务器内部错误"
}
