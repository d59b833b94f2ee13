package errorutil

import (
	"errors"
	"fmt"
)

// 错误码（沿用 HTTP 语义）
const (
	CodePartial  = 206
	CodeBadInput = 400
	CodeNotFound = 404
	CodeConflict = 409
	CodeInvalid  = 422
	CodeInternal = 500
)

// Error 错误结构（包含可重试标记）
type Error struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`

	cause error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return e.Message
}

// Unwrap 支持 errors.Is / errors.As 追溯原始错误
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause 绑定原始错误，并把其描述写入 DevDetails
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	if cause != nil && e.DevDetails == "" {
		e.DevDetails = cause.Error()
	}
	return e
}

// Retriable 创建可重试错误（网络错误、临时故障等）
func Retriable(message string) *Error {
	return &Error{
		Code:      CodeInternal,
		Message:   message,
		Retryable: true,
	}
}

// RetriableWithDetails 创建可重试错误（带详细信息）
func RetriableWithDetails(message string, details string) *Error {
	return &Error{
		Code:       CodeInternal,
		Message:    message,
		Retryable:  true,
		DevDetails: details,
	}
}

// NonRetriable 创建不可重试错误（参数错误、业务规则错误等）
func NonRetriable(message string) *Error {
	return &Error{
		Code:      CodeBadInput,
		Message:   message,
		Retryable: false,
	}
}

// NonRetriableWithDetails 创建不可重试错误（带详细信息）
func NonRetriableWithDetails(message string, details string) *Error {
	return &Error{
		Code:       CodeBadInput,
		Message:    message,
		Retryable:  false,
		DevDetails: details,
	}
}

// Conflict 资源被占用（稍后可重试）
func Conflict(message string) *Error {
	return &Error{
		Code:      CodeConflict,
		Message:   message,
		Retryable: true,
	}
}

// NotFound 资源不存在
func NotFound(message string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: message,
	}
}

// Invalid 数据本身无法处理（与请求参数无关，重试无效）
func Invalid(message string) *Error {
	return &Error{
		Code:    CodeInvalid,
		Message: message,
	}
}

// Partial 部分成功，建议重试
func Partial(message string) *Error {
	return &Error{
		Code:      CodePartial,
		Message:   message,
		Retryable: true,
	}
}

// Wrap 包装错误（自动判断是否可重试）
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	// 错误链中已有 Error 类型时直接返回
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	// 默认为不可重试错误
	return &Error{
		Code:       CodeInternal,
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
		cause:      err,
	}
}

// IsRetryable 错误链中是否存在可重试的 Error
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// UnWrapResponse 解包错误（用于 Response）
func UnWrapResponse(err error) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err)
}
