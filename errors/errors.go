// Package errors 为关联加载层提供带错误码的错误。
//
// orm 包只暴露哨兵错误；适配器边界通过 Normalize 把它们映射为 AppError，
// 上层按 ErrorCode 分类处理，errors.Is 仍能匹配原始哨兵。
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCode 错误代码类型
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeDatabase     ErrorCode = "DATABASE_ERROR"

	// 关联加载
	ErrCodeAssociationNotLoaded ErrorCode = "ASSOCIATION_NOT_LOADED"
	ErrCodeHeterogeneousInput   ErrorCode = "HETEROGENEOUS_INPUT"
	ErrCodeMissingPrimaryKey    ErrorCode = "MISSING_PRIMARY_KEY"
	ErrCodeMalformedSelector    ErrorCode = "MALFORMED_SELECTOR"
	ErrCodeUnsupported          ErrorCode = "UNSUPPORTED"
)

// AppError 带错误码的错误，cause 通过 Unwrap 暴露
type AppError struct {
	code    ErrorCode
	message string
	cause   error
}

// WrapError 用错误码和消息包装 err；err 为 nil 时返回 nil。
func WrapError(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{code: code, message: message, cause: err}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *AppError) Code() ErrorCode { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Unwrap() error   { return e.cause }

// CodeOf 返回错误链上最外层 AppError 的错误码；没有 AppError 时为 ErrCodeInternal，nil 为空串。
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}
	return ErrCodeInternal
}

// IsErrorCode 检查错误链上的 AppError 是否为指定错误码
func IsErrorCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
