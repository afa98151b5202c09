// Package errx 提供带错误码的错误类型
package errx

import (
	"errors"
	"fmt"
)

// Code 错误码
type Code string

// Error 带错误码的错误
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, msg string) *Error { return &Error{Code: code, Msg: msg} }

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, msg string) *Error { return &Error{Code: code, Msg: msg, Err: err} }

// Is 判断错误链中是否包含指定错误码
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf 返回错误链中第一个错误码，没有则返回空
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

const (
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
	CodeInvalidJSON     Code = "INVALID_JSON"
	CodeInvalidRule     Code = "INVALID_RULE"
	CodeSettingsInvalid Code = "SETTINGS_INVALID"
	CodeCaptureFailed   Code = "CAPTURE_FAILED"
	CodeHARInvalid      Code = "HAR_INVALID"
	CodeTargetAttach    Code = "TARGET_ATTACH"
)
