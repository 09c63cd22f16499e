package rpcbuilder

import (
	"errors"

	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

// TimeoutError 携带原始请求, 调用者可以用它重新编码并重试
type TimeoutError struct {
	perror.LErrorDesc
	Request *Pending
}

func (t *TimeoutError) Unwrap() error {
	return t.LErrorDesc
}

// lateResponseError 回复对应的请求已经被取消或者超时
type lateResponseError struct {
	perror.LErrorDesc
}

func (l *lateResponseError) Unwrap() error {
	return l.LErrorDesc
}

func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsLateResponse 这类错误是取消/超时的正常结果, 调用者应该静默丢弃
func IsLateResponse(err error) bool {
	var le *lateResponseError
	return errors.As(err, &le)
}
