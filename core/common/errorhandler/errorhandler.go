package errorhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	error2 "github.com/nyan233/wsrpc/core/protocol/error"
	"github.com/nyan233/wsrpc/core/utils/convert"
)

// DefaultErrHandler 不带栈追踪的默认错误处理器
var DefaultErrHandler = New()

type stack []string

// MarshalJSON 最近的调用点排在最前面
func (s stack) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	reversed := make([]string, len(s))
	for i := range s {
		reversed[len(s)-1-i] = s[i]
	}
	return json.Marshal(reversed)
}

type stackMore struct {
	Stack stack `json:"stack"`
}

type stackTraceError struct {
	RpcCode    int           `json:"code"`
	RpcMessage string        `json:"message"`
	RpcMores   []interface{} `json:"mores"`
	RpcStack   stack         `json:"-"`
}

func newStackTraceError(desc error2.LErrorDesc, mores []interface{}) *stackTraceError {
	all := make([]interface{}, 0, len(desc.Mores())+len(mores))
	all = append(all, desc.Mores()...)
	err := &stackTraceError{
		RpcCode:    desc.Code(),
		RpcMessage: desc.Message(),
		RpcMores:   append(all, mores...),
	}
	if old, ok := desc.(*stackTraceError); ok {
		err.RpcStack = append(make(stack, 0, len(old.RpcStack)+1), old.RpcStack...)
	}
	return err
}

func (s *stackTraceError) Code() int {
	return s.RpcCode
}

func (s *stackTraceError) Message() string {
	return s.RpcMessage
}

func (s *stackTraceError) AppendMore(more interface{}) {
	s.RpcMores = append(s.RpcMores, more)
}

func (s *stackTraceError) Mores() []interface{} {
	return s.RpcMores
}

func (s *stackTraceError) MarshalMores() ([]byte, error) {
	return json.Marshal(append(s.Mores(), &stackMore{Stack: s.RpcStack}))
}

func (s *stackTraceError) UnmarshalMores(bytes []byte) error {
	return json.Unmarshal(bytes, &s.RpcMores)
}

func (s *stackTraceError) Error() string {
	bytes, err := json.Marshal(&struct {
		Code    int           `json:"code"`
		Message string        `json:"message"`
		Mores   []interface{} `json:"mores"`
	}{
		Code:    s.RpcCode,
		Message: s.RpcMessage,
		Mores:   append(s.Mores(), &stackMore{Stack: s.RpcStack}),
	})
	if err != nil {
		return s.RpcMessage
	}
	return convert.BytesToString(bytes)
}

type JsonErrorHandler struct {
	openStackTrace bool
}

func NewStackTrace() error2.LErrors {
	return &JsonErrorHandler{
		openStackTrace: true,
	}
}

func New() error2.LErrors {
	return new(JsonErrorHandler)
}

func (j JsonErrorHandler) LNewErrorDesc(code int, message string, mores ...interface{}) error2.LErrorDesc {
	if !j.openStackTrace {
		return error2.LNewStdError(code, message, mores...)
	}
	err := newStackTraceError(error2.LNewStdError(code, message), mores)
	// runtime.Caller的skip必须在这一层调用, 抽到公共函数里会记录错误的调用点
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		err.RpcStack = append(err.RpcStack, "???.go:???")
	} else {
		err.RpcStack = append(err.RpcStack, fmt.Sprintf("%s:%d", file, line))
	}
	return err
}

func (j JsonErrorHandler) LWarpErrorDesc(desc error2.LErrorDesc, mores ...interface{}) error2.LErrorDesc {
	if !j.openStackTrace {
		return error2.LWarpStdError(desc, mores...)
	}
	err := newStackTraceError(desc, mores)
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		err.RpcStack = append(err.RpcStack, "???.go:???")
	} else {
		err.RpcStack = append(err.RpcStack, fmt.Sprintf("%s:%d", file, line))
	}
	return err
}

// Convert 将任意error转换为LErrorDesc, 无法识别的错误使用fallback包装
func Convert(eh error2.LErrors, err error, fallback error2.LErrorDesc) error2.LErrorDesc {
	if err == nil {
		return nil
	}
	var desc error2.LErrorDesc
	if errors.As(err, &desc) {
		return desc
	}
	return eh.LWarpErrorDesc(fallback, err.Error())
}

// IsCode err链中是否存在错误码为code的LErrorDesc
func IsCode(err error, code int) bool {
	var desc error2.LErrorDesc
	if !errors.As(err, &desc) {
		return false
	}
	return desc.Code() == code
}
