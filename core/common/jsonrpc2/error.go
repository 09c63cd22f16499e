package jsonrpc2

import (
	"encoding/json"
	"errors"

	perror "github.com/nyan233/wsrpc/core/protocol/error"
	"github.com/nyan233/wsrpc/core/utils/convert"
)

// Error 远端返回的error对象, 对Correlator来说是不透明的, 原样交给回调.
// 它实现了perror.LErrorDesc, 所以可以和内部错误走同一条路径
type Error struct {
	ErrCode    int             `json:"code"`
	ErrMessage string          `json:"message"`
	Data       json.RawMessage `json:"data,omitempty"`
	mores      []interface{}
}

func NewError(code int, message string, data interface{}) *Error {
	e := &Error{ErrCode: code, ErrMessage: message}
	if data != nil {
		if raw, ok := data.(json.RawMessage); ok {
			e.Data = raw
		} else if bytes, err := json.Marshal(data); err == nil {
			e.Data = bytes
		}
	}
	return e
}

func (e *Error) Code() int {
	return e.ErrCode
}

func (e *Error) Message() string {
	return e.ErrMessage
}

// AppendMore 附加的信息只在本地可见, 不会被序列化到线上
func (e *Error) AppendMore(more interface{}) {
	e.mores = append(e.mores, more)
}

func (e *Error) Mores() []interface{} {
	return e.mores
}

func (e *Error) MarshalMores() ([]byte, error) {
	return json.Marshal(e.mores)
}

func (e *Error) UnmarshalMores(bytes []byte) error {
	return json.Unmarshal(bytes, &e.mores)
}

func (e *Error) Error() string {
	bytes, err := json.Marshal(&struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data,omitempty"`
		Mores   []interface{}   `json:"mores,omitempty"`
	}{e.ErrCode, e.ErrMessage, e.Data, e.mores})
	if err != nil {
		return e.ErrMessage
	}
	return convert.BytesToString(bytes)
}

// ToError 将本地错误转换为可以发送给对端的error对象
func ToError(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var desc perror.LErrorDesc
	if !errors.As(err, &desc) {
		return NewError(ErrorInternal, err.Error(), nil)
	}
	rep := &Error{ErrMessage: desc.Message()}
	switch desc.Code() {
	case perror.MethodNotFound:
		rep.ErrCode = MethodNotFound
	case perror.MessageDecodingFailed:
		rep.ErrCode = ErrorParser
	case perror.ProtocolError:
		rep.ErrCode = InvalidRequest
	case perror.CallArgsTypeErr, perror.CodecMarshalErr:
		rep.ErrCode = InvalidParams
	case perror.ServerError, perror.ClientError, perror.UnsafeOption:
		rep.ErrCode = ErrorInternal
	case perror.Unknown:
		rep.ErrCode = Unknown
	default:
		rep.ErrCode = desc.Code()
	}
	if len(desc.Mores()) > 0 {
		if bytes, mErr := desc.MarshalMores(); mErr == nil {
			rep.Data = bytes
		}
	}
	return rep
}
