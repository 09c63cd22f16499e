package error

import (
	"encoding/json"
	"github.com/nyan233/wsrpc/core/utils/convert"
)

type LStdError struct {
	LCode    Code          `json:"code"`
	LMessage string        `json:"message"`
	LMores   []interface{} `json:"mores"`
}

func LNewStdError(code int, message string, mores ...interface{}) LErrorDesc {
	return &LStdError{
		LCode:    Code(code),
		LMessage: message,
		LMores:   mores,
	}
}

func LWarpStdError(desc LErrorDesc, mores ...interface{}) LErrorDesc {
	// 不能直接append到desc.Mores()上, 否则多次包装同一个预定义错误时会共享底层数组
	all := make([]interface{}, 0, len(desc.Mores())+len(mores))
	all = append(all, desc.Mores()...)
	return &LStdError{
		LCode:    Code(desc.Code()),
		LMessage: desc.Message(),
		LMores:   append(all, mores...),
	}
}

func (L *LStdError) Code() int {
	return int(L.LCode)
}

func (L *LStdError) Message() string {
	return L.LMessage
}

func (L *LStdError) AppendMore(more interface{}) {
	L.LMores = append(L.LMores, more)
}

func (L *LStdError) Mores() []interface{} {
	return L.LMores
}

func (L *LStdError) Error() string {
	bytes, err := json.Marshal(L)
	if err != nil {
		return L.LMessage
	}
	return convert.BytesToString(bytes)
}

func (L *LStdError) MarshalMores() ([]byte, error) {
	return json.Marshal(L.LMores)
}

func (L *LStdError) UnmarshalMores(bytes []byte) error {
	return json.Unmarshal(bytes, &L.LMores)
}
