package jsonrpc2

import (
	"encoding/json"
)

const (
	Version = "2.0"
	// MethodPing 心跳使用的方法名, 用户的方法表不能覆盖它
	MethodPing = "ping"
	// MethodCloseSession 正常关闭会话时发送
	MethodCloseSession = "closeSession"
	// MethodPull 长轮询传输的兼容方法, 固定回复PullReply
	MethodPull = "pull"
	// MethodConnect 建立连接/重连之后用于恢复会话
	MethodConnect = "connect"
	PullReply     = "push"
	PongValue     = "pong"
)

const (
	ErrorParser    = -32700 // jsonrpc2 解析消息失败
	InvalidRequest = -32600 // 无效的请求
	MethodNotFound = -32601 // 找不到方法
	InvalidParams  = -32602 // 无效的参数
	ErrorInternal  = -32603 // 内部错误
	Unknown        = -32004 // 未知的错误
)

// Kind 根据字段是否存在区分的三种信封
type Kind int

const (
	KindInvalid Kind = iota
	KindNotification
	KindRequest
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindNotification:
		return "notification"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "invalid"
	}
}

// Message 线上传输的信封, Result/Params为nil代表字段不存在, 而不是null
type Message struct {
	Version string          `json:"jsonrpc"`
	Id      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// ParamsOf 返回params, 字段不存在时为一个空对象
func (m *Message) ParamsOf() json.RawMessage {
	if len(m.Params) == 0 || string(m.Params) == "null" {
		return json.RawMessage("{}")
	}
	return m.Params
}

// IdOf 调用前需要确认Id存在
func (m *Message) IdOf() uint64 {
	if m.Id == nil {
		return 0
	}
	return *m.Id
}

func NewNotification(method string, params json.RawMessage) *Message {
	return &Message{
		Version: Version,
		Method:  method,
		Params:  params,
	}
}

func NewRequest(id uint64, method string, params json.RawMessage) *Message {
	return &Message{
		Version: Version,
		Id:      &id,
		Method:  method,
		Params:  params,
	}
}

// NewResult result为nil时写入null, 保证result字段存在
func NewResult(id uint64, result json.RawMessage) *Message {
	if result == nil {
		result = json.RawMessage("null")
	}
	return &Message{
		Version: Version,
		Id:      &id,
		Result:  result,
	}
}

func NewErrorResponse(id uint64, err *Error) *Message {
	return &Message{
		Version: Version,
		Id:      &id,
		Error:   err,
	}
}

// IsReserved 保留的方法名不能被用户的方法表注册
func IsReserved(method string) bool {
	switch method {
	case MethodPing, MethodCloseSession, MethodPull, MethodConnect:
		return true
	default:
		return false
	}
}
