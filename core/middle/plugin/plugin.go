package plugin

import (
	"encoding/json"

	"github.com/nyan233/wsrpc/core/common/transport"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

type Event int

const (
	OnOpen Event = iota + 1
	OnClose
)

// ClientPlugin 返回的错误会终止当前阶段之后的流程, 并作为调用的结果
type ClientPlugin interface {
	// Request4C 编码请求之前调用
	Request4C(pub *Context, params interface{}) perror.LErrorDesc
	// Send4C 消息发送之后调用, data不能被跨goroutine持有
	Send4C(pub *Context, data []byte, err perror.LErrorDesc) perror.LErrorDesc
	// Receive4C 收到响应或者请求失败时调用, 通知没有这个阶段
	Receive4C(pub *Context, result json.RawMessage, err perror.LErrorDesc) perror.LErrorDesc
}

type ServerPlugin interface {
	// Event4S next == false时拒绝这个连接
	Event4S(ev Event, conn transport.ServerConn) (next bool)
	// Receive4S 解码完成之后, 调用方法之前
	Receive4S(pub *Context, params json.RawMessage) perror.LErrorDesc
	// AfterCall4S 方法调用完成之后
	AfterCall4S(pub *Context, result interface{}, err error) perror.LErrorDesc
	// AfterSend4S 响应发送之后, 通知没有这个阶段
	AfterSend4S(pub *Context, data []byte, err perror.LErrorDesc) perror.LErrorDesc
}

type Plugin interface {
	ClientPlugin
	ServerPlugin
}
