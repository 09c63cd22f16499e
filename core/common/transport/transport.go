package transport

import (
	"context"
	"net"
)

const (
	ReadBufferSize     = 64 * 1024
	MaxWriteBufferSize = 1024 * 1024
	// DefaultPath jsonrpc over websocket的默认路径
	DefaultPath = "/jsonrpc"
)

// ClientTransport 客户端使用的可重连传输层
// 所有事件都应该由同一个goroutine顺序投递, 上层依赖这个顺序维护连接状态
type ClientTransport interface {
	// Start 建立第一个连接, 成功后投递OnOpen
	Start(ctx context.Context) error
	// Send 发送一个完整的消息, 一个消息对应一个websocket帧
	Send(data []byte) error
	// Reconnect 主动放弃当前连接并进入重连流程, 之后投递OnReconnecting/OnReconnected
	Reconnect()
	// Close 终止传输层, 不会再有重连, 最终投递OnClose
	Close() error
	EventDriveInter() ClientEventDriveInter
}

// ClientEventDriveInter 客户端的事件驱动接口
type ClientEventDriveInter interface {
	OnOpen(func())
	OnMessage(func(data []byte))
	OnReconnecting(func(err error))
	OnReconnected(func())
	OnClose(func(err error))
}

// ServerConn 服务端持有的连接, 实现应该是线程安全的
type ServerConn interface {
	Send(data []byte) error
	Close() error
	RemoteAddr() net.Addr
}

type ServerEngine interface {
	Start() error
	Stop() error
	EventDriveInter() ServerEventDriveInter
}

// ServerEventDriveInter 服务端的事件驱动接口
type ServerEventDriveInter interface {
	OnOpen(func(conn ServerConn))
	OnMessage(func(conn ServerConn, data []byte))
	OnClose(func(conn ServerConn, err error))
}
