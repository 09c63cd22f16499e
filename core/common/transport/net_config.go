package transport

import (
	"crypto/tls"
	"net/http"
	"time"
)

type NetworkClientConfig struct {
	// URLs 可以连接的服务器地址, 例如ws://127.0.0.1:8888/jsonrpc
	URLs []string
	// Resolve 每次拨号前调用, 用于从URLs中选择一个, 为nil时总是选择第一个
	Resolve          func() (string, error)
	Header           http.Header
	TLSConfig        *tls.Config
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadLimit 单个消息的最大长度
	ReadLimit int64
	// 重连的退避参数, ReconnectMaxElapsed == 0 表示永远重试
	ReconnectInitial    time.Duration
	ReconnectMax        time.Duration
	ReconnectMaxElapsed time.Duration
}

func (c *NetworkClientConfig) setDefault() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = time.Second * 5
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = time.Second * 10
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = MaxWriteBufferSize * 4
	}
	if c.ReconnectInitial <= 0 {
		c.ReconnectInitial = time.Millisecond * 200
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = time.Second * 10
	}
}

type NetworkServerConfig struct {
	Addrs []string
	// Path websocket升级的路径, 为空时使用DefaultPath
	Path string
}
