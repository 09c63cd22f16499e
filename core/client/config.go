package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
	"github.com/nyan233/wsrpc/core/middle/plugin"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
	"golang.org/x/time/rate"
)

const (
	DefaultRequestTimeout = time.Second * 10
	DefaultPoolSize       = 8
	DefaultPoolBufSize    = 1024
)

// Handler 对端调用的处理函数, in的具体类型为*rpcbuilder.Request或者*rpcbuilder.Notification.
// 对于通知返回的result会被忽略, err只会被记录到日志
type Handler func(ctx context.Context, params json.RawMessage, in rpcbuilder.Inbound) (result interface{}, err error)

// Lifecycle 连接状态变化时的回调, 都在传输层的事件goroutine中被顺序调用, 不应该阻塞
type Lifecycle struct {
	OnConnected    func()
	OnReconnecting func()
	OnReconnected  func()
	// OnDisconnect 只会被调用一次, 主动调用Close时err == nil
	OnDisconnect func(err error)
}

func (l *Lifecycle) setDefault() {
	if l.OnConnected == nil {
		l.OnConnected = func() {}
	}
	if l.OnReconnecting == nil {
		l.OnReconnecting = func() {}
	}
	if l.OnReconnected == nil {
		l.OnReconnected = func() {}
	}
	if l.OnDisconnect == nil {
		l.OnDisconnect = func(err error) {}
	}
}

type Config struct {
	Lifecycle Lifecycle
	// 对端可以调用的方法
	Methods map[string]Handler
	// 等待回复的超时时间, 为0时不超时
	RequestTimeout time.Duration
	// 发送ping的间隔, 为0时关闭心跳
	Heartbeat time.Duration
	// 等待ping回复的时间, 为0时等于Heartbeat
	PingTimeout time.Duration
	// Close时是否先发送closeSession并等待回复
	SendCloseMessage bool
	// 建立连接和重连之后发送connect恢复会话
	SessionResume bool
	// 每秒允许发送的请求数量, 为0时不限制
	RateLimit rate.Limit
	RateBurst int
	// 回复缓存的大小与有效期, 用于对端重发请求时的重放
	CacheSize int
	CacheTTL  time.Duration
	// 执行对端调用的goroutine池的大小
	PoolSize    int
	PoolBufSize int
	// 安装的插件
	Plugins []plugin.ClientPlugin
	// 使用的日志器
	Logger logger.LLogger
	// 开启之后以Debug级别打印收发的消息
	Debug bool
	// 可以生成自定义错误的工厂回调函数
	ErrHandler perror.LErrors

	// 以下配置只在Dial中使用
	// 多个地址时的选择规则, 默认为round-robin
	NsScheme string
	// consistent-hash使用的键
	NsKey     string
	Header    http.Header
	TlsConfig *tls.Config
	// 重连的退避参数, ReconnectMaxElapsed == 0 表示永远重试
	ReconnectInitial    time.Duration
	ReconnectMax        time.Duration
	ReconnectMaxElapsed time.Duration
}

func (c *Config) pingTimeout() time.Duration {
	if c.PingTimeout > 0 {
		return c.PingTimeout
	}
	return c.Heartbeat
}
