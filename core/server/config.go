package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/middle/plugin"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

const (
	DefaultAddress     = "127.0.0.1:8888"
	DefaultSessionTTL  = time.Minute
	DefaultPoolSize    = 32
	DefaultPoolBufSize = 2048
)

// Handler 客户端调用的处理函数, 对于通知返回的result会被忽略
type Handler func(ctx context.Context, sess *Session, params json.RawMessage) (result interface{}, err error)

type Config struct {
	// 监听的地址
	Address []string
	// websocket升级的路径
	Path string
	// 客户端可以调用的方法
	Methods map[string]Handler
	// 主动推送的请求等待回复的超时时间
	RequestTimeout time.Duration
	// 回复缓存的大小与有效期, 客户端重发请求时重放
	CacheSize int
	CacheTTL  time.Duration
	// 连接断开之后会话保留的时间, 在此期间可以通过connect恢复
	SessionTTL time.Duration
	// 执行客户端调用的goroutine池的大小
	PoolSize    int
	PoolBufSize int
	// 使用的插件
	Plugins    []plugin.ServerPlugin
	Logger     logger.LLogger
	ErrHandler perror.LErrors
	// 开启之后以Debug级别打印收发的消息
	Debug bool
	// 创建新会话时调用
	OnSession func(sess *Session)
}
