package plugin

import (
	"net"
	"sync"
	"time"

	"github.com/nyan233/wsrpc/core/common/logger"
)

// Context 在一次调用的所有插件阶段之间共享
type Context struct {
	// Method 调用的方法名
	Method string
	// Id 请求的id, 通知没有id
	Id        *uint64
	StartTime time.Time
	// RemoteAddr 服务端使用, 客户端为nil
	RemoteAddr net.Addr
	Logger     logger.LLogger

	mu sync.Mutex
	kv map[interface{}]interface{}
}

func NewContext(method string, id *uint64, l logger.LLogger) *Context {
	if l == nil {
		l = logger.DefaultLogger
	}
	return &Context{
		Method:    method,
		Id:        id,
		StartTime: time.Now(),
		Logger:    l,
	}
}

func (c *Context) SetValue(key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv == nil {
		c.kv = make(map[interface{}]interface{}, 4)
	}
	c.kv[key] = value
}

func (c *Context) Value(key interface{}) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv[key]
}
