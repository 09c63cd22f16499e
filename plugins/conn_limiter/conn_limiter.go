package conn_limiter

import (
	"sync/atomic"

	"github.com/nyan233/wsrpc/core/common/transport"
	"github.com/nyan233/wsrpc/core/middle/plugin"
)

// Limiter 限制服务端同时存在的websocket连接数
// 被拒绝的连接同样会收到OnClose, 所以拒绝时不回退计数
type Limiter struct {
	plugin.AbstractServer
	max     int
	counter atomic.Int64
}

func NewServer(maxConn int) plugin.ServerPlugin {
	return &Limiter{
		max: maxConn,
	}
}

func (l *Limiter) Event4S(ev plugin.Event, conn transport.ServerConn) (next bool) {
	switch ev {
	case plugin.OnOpen:
		return l.counter.Add(1) <= int64(l.max)
	case plugin.OnClose:
		l.counter.Add(-1)
		return true
	default:
		return true
	}
}
