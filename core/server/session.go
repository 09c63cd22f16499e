package server

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
	"github.com/nyan233/wsrpc/core/common/transport"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

// Session 一个客户端的逻辑会话, 可以跨越多个websocket连接.
// 会话持有自己的Builder, 恢复之后重发的请求仍然可以命中回复缓存
type Session struct {
	id      string
	server  *Server
	builder *rpcbuilder.Builder
	// 客户端ping携带的心跳间隔, 毫秒
	interval atomic.Int64

	mu   sync.Mutex
	conn transport.ServerConn
	// 连接断开之后的过期定时器
	expire *time.Timer
	closed bool
}

func newSession(id string, s *Server, conn transport.ServerConn) *Session {
	cfg := s.config
	return &Session{
		id:     id,
		server: s,
		conn:   conn,
		builder: rpcbuilder.New(
			rpcbuilder.WithRequestTimeout(cfg.RequestTimeout),
			rpcbuilder.WithResponseCache(cfg.CacheSize, cfg.CacheTTL),
			rpcbuilder.WithLogger(cfg.Logger),
			rpcbuilder.WithErrHandler(cfg.ErrHandler),
		),
	}
}

func (sess *Session) Id() string {
	return sess.id
}

// Interval 客户端声明的心跳间隔, 还没有收到时为0
func (sess *Session) Interval() time.Duration {
	return time.Duration(sess.interval.Load()) * time.Millisecond
}

// RemoteAddr 会话处于断开状态时为nil
func (sess *Session) RemoteAddr() net.Addr {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.conn == nil {
		return nil
	}
	return sess.conn.RemoteAddr()
}

// Online 当前是否绑定了一个连接
func (sess *Session) Online() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.conn != nil
}

// Notify 向客户端推送一个通知
func (sess *Session) Notify(method string, params interface{}) error {
	bytes, err := sess.builder.Notify(method, params)
	if err != nil {
		return err
	}
	if err = sess.write(bytes); err != nil {
		return err
	}
	return nil
}

// Send 向客户端发起一个请求, callback在收到回复/超时/会话销毁时被调用一次
func (sess *Session) Send(method string, params interface{}, callback rpcbuilder.Callback) (*rpcbuilder.Pending, error) {
	pending, bytes, err := sess.builder.Request(method, params, callback)
	if err != nil {
		return nil, err
	}
	if err = sess.write(bytes); err != nil {
		sess.builder.Cancel(pending)
		return nil, err
	}
	return pending, nil
}

// Call 同步调用客户端的方法, out != nil 时将结果反序列化到out
func (sess *Session) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	type complete struct {
		result json.RawMessage
		err    perror.LErrorDesc
	}
	done := make(chan complete, 1)
	pending, err := sess.Send(method, params, func(result json.RawMessage, err perror.LErrorDesc) {
		done <- complete{result: result, err: err}
	})
	if err != nil {
		return err
	}
	var rep complete
	select {
	case rep = <-done:
	case <-ctx.Done():
		if !sess.builder.Cancel(pending) {
			// 取消与回复同时发生, 以回复为准
			rep = <-done
			break
		}
		return sess.server.eHandle.LWarpErrorDesc(errorhandler.ErrRequestCancelled, ctx.Err().Error())
	}
	if rep.err != nil {
		return rep.err
	}
	if out == nil || len(rep.result) == 0 {
		return nil
	}
	if uErr := json.Unmarshal(rep.result, out); uErr != nil {
		return sess.server.eHandle.LWarpErrorDesc(errorhandler.ErrMessageDecoding, uErr.Error())
	}
	return nil
}

// Close 关闭当前连接并销毁会话, 之后不能再被恢复
func (sess *Session) Close() error {
	sess.mu.Lock()
	conn := sess.conn
	sess.mu.Unlock()
	sess.server.destroySession(sess)
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (sess *Session) write(data []byte) perror.LErrorDesc {
	sess.mu.Lock()
	conn := sess.conn
	closed := sess.closed
	sess.mu.Unlock()
	if closed {
		return sess.server.eHandle.LWarpErrorDesc(errorhandler.ErrConnection, "session closed")
	}
	if conn == nil {
		return sess.server.eHandle.LWarpErrorDesc(errorhandler.ErrConnection, "session offline")
	}
	sess.server.onDebug(data, false)
	if err := conn.Send(data); err != nil {
		return sess.server.eHandle.LWarpErrorDesc(errorhandler.ErrConnection, err.Error())
	}
	return nil
}

// attach 绑定新的连接, 停止过期定时器
func (sess *Session) attach(conn transport.ServerConn) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return false
	}
	if sess.expire != nil {
		sess.expire.Stop()
		sess.expire = nil
	}
	sess.conn = conn
	return true
}

// detach 只有当前绑定的连接是conn时才会解除, 会话可能已经被新的连接恢复
func (sess *Session) detach(conn transport.ServerConn, ttl time.Duration, onExpire func()) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.conn != conn || sess.closed {
		return false
	}
	sess.conn = nil
	if ttl > 0 {
		sess.expire = time.AfterFunc(ttl, onExpire)
	}
	return true
}

func (sess *Session) markClosed() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return false
	}
	sess.closed = true
	sess.conn = nil
	if sess.expire != nil {
		sess.expire.Stop()
		sess.expire = nil
	}
	return true
}
