package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nyan233/wsrpc/core/client"
	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/jsonrpc2"
	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
	"github.com/nyan233/wsrpc/plugins/conn_limiter"
	accessLog "github.com/nyan233/wsrpc/plugins/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// response 返回id对应的回复的原始数据
func (c *fakeConn) response(id uint64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, data := range c.sent {
		msg, err := jsonrpc2.Parse(data)
		if err != nil || msg.Method != "" || msg.Id == nil {
			continue
		}
		if *msg.Id == id {
			return data, true
		}
	}
	return nil, false
}

func (c *fakeConn) responses(id uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var count int
	for _, data := range c.sent {
		msg, err := jsonrpc2.Parse(data)
		if err == nil && msg.Method == "" && msg.Id != nil && *msg.Id == id {
			count++
		}
	}
	return count
}

func (c *fakeConn) lastRequest() *jsonrpc2.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		msg, err := jsonrpc2.Parse(c.sent[i])
		if err == nil && msg.Method != "" {
			return msg
		}
	}
	return nil
}

func waitResponse(t *testing.T, conn *fakeConn, id uint64) *jsonrpc2.Message {
	var data []byte
	require.Eventually(t, func() bool {
		var ok bool
		data, ok = conn.response(id)
		return ok
	}, time.Second, time.Millisecond*5)
	msg, err := jsonrpc2.Parse(data)
	require.Nil(t, err)
	return msg
}

func deliver(s *Server, conn *fakeConn, msg *jsonrpc2.Message) {
	data, err := jsonrpc2.Marshal(msg)
	if err != nil {
		panic(err)
	}
	s.onMessage(conn, data)
}

func echoHandler(ctx context.Context, sess *Session, params json.RawMessage) (interface{}, error) {
	return params, nil
}

func newUnstartedServer(t *testing.T, opts ...Option) *Server {
	opts = append([]Option{WithLogger(logger.NilLogger{}), WithMethod("echo", echoHandler)}, opts...)
	s := New(opts...)
	t.Cleanup(func() {
		_ = s.taskPool.Stop()
	})
	return s
}

func sessionIdOf(t *testing.T, msg *jsonrpc2.Message) string {
	var rep connectReply
	require.NoError(t, json.Unmarshal(msg.Result, &rep))
	return rep.SessionId
}

func TestBuiltinMethods(t *testing.T) {
	s := newUnstartedServer(t)
	conn := new(fakeConn)
	s.onOpen(conn)
	require.Equal(t, 1, s.Sessions())

	deliver(s, conn, jsonrpc2.NewRequest(1, jsonrpc2.MethodPing, json.RawMessage(`{"interval":3000}`)))
	rep := waitResponse(t, conn, 1)
	var pong pongReply
	require.NoError(t, json.Unmarshal(rep.Result, &pong))
	assert.Equal(t, "pong", pong.Value)
	sess, ok := s.Session(pong.SessionId)
	require.True(t, ok)
	assert.Equal(t, time.Second*3, sess.Interval())

	deliver(s, conn, jsonrpc2.NewRequest(2, jsonrpc2.MethodPull, nil))
	assert.JSONEq(t, `"push"`, string(waitResponse(t, conn, 2).Result))

	deliver(s, conn, jsonrpc2.NewRequest(3, "missing", nil))
	rep = waitResponse(t, conn, 3)
	require.NotNil(t, rep.Error)
	assert.Equal(t, jsonrpc2.MethodNotFound, rep.Error.Code())

	deliver(s, conn, jsonrpc2.NewRequest(4, "echo", json.RawMessage(`{"a":1}`)))
	assert.JSONEq(t, `{"a":1}`, string(waitResponse(t, conn, 4).Result))
	// 未知的通知与无效的消息不会得到回复
	deliver(s, conn, jsonrpc2.NewNotification("missing", nil))
	s.onMessage(conn, []byte(`{"jsonrpc":"2.0","id":9,"result":1,"error":{"code":1,"message":"x"}}`))
	s.onMessage(conn, []byte(`[]`))
	assert.Equal(t, 0, conn.responses(9))

	deliver(s, conn, jsonrpc2.NewRequest(5, jsonrpc2.MethodCloseSession, nil))
	assert.JSONEq(t, `true`, string(waitResponse(t, conn, 5).Result))
	assert.Equal(t, 0, s.Sessions())
	_, ok = s.Session(pong.SessionId)
	assert.False(t, ok)
}

func TestHandlerError(t *testing.T) {
	s := newUnstartedServer(t,
		WithMethod("fail", func(ctx context.Context, sess *Session, params json.RawMessage) (interface{}, error) {
			return nil, jsonrpc2.NewError(7, "media pipeline not found", nil)
		}),
		WithMethod("panic", func(ctx context.Context, sess *Session, params json.RawMessage) (interface{}, error) {
			panic("bad handler")
		}),
	)
	conn := new(fakeConn)
	s.onOpen(conn)
	deliver(s, conn, jsonrpc2.NewRequest(1, "fail", nil))
	rep := waitResponse(t, conn, 1)
	require.NotNil(t, rep.Error)
	assert.Equal(t, 7, rep.Error.Code())
	assert.Equal(t, "media pipeline not found", rep.Error.Message())

	deliver(s, conn, jsonrpc2.NewRequest(2, "panic", nil))
	rep = waitResponse(t, conn, 2)
	require.NotNil(t, rep.Error)
	assert.Equal(t, jsonrpc2.ErrorInternal, rep.Error.Code())
}

func TestSessionResume(t *testing.T) {
	s := newUnstartedServer(t, WithSessionTTL(time.Millisecond*300))
	c1 := new(fakeConn)
	s.onOpen(c1)
	deliver(s, c1, jsonrpc2.NewRequest(1, jsonrpc2.MethodConnect, nil))
	first := sessionIdOf(t, waitResponse(t, c1, 1))
	require.NotEmpty(t, first)
	deliver(s, c1, jsonrpc2.NewRequest(2, "echo", json.RawMessage(`{"v":"first"}`)))
	cached := waitResponse(t, c1, 2)
	s.onClose(c1, errors.New("connection reset"))
	// 断开之后会话等待恢复
	assert.Equal(t, 1, s.Sessions())
	sess, ok := s.Session(first)
	require.True(t, ok)
	assert.False(t, sess.Online())

	c2 := new(fakeConn)
	s.onOpen(c2)
	assert.Equal(t, 2, s.Sessions())
	deliver(s, c2, jsonrpc2.NewRequest(3, jsonrpc2.MethodConnect, json.RawMessage(`{"sessionId":"`+first+`"}`)))
	assert.Equal(t, first, sessionIdOf(t, waitResponse(t, c2, 3)))
	assert.Equal(t, 1, s.Sessions())
	assert.True(t, sess.Online())

	// 重发的请求命中恢复的会话的回复缓存
	deliver(s, c2, jsonrpc2.NewRequest(2, "echo", json.RawMessage(`{"v":"second"}`)))
	replay := waitResponse(t, c2, 2)
	assert.Equal(t, cached.Result, replay.Result)

	c3 := new(fakeConn)
	s.onOpen(c3)
	deliver(s, c3, jsonrpc2.NewRequest(1, jsonrpc2.MethodConnect, json.RawMessage(`{"sessionId":"unknown"}`)))
	third := sessionIdOf(t, waitResponse(t, c3, 1))
	assert.NotEqual(t, "unknown", third)
	assert.NotEqual(t, first, third)

	// 旧的连接关闭不影响已经恢复的会话
	s.onClose(c1, nil)
	assert.True(t, sess.Online())
	s.onClose(c2, nil)
	s.onClose(c3, nil)
	assert.Eventually(t, func() bool { return s.Sessions() == 0 }, time.Second, time.Millisecond*10)
}

func TestSessionWithoutTTL(t *testing.T) {
	s := newUnstartedServer(t, WithSessionTTL(0))
	conn := new(fakeConn)
	s.onOpen(conn)
	assert.Equal(t, 1, s.Sessions())
	s.onClose(conn, nil)
	assert.Equal(t, 0, s.Sessions())
	// 没有会话的连接上的消息被丢弃
	deliver(s, conn, jsonrpc2.NewRequest(1, "echo", nil))
	time.Sleep(time.Millisecond * 20)
	assert.Equal(t, 0, conn.responses(1))
}

func TestSessionPush(t *testing.T) {
	var pushed *Session
	s := newUnstartedServer(t, WithRequestTimeout(0), WithOnSession(func(sess *Session) {
		pushed = sess
	}))
	conn := new(fakeConn)
	s.onOpen(conn)
	require.NotNil(t, pushed)

	require.NoError(t, pushed.Notify("onEvent", map[string]string{"type": "EndOfStream"}))
	notify := conn.lastRequest()
	require.NotNil(t, notify)
	assert.Nil(t, notify.Id)
	assert.Equal(t, "onEvent", notify.Method)
	assert.Equal(t, 1, s.Broadcast("onEvent", nil))

	done := make(chan error, 1)
	var out struct {
		Ok bool `json:"ok"`
	}
	go func() {
		done <- pushed.Call(context.Background(), "getState", nil, &out)
	}()
	var req *jsonrpc2.Message
	require.Eventually(t, func() bool {
		req = conn.lastRequest()
		return req != nil && req.Method == "getState"
	}, time.Second, time.Millisecond*5)
	deliver(s, conn, jsonrpc2.NewResult(*req.Id, json.RawMessage(`{"ok":true}`)))
	require.NoError(t, <-done)
	assert.True(t, out.Ok)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*20)
	defer cancel()
	err := pushed.Call(ctx, "getState", nil, nil)
	assert.True(t, errorhandler.IsCode(err, perror.ClientError))
	assert.Equal(t, 0, pushed.builder.Pending())

	// 连接断开之后挂起的推送请求失败
	failed := make(chan perror.LErrorDesc, 1)
	_, err = pushed.Send("getState", nil, func(result json.RawMessage, err perror.LErrorDesc) {
		failed <- err
	})
	require.NoError(t, err)
	s.onClose(conn, nil)
	assert.True(t, errorhandler.IsCode(<-failed, perror.ConnectionErr))
	assert.True(t, errorhandler.IsCode(pushed.Notify("onEvent", nil), perror.ConnectionErr))
	assert.Equal(t, 0, s.Broadcast("onEvent", nil))

	require.NoError(t, pushed.Close())
	assert.Equal(t, 0, s.Sessions())
}

func TestRegisterMethod(t *testing.T) {
	assert.Panics(t, func() {
		New(WithLogger(logger.NilLogger{}), WithMethod(jsonrpc2.MethodPing, echoHandler))
	})
	s := newUnstartedServer(t)
	assert.Error(t, s.RegisterMethod("echo", echoHandler))
	assert.Error(t, s.RegisterMethod(jsonrpc2.MethodConnect, echoHandler))
	assert.NoError(t, s.RegisterMethod("echo2", echoHandler))
}

func TestServerPlugins(t *testing.T) {
	var buf syncBuffer
	s := newUnstartedServer(t, WithPlugin(conn_limiter.NewServer(1)), WithPlugin(accessLog.New(&buf)))
	c1, c2 := new(fakeConn), new(fakeConn)
	s.onOpen(c1)
	s.onOpen(c2)
	assert.True(t, c2.isClosed())
	assert.False(t, c1.isClosed())
	assert.Equal(t, 1, s.Sessions())
	s.onClose(c2, nil)

	deliver(s, c1, jsonrpc2.NewRequest(1, "echo", json.RawMessage(`{"a":1}`)))
	waitResponse(t, c1, 1)
	assert.Eventually(t, func() bool {
		return bytes.Contains(buf.Bytes(), []byte(`"echo"`))
	}, time.Second, time.Millisecond*5)

	// 关闭一个连接之后可以接受新的连接
	s.onClose(c1, nil)
	c3 := new(fakeConn)
	s.onOpen(c3)
	assert.False(t, c3.isClosed())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestEndToEnd(t *testing.T) {
	const addr = "127.0.0.1:18651"
	s := New(
		WithLogger(logger.NilLogger{}),
		WithAddress(addr),
		WithMethod("echo", echoHandler),
		WithMethod("sum", func(ctx context.Context, sess *Session, params json.RawMessage) (interface{}, error) {
			// 反向调用客户端
			var out int
			err := sess.Call(ctx, "add", params, &out)
			return out, err
		}),
	)
	require.NoError(t, s.Start())
	defer s.Stop()

	news := make(chan json.RawMessage, 1)
	c, err := client.Dial(context.Background(), []string{"ws://" + addr + "/jsonrpc"},
		client.WithLogger(logger.NilLogger{}),
		client.WithHeartbeat(time.Millisecond*50),
		client.WithSessionResume(true),
		client.WithSendCloseMessage(true),
		client.WithMethod("add", func(ctx context.Context, params json.RawMessage, in rpcbuilder.Inbound) (interface{}, error) {
			var p struct{ A, B int }
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, err
			}
			return p.A + p.B, nil
		}),
		client.WithMethod("news", func(ctx context.Context, params json.RawMessage, in rpcbuilder.Inbound) (interface{}, error) {
			news <- params
			return nil, nil
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, client.Connected, c.Status())

	var echo map[string]string
	require.NoError(t, c.Call(context.Background(), "echo", map[string]string{"k": "v"}, &echo))
	assert.Equal(t, "v", echo["k"])

	err = c.Call(context.Background(), "missing", nil, nil)
	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, jsonrpc2.MethodNotFound, rpcErr.Code())

	var sum int
	require.NoError(t, c.Call(context.Background(), "sum", map[string]int{"a": 1, "b": 2}, &sum))
	assert.Equal(t, 3, sum)

	require.Eventually(t, func() bool { return c.SessionId() != "" }, time.Second, time.Millisecond*10)
	sess, ok := s.Session(c.SessionId())
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		return sess.Interval() == time.Millisecond*50
	}, time.Second, time.Millisecond*10)

	assert.Equal(t, 1, s.Broadcast("news", map[string]string{"title": "hello"}))
	select {
	case params := <-news:
		assert.JSONEq(t, `{"title":"hello"}`, string(params))
	case <-time.After(time.Second):
		t.Fatal("notification not received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))
	assert.Eventually(t, func() bool { return s.Sessions() == 0 }, time.Second, time.Millisecond*10)
}
