package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startEchoServer(t *testing.T, addr string) *WebSocketServer {
	server := NewWebSocketServer(NetworkServerConfig{Addrs: []string{addr}}, logger.NilLogger{})
	server.EventDriveInter().OnMessage(func(conn ServerConn, data []byte) {
		_ = conn.Send(data)
	})
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		_ = server.Stop()
	})
	return server
}

type recordEvents struct {
	mu     sync.Mutex
	events []string
	msgs   chan string
}

func (r *recordEvents) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordEvents) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newRecordedClient(url string) (*WebSocketClient, *recordEvents) {
	rec := &recordEvents{msgs: make(chan string, 16)}
	client := NewWebSocketClient(NetworkClientConfig{
		URLs:                []string{url},
		ReconnectInitial:    time.Millisecond * 20,
		ReconnectMax:        time.Millisecond * 100,
		ReconnectMaxElapsed: time.Second * 2,
	}, logger.NilLogger{})
	ev := client.EventDriveInter()
	ev.OnOpen(func() { rec.add("open") })
	ev.OnMessage(func(data []byte) { rec.msgs <- string(data) })
	ev.OnReconnecting(func(err error) { rec.add("reconnecting") })
	ev.OnReconnected(func() { rec.add("reconnected") })
	ev.OnClose(func(err error) { rec.add("close") })
	return client, rec
}

func TestWebSocketTransport(t *testing.T) {
	// 关闭服务器烦人的日志
	logger.SetOpenLogger(false)
	defer logger.SetOpenLogger(true)
	startEchoServer(t, "127.0.0.1:18631")
	client, rec := newRecordedClient("ws://127.0.0.1:18631" + DefaultPath)
	require.NoError(t, client.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second*2, time.Millisecond*10)
	require.NoError(t, client.Send([]byte(`{"jsonrpc":"2.0","method":"hello"}`)))
	select {
	case msg := <-rec.msgs:
		assert.Equal(t, `{"jsonrpc":"2.0","method":"hello"}`, msg)
	case <-time.After(time.Second * 2):
		t.Fatal("echo timeout")
	}

	client.Reconnect()
	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 3
	}, time.Second*3, time.Millisecond*10)
	assert.Equal(t, []string{"open", "reconnecting", "reconnected"}, rec.snapshot())
	require.NoError(t, client.Send([]byte("again")))
	select {
	case msg := <-rec.msgs:
		assert.Equal(t, "again", msg)
	case <-time.After(time.Second * 2):
		t.Fatal("echo timeout after reconnect")
	}

	require.NoError(t, client.Close())
	select {
	case <-client.Done():
	case <-time.After(time.Second * 2):
		t.Fatal("transport not finished")
	}
	assert.Equal(t, []string{"open", "reconnecting", "reconnected", "close"}, rec.snapshot())
	assert.Error(t, client.Send([]byte("closed")))
	assert.Error(t, client.Close())
}

func TestWebSocketTransportDialFailed(t *testing.T) {
	client := NewWebSocketClient(NetworkClientConfig{
		URLs:                []string{"ws://127.0.0.1:1" + DefaultPath},
		ReconnectInitial:    time.Millisecond * 10,
		ReconnectMax:        time.Millisecond * 20,
		ReconnectMaxElapsed: time.Millisecond * 100,
	}, logger.NilLogger{})
	err := client.Start(context.Background())
	assert.Error(t, err)
	assert.Error(t, client.Send([]byte("x")))
	select {
	case <-client.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestWebSocketTransportResolve(t *testing.T) {
	logger.SetOpenLogger(false)
	defer logger.SetOpenLogger(true)
	startEchoServer(t, "127.0.0.1:18632")
	var calls int
	client := NewWebSocketClient(NetworkClientConfig{
		Resolve: func() (string, error) {
			calls++
			return "ws://127.0.0.1:18632" + DefaultPath, nil
		},
	}, logger.NilLogger{})
	require.NoError(t, client.Start(context.Background()))
	defer client.Close()
	assert.Equal(t, 1, calls)
}
