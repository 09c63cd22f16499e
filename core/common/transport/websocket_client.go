package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/logger"
)

var (
	errTransportClosed = errors.New("transport already closed")
	errNotConnected    = errors.New("transport not connected")
)

// WebSocketClient 基于gorilla/websocket的可重连客户端
// 读循环, 重连以及所有事件回调都在同一个goroutine中执行
type WebSocketClient struct {
	cfg    NetworkClientConfig
	dialer *websocket.Dialer
	logger logger.LLogger

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	started   int32
	closed    atomic.Bool
	closeOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}

	onOpen         func()
	onMessage      func(data []byte)
	onReconnecting func(err error)
	onReconnected  func()
	onClose        func(err error)
}

func NewWebSocketClient(cfg NetworkClientConfig, l logger.LLogger) *WebSocketClient {
	cfg.setDefault()
	if l == nil {
		l = logger.DefaultLogger
	}
	return &WebSocketClient{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			TLSClientConfig:  cfg.TLSConfig,
			ReadBufferSize:   ReadBufferSize,
			WriteBufferSize:  ReadBufferSize,
		},
		logger:         l,
		closeCh:        make(chan struct{}),
		done:           make(chan struct{}),
		onOpen:         func() {},
		onMessage:      func(data []byte) {},
		onReconnecting: func(err error) {},
		onReconnected:  func() {},
		onClose:        func(err error) {},
	}
}

func (w *WebSocketClient) EventDriveInter() ClientEventDriveInter {
	return w
}

func (w *WebSocketClient) OnOpen(f func()) {
	w.onOpen = f
}

func (w *WebSocketClient) OnMessage(f func(data []byte)) {
	w.onMessage = f
}

func (w *WebSocketClient) OnReconnecting(f func(err error)) {
	w.onReconnecting = f
}

func (w *WebSocketClient) OnReconnected(f func()) {
	w.onReconnected = f
}

func (w *WebSocketClient) OnClose(f func(err error)) {
	w.onClose = f
}

// Done 读循环退出并且OnClose调用完成之后被关闭
func (w *WebSocketClient) Done() <-chan struct{} {
	return w.done
}

func (w *WebSocketClient) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&w.started, 0, 1) {
		return errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrConnection, "transport already started")
	}
	conn, err := w.dialWithBackoff(ctx)
	if err != nil {
		w.closed.Store(true)
		close(w.done)
		return errorhandler.DefaultErrHandler.LWarpErrorDesc(errorhandler.ErrConnection, err.Error())
	}
	w.setConn(conn)
	go func() {
		w.onOpen()
		w.run(conn)
	}()
	return nil
}

func (w *WebSocketClient) run(conn *websocket.Conn) {
	defer close(w.done)
	for {
		err := w.readLoop(conn)
		w.setConn(nil)
		if w.closed.Load() {
			w.onClose(nil)
			return
		}
		w.logger.Warn("wsrpc: websocket read failed, start reconnecting : %v", err)
		w.onReconnecting(err)
		conn, err = w.dialWithBackoff(context.Background())
		if err != nil {
			if errors.Is(err, errTransportClosed) {
				err = nil
			}
			w.onClose(err)
			return
		}
		w.setConn(conn)
		w.onReconnected()
	}
}

func (w *WebSocketClient) readLoop(conn *websocket.Conn) error {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		w.onMessage(data)
	}
}

func (w *WebSocketClient) dialWithBackoff(ctx context.Context) (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.ReconnectInitial
	b.MaxInterval = w.cfg.ReconnectMax
	b.MaxElapsedTime = w.cfg.ReconnectMaxElapsed
	b.Reset()
	for {
		if w.closed.Load() {
			return nil, errTransportClosed
		}
		conn, err := w.dial(ctx)
		if err == nil {
			return conn, nil
		}
		next := b.NextBackOff()
		if next == backoff.Stop {
			return nil, err
		}
		w.logger.Debug("wsrpc: dial failed, retry after %v : %v", next, err)
		timer := time.NewTimer(next)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-w.closeCh:
			timer.Stop()
			return nil, errTransportClosed
		}
	}
}

func (w *WebSocketClient) dial(ctx context.Context) (*websocket.Conn, error) {
	var (
		url string
		err error
	)
	if w.cfg.Resolve != nil {
		url, err = w.cfg.Resolve()
	} else if len(w.cfg.URLs) > 0 {
		url = w.cfg.URLs[0]
	} else {
		err = errors.New("no server url")
	}
	if err != nil {
		return nil, err
	}
	conn, _, err := w.dialer.DialContext(ctx, url, w.cfg.Header)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(w.cfg.ReadLimit)
	return conn, nil
}

func (w *WebSocketClient) setConn(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = conn
}

func (w *WebSocketClient) currentConn() *websocket.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

func (w *WebSocketClient) Send(data []byte) error {
	if w.closed.Load() {
		return errTransportClosed
	}
	conn := w.currentConn()
	if conn == nil {
		return errNotConnected
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Reconnect 关闭当前连接, 读循环会因此返回错误并进入重连
func (w *WebSocketClient) Reconnect() {
	if w.closed.Load() {
		return
	}
	conn := w.currentConn()
	if conn == nil {
		return
	}
	_ = conn.Close()
}

// Close 不会等待读循环退出, 因为它可能在事件回调中被调用
func (w *WebSocketClient) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return errTransportClosed
	}
	w.closeOnce.Do(func() {
		close(w.closeCh)
	})
	conn := w.currentConn()
	if conn == nil {
		return nil
	}
	w.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.writeMu.Unlock()
	return conn.Close()
}
