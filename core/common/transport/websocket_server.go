package transport

import (
	"errors"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/lesismal/nbio/nbhttp"
	"github.com/lesismal/nbio/nbhttp/websocket"
	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/container"
)

// WebSocketServer 基于nbio的websocket服务端引擎
type WebSocketServer struct {
	started  int32
	closed   int32
	path     string
	logger   logger.LLogger
	wsEngine *nbhttp.Engine
	conns    container.MutexMap[*websocket.Conn, *wsServerConn]
	onMsg    func(conn ServerConn, data []byte)
	onClose  func(conn ServerConn, err error)
	onOpen   func(conn ServerConn)
}

func NewWebSocketServer(config NetworkServerConfig, l logger.LLogger) *WebSocketServer {
	if l == nil {
		l = logger.DefaultLogger
	}
	nConfig := nbhttp.Config{}
	nConfig.Name = "wsrpc-server"
	nConfig.Network = "tcp"
	nConfig.ReleaseWebsocketPayload = true
	nConfig.ReadBufferSize = ReadBufferSize
	nConfig.MaxWriteBufferSize = MaxWriteBufferSize
	nConfig.Addrs = config.Addrs
	path := config.Path
	if path == "" {
		path = DefaultPath
	}
	return &WebSocketServer{
		path:     path,
		logger:   l,
		wsEngine: nbhttp.NewEngine(nConfig),
		onMsg:    func(conn ServerConn, data []byte) {},
		onClose:  func(conn ServerConn, err error) {},
		onOpen:   func(conn ServerConn) {},
	}
}

func (s *WebSocketServer) EventDriveInter() ServerEventDriveInter {
	return s
}

func (s *WebSocketServer) OnMessage(f func(conn ServerConn, data []byte)) {
	s.onMsg = f
}

func (s *WebSocketServer) OnOpen(f func(conn ServerConn)) {
	s.onOpen = f
}

func (s *WebSocketServer) OnClose(f func(conn ServerConn, err error)) {
	s.onClose = f
}

// connOf 第一次见到某个连接时创建对应的ServerConn并触发OnOpen
func (s *WebSocketServer) connOf(c *websocket.Conn) *wsServerConn {
	sc, loaded := s.conns.LoadOrStore(c, func() *wsServerConn {
		return &wsServerConn{conn: c}
	})
	if !loaded {
		s.onOpen(sc)
	}
	return sc
}

func (s *WebSocketServer) Start() error {
	if !atomic.CompareAndSwapInt32(&s.started, 0, 1) {
		return errors.New("wsEngine already started")
	}
	mux := &http.ServeMux{}
	mux.HandleFunc(s.path, func(writer http.ResponseWriter, request *http.Request) {
		ws := websocket.NewUpgrader()
		ws.OnOpen(func(conn *websocket.Conn) {
			s.connOf(conn)
		})
		ws.OnMessage(func(conn *websocket.Conn, messageType websocket.MessageType, bytes []byte) {
			// payload在回调返回后会被nbio回收
			data := make([]byte, len(bytes))
			copy(data, bytes)
			s.onMsg(s.connOf(conn), data)
		})
		ws.OnClose(func(conn *websocket.Conn, err error) {
			sc, ok := s.conns.LoadAndDelete(conn)
			if !ok {
				return
			}
			sc.closed.Store(true)
			s.onClose(sc, err)
		})
		// 从Http升级到WebSocket
		_, err := ws.Upgrade(writer, request, nil)
		if err != nil {
			s.logger.Warn("wsrpc: websocket upgrade failed : %v", err)
		}
	})
	s.wsEngine.Handler = mux
	return s.wsEngine.Start()
}

func (s *WebSocketServer) Stop() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return errors.New("wsEngine already closed")
	}
	s.wsEngine.Stop()
	return nil
}

type wsServerConn struct {
	conn   *websocket.Conn
	closed atomic.Bool
}

func (c *wsServerConn) Send(data []byte) error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsServerConn) Close() error {
	return c.conn.Close()
}

func (c *wsServerConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
