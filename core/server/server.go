package server

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/jsonrpc2"
	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/common/transport"
	"github.com/nyan233/wsrpc/core/common/utils/debug"
	"github.com/nyan233/wsrpc/core/container"
	"github.com/nyan233/wsrpc/core/middle/plugin"
	lerror "github.com/nyan233/wsrpc/core/protocol/error"
	"github.com/nyan233/wsrpc/internal/pool"
)

const (
	_Stop  int32 = 1 << 3
	_Start int32 = 1 << 4
)

type Server struct {
	// 客户端可以调用的方法, 注册之后几乎只读
	methods *container.RCUMap[string, Handler]
	// Server Engine
	server transport.ServerEngine
	// 任务池
	taskPool pool.TaskPool
	// 连接与其绑定的会话, 恢复会话之后一个会话可能对应过多个连接
	conns container.MutexMap[transport.ServerConn, *Session]
	// 所有存活的会话, 包括断开之后等待恢复的
	sessions container.MutexMap[string, *Session]
	logger   logger.LLogger
	// 注册的插件的管理器
	pManager *plugin.ServerManager
	// Error Handler
	eHandle lerror.LErrors
	config  *Config
	onDebug func(data []byte, inbound bool)
	state   atomic.Int32
	// 传给Handler的context, Stop时取消
	ctx      context.Context
	cancelFn context.CancelFunc
	done     chan struct{}
}

// New 方法名为保留名称或者重复时panic
func New(opts ...Option) *Server {
	sc := &Config{}
	WithDefaultServer()(sc)
	for _, v := range opts {
		v(sc)
	}
	if len(sc.Address) == 0 {
		sc.Address = []string{DefaultAddress}
	}
	if sc.Logger == nil {
		sc.Logger = logger.DefaultLogger
	}
	if sc.ErrHandler == nil {
		sc.ErrHandler = errorhandler.DefaultErrHandler
	}
	server := &Server{
		methods:  container.NewRCUMap[string, Handler](),
		logger:   sc.Logger,
		pManager: plugin.NewServerManager(sc.Plugins),
		eHandle:  sc.ErrHandler,
		config:   sc,
		onDebug:  debug.MessageDebug(sc.Logger, sc.Debug),
		done:     make(chan struct{}),
	}
	for name, handler := range sc.Methods {
		if err := server.RegisterMethod(name, handler); err != nil {
			panic(err)
		}
	}
	server.ctx, server.cancelFn = context.WithCancel(context.Background())
	server.taskPool = pool.NewTaskPool(sc.PoolBufSize, sc.PoolSize, debug.Recover(sc.Logger))
	engine := transport.NewWebSocketServer(transport.NetworkServerConfig{
		Addrs: sc.Address,
		Path:  sc.Path,
	}, sc.Logger)
	eventD := engine.EventDriveInter()
	eventD.OnMessage(server.onMessage)
	eventD.OnClose(server.onClose)
	eventD.OnOpen(server.onOpen)
	server.server = engine
	return server
}

// RegisterMethod 保留的方法名(ping/closeSession/pull/connect)与重复的方法名会返回错误
func (s *Server) RegisterMethod(name string, handler Handler) error {
	if name == "" || handler == nil {
		return s.eHandle.LWarpErrorDesc(errorhandler.ErrCallArgsType, "method name or handler is empty")
	}
	if jsonrpc2.IsReserved(name) {
		return s.eHandle.LWarpErrorDesc(errorhandler.ErrReservedMethod, name)
	}
	if !s.methods.StoreIfAbsent(name, handler) {
		return s.eHandle.LWarpErrorDesc(errorhandler.ErrCallArgsType, "method already registered", name)
	}
	return nil
}

// Start 开始监听, 不会阻塞
func (s *Server) Start() error {
	if !s.state.CompareAndSwap(0, _Start) {
		return errors.New("server in unknown state")
	}
	if err := s.server.Start(); err != nil {
		s.state.Store(_Stop)
		return err
	}
	s.logger.Info("wsrpc: server listen on %v%s", s.config.Address, s.config.Path)
	return nil
}

// Service 开始监听并阻塞到Stop被调用
func (s *Server) Service() error {
	if err := s.Start(); err != nil {
		return err
	}
	<-s.done
	return nil
}

func (s *Server) Stop() error {
	if !s.state.CompareAndSwap(_Start, _Stop) {
		return errors.New("server in unknown state")
	}
	defer close(s.done)
	s.cancelFn()
	err := s.server.Stop()
	for _, sess := range s.sessions.Clean() {
		s.destroySession(sess)
	}
	if pErr := s.taskPool.Stop(); pErr != nil && err == nil {
		err = pErr
	}
	return err
}

// Sessions 存活的会话数量
func (s *Server) Sessions() int {
	return s.sessions.Len()
}

func (s *Server) Session(id string) (*Session, bool) {
	return s.sessions.LoadOk(id)
}

// Broadcast 向所有在线的会话推送通知, 返回发送成功的数量
func (s *Server) Broadcast(method string, params interface{}) int {
	var targets []*Session
	s.sessions.Range(func(key string, sess *Session) bool {
		targets = append(targets, sess)
		return true
	})
	var count int
	for _, sess := range targets {
		if !sess.Online() {
			continue
		}
		if err := sess.Notify(method, params); err != nil {
			s.logger.Warn("wsrpc: broadcast %s to session %s failed : %v", method, sess.Id(), err)
			continue
		}
		count++
	}
	return count
}

// destroySession 会话销毁之后挂起的推送请求全部失败
func (s *Server) destroySession(sess *Session) {
	if !sess.markClosed() {
		return
	}
	s.sessions.Delete(sess.Id())
	n := sess.builder.FailAll(s.eHandle.LWarpErrorDesc(errorhandler.ErrConnection, "session closed"))
	s.logger.Debug("wsrpc: session %s destroyed, %d pending requests failed", sess.Id(), n)
}
