package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/jsonrpc2"
	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
	"github.com/nyan233/wsrpc/core/common/transport"
	"github.com/nyan233/wsrpc/core/common/utils/debug"
	"github.com/nyan233/wsrpc/core/container"
	"github.com/nyan233/wsrpc/core/middle/plugin"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
	"github.com/nyan233/wsrpc/internal/pool"
	"golang.org/x/time/rate"
)

type Status int32

const (
	Disconnected Status = iota
	Connected
	Reconnecting
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connected:
		return "CONNECTED"
	case Reconnecting:
		return "RECONNECTING"
	default:
		return "UNKNOWN"
	}
}

// Client 在一个可以断开并重连的传输层之上维持一个逻辑上稳定的rpc会话
// 请求的回调在传输层的读goroutine中执行, 不应该阻塞; 对端的调用在goroutine池中执行
type Client struct {
	cfg       *Config
	logger    logger.LLogger
	eHandle   perror.LErrors
	transport transport.ClientTransport
	builder   *rpcbuilder.Builder
	// 对端可以调用的方法, 注册之后几乎只读
	methods       *container.RCUMap[string, Handler]
	gp            pool.TaskPool
	pluginManager *plugin.ClientManager
	limiter       *rate.Limiter
	onDebug       func(data []byte, inbound bool)
	// 传给Handler的context, Close时取消
	ctx      context.Context
	cancelFn context.CancelFunc

	mu     sync.Mutex
	status Status
	// 以下字段由mu保护
	hbEnabled   bool
	pingNextNum int64
	// 编号小于该值的ping失败时不会触发重连
	notReconnectIfNumLessThan int64
	hbStarted                 bool
	hbReset                   chan struct{}
	hbStop                    chan struct{}
	sessionId                 string
	closed                    bool
	disconnected              bool
}

// New 只注册传输层的事件, 调用Start之后才会建立连接
func New(t transport.ClientTransport, opts ...Option) (*Client, error) {
	config := &Config{}
	WithDefault()(config)
	for _, v := range opts {
		v(config)
	}
	config.Lifecycle.setDefault()
	if t == nil {
		return nil, errors.New("transport is nil")
	}
	c := &Client{
		cfg:                       config,
		logger:                    config.Logger,
		eHandle:                   config.ErrHandler,
		transport:                 t,
		methods:                   container.NewRCUMap[string, Handler](),
		pluginManager:             plugin.NewClientManager(config.Plugins),
		onDebug:                   debug.MessageDebug(config.Logger, config.Debug),
		notReconnectIfNumLessThan: -1,
		hbReset:                   make(chan struct{}, 1),
		hbStop:                    make(chan struct{}),
	}
	for name, handler := range config.Methods {
		if err := c.RegisterMethod(name, handler); err != nil {
			return nil, err
		}
	}
	c.builder = rpcbuilder.New(
		rpcbuilder.WithRequestTimeout(config.RequestTimeout),
		rpcbuilder.WithResponseCache(config.CacheSize, config.CacheTTL),
		rpcbuilder.WithLogger(config.Logger),
		rpcbuilder.WithErrHandler(config.ErrHandler),
	)
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(config.RateLimit, burst)
	}
	bufSize := config.PoolBufSize
	if bufSize <= 0 {
		bufSize = DefaultPoolBufSize
	}
	c.gp = pool.NewTaskPool(bufSize, config.PoolSize, debug.Recover(config.Logger))
	c.ctx, c.cancelFn = context.WithCancel(context.Background())
	eventD := t.EventDriveInter()
	eventD.OnOpen(c.onOpen)
	eventD.OnMessage(c.onMessage)
	eventD.OnReconnecting(c.onReconnecting)
	eventD.OnReconnected(c.onReconnected)
	eventD.OnClose(c.onClose)
	return c, nil
}

// Start 启动传输层, 建立连接之后OnConnected会被调用
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errorhandler.ErrClientClosed
	}
	return c.transport.Start(ctx)
}

// RegisterMethod 保留的方法名(ping/closeSession/pull/connect)与重复的方法名会返回错误
func (c *Client) RegisterMethod(name string, handler Handler) error {
	if name == "" || handler == nil {
		return c.eHandle.LWarpErrorDesc(errorhandler.ErrCallArgsType, "method name or handler is empty")
	}
	if jsonrpc2.IsReserved(name) {
		return c.eHandle.LWarpErrorDesc(errorhandler.ErrReservedMethod, name)
	}
	if !c.methods.StoreIfAbsent(name, handler) {
		return c.eHandle.LWarpErrorDesc(errorhandler.ErrCallArgsType, "method already registered", name)
	}
	return nil
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionId 对端在connect回复中分配的会话id, 未开启会话恢复时为空
func (c *Client) SessionId() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionId
}

// Pending 还没有收到回复的请求数量
func (c *Client) Pending() int {
	return c.builder.Pending()
}

// Send 异步调用, callback在收到回复/超时/连接关闭时被调用一次.
// 返回错误时callback不会被调用
func (c *Client) Send(method string, params interface{}, callback rpcbuilder.Callback) (*rpcbuilder.Pending, error) {
	if callback == nil {
		return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrCallArgsType, "callback is nil, use Notify instead")
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrRateLimited, method)
	}
	pending, err := c.send(method, params, c.cfg.RequestTimeout, callback)
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// SendWithContext ctx被取消时请求也会被取消, callback收到ErrRequestCancelled
func (c *Client) SendWithContext(ctx context.Context, method string, params interface{}, callback rpcbuilder.Callback) (*rpcbuilder.Pending, error) {
	if callback == nil {
		return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrCallArgsType, "callback is nil, use Notify instead")
	}
	if err := ctx.Err(); err != nil {
		return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrRequestCancelled, err.Error())
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrRateLimited, err.Error())
		}
	}
	call := &ctxCall{cb: callback}
	pending, err := c.send(method, params, c.cfg.RequestTimeout, call.complete)
	if err != nil {
		return nil, err
	}
	call.setStop(context.AfterFunc(ctx, func() {
		if c.builder.Cancel(pending) {
			call.complete(nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrRequestCancelled, ctx.Err().Error()))
		}
	}))
	return pending, nil
}

// Call 同步调用, out != nil 时将结果反序列化到out
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	type complete struct {
		result json.RawMessage
		err    perror.LErrorDesc
	}
	done := make(chan complete, 1)
	_, err := c.SendWithContext(ctx, method, params, func(result json.RawMessage, err perror.LErrorDesc) {
		done <- complete{result: result, err: err}
	})
	if err != nil {
		return err
	}
	rep := <-done
	if rep.err != nil {
		return rep.err
	}
	if out == nil || len(rep.result) == 0 {
		return nil
	}
	if uErr := json.Unmarshal(rep.result, out); uErr != nil {
		return c.eHandle.LWarpErrorDesc(errorhandler.ErrMessageDecoding, uErr.Error())
	}
	return nil
}

// Notify 发送通知, 对端不会回复
func (c *Client) Notify(method string, params interface{}) error {
	if c.limiter != nil && !c.limiter.Allow() {
		return c.eHandle.LWarpErrorDesc(errorhandler.ErrRateLimited, method)
	}
	if err := c.checkOpen(); err != nil {
		return err
	}
	pub := plugin.NewContext(method, nil, c.logger)
	if err := c.pluginManager.Request4C(pub, params); err != nil {
		return err
	}
	bytes, err := c.builder.Notify(method, params)
	if err != nil {
		return err
	}
	err = c.write(bytes)
	if pErr := c.pluginManager.Send4C(pub, bytes, err); pErr != nil {
		return pErr
	}
	if err != nil {
		return err
	}
	return nil
}

// Cancel 取消之后callback不会再被调用, 对端之后发来的回复会被静默丢弃
func (c *Client) Cancel(pending *rpcbuilder.Pending) bool {
	return c.builder.Cancel(pending)
}

func (c *Client) checkOpen() perror.LErrorDesc {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errorhandler.ErrClientClosed
	}
	return nil
}

// send 用户请求的公共路径, 会经过插件
func (c *Client) send(method string, params interface{}, timeout time.Duration, callback rpcbuilder.Callback) (*rpcbuilder.Pending, perror.LErrorDesc) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	pub := plugin.NewContext(method, nil, c.logger)
	if err := c.pluginManager.Request4C(pub, params); err != nil {
		return nil, err
	}
	timestamp := time.Now()
	pending, bytes, err := c.builder.RequestWithTimeout(method, params, timeout, func(result json.RawMessage, err perror.LErrorDesc) {
		if err != nil {
			err = c.annotate(err, timestamp)
		}
		if pErr := c.pluginManager.Receive4C(pub, result, err); pErr != nil {
			result, err = nil, pErr
		}
		callback(result, err)
	})
	if err != nil {
		return nil, err
	}
	pub.Id = &pending.Id
	err = c.write(bytes)
	if pErr := c.pluginManager.Send4C(pub, bytes, err); pErr != nil && err == nil {
		err = pErr
	}
	if err != nil {
		c.builder.Cancel(pending)
		return nil, err
	}
	return pending, nil
}

// sendInternal 心跳与会话相关的请求, 不经过插件和限流
func (c *Client) sendInternal(method string, params interface{}, timeout time.Duration, callback rpcbuilder.Callback) perror.LErrorDesc {
	pending, bytes, err := c.builder.RequestWithTimeout(method, params, timeout, callback)
	if err != nil {
		return err
	}
	if err = c.write(bytes); err != nil {
		c.builder.Cancel(pending)
		return err
	}
	return nil
}

func (c *Client) write(data []byte) perror.LErrorDesc {
	c.onDebug(data, false)
	if err := c.transport.Send(data); err != nil {
		return c.eHandle.LWarpErrorDesc(errorhandler.ErrConnection, err.Error())
	}
	return nil
}

// annotate 为错误附加请求发出的时间, 不修改可能被共享的错误
func (c *Client) annotate(err perror.LErrorDesc, timestamp time.Time) perror.LErrorDesc {
	more := fmt.Sprintf("request timestamp : %s", timestamp.Format(time.RFC3339Nano))
	switch e := err.(type) {
	case *jsonrpc2.Error:
		// 每次解码都会产生新的对象
		e.AppendMore(more)
		return e
	case *rpcbuilder.TimeoutError:
		return &rpcbuilder.TimeoutError{
			LErrorDesc: c.eHandle.LWarpErrorDesc(e.LErrorDesc, more),
			Request:    e.Request,
		}
	default:
		return c.eHandle.LWarpErrorDesc(err, more)
	}
}

// Close 关闭心跳, SendCloseMessage开启时发送closeSession并等待回复或者ctx结束, 然后关闭传输层.
// 不能在请求的回调中调用, 回复和回调在同一个goroutine
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errorhandler.ErrClientClosed
	}
	status := c.status
	c.closed = true
	c.hbEnabled = false
	c.mu.Unlock()
	c.stopHeartbeat()
	if c.cfg.SendCloseMessage && status == Connected {
		c.sendCloseSession(ctx)
	}
	tErr := c.transport.Close()
	c.cancelFn()
	c.builder.FailAll(c.eHandle.LWarpErrorDesc(errorhandler.ErrConnection, "client closed"))
	c.disconnect(nil)
	// 可能在goroutine池中调用Close, 不能同步等待池关闭
	go func() {
		_ = c.gp.Stop()
	}()
	if tErr != nil {
		c.logger.Debug("wsrpc: close transport : %v", tErr)
	}
	return nil
}

func (c *Client) sendCloseSession(ctx context.Context) {
	done := make(chan perror.LErrorDesc, 1)
	err := c.sendInternal(jsonrpc2.MethodCloseSession, nil, 0, func(result json.RawMessage, err perror.LErrorDesc) {
		done <- err
	})
	if err != nil {
		c.logger.Warn("wsrpc: send closeSession failed : %v", err)
		return
	}
	select {
	case err = <-done:
		if err != nil {
			c.logger.Warn("wsrpc: closeSession failed : %v", err)
		}
	case <-ctx.Done():
		c.logger.Warn("wsrpc: wait closeSession ack : %v", ctx.Err())
	}
}

// disconnect 保证OnDisconnect只被调用一次
func (c *Client) disconnect(err error) {
	c.mu.Lock()
	c.status = Disconnected
	c.hbEnabled = false
	already := c.disconnected
	c.disconnected = true
	c.mu.Unlock()
	if !already {
		c.cfg.Lifecycle.OnDisconnect(err)
	}
}

// ctxCall 保证回调只被调用一次, 完成之后解除与ctx的关联
type ctxCall struct {
	mu   sync.Mutex
	done bool
	stop func() bool
	cb   rpcbuilder.Callback
}

func (c *ctxCall) complete(result json.RawMessage, err perror.LErrorDesc) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	stop := c.stop
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
	c.cb(result, err)
}

func (c *ctxCall) setStop(stop func() bool) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		stop()
		return
	}
	c.stop = stop
	c.mu.Unlock()
}
