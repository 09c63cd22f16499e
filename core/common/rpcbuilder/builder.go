package rpcbuilder

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/jsonrpc2"
	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/container"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

// Callback 每个请求的回调只会被调用一次, 调用时不持有Builder内部的锁
type Callback func(result json.RawMessage, err perror.LErrorDesc)

type pendingEntry struct {
	req   *Pending
	cb    Callback
	timer *time.Timer
}

// data == nil 表示请求已经被解码但还没有回复
type cachedResponse struct {
	data []byte
}

// Builder 负责jsonrpc2信封的编解码以及请求与回复的关联.
// 每个Builder拥有自己的id计数器, 挂起请求表和回复缓存, 不与其它实例共享
type Builder struct {
	cfg    Config
	logger logger.LLogger
	eh     perror.LErrors
	// 下一个分配的请求id, 从0开始
	nextId atomic.Uint64
	// 挂起请求表
	pending container.MutexMap[uint64, *pendingEntry]
	// 保证回复缓存的检查和写入是原子的
	cacheMu   sync.Mutex
	responses *expirable.LRU[uint64, *cachedResponse]
	// 已经取消/超时的id, 用于区分迟到的回复和未知的回复
	settled *expirable.LRU[uint64, struct{}]
}

func New(opts ...Option) *Builder {
	cfg := Config{}
	WithDefault()(&cfg)
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &Builder{
		cfg:    cfg,
		logger: cfg.Logger,
		eh:     cfg.ErrHandler,
	}
	b.responses = expirable.NewLRU[uint64, *cachedResponse](cfg.CacheSize, nil, cfg.CacheTTL)
	b.settled = expirable.NewLRU[uint64, struct{}](cfg.SettledSize, nil, cfg.CacheTTL)
	return b
}

func (b *Builder) Config() Config {
	return b.cfg
}

// Notify 编码一个通知, 不会在挂起请求表中产生条目
func (b *Builder) Notify(method string, params interface{}) ([]byte, perror.LErrorDesc) {
	if method == "" {
		return nil, b.eh.LWarpErrorDesc(errorhandler.ErrCallArgsType, "method is empty")
	}
	raw, err := jsonrpc2.MarshalParams(params)
	if err != nil {
		return nil, err
	}
	return jsonrpc2.Marshal(jsonrpc2.NewNotification(method, raw))
}

// Request 分配下一个id并注册回调, 返回的数据需要调用者自己发送.
// 发送失败时调用者应该调用Cancel, 否则回调只能等到超时才会被调用
func (b *Builder) Request(method string, params interface{}, cb Callback) (*Pending, []byte, perror.LErrorDesc) {
	return b.RequestWithTimeout(method, params, b.cfg.RequestTimeout, cb)
}

// RequestWithTimeout timeout <= 0 时不会超时
func (b *Builder) RequestWithTimeout(method string, params interface{}, timeout time.Duration, cb Callback) (*Pending, []byte, perror.LErrorDesc) {
	if cb == nil {
		return nil, nil, b.eh.LWarpErrorDesc(errorhandler.ErrCallArgsType, "request callback is nil, use Notify instead")
	}
	if method == "" {
		return nil, nil, b.eh.LWarpErrorDesc(errorhandler.ErrCallArgsType, "method is empty")
	}
	raw, err := jsonrpc2.MarshalParams(params)
	if err != nil {
		return nil, nil, err
	}
	id := b.nextId.Add(1) - 1
	bytes, err := jsonrpc2.Marshal(jsonrpc2.NewRequest(id, method, raw))
	if err != nil {
		return nil, nil, err
	}
	req := &Pending{
		Id:        id,
		Method:    method,
		Params:    raw,
		Timestamp: time.Now(),
		Timeout:   timeout,
	}
	entry := &pendingEntry{req: req, cb: cb}
	b.pending.Store(id, entry)
	if timeout > 0 {
		entry.timer = time.AfterFunc(timeout, func() {
			b.onTimeout(id)
		})
	}
	return req, bytes, nil
}

func (b *Builder) onTimeout(id uint64) {
	entry, ok := b.pending.LoadAndDelete(id)
	if !ok {
		return
	}
	b.settled.Add(id, struct{}{})
	entry.cb(nil, &TimeoutError{
		LErrorDesc: b.eh.LWarpErrorDesc(errorhandler.ErrTimeout, entry.req.Method, entry.req.Timeout.String()),
		Request:    entry.req,
	})
}

// Cancel 取消之后回调不会再被调用, 即使之后收到了对应的回复
func (b *Builder) Cancel(req *Pending) bool {
	if req == nil {
		return false
	}
	entry, ok := b.pending.LoadAndDelete(req.Id)
	if !ok {
		return false
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	b.settled.Add(req.Id, struct{}{})
	return true
}

// FailAll 使用err调用所有挂起的回调, 用于连接被彻底关闭的时候
func (b *Builder) FailAll(err perror.LErrorDesc) int {
	old := b.pending.Clean()
	for id, entry := range old {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		b.settled.Add(id, struct{}{})
	}
	for _, entry := range old {
		entry.cb(nil, err)
	}
	return len(old)
}

// Pending 挂起的请求数量
func (b *Builder) Pending() int {
	return b.pending.Len()
}

// ResetResponses 对端开始了一个新的会话时调用, 旧会话的id可能会被重新使用
func (b *Builder) ResetResponses() {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	b.responses.Purge()
}

// Decode 解码一个完整的信封.
// 回复被对应的回调消费时返回(nil, nil), 通知和请求分别返回*Notification和*Request
func (b *Builder) Decode(data []byte) (Inbound, perror.LErrorDesc) {
	msg, err := jsonrpc2.Parse(data)
	if err != nil {
		return nil, err
	}
	return b.DecodeMessage(msg)
}

func (b *Builder) DecodeMessage(msg *jsonrpc2.Message) (Inbound, perror.LErrorDesc) {
	kind, err := msg.Kind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case jsonrpc2.KindResponse:
		return nil, b.decodeResponse(msg)
	case jsonrpc2.KindRequest:
		return b.decodeRequest(msg), nil
	default:
		return &Notification{Method: msg.Method, Params: msg.ParamsOf()}, nil
	}
}

func (b *Builder) decodeResponse(msg *jsonrpc2.Message) perror.LErrorDesc {
	id := msg.IdOf()
	entry, ok := b.pending.LoadAndDelete(id)
	if !ok {
		if b.settled.Contains(id) {
			return &lateResponseError{
				LErrorDesc: b.eh.LWarpErrorDesc(errorhandler.ErrNoCallback, id),
			}
		}
		return b.eh.LWarpErrorDesc(errorhandler.ErrNoCallback, id)
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	if msg.Error != nil {
		entry.cb(nil, msg.Error)
	} else {
		entry.cb(msg.Result, nil)
	}
	return nil
}

func (b *Builder) decodeRequest(msg *jsonrpc2.Message) *Request {
	id := msg.IdOf()
	b.cacheMu.Lock()
	_, duplicated := b.responses.Get(id)
	if !duplicated {
		b.responses.Add(id, &cachedResponse{})
	}
	b.cacheMu.Unlock()
	return &Request{
		Notification: Notification{Method: msg.Method, Params: msg.ParamsOf()},
		Id:           id,
		Duplicated:   duplicated,
		builder:      b,
	}
}

func (b *Builder) cachedReply(id uint64) ([]byte, bool) {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	c, ok := b.responses.Get(id)
	if !ok || c.data == nil {
		return nil, false
	}
	return c.data, true
}

func (b *Builder) reply(id uint64, result interface{}, err error) ([]byte, perror.LErrorDesc) {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	if c, ok := b.responses.Get(id); ok && c.data != nil {
		return c.data, nil
	}
	var msg *jsonrpc2.Message
	if err != nil {
		msg = jsonrpc2.NewErrorResponse(id, jsonrpc2.ToError(err))
	} else if raw, mErr := marshalResult(result); mErr != nil {
		msg = jsonrpc2.NewErrorResponse(id, jsonrpc2.ToError(b.eh.LWarpErrorDesc(errorhandler.ErrCodecMarshal, mErr.Error())))
	} else {
		msg = jsonrpc2.NewResult(id, raw)
	}
	bytes, lErr := jsonrpc2.Marshal(msg)
	if lErr != nil {
		return nil, lErr
	}
	b.responses.Add(id, &cachedResponse{data: bytes})
	return bytes, nil
}

func marshalResult(result interface{}) (json.RawMessage, error) {
	switch r := result.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return r, nil
	default:
		return json.Marshal(result)
	}
}
