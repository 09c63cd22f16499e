package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/nyan233/wsrpc/core/common/jsonrpc2"
	"github.com/nyan233/wsrpc/core/common/transport"
)

// fakeTransport 由测试直接驱动事件, responder不为nil时异步回复发出的请求
type fakeTransport struct {
	mu         sync.Mutex
	sent       []*jsonrpc2.Message
	raw        [][]byte
	reconnects int
	closed     bool
	sendErr    error
	responder  func(msg *jsonrpc2.Message) *jsonrpc2.Message

	onOpen         func()
	onMessage      func(data []byte)
	onReconnecting func(err error)
	onReconnected  func()
	onClose        func(err error)
}

func newFakeTransport(responder func(msg *jsonrpc2.Message) *jsonrpc2.Message) *fakeTransport {
	return &fakeTransport{responder: responder}
}

func (f *fakeTransport) Start(ctx context.Context) error {
	f.onOpen()
	return nil
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errors.New("fake transport closed")
	}
	if f.sendErr != nil {
		err := f.sendErr
		f.mu.Unlock()
		return err
	}
	msg, err := jsonrpc2.Parse(data)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	f.sent = append(f.sent, msg)
	f.raw = append(f.raw, append([]byte(nil), data...))
	responder := f.responder
	f.mu.Unlock()
	if responder == nil {
		return nil
	}
	if rep := responder(msg); rep != nil {
		bytes, mErr := jsonrpc2.Marshal(rep)
		if mErr != nil {
			return mErr
		}
		go f.onMessage(bytes)
	}
	return nil
}

func (f *fakeTransport) Reconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errors.New("fake transport closed")
	}
	f.closed = true
	f.mu.Unlock()
	f.onClose(nil)
	return nil
}

func (f *fakeTransport) EventDriveInter() transport.ClientEventDriveInter {
	return f
}

func (f *fakeTransport) OnOpen(fn func())                 { f.onOpen = fn }
func (f *fakeTransport) OnMessage(fn func(data []byte))   { f.onMessage = fn }
func (f *fakeTransport) OnReconnecting(fn func(err error)) { f.onReconnecting = fn }
func (f *fakeTransport) OnReconnected(fn func())          { f.onReconnected = fn }
func (f *fakeTransport) OnClose(fn func(err error))       { f.onClose = fn }

func (f *fakeTransport) setResponder(responder func(msg *jsonrpc2.Message) *jsonrpc2.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responder = responder
}

// deliver 模拟对端发来的消息
func (f *fakeTransport) deliver(msg *jsonrpc2.Message) {
	bytes, err := jsonrpc2.Marshal(msg)
	if err != nil {
		panic(err)
	}
	f.onMessage(bytes)
}

func (f *fakeTransport) messages(method string) []*jsonrpc2.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*jsonrpc2.Message
	for _, msg := range f.sent {
		if msg.Method == method {
			res = append(res, msg)
		}
	}
	return res
}

// responses 发出的回复, 按照id过滤
func (f *fakeTransport) responses(id uint64) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res [][]byte
	for i, msg := range f.sent {
		if msg.Method == "" && msg.Id != nil && *msg.Id == id {
			res = append(res, f.raw[i])
		}
	}
	return res
}

func (f *fakeTransport) reconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnects
}

// pongResponder 回复ping与closeSession, 其它请求交给next
func pongResponder(next func(msg *jsonrpc2.Message) *jsonrpc2.Message) func(msg *jsonrpc2.Message) *jsonrpc2.Message {
	return func(msg *jsonrpc2.Message) *jsonrpc2.Message {
		if msg.Id == nil {
			return nil
		}
		switch msg.Method {
		case jsonrpc2.MethodPing:
			return jsonrpc2.NewResult(*msg.Id, json.RawMessage(`{"value":"pong"}`))
		case jsonrpc2.MethodCloseSession:
			return jsonrpc2.NewResult(*msg.Id, json.RawMessage(`true`))
		}
		if next == nil {
			return nil
		}
		return next(msg)
	}
}
