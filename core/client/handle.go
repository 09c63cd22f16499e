package client

import (
	"fmt"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/jsonrpc2"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
)

func (c *Client) dispatch(in rpcbuilder.Inbound) {
	switch v := in.(type) {
	case *rpcbuilder.Request:
		c.handleRequest(v)
	case *rpcbuilder.Notification:
		c.handleNotification(v)
	}
}

func (c *Client) handleRequest(req *rpcbuilder.Request) {
	if req.Duplicated {
		// 对端重发的请求, 有缓存的回复就重放, 否则说明第一次的处理还没有完成
		if data, ok := req.Cached(); ok {
			c.sendReply(req, data)
		} else {
			c.logger.Debug("wsrpc: duplicated request %d is still processing", req.Id)
		}
		return
	}
	if req.Method == jsonrpc2.MethodPull {
		c.reply(req, jsonrpc2.PullReply, nil)
		return
	}
	handler, ok := c.methods.LoadOk(req.Method)
	if !ok {
		c.logger.Warn("wsrpc: method not found : %s", req.Method)
		c.reply(req, nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrMethodNotFound, req.Method))
		return
	}
	if err := c.exec(req.Method, func() {
		result, err := c.callHandler(handler, req)
		c.reply(req, result, err)
	}); err != nil {
		c.reply(req, nil, c.eHandle.LWarpErrorDesc(errorhandler.ErrClient, err.Error()))
	}
}

func (c *Client) handleNotification(notify *rpcbuilder.Notification) {
	handler, ok := c.methods.LoadOk(notify.Method)
	if !ok {
		c.logger.Warn("wsrpc: notification method not found : %s", notify.Method)
		return
	}
	_ = c.exec(notify.Method, func() {
		if _, err := c.callHandler(handler, notify); err != nil {
			c.logger.Warn("wsrpc: handle notification %s failed : %v", notify.Method, err)
		}
	})
}

// exec 池满或者已经关闭时不执行fn, 请求需要由调用者回复错误
func (c *Client) exec(method string, fn func()) error {
	if err := c.gp.Push(fn); err != nil {
		c.logger.Warn("wsrpc: drop inbound call %s : %v", method, err)
		return err
	}
	return nil
}

// callHandler 用户过程panic时转换为错误, 保证请求总能得到回复
func (c *Client) callHandler(handler Handler, in rpcbuilder.Inbound) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("wsrpc: handler %s panic : %v", in.GetMethod(), r)
			result = nil
			err = c.eHandle.LWarpErrorDesc(errorhandler.ErrClient, fmt.Sprintf("handler panic : %v", r))
		}
	}()
	return handler(c.ctx, in.GetParams(), in)
}

func (c *Client) reply(req *rpcbuilder.Request, result interface{}, err error) {
	data, lErr := req.Reply(result, err)
	if lErr != nil {
		c.logger.Error("wsrpc: encode reply of %d failed : %v", req.Id, lErr)
		return
	}
	c.sendReply(req, data)
}

func (c *Client) sendReply(req *rpcbuilder.Request, data []byte) {
	c.onDebug(data, false)
	if err := c.transport.Send(data); err != nil {
		c.logger.Warn("wsrpc: send reply of %d failed : %v", req.Id, err)
	}
}
