package client

import (
	"encoding/json"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/jsonrpc2"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

// 以下事件由传输层在同一个goroutine中顺序投递

func (c *Client) onOpen() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.status == Connected {
		c.mu.Unlock()
		c.logger.Warn("wsrpc: receive open event but client already CONNECTED")
		return
	}
	c.status = Connected
	c.hbEnabled = true
	c.mu.Unlock()
	c.startHeartbeat()
	c.resumeSession()
	c.cfg.Lifecycle.OnConnected()
}

func (c *Client) onReconnecting(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.status == Reconnecting {
		c.mu.Unlock()
		c.logger.Warn("wsrpc: receive reconnecting event but client already RECONNECTING")
		return
	}
	c.status = Reconnecting
	c.hbEnabled = false
	c.mu.Unlock()
	if err != nil {
		c.logger.Info("wsrpc: connection lost, reconnecting : %v", err)
	}
	c.cfg.Lifecycle.OnReconnecting()
}

func (c *Client) onReconnected() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.status == Connected {
		c.mu.Unlock()
		c.logger.Warn("wsrpc: receive reconnected event but client already CONNECTED")
		return
	}
	c.status = Connected
	c.hbEnabled = true
	c.notReconnectIfNumLessThan = c.pingNextNum
	c.mu.Unlock()
	c.resetHeartbeat()
	c.resumeSession()
	c.cfg.Lifecycle.OnReconnected()
}

// onClose 传输层不会再重连
func (c *Client) onClose(err error) {
	c.mu.Lock()
	c.closed = true
	c.hbEnabled = false
	c.mu.Unlock()
	c.stopHeartbeat()
	c.builder.FailAll(c.eHandle.LWarpErrorDesc(errorhandler.ErrConnection, "transport closed"))
	c.cancelFn()
	if err != nil {
		c.logger.Error("wsrpc: transport closed : %v", err)
	}
	c.disconnect(err)
}

func (c *Client) onMessage(data []byte) {
	c.onDebug(data, true)
	in, err := c.builder.Decode(data)
	if err != nil {
		// 取消/超时之后的回复是正常现象
		if rpcbuilder.IsLateResponse(err) {
			c.logger.Debug("wsrpc: drop late response : %v", err)
			return
		}
		c.logger.Warn("wsrpc: drop invalid message : %v", err)
		return
	}
	if in == nil {
		return
	}
	c.dispatch(in)
}

// resumeSession 发送connect, 对端返回的会话id与之前不同时说明是一个新会话
func (c *Client) resumeSession() {
	if !c.cfg.SessionResume {
		return
	}
	c.mu.Lock()
	old := c.sessionId
	c.mu.Unlock()
	params := map[string]string{}
	if old != "" {
		params["sessionId"] = old
	}
	err := c.sendInternal(jsonrpc2.MethodConnect, params, c.cfg.RequestTimeout, func(result json.RawMessage, err perror.LErrorDesc) {
		if err != nil {
			c.logger.Warn("wsrpc: resume session failed : %v", err)
			return
		}
		var rep struct {
			SessionId string `json:"sessionId"`
		}
		if uErr := json.Unmarshal(result, &rep); uErr != nil || rep.SessionId == "" {
			c.logger.Warn("wsrpc: connect reply without sessionId : %s", string(result))
			return
		}
		c.mu.Lock()
		changed := c.sessionId != rep.SessionId
		c.sessionId = rep.SessionId
		c.mu.Unlock()
		if changed && old != "" {
			c.logger.Info("wsrpc: session %s expired, new session %s", old, rep.SessionId)
			c.builder.ResetResponses()
		}
	})
	if err != nil {
		c.logger.Warn("wsrpc: send connect failed : %v", err)
	}
}
