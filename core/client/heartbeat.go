package client

import (
	"encoding/json"
	"time"

	"github.com/nyan233/wsrpc/core/common/jsonrpc2"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

// startHeartbeat 心跳循环在整个Client的生命周期中只会启动一次, 是否发送由hbEnabled控制
func (c *Client) startHeartbeat() {
	if c.cfg.Heartbeat <= 0 {
		return
	}
	c.mu.Lock()
	if c.hbStarted || c.closed {
		c.mu.Unlock()
		return
	}
	c.hbStarted = true
	c.mu.Unlock()
	go c.heartbeatLoop()
}

// resetHeartbeat 重连之后从新的连接开始计算间隔
func (c *Client) resetHeartbeat() {
	if c.cfg.Heartbeat <= 0 {
		return
	}
	c.mu.Lock()
	started := c.hbStarted
	c.mu.Unlock()
	if !started {
		c.startHeartbeat()
		return
	}
	select {
	case c.hbReset <- struct{}{}:
	default:
	}
}

func (c *Client) stopHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.hbStop:
	default:
		close(c.hbStop)
	}
}

// heartbeatLoop 每个连接周期开始时立即发送一个ping, 尽早发现半开的连接
func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.Heartbeat)
	defer ticker.Stop()
	c.sendPing()
	for {
		select {
		case <-ticker.C:
			c.sendPing()
		case <-c.hbReset:
			ticker.Reset(c.cfg.Heartbeat)
			c.sendPing()
		case <-c.hbStop:
			return
		}
	}
}

// sendPing 每个连接周期的第一个ping以及编号等于水位线的ping会携带心跳间隔
func (c *Client) sendPing() {
	c.mu.Lock()
	if !c.hbEnabled || c.status != Connected {
		c.mu.Unlock()
		return
	}
	var params interface{}
	if c.pingNextNum == 0 || c.pingNextNum == c.notReconnectIfNumLessThan {
		params = map[string]int64{"interval": c.cfg.Heartbeat.Milliseconds()}
	}
	pingNum := c.pingNextNum
	c.pingNextNum++
	c.mu.Unlock()
	err := c.sendInternal(jsonrpc2.MethodPing, params, c.cfg.pingTimeout(), func(result json.RawMessage, err perror.LErrorDesc) {
		if err != nil {
			c.onPingFailed(pingNum, err)
		}
	})
	if err != nil {
		c.onPingFailed(pingNum, err)
	}
}

// onPingFailed 一次断线可能导致多个在途的ping失败, 编号低于水位线的失败来自已经处理过的断线.
// 触发重连之后水位线前移到下一个编号, 重连完成后的第一个ping编号等于水位线, 它的失败依然会触发重连
func (c *Client) onPingFailed(pingNum int64, err perror.LErrorDesc) {
	c.mu.Lock()
	if c.closed || pingNum < c.notReconnectIfNumLessThan {
		c.mu.Unlock()
		c.logger.Debug("wsrpc: ping %d failed, ignored : %v", pingNum, err)
		return
	}
	c.hbEnabled = false
	c.notReconnectIfNumLessThan = c.pingNextNum
	c.mu.Unlock()
	c.logger.Warn("wsrpc: ping %d failed, trigger reconnect : %v", pingNum, err)
	c.transport.Reconnect()
}
