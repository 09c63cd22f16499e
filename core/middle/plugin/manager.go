package plugin

import (
	"encoding/json"

	"github.com/nyan233/wsrpc/core/common/transport"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

// ClientManager 按照注册顺序调用插件, 遇到第一个错误即返回
type ClientManager struct {
	plugins []ClientPlugin
}

func NewClientManager(plugins []ClientPlugin) *ClientManager {
	return &ClientManager{plugins: plugins}
}

func (m *ClientManager) Size() int {
	return len(m.plugins)
}

func (m *ClientManager) Request4C(pub *Context, params interface{}) perror.LErrorDesc {
	for _, p := range m.plugins {
		if err := p.Request4C(pub, params); err != nil {
			return err
		}
	}
	return nil
}

func (m *ClientManager) Send4C(pub *Context, data []byte, err perror.LErrorDesc) perror.LErrorDesc {
	for _, p := range m.plugins {
		if pErr := p.Send4C(pub, data, err); pErr != nil {
			return pErr
		}
	}
	return nil
}

func (m *ClientManager) Receive4C(pub *Context, result json.RawMessage, err perror.LErrorDesc) perror.LErrorDesc {
	for _, p := range m.plugins {
		if pErr := p.Receive4C(pub, result, err); pErr != nil {
			return pErr
		}
	}
	return nil
}

type ServerManager struct {
	plugins []ServerPlugin
}

func NewServerManager(plugins []ServerPlugin) *ServerManager {
	return &ServerManager{plugins: plugins}
}

func (m *ServerManager) Size() int {
	return len(m.plugins)
}

// Event4S 所有插件都会收到事件, 任意一个返回false结果即为false
func (m *ServerManager) Event4S(ev Event, conn transport.ServerConn) bool {
	next := true
	for _, p := range m.plugins {
		if !p.Event4S(ev, conn) {
			next = false
		}
	}
	return next
}

func (m *ServerManager) Receive4S(pub *Context, params json.RawMessage) perror.LErrorDesc {
	for _, p := range m.plugins {
		if err := p.Receive4S(pub, params); err != nil {
			return err
		}
	}
	return nil
}

func (m *ServerManager) AfterCall4S(pub *Context, result interface{}, err error) perror.LErrorDesc {
	for _, p := range m.plugins {
		if pErr := p.AfterCall4S(pub, result, err); pErr != nil {
			return pErr
		}
	}
	return nil
}

func (m *ServerManager) AfterSend4S(pub *Context, data []byte, err perror.LErrorDesc) perror.LErrorDesc {
	for _, p := range m.plugins {
		if pErr := p.AfterSend4S(pub, data, err); pErr != nil {
			return pErr
		}
	}
	return nil
}
