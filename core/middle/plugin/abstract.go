package plugin

import (
	"encoding/json"

	"github.com/nyan233/wsrpc/core/common/transport"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

type Abstract struct {
	AbstractClient
	AbstractServer
}

type AbstractServer struct{}
type AbstractClient struct{}

func (a AbstractServer) Event4S(ev Event, conn transport.ServerConn) (next bool) {
	return true
}

func (a AbstractServer) Receive4S(pub *Context, params json.RawMessage) perror.LErrorDesc {
	return nil
}

func (a AbstractServer) AfterCall4S(pub *Context, result interface{}, err error) perror.LErrorDesc {
	return nil
}

func (a AbstractServer) AfterSend4S(pub *Context, data []byte, err perror.LErrorDesc) perror.LErrorDesc {
	return nil
}

func (a AbstractClient) Request4C(pub *Context, params interface{}) perror.LErrorDesc {
	return nil
}

func (a AbstractClient) Send4C(pub *Context, data []byte, err perror.LErrorDesc) perror.LErrorDesc {
	return nil
}

func (a AbstractClient) Receive4C(pub *Context, result json.RawMessage, err perror.LErrorDesc) perror.LErrorDesc {
	return nil
}
