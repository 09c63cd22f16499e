package client

import (
	"context"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/transport"
	"github.com/nyan233/wsrpc/core/middle/ns"
)

// Dial 使用可重连的websocket传输层连接urls中的一个, 多个url时按照NsScheme选择.
// 返回时连接已经建立
func Dial(ctx context.Context, urls []string, opts ...Option) (*Client, error) {
	config := &Config{}
	WithDefault()(config)
	for _, v := range opts {
		v(config)
	}
	if len(urls) == 0 {
		return nil, config.ErrHandler.LWarpErrorDesc(errorhandler.ErrCallArgsType, "no server url")
	}
	var (
		nameServer *ns.NameServer
		err        error
	)
	func() {
		// url格式错误时NewFixedStorage会panic
		defer func() {
			if r := recover(); r != nil {
				err = config.ErrHandler.LWarpErrorDesc(errorhandler.ErrCallArgsType, r)
			}
		}()
		nameServer = ns.NewNameServer(ns.Config{
			Storage: ns.NewFixedStorage(urls),
			Scheme:  config.NsScheme,
			Key:     config.NsKey,
		})
	}()
	if err != nil {
		return nil, err
	}
	if err = nameServer.Start(); err != nil {
		return nil, err
	}
	wsClient := transport.NewWebSocketClient(transport.NetworkClientConfig{
		URLs:                urls,
		Resolve:             nameServer.Resolve,
		Header:              config.Header,
		TLSConfig:           config.TlsConfig,
		ReconnectInitial:    config.ReconnectInitial,
		ReconnectMax:        config.ReconnectMax,
		ReconnectMaxElapsed: config.ReconnectMaxElapsed,
	}, config.Logger)
	c, err := New(wsClient, DirectConfig(*config))
	if err != nil {
		return nil, err
	}
	if err = c.Start(ctx); err != nil {
		c.cancelFn()
		_ = c.gp.Stop()
		return nil, err
	}
	return c, nil
}
