package server

import (
	"time"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	logger2 "github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
	"github.com/nyan233/wsrpc/core/common/transport"
	"github.com/nyan233/wsrpc/core/middle/plugin"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

type Option func(config *Config)

func DirectConfig(uCfg Config) Option {
	return func(config *Config) {
		*config = uCfg
	}
}

func WithDefaultServer() Option {
	return func(config *Config) {
		WithLogger(logger2.DefaultLogger)(config)
		WithNoStackTrace()(config)
		WithPath(transport.DefaultPath)(config)
		WithRequestTimeout(time.Second * 10)(config)
		WithResponseCache(rpcbuilder.DefaultCacheSize, rpcbuilder.DefaultCacheTTL)(config)
		WithSessionTTL(DefaultSessionTTL)(config)
		WithPoolSize(DefaultPoolSize, DefaultPoolBufSize)(config)
	}
}

func WithAddress(adds ...string) Option {
	return func(config *Config) {
		config.Address = append(config.Address, adds...)
	}
}

func WithPath(path string) Option {
	return func(config *Config) {
		config.Path = path
	}
}

func WithLogger(logger logger2.LLogger) Option {
	return func(config *Config) {
		config.Logger = logger
	}
}

func WithOpenLogger(ok bool) Option {
	return func(config *Config) {
		if !ok {
			config.Logger = logger2.NilLogger{}
		}
	}
}

// WithMethod 保留的方法名会在New中panic
func WithMethod(name string, handler Handler) Option {
	return func(config *Config) {
		if config.Methods == nil {
			config.Methods = make(map[string]Handler, 8)
		}
		config.Methods[name] = handler
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(config *Config) {
		config.RequestTimeout = timeout
	}
}

func WithResponseCache(size int, ttl time.Duration) Option {
	return func(config *Config) {
		config.CacheSize = size
		config.CacheTTL = ttl
	}
}

// WithSessionTTL ttl == 0 时连接断开立即销毁会话
func WithSessionTTL(ttl time.Duration) Option {
	return func(config *Config) {
		config.SessionTTL = ttl
	}
}

func WithPoolSize(size, bufSize int) Option {
	return func(config *Config) {
		config.PoolSize = size
		config.PoolBufSize = bufSize
	}
}

func WithPlugin(plg plugin.ServerPlugin) Option {
	return func(config *Config) {
		config.Plugins = append(config.Plugins, plg)
	}
}

func WithDebug(debug bool) Option {
	return func(config *Config) {
		config.Debug = debug
	}
}

func WithStackTrace() Option {
	return WithErrHandler(errorhandler.NewStackTrace())
}

func WithNoStackTrace() Option {
	return WithErrHandler(errorhandler.DefaultErrHandler)
}

func WithErrHandler(eh perror.LErrors) Option {
	return func(config *Config) {
		config.ErrHandler = eh
	}
}

func WithOnSession(fn func(sess *Session)) Option {
	return func(config *Config) {
		config.OnSession = fn
	}
}
