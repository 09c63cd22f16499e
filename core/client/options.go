package client

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/common/rpcbuilder"
	"github.com/nyan233/wsrpc/core/middle/ns"
	"github.com/nyan233/wsrpc/core/middle/plugin"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
	"golang.org/x/time/rate"
)

type Option func(config *Config)

// DirectConfig 这个接口不保证兼容性, 应该谨慎使用
// Config中的内容可能会变动, 或者被修改了语义
func DirectConfig(uCfg Config) Option {
	return func(config *Config) {
		*config = uCfg
	}
}

func WithDefault() Option {
	return func(config *Config) {
		WithCustomLogger(logger.DefaultLogger)(config)
		WithNoStackTrace()(config)
		WithRequestTimeout(DefaultRequestTimeout)(config)
		WithResponseCache(rpcbuilder.DefaultCacheSize, rpcbuilder.DefaultCacheTTL)(config)
		WithPoolSize(DefaultPoolSize)(config)
		WithNsSchemeRoundRobin()(config)
	}
}

func WithLifecycle(lc Lifecycle) Option {
	return func(config *Config) {
		config.Lifecycle = lc
	}
}

// WithMethod 保留的方法名会在New中返回错误
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

// WithHeartbeat interval == 0 关闭心跳
func WithHeartbeat(interval time.Duration) Option {
	return func(config *Config) {
		config.Heartbeat = interval
	}
}

func WithPingTimeout(timeout time.Duration) Option {
	return func(config *Config) {
		config.PingTimeout = timeout
	}
}

func WithSendCloseMessage(ok bool) Option {
	return func(config *Config) {
		config.SendCloseMessage = ok
	}
}

func WithSessionResume(ok bool) Option {
	return func(config *Config) {
		config.SessionResume = ok
	}
}

// WithRateLimit perSecond <= 0 表示不限制
func WithRateLimit(perSecond float64, burst int) Option {
	return func(config *Config) {
		config.RateLimit = rate.Limit(perSecond)
		config.RateBurst = burst
	}
}

func WithResponseCache(size int, ttl time.Duration) Option {
	return func(config *Config) {
		config.CacheSize = size
		config.CacheTTL = ttl
	}
}

func WithPoolSize(size int) Option {
	return func(config *Config) {
		if size > 0 {
			config.PoolSize = size
		}
	}
}

func WithPlugin(plugin plugin.ClientPlugin) Option {
	return func(config *Config) {
		config.Plugins = append(config.Plugins, plugin)
	}
}

func WithCustomLogger(logger logger.LLogger) Option {
	return func(config *Config) {
		config.Logger = logger
	}
}

func WithLogger(logger logger.LLogger) Option {
	return WithCustomLogger(logger)
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

func WithNsSchemeRandom() Option {
	return func(config *Config) {
		config.NsScheme = ns.SchemeRandom
	}
}

func WithNsSchemeRoundRobin() Option {
	return func(config *Config) {
		config.NsScheme = ns.SchemeRoundRobin
	}
}

// WithNsSchemeConsistentHash 使用key选择固定的节点, 一般为客户端的标识
func WithNsSchemeConsistentHash(key string) Option {
	return func(config *Config) {
		config.NsScheme = ns.SchemeConsistentHash
		config.NsKey = key
	}
}

func WithHeader(header http.Header) Option {
	return func(config *Config) {
		config.Header = header
	}
}

func WithTlsClient(tlsC *tls.Config) Option {
	return func(config *Config) {
		config.TlsConfig = tlsC
	}
}

func WithReconnectBackoff(initial, max, maxElapsed time.Duration) Option {
	return func(config *Config) {
		config.ReconnectInitial = initial
		config.ReconnectMax = max
		config.ReconnectMaxElapsed = maxElapsed
	}
}
