package rpcbuilder

import (
	"time"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/logger"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = time.Minute
)

type Config struct {
	// 等待回复的超时时间, 为0时不超时
	RequestTimeout time.Duration
	// 回复缓存的最大条目数, 用于重复请求的重放
	CacheSize int
	// 回复缓存的有效期, 应该覆盖传输层可能重发的时间窗口
	CacheTTL time.Duration
	// 记录已经取消/超时的请求id的数量, 用于识别迟到的回复
	SettledSize int
	Logger      logger.LLogger
	ErrHandler  perror.LErrors
}

type Option func(config *Config)

func WithDefault() Option {
	return func(config *Config) {
		config.RequestTimeout = 0
		config.CacheSize = DefaultCacheSize
		config.CacheTTL = DefaultCacheTTL
		config.SettledSize = DefaultCacheSize
		config.Logger = logger.DefaultLogger
		config.ErrHandler = errorhandler.DefaultErrHandler
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(config *Config) {
		config.RequestTimeout = timeout
	}
}

func WithResponseCache(size int, ttl time.Duration) Option {
	return func(config *Config) {
		if size > 0 {
			config.CacheSize = size
		}
		if ttl > 0 {
			config.CacheTTL = ttl
		}
	}
}

func WithLogger(l logger.LLogger) Option {
	return func(config *Config) {
		if l != nil {
			config.Logger = l
		}
	}
}

func WithErrHandler(eh perror.LErrors) Option {
	return func(config *Config) {
		if eh != nil {
			config.ErrHandler = eh
		}
	}
}
