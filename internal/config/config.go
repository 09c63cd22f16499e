// Package config 命令行工具使用的yaml配置文件
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/nyan233/wsrpc/core/client"
	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/middle/ns"
	"github.com/nyan233/wsrpc/core/server"
	"github.com/nyan233/wsrpc/plugins/conn_limiter"
	accessLog "github.com/nyan233/wsrpc/plugins/logger"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addrs []string `yaml:"addrs"`
	Path  string   `yaml:"path"`
	// 断开之后会话保留的时间
	SessionTTL time.Duration `yaml:"session_ttl"`
	// 0表示不限制连接数
	MaxConn   int  `yaml:"max_conn"`
	AccessLog bool `yaml:"access_log"`
	PoolSize  int  `yaml:"pool_size"`
	// prometheus指标的监听地址, 为空时不导出
	MetricsAddr string `yaml:"metrics_addr"`
}

type ClientConfig struct {
	URLs []string `yaml:"urls"`
	// random | round-robin | consistent-hash
	Scheme           string        `yaml:"scheme"`
	HashKey          string        `yaml:"hash_key"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	Heartbeat        time.Duration `yaml:"heartbeat"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	SendCloseMessage bool          `yaml:"send_close_message"`
	SessionResume    bool          `yaml:"session_resume"`
	RateLimit        float64       `yaml:"rate_limit"`
	RateBurst        int           `yaml:"rate_burst"`
	ReconnectMax     time.Duration `yaml:"reconnect_max"`
	// 0表示永远重连
	ReconnectMaxElapsed time.Duration `yaml:"reconnect_max_elapsed"`
}

type LoggingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load 读取配置文件, 文件中的环境变量会被展开, 没有出现的字段使用默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addrs:      []string{server.DefaultAddress},
			Path:       "/jsonrpc",
			SessionTTL: server.DefaultSessionTTL,
			PoolSize:   server.DefaultPoolSize,
		},
		Client: ClientConfig{
			URLs:           []string{"ws://" + server.DefaultAddress + "/jsonrpc"},
			Scheme:         ns.SchemeRoundRobin,
			RequestTimeout: client.DefaultRequestTimeout,
			Heartbeat:      time.Second * 10,
			SessionResume:  true,
		},
		Logging: LoggingConfig{
			Enabled: true,
		},
	}
}

func (c *Config) Validate() error {
	switch c.Client.Scheme {
	case ns.SchemeRandom, ns.SchemeRoundRobin, ns.SchemeConsistentHash:
	default:
		return fmt.Errorf("unknown client scheme %q", c.Client.Scheme)
	}
	if c.Client.Scheme == ns.SchemeConsistentHash && c.Client.HashKey == "" {
		return fmt.Errorf("consistent-hash scheme requires hash_key")
	}
	if c.Client.Heartbeat < 0 || c.Client.RequestTimeout < 0 {
		return fmt.Errorf("negative client timeout")
	}
	if c.Server.MaxConn < 0 {
		return fmt.Errorf("negative server max_conn")
	}
	return nil
}

func (c *Config) logger() logger.LLogger {
	if !c.Logging.Enabled {
		return logger.NilLogger{}
	}
	return logger.DefaultLogger
}

// ServerOptions 将配置转换为server的选项
func (c *Config) ServerOptions() []server.Option {
	opts := []server.Option{
		server.WithLogger(c.logger()),
		server.WithAddress(c.Server.Addrs...),
		server.WithSessionTTL(c.Server.SessionTTL),
	}
	if c.Server.Path != "" {
		opts = append(opts, server.WithPath(c.Server.Path))
	}
	if c.Server.PoolSize > 0 {
		opts = append(opts, server.WithPoolSize(c.Server.PoolSize, server.DefaultPoolBufSize))
	}
	if c.Server.MaxConn > 0 {
		opts = append(opts, server.WithPlugin(conn_limiter.NewServer(c.Server.MaxConn)))
	}
	if c.Server.AccessLog {
		opts = append(opts, server.WithPlugin(accessLog.New(os.Stdout)))
	}
	return opts
}

// ClientOptions 将配置转换为client的选项
func (c *Config) ClientOptions() []client.Option {
	opts := []client.Option{
		client.WithLogger(c.logger()),
		client.WithRequestTimeout(c.Client.RequestTimeout),
		client.WithHeartbeat(c.Client.Heartbeat),
		client.WithPingTimeout(c.Client.PingTimeout),
		client.WithSendCloseMessage(c.Client.SendCloseMessage),
		client.WithSessionResume(c.Client.SessionResume),
		client.WithReconnectBackoff(0, c.Client.ReconnectMax, c.Client.ReconnectMaxElapsed),
	}
	switch c.Client.Scheme {
	case ns.SchemeRandom:
		opts = append(opts, client.WithNsSchemeRandom())
	case ns.SchemeConsistentHash:
		opts = append(opts, client.WithNsSchemeConsistentHash(c.Client.HashKey))
	default:
		opts = append(opts, client.WithNsSchemeRoundRobin())
	}
	if c.Client.RateLimit > 0 {
		opts = append(opts, client.WithRateLimit(c.Client.RateLimit, c.Client.RateBurst))
	}
	return opts
}
