package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nyan233/wsrpc/core/server"
	"github.com/nyan233/wsrpc/internal/config"
	"github.com/nyan233/wsrpc/plugins/metrics"
	exporter "github.com/nyan233/wsrpc/plugins/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"
)

var (
	configPath = flag.StringP("config", "c", "", "配置文件的路径, 为空时使用默认配置")
	address    = flag.StringSliceP("address", "a", nil, "监听的地址, 覆盖配置文件, Example: 127.0.0.1:8888")
	tick       = flag.DurationP("tick", "t", 0, "向所有会话推送tick通知的间隔, 0表示不推送")
	metricsAt  = flag.StringP("metrics", "m", "", "prometheus指标的监听地址, 覆盖配置文件, Example: 127.0.0.1:9090")
)

func main() {
	flag.Parse()
	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalln(err)
		}
	}
	if len(*address) > 0 {
		cfg.Server.Addrs = *address
	}
	if *metricsAt != "" {
		cfg.Server.MetricsAddr = *metricsAt
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	m := metrics.NewServer()
	opts := append(cfg.ServerOptions(), server.WithPlugin(m))
	if cfg.Server.MetricsAddr != "" {
		reg := prom.NewRegistry()
		exp, err := exporter.NewServer(reg)
		if err != nil {
			log.Fatalln(err)
		}
		opts = append(opts, server.WithPlugin(exp))
		go func() {
			if err := exporter.Serve(ctx, cfg.Server.MetricsAddr, reg); err != nil {
				log.Println(err)
			}
		}()
	}
	s := server.New(opts...)
	registerMethods(s, m)
	if err := s.Start(); err != nil {
		log.Fatalln(err)
	}
	if *tick > 0 {
		go broadcastTick(ctx, s, *tick)
	}
	<-ctx.Done()
	if err := s.Stop(); err != nil {
		log.Println(err)
	}
}

func registerMethods(s *server.Server, m *metrics.ServerMetricsPlugin) {
	methods := map[string]server.Handler{
		"echo": func(ctx context.Context, sess *server.Session, params json.RawMessage) (interface{}, error) {
			return params, nil
		},
		"time": func(ctx context.Context, sess *server.Session, params json.RawMessage) (interface{}, error) {
			return map[string]string{"now": time.Now().Format(time.RFC3339Nano)}, nil
		},
		"session": func(ctx context.Context, sess *server.Session, params json.RawMessage) (interface{}, error) {
			return map[string]interface{}{
				"sessionId": sess.Id(),
				"interval":  sess.Interval().Milliseconds(),
				"sessions":  s.Sessions(),
			}, nil
		},
		"metrics": func(ctx context.Context, sess *server.Session, params json.RawMessage) (interface{}, error) {
			return map[string]int64{
				"count":    m.Call.LoadCount(),
				"complete": m.Call.LoadComplete(),
				"failed":   m.Call.LoadFailed(),
				"upload":   m.UploadTraffic.Load(),
				"download": m.DownloadTraffic.Load(),
			}, nil
		},
	}
	for name, handler := range methods {
		if err := s.RegisterMethod(name, handler); err != nil {
			log.Fatalln(err)
		}
	}
}

func broadcastTick(ctx context.Context, s *server.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Broadcast("tick", map[string]int64{"unixMilli": now.UnixMilli()})
		}
	}
}
