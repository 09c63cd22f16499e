// Package prometheus 将服务端的调用次数/流量/耗时/连接数导出为prometheus指标
package prometheus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nyan233/wsrpc/core/common/transport"
	"github.com/nyan233/wsrpc/core/middle/plugin"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "wsrpc"

type failedKey struct{}

type Exporter struct {
	plugin.AbstractServer
	traffic      *prometheus.CounterVec
	counter      *prometheus.CounterVec
	intervalTime *prometheus.HistogramVec
	conns        prometheus.Gauge
}

// NewServer reg == nil 时注册到prometheus的默认注册器
func NewServer(reg prometheus.Registerer) (*Exporter, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	exp := new(Exporter)
	exp.traffic = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "traffic_bytes_total",
		Help:      "服务的出入口流量统计",
	}, []string{"method", "type"})
	exp.counter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "calls_total",
		Help:      "服务调用次数统计",
	}, []string{"method", "type"})
	exp.intervalTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "call_duration_seconds",
		Help:      "从收到请求到方法返回的耗时",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	exp.conns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "connections",
		Help:      "当前的连接数",
	})
	for _, c := range []prometheus.Collector{exp.traffic, exp.counter, exp.intervalTime, exp.conns} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return exp, nil
}

func (e *Exporter) Event4S(ev plugin.Event, conn transport.ServerConn) (next bool) {
	switch ev {
	case plugin.OnOpen:
		e.conns.Inc()
	case plugin.OnClose:
		e.conns.Dec()
	}
	return true
}

func (e *Exporter) Receive4S(pub *plugin.Context, params json.RawMessage) perror.LErrorDesc {
	e.traffic.WithLabelValues(pub.Method, "recv").Add(float64(len(params)))
	e.counter.WithLabelValues(pub.Method, "call_all").Inc()
	return nil
}

func (e *Exporter) AfterCall4S(pub *plugin.Context, result interface{}, err error) perror.LErrorDesc {
	e.intervalTime.WithLabelValues(pub.Method).Observe(time.Since(pub.StartTime).Seconds())
	if err != nil {
		pub.SetValue(failedKey{}, true)
		e.counter.WithLabelValues(pub.Method, "call_failed").Inc()
		return nil
	}
	// 通知没有发送阶段
	if pub.Id == nil {
		e.counter.WithLabelValues(pub.Method, "call_complete").Inc()
	}
	return nil
}

func (e *Exporter) AfterSend4S(pub *plugin.Context, data []byte, err perror.LErrorDesc) perror.LErrorDesc {
	failed := pub.Value(failedKey{}) != nil
	if err != nil {
		if !failed {
			e.counter.WithLabelValues(pub.Method, "call_failed").Inc()
		}
		return nil
	}
	e.traffic.WithLabelValues(pub.Method, "send").Add(float64(len(data)))
	if !failed {
		e.counter.WithLabelValues(pub.Method, "call_complete").Inc()
	}
	return nil
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve 在addr上提供/metrics, ctx结束时关闭
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux}
	stop := context.AfterFunc(ctx, func() {
		_ = srv.Shutdown(context.Background())
	})
	defer stop()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
