package metrics

import (
	"encoding/json"

	"github.com/nyan233/wsrpc/core/middle/plugin"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

type failedKey struct{}

type ServerMetricsPlugin struct {
	plugin.AbstractServer
	Call            *CallMetrics
	UploadTraffic   *TrafficMetrics
	DownloadTraffic *TrafficMetrics
}

func NewServer() *ServerMetricsPlugin {
	return &ServerMetricsPlugin{
		Call:            new(CallMetrics),
		UploadTraffic:   new(TrafficMetrics),
		DownloadTraffic: new(TrafficMetrics),
	}
}

func (s *ServerMetricsPlugin) Receive4S(pub *plugin.Context, params json.RawMessage) perror.LErrorDesc {
	s.Call.IncCount()
	s.UploadTraffic.Add(int64(len(params)))
	return nil
}

func (s *ServerMetricsPlugin) AfterCall4S(pub *plugin.Context, result interface{}, err error) perror.LErrorDesc {
	if err != nil {
		// 错误的回复仍会被发送, 不再计为完成
		pub.SetValue(failedKey{}, true)
		s.Call.IncFailed()
	} else if pub.Id == nil {
		s.Call.IncComplete()
	}
	return nil
}

func (s *ServerMetricsPlugin) AfterSend4S(pub *plugin.Context, data []byte, err perror.LErrorDesc) perror.LErrorDesc {
	if err != nil {
		if pub.Value(failedKey{}) == nil {
			s.Call.IncFailed()
		}
		return nil
	}
	s.DownloadTraffic.Add(int64(len(data)))
	if pub.Value(failedKey{}) == nil {
		s.Call.IncComplete()
	}
	return nil
}
