package metrics

import (
	"encoding/json"

	"github.com/nyan233/wsrpc/core/middle/plugin"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

type ClientMetricsPlugin struct {
	plugin.AbstractClient
	Call            *CallMetrics
	UploadTraffic   *TrafficMetrics
	DownloadTraffic *TrafficMetrics
}

func NewClient() *ClientMetricsPlugin {
	return &ClientMetricsPlugin{
		Call:            new(CallMetrics),
		UploadTraffic:   new(TrafficMetrics),
		DownloadTraffic: new(TrafficMetrics),
	}
}

func (c *ClientMetricsPlugin) Request4C(pub *plugin.Context, params interface{}) perror.LErrorDesc {
	c.Call.IncCount()
	return nil
}

func (c *ClientMetricsPlugin) Send4C(pub *plugin.Context, data []byte, err perror.LErrorDesc) perror.LErrorDesc {
	if err != nil {
		c.Call.IncFailed()
		return nil
	}
	c.UploadTraffic.Add(int64(len(data)))
	// 通知没有响应, 发送成功即完成
	if pub.Id == nil {
		c.Call.IncComplete()
	}
	return nil
}

func (c *ClientMetricsPlugin) Receive4C(pub *plugin.Context, result json.RawMessage, err perror.LErrorDesc) perror.LErrorDesc {
	if err != nil {
		c.Call.IncFailed()
		return nil
	}
	c.DownloadTraffic.Add(int64(len(result)))
	c.Call.IncComplete()
	return nil
}
