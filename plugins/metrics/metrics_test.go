package metrics

import (
	"encoding/json"
	"testing"

	"github.com/nyan233/wsrpc/core/common/errorhandler"
	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/middle/plugin"
	"github.com/stretchr/testify/assert"
)

func TestClientMetrics(t *testing.T) {
	p := NewClient()
	id := uint64(0)
	call := plugin.NewContext("echo", &id, logger.NilLogger{})
	assert.Nil(t, p.Request4C(call, nil))
	assert.Nil(t, p.Send4C(call, []byte(`{"jsonrpc":"2.0"}`), nil))
	assert.Nil(t, p.Receive4C(call, json.RawMessage(`"ok"`), nil))

	notify := plugin.NewContext("event", nil, logger.NilLogger{})
	assert.Nil(t, p.Request4C(notify, nil))
	assert.Nil(t, p.Send4C(notify, []byte("{}"), nil))

	failed := plugin.NewContext("echo", &id, logger.NilLogger{})
	assert.Nil(t, p.Request4C(failed, nil))
	assert.Nil(t, p.Receive4C(failed, nil, errorhandler.ErrTimeout))

	assert.Equal(t, int64(3), p.Call.LoadCount())
	assert.Equal(t, int64(2), p.Call.LoadComplete())
	assert.Equal(t, int64(1), p.Call.LoadFailed())
	assert.Equal(t, int64(3), p.Call.LoadAll())
	assert.Equal(t, int64(len(`{"jsonrpc":"2.0"}`)+2), p.UploadTraffic.Load())
	assert.Equal(t, int64(4), p.DownloadTraffic.Load())
}

func TestServerMetrics(t *testing.T) {
	p := NewServer()
	id := uint64(1)
	pub := plugin.NewContext("echo", &id, logger.NilLogger{})
	assert.Nil(t, p.Receive4S(pub, json.RawMessage(`{}`)))
	assert.Nil(t, p.AfterCall4S(pub, "ok", nil))
	assert.Nil(t, p.AfterSend4S(pub, []byte("reply"), nil))
	assert.Nil(t, p.AfterSend4S(pub, nil, errorhandler.ErrConnection))
	assert.Equal(t, int64(1), p.Call.LoadCount())
	assert.Equal(t, int64(1), p.Call.LoadComplete())
	assert.Equal(t, int64(1), p.Call.LoadFailed())
	assert.Equal(t, int64(2), p.UploadTraffic.Load())
	assert.Equal(t, int64(5), p.DownloadTraffic.Load())
}

func TestServerMetricsHandlerError(t *testing.T) {
	p := NewServer()
	id := uint64(2)
	pub := plugin.NewContext("echo", &id, logger.NilLogger{})
	assert.Nil(t, p.Receive4S(pub, json.RawMessage(`{}`)))
	assert.Nil(t, p.AfterCall4S(pub, nil, errorhandler.ErrServer))
	assert.Nil(t, p.AfterSend4S(pub, []byte("error"), nil))
	assert.Equal(t, int64(0), p.Call.LoadComplete())
	assert.Equal(t, int64(1), p.Call.LoadFailed())
	assert.Equal(t, int64(5), p.DownloadTraffic.Load())
}
