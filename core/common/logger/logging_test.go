package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zbh255/bilog"
)

func TestLoggerSwitch(t *testing.T) {
	var buf bytes.Buffer
	l := New(bilog.NewLogger(&buf, bilog.PANIC, bilog.WithLowBuffer(0), bilog.WithTopBuffer(0))).(*LLoggerImpl)
	assert.True(t, l.ReadLoggerStatus())
	l.SetOpen(false)
	l.Warn("dropped %d", 1)
	l.Error("dropped %d", 2)
	assert.Equal(t, 0, buf.Len())
	assert.False(t, l.ReadLoggerStatus())
}

func TestNilLogger(t *testing.T) {
	var l LLogger = NilLogger{}
	assert.NotPanics(t, func() {
		l.Panic("nothing %d", 1)
	})
}
