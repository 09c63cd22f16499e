package logger

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/zbh255/bilog"
)

const (
	OpenLogger  int64 = 1 << 10
	CloseLogger int64 = 1 << 11
)

type LLogger interface {
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	Panic(format string, v ...interface{})
}

var DefaultLogger LLogger

// LLoggerImpl 使用bilog作为后端, 可以在运行时打开/关闭输出
type LLoggerImpl struct {
	loggerOpen int64
	logging    bilog.Logger
}

func New(l bilog.Logger) LLogger {
	return &LLoggerImpl{logging: l, loggerOpen: OpenLogger}
}

func (c *LLoggerImpl) Debug(format string, v ...interface{}) {
	if !c.ReadLoggerStatus() {
		return
	}
	c.logging.Debug(fmt.Sprintf(format, v...))
}

func (c *LLoggerImpl) Info(format string, v ...interface{}) {
	if !c.ReadLoggerStatus() {
		return
	}
	c.logging.Info(fmt.Sprintf(format, v...))
}

func (c *LLoggerImpl) Warn(format string, v ...interface{}) {
	if !c.ReadLoggerStatus() {
		return
	}
	c.logging.Trace(fmt.Sprintf(format, v...))
}

func (c *LLoggerImpl) Error(format string, v ...interface{}) {
	if !c.ReadLoggerStatus() {
		return
	}
	c.logging.ErrorFromString(fmt.Sprintf(format, v...))
}

func (c *LLoggerImpl) Panic(format string, v ...interface{}) {
	if !c.ReadLoggerStatus() {
		return
	}
	c.logging.PanicFromString(fmt.Sprintf(format, v...))
}

func (c *LLoggerImpl) ReadLoggerStatus() bool {
	return atomic.LoadInt64(&c.loggerOpen) == OpenLogger
}

func (c *LLoggerImpl) SetOpen(ok bool) {
	if ok {
		atomic.StoreInt64(&c.loggerOpen, OpenLogger)
	} else {
		atomic.StoreInt64(&c.loggerOpen, CloseLogger)
	}
}

// SetOpenLogger 只对DefaultLogger生效, 用户替换的Logger需要自己控制
func SetOpenLogger(ok bool) {
	l, typeOk := DefaultLogger.(*LLoggerImpl)
	if !typeOk {
		return
	}
	l.SetOpen(ok)
}

func init() {
	bilogLogger := bilog.NewLogger(
		os.Stdout, bilog.PANIC,
		bilog.WithTimes(),
		bilog.WithLowBuffer(0),
		bilog.WithTopBuffer(0),
	)
	DefaultLogger = &LLoggerImpl{
		logging:    bilogLogger,
		loggerOpen: OpenLogger,
	}
}
