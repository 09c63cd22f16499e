package transport

import (
	"github.com/lesismal/nbio/logging"
	"github.com/nyan233/wsrpc/core/common/logger"
)

// nbioLogger 将nbio内部的日志转发到LLogger, 由logger.SetOpenLogger统一控制开关
type nbioLogger struct {
	logger.LLogger
}

func (n nbioLogger) SetLevel(lvl int) {
	return
}

func init() {
	logging.DefaultLogger = nbioLogger{
		LLogger: logger.DefaultLogger,
	}
}
