package debug

import (
	"github.com/nyan233/wsrpc/core/common/logger"
	"github.com/nyan233/wsrpc/core/utils/convert"
	"github.com/nyan233/wsrpc/internal/pool"
)

// MaxPrintSize 调试日志中单个消息最多打印的字节数
const MaxPrintSize = 512

type Func func(logger logger.LLogger, open bool) func(data []byte, inbound bool)

// Recover 执行对端调用的goroutine panic时记录日志
func Recover(logger logger.LLogger) pool.RecoverFunc {
	return func(poolId int, err interface{}) {
		logger.Error("wsrpc: poolId : %d -> Panic : %v", poolId, err)
	}
}

// MessageDebug open == false 时返回的函数什么都不做
func MessageDebug(logger logger.LLogger, open bool) func(data []byte, inbound bool) {
	return func(data []byte, inbound bool) {
		if !open {
			return
		}
		n, head := ReadFromData(MaxPrintSize, data)
		direction := "->"
		if inbound {
			direction = "<-"
		}
		if n < len(data) {
			logger.Debug("wsrpc: %s %s ... (%d bytes)", direction, convert.BytesToString(head), len(data))
			return
		}
		logger.Debug("wsrpc: %s %s", direction, convert.BytesToString(head))
	}
}

// ReadFromData 最多读取maxRead个字节, data == nil 时返回-1
func ReadFromData(maxRead int, data []byte) (int, []byte) {
	if data == nil {
		return -1, nil
	}
	if len(data) < maxRead {
		return len(data), data
	}
	return maxRead, data[:maxRead]
}
