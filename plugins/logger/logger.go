package logger

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nyan233/wsrpc/core/middle/plugin"
	errorCode "github.com/nyan233/wsrpc/core/protocol/error"
	perror "github.com/nyan233/wsrpc/core/protocol/error"
)

const (
	statusCode = "wsrpc-status"
)

// Logger 服务端的访问日志
type Logger struct {
	plugin.AbstractServer
	w io.Writer
}

func New(w io.Writer) plugin.ServerPlugin {
	return &Logger{
		w: w,
	}
}

func (l *Logger) AfterCall4S(pub *plugin.Context, result interface{}, err error) perror.LErrorDesc {
	status := errorCode.Success
	if err != nil {
		if desc, ok := err.(perror.LErrorDesc); ok {
			status = desc.Code()
		} else {
			status = errorCode.Unknown
		}
	}
	pub.SetValue(statusCode, status)
	// 通知没有发送阶段, 在这里输出
	if pub.Id == nil {
		l.printLog(pub, 0, nil, "Notify")
	}
	return nil
}

func (l *Logger) AfterSend4S(pub *plugin.Context, data []byte, err perror.LErrorDesc) perror.LErrorDesc {
	l.printLog(pub, len(data), err, "AfterSend")
	return nil
}

func (l *Logger) printLog(pub *plugin.Context, msgSize int, err perror.LErrorDesc, phase string) {
	const (
		KB = 1024
		MB = KB * 1024
	)
	var status int
	if err != nil {
		status = err.Code()
	} else if ctxStatus, ok := pub.Value(statusCode).(int); ok {
		status = ctxStatus
	} else {
		status = errorCode.Success
	}
	live := time.Now()
	interval := live.Sub(pub.StartTime)
	var size string
	switch {
	case msgSize < KB:
		size = fmt.Sprintf("%.3fB", float64(msgSize))
	case msgSize < MB:
		size = fmt.Sprintf("%.3fKB", float64(msgSize)/KB)
	default:
		size = fmt.Sprintf("%.3fMB", float64(msgSize)/MB)
	}
	remote := "-"
	if pub.RemoteAddr != nil {
		remote = strings.Split(pub.RemoteAddr.String(), ":")[0]
	}
	msgType := "Request"
	if pub.Id == nil {
		msgType = "Notification"
	}
	_, wErr := fmt.Fprintf(l.w, "[WSRPC] | %-10s | %s | %7d | %10s | %10s | %12s | %13s | \"%s\"\n",
		phase,
		live.Format("2006/01/02 - 15:04:05"),
		status,
		interval,
		size,
		remote,
		msgType,
		pub.Method)
	if wErr != nil && pub.Logger != nil {
		pub.Logger.Warn("wsrpc: logger write data error : %v", wErr)
	}
}
