// Package pool wsrpc自带的goroutine池, 用于执行对端发来的请求与通知
package pool

// RecoverFunc 任务panic时调用, poolId为执行该任务的goroutine编号
type RecoverFunc func(poolId int, err interface{})

type TaskPool interface {
	Push(func()) error
	Stop() error
	// LiveSize 存活的goroutine数量
	LiveSize() int
	// BufSize 缓冲区中存在的任务数量
	BufSize() int
	// ExecuteSuccess 任务池执行成功的任务数量
	ExecuteSuccess() int
	// ExecuteError 任务池执行失败的任务数量
	ExecuteError() int
}
