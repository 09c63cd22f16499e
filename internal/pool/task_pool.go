package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

const (
	MaxTaskPoolSize = 1024 * 16
)

var (
	ErrPoolClosed   = errors.New("pool already closed")
	ErrPoolOverload = errors.New("pool buffer is full")
)

// FixedTaskPool 固定数量的goroutine, 任务按照轮询分配到每个goroutine的缓冲区
type FixedTaskPool struct {
	// buf chan
	tasks     []chan func()
	ringIndex atomic.Uint64
	recoverFn RecoverFunc
	// 用于取消所有goroutine
	cancelFn context.CancelFunc
	// 统计关闭的goroutine数量
	wg sync.WaitGroup
	// 关闭的标志
	closed  atomic.Bool
	success atomic.Int64
	failed  atomic.Int64
}

func NewTaskPool(bufSize, size int, rf RecoverFunc) TaskPool {
	if size <= 0 {
		size = 1
	}
	if bufSize > MaxTaskPoolSize {
		bufSize = MaxTaskPoolSize
	}
	if bufSize < size {
		bufSize = size
	}
	if rf == nil {
		rf = func(poolId int, err interface{}) {}
	}
	pool := &FixedTaskPool{recoverFn: rf}
	pool.tasks = make([]chan func(), size)
	for i := 0; i < size; i++ {
		pool.tasks[i] = make(chan func(), bufSize/size)
	}
	pool.wg.Add(size)
	pool.start()
	return pool
}

func (p *FixedTaskPool) start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelFn = cancel
	for k, ch := range p.tasks {
		ich := ch
		ik := k
		go func() {
			defer p.wg.Done()
			for {
				select {
				case fn := <-ich:
					p.exec(ik, fn)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

func (p *FixedTaskPool) exec(poolId int, fn func()) {
	defer func() {
		if err := recover(); err != nil {
			p.failed.Add(1)
			p.recoverFn(poolId, err)
		}
	}()
	fn()
	p.success.Add(1)
}

// Push 不会阻塞, 调用者通常是传输层的读goroutine. 选中的缓冲区满时返回ErrPoolOverload
func (p *FixedTaskPool) Push(fn func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	i := (p.ringIndex.Add(1) - 1) % uint64(len(p.tasks))
	select {
	case p.tasks[i] <- fn:
		return nil
	default:
		return ErrPoolOverload
	}
}

// Stop 等待正在执行的任务完成, 缓冲区中未执行的任务会被丢弃
func (p *FixedTaskPool) Stop() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPoolClosed
	}
	p.cancelFn()
	p.wg.Wait()
	return nil
}

func (p *FixedTaskPool) LiveSize() int {
	return len(p.tasks)
}

func (p *FixedTaskPool) BufSize() int {
	var bufSize int
	for i := 0; i < len(p.tasks); i++ {
		bufSize += len(p.tasks[i])
	}
	return bufSize
}

func (p *FixedTaskPool) ExecuteSuccess() int {
	return int(p.success.Load())
}

func (p *FixedTaskPool) ExecuteError() int {
	return int(p.failed.Load())
}
