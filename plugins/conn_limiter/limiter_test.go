package conn_limiter

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nyan233/wsrpc/core/middle/plugin"
	"github.com/stretchr/testify/assert"
)

func TestConnLimiter(t *testing.T) {
	const (
		MaxConn       = 1024
		GoroutineSize = MaxConn + 100
	)
	p := NewServer(MaxConn).(*Limiter)
	done := make(chan int, 1)
	var wg sync.WaitGroup
	wg.Add(GoroutineSize)
	var falseCount atomic.Int64
	for i := 0; i < GoroutineSize; i++ {
		go func() {
			defer wg.Done()
			<-done
			if !p.Event4S(plugin.OnOpen, nil) {
				falseCount.Add(1)
			}
		}()
	}
	close(done)
	wg.Wait()
	assert.Equal(t, int64(100), falseCount.Load())
	wg.Add(GoroutineSize)
	for i := 0; i < GoroutineSize; i++ {
		go func() {
			defer wg.Done()
			p.Event4S(plugin.OnClose, nil)
			p.Event4S(plugin.Event(100), nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(0), p.counter.Load())
	assert.True(t, p.Event4S(plugin.OnOpen, nil))
}
