package metrics

import "sync/atomic"

type CallMetrics struct {
	// 用于即未成功也未失败的计数, 可能由阻塞等原因引起
	Count    int64
	Complete int64
	Failed   int64
}

func (m *CallMetrics) IncComplete() {
	atomic.AddInt64(&m.Complete, 1)
}

func (m *CallMetrics) IncFailed() {
	atomic.AddInt64(&m.Failed, 1)
}

func (m *CallMetrics) IncCount() {
	atomic.AddInt64(&m.Count, 1)
}

func (m *CallMetrics) LoadComplete() int64 {
	return atomic.LoadInt64(&m.Complete)
}

func (m *CallMetrics) LoadFailed() int64 {
	return atomic.LoadInt64(&m.Failed)
}

func (m *CallMetrics) LoadCount() int64 {
	return atomic.LoadInt64(&m.Count)
}

// LoadAll 已经有结果的调用
func (m *CallMetrics) LoadAll() int64 {
	return m.LoadComplete() + m.LoadFailed()
}

// TrafficMetrics 按字节统计的流量, 只会增加
type TrafficMetrics struct {
	bytes atomic.Int64
	// 避免与相邻的计数器伪共享
	_ [128 - 8]byte
}

func (t *TrafficMetrics) Add(n int64) {
	t.bytes.Add(n)
}

func (t *TrafficMetrics) Load() int64 {
	return t.bytes.Load()
}
