package container

import (
	"sync"
	"sync/atomic"
)

// RCUMap 读取不加锁, 写入时拷贝整个map, 只适合方法表这种几乎只读的场景
type RCUMap[Key comparable, Val any] struct {
	mu      sync.Mutex // 串行写入操作, 读取操作不需要上锁
	pointer atomic.Pointer[map[Key]Val]
}

func NewRCUMap[K comparable, V any]() *RCUMap[K, V] {
	m := new(RCUMap[K, V])
	tmp := make(map[K]V, 16)
	m.pointer.Store(&tmp)
	return m
}

func (R *RCUMap[Key, Val]) snapshot() map[Key]Val {
	p := R.pointer.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (R *RCUMap[Key, Val]) LoadOk(key Key) (Val, bool) {
	val, ok := R.snapshot()[key]
	return val, ok
}

func (R *RCUMap[Key, Val]) Range(fn func(key Key, val Val) bool) {
	for k, v := range R.snapshot() {
		if !fn(k, v) {
			break
		}
	}
}

func (R *RCUMap[Key, Val]) Store(key Key, val Val) {
	R.mu.Lock()
	defer R.mu.Unlock()
	copyMap := R.copy()
	copyMap[key] = val
	R.pointer.Store(&copyMap)
}

// StoreIfAbsent key已经存在时不做修改并返回false
func (R *RCUMap[Key, Val]) StoreIfAbsent(key Key, val Val) bool {
	R.mu.Lock()
	defer R.mu.Unlock()
	if _, ok := R.snapshot()[key]; ok {
		return false
	}
	copyMap := R.copy()
	copyMap[key] = val
	R.pointer.Store(&copyMap)
	return true
}

func (R *RCUMap[Key, Val]) Delete(key Key) bool {
	R.mu.Lock()
	defer R.mu.Unlock()
	if _, ok := R.snapshot()[key]; !ok {
		return false
	}
	copyMap := R.copy()
	delete(copyMap, key)
	R.pointer.Store(&copyMap)
	return true
}

func (R *RCUMap[Key, Val]) Len() int {
	return len(R.snapshot())
}

func (R *RCUMap[Key, Val]) copy() map[Key]Val {
	snapshot := R.snapshot()
	copyMap := make(map[Key]Val, len(snapshot)+1)
	for k, v := range snapshot {
		copyMap[k] = v
	}
	return copyMap
}
