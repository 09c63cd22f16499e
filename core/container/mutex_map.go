package container

import "sync"

// MutexMap 读写都需要加锁, 适合写多读少的场景, 比如挂起请求表
type MutexMap[Key comparable, Value any] struct {
	mu sync.Mutex
	mp map[Key]Value
}

func (m *MutexMap[Key, Value]) LoadOk(k Key) (Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.mp[k]
	return v, ok
}

func (m *MutexMap[Key, Value]) Load(k Key) Value {
	v, _ := m.LoadOk(k)
	return v
}

func (m *MutexMap[Key, Value]) Store(k Key, v Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mp == nil {
		m.mp = make(map[Key]Value, 16)
	}
	m.mp[k] = v
}

// LoadOrStore key不存在时使用newFn创建并存储, loaded == true 表示返回的是已经存在的值
func (m *MutexMap[Key, Value]) LoadOrStore(k Key, newFn func() Value) (v Value, loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.mp[k]; ok {
		return v, true
	}
	if m.mp == nil {
		m.mp = make(map[Key]Value, 16)
	}
	v = newFn()
	m.mp[k] = v
	return v, false
}

// LoadAndDelete 查找和删除在同一个临界区内完成, 同一个key只会有一个调用者拿到ok == true
func (m *MutexMap[Key, Value]) LoadAndDelete(k Key) (Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.mp[k]
	if ok {
		delete(m.mp, k)
	}
	return v, ok
}

func (m *MutexMap[Key, Value]) Delete(k Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.mp, k)
}

// Range fn在持有锁时被调用, 不能在fn中再操作这个Map
func (m *MutexMap[Key, Value]) Range(fn func(key Key, v Value) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.mp {
		if !fn(k, v) {
			break
		}
	}
}

func (m *MutexMap[Key, Value]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mp)
}

// Clean 清空并返回旧的数据
func (m *MutexMap[Key, Value]) Clean() map[Key]Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.mp
	m.mp = make(map[Key]Value, 16)
	return old
}
