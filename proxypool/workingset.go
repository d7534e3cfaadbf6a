package proxypool

import (
	"math/rand/v2"
	"sync"

	"freeproxy_pool/proxypool/model"
)

// WorkingSet 是容量受限的已验证代理集合。先进入的保留，满了以后不再替换。
type WorkingSet struct {
	mu       sync.RWMutex
	capacity int
	members  []model.Endpoint
	index    map[string]struct{}
}

func newWorkingSet(capacity int) *WorkingSet {
	return &WorkingSet{
		capacity: capacity,
		index:    make(map[string]struct{}, capacity),
	}
}

// Add inserts e unless the set is full or already holds it. The capacity
// check and the insert happen under the same lock.
func (w *WorkingSet) Add(e model.Endpoint) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.members) >= w.capacity {
		return false
	}
	key := e.String()
	if _, ok := w.index[key]; ok {
		return false
	}
	w.index[key] = struct{}{}
	w.members = append(w.members, e)
	return true
}

func (w *WorkingSet) Full() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.members) >= w.capacity
}

func (w *WorkingSet) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.members)
}

// Random returns a uniformly chosen member; ok is false when the set is empty.
func (w *WorkingSet) Random() (model.Endpoint, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.members) == 0 {
		return model.Endpoint{}, false
	}
	return w.members[rand.IntN(len(w.members))], true
}

// Snapshot returns the members in admission order.
func (w *WorkingSet) Snapshot() []model.Endpoint {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]model.Endpoint, len(w.members))
	copy(out, w.members)
	return out
}
