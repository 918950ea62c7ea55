// ABOUTME: Sliding-window set of recently seen event IDs
// ABOUTME: Entries expire after a TTL and the oldest are evicted past a size limit

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type seenEvent struct {
	id string
	at time.Time
}

// Window tracks event IDs seen within the last ttl, holding at most maxSize.
// Expired IDs are pruned lazily on each call, so no goroutine is needed.
type Window struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List // *seenEvent, oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewWindow creates a window. A maxSize of zero or less means unbounded.
func NewWindow(ttl time.Duration, maxSize int) *Window {
	return &Window{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Seen reports whether id was already recorded inside the window. A new id
// is recorded and false is returned. Re-seeing an id does not extend it.
func (w *Window) Seen(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.pruneLocked(now)

	if _, ok := w.index[id]; ok {
		return true
	}

	if w.maxSize > 0 && w.order.Len() >= w.maxSize {
		w.removeLocked(w.order.Front())
	}
	w.index[id] = w.order.PushBack(&seenEvent{id: id, at: now})
	return false
}

// Len returns the number of live IDs.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(w.now())
	return w.order.Len()
}

// pruneLocked drops expired IDs. Insertion order equals expiry order because
// every ID shares the same ttl.
func (w *Window) pruneLocked(now time.Time) {
	for e := w.order.Front(); e != nil; e = w.order.Front() {
		if now.Sub(e.Value.(*seenEvent).at) < w.ttl {
			return
		}
		w.removeLocked(e)
	}
}

func (w *Window) removeLocked(e *list.Element) {
	if e == nil {
		return
	}
	w.order.Remove(e)
	delete(w.index, e.Value.(*seenEvent).id)
}
