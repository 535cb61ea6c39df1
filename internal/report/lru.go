package report

import (
	"container/list"
	"sync"
)

// LRUStore keeps the most recent runs in memory and delegates to a
// backing Store on miss. It also remembers the order runs were saved in,
// so callers can ask for the latest one.
type LRUStore struct {
	mu     sync.Mutex
	cap    int
	back   Store
	order  *list.List // front is most recently used; values are *RunResult
	items  map[string]*list.Element
	latest string
}

// NewLRUStore creates an LRU cache with the given capacity that delegates
// to back on cache misses. Capacity below 1 is raised to 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save caches the result, marks it latest and writes it through.
func (s *LRUStore) Save(result *RunResult) error {
	s.mu.Lock()
	s.put(result)
	s.latest = result.ID
	s.mu.Unlock()

	return s.back.Save(result)
}

// Load checks the cache first. On miss it loads from the backing store
// and promotes the result into the cache.
func (s *LRUStore) Load(runID string) (*RunResult, error) {
	s.mu.Lock()
	if el, ok := s.items[runID]; ok {
		s.order.MoveToFront(el)
		r := el.Value.(*RunResult)
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	result, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.put(result)
	s.mu.Unlock()
	return result, nil
}

// Latest returns the ID of the most recently saved run, or "".
func (s *LRUStore) Latest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// put inserts or refreshes result. Caller holds mu.
func (s *LRUStore) put(result *RunResult) {
	if el, ok := s.items[result.ID]; ok {
		el.Value = result
		s.order.MoveToFront(el)
		return
	}
	s.items[result.ID] = s.order.PushFront(result)
	for s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*RunResult).ID)
	}
}
