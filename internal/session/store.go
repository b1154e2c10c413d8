package session

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry is the unit of per-user locking. Once dead it is no longer reachable
// from the index and callers must look the user up again.
type entry struct {
	mu   sync.Mutex
	s    Session
	dead bool
}

type index interface {
	get(id int64) (*entry, bool)
	put(id int64, e *entry)
	remove(id int64) (*entry, bool)
	len() int
}

// memStore implements Store over an index. mu only guards the index; the
// read-modify-write of a session happens under the entry lock.
type memStore struct {
	mu      sync.Mutex
	idx     index
	newSess func(userID int64) Session
}

// NewMemoryStore returns an unbounded in-memory store. defaultCrop is the
// crop assigned to freshly created sessions.
func NewMemoryStore(defaultCrop string) Store {
	return &memStore{idx: mapIndex{}, newSess: defaults(defaultCrop)}
}

// NewBoundedStore returns a store holding at most size sessions. When full,
// the least recently used session is dropped, which is equivalent to a reset
// for that user.
func NewBoundedStore(defaultCrop string, size int) (Store, error) {
	c, err := lru.NewWithEvict[int64, *entry](size, func(_ int64, e *entry) {
		e.mu.Lock()
		e.dead = true
		e.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	return &memStore{idx: lruIndex{c}, newSess: defaults(defaultCrop)}, nil
}

func defaults(cropID string) func(int64) Session {
	return func(userID int64) Session {
		return Session{UserID: userID, CropID: cropID, State: StateIdle}
	}
}

func (m *memStore) lookup(userID int64) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.idx.get(userID); ok {
		return e
	}
	e := &entry{s: m.newSess(userID)}
	m.idx.put(userID, e)
	return e
}

// lock returns the live entry for userID with its lock held.
func (m *memStore) lock(userID int64) *entry {
	for {
		e := m.lookup(userID)
		e.mu.Lock()
		if !e.dead {
			return e
		}
		e.mu.Unlock()
	}
}

func (m *memStore) GetOrCreate(userID int64) Session {
	e := m.lock(userID)
	s := e.s
	e.mu.Unlock()
	return s
}

func (m *memStore) Update(userID int64, fn Mutator) (Session, error) {
	e := m.lock(userID)
	defer e.mu.Unlock()
	next := e.s
	if fn != nil {
		if err := fn(&next); err != nil {
			return e.s, err
		}
	}
	next.UserID = userID
	e.s = next
	return next, nil
}

func (m *memStore) Reset(userID int64) {
	m.mu.Lock()
	e, ok := m.idx.remove(userID)
	m.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.dead = true
	e.mu.Unlock()
}

func (m *memStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idx.len()
}

type mapIndex map[int64]*entry

func (x mapIndex) get(id int64) (*entry, bool) { e, ok := x[id]; return e, ok }
func (x mapIndex) put(id int64, e *entry)      { x[id] = e }
func (x mapIndex) len() int                    { return len(x) }
func (x mapIndex) remove(id int64) (*entry, bool) {
	e, ok := x[id]
	if ok {
		delete(x, id)
	}
	return e, ok
}

type lruIndex struct{ c *lru.Cache[int64, *entry] }

func (x lruIndex) get(id int64) (*entry, bool) { return x.c.Get(id) }
func (x lruIndex) put(id int64, e *entry)      { x.c.Add(id, e) }
func (x lruIndex) len() int                    { return x.c.Len() }

// Remove fires the eviction callback as well; marking an entry dead twice is harmless.
func (x lruIndex) remove(id int64) (*entry, bool) {
	e, ok := x.c.Peek(id)
	if !ok {
		return nil, false
	}
	x.c.Remove(id)
	return e, true
}
