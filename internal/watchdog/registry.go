package watchdog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
)

var (
	// ErrDuplicatePID is returned when an entry's process is already bound by another entry.
	ErrDuplicatePID = errors.New("process is already watched")
	// ErrRegistered is returned when the same entry is added twice.
	ErrRegistered = errors.New("entry is already registered")
)

// Registry is an ordered, threadsafe collection of entries. No two entries
// are ever bound to the same PID.
//
// Lock order is Registry.mu, then Entry.mu, then claimsMu. Entries only ever
// take claimsMu through the claimer interface.
type Registry struct {
	mu      sync.RWMutex
	nextID  EntryID
	entries []*Entry
	byID    map[EntryID]*Entry

	claimsMu sync.Mutex
	claims   map[int]EntryID
}

func NewRegistry() *Registry {
	return &Registry{
		nextID: 1,
		byID:   make(map[EntryID]*Entry),
		claims: make(map[int]EntryID),
	}
}

// Add appends e and assigns its ID. It fails if e is bound to a PID another
// entry already holds.
func (r *Registry) Add(e *Entry) (EntryID, error) {
	if e == nil {
		return 0, errors.New("nil entry")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.entries {
		if cur == e {
			return cur.ID(), ErrRegistered
		}
	}
	id := r.nextID
	if err := e.attach(r, id); err != nil {
		if errors.Is(err, ErrDuplicatePID) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrRegistered, err)
	}
	r.nextID++
	r.entries = append(r.entries, e)
	r.byID[id] = e
	return id, nil
}

func (r *Registry) Get(id EntryID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

// FindByPid returns the entry currently bound to pid.
func (r *Registry) FindByPid(pid int) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.claimsMu.Lock()
	id, ok := r.claims[pid]
	r.claimsMu.Unlock()
	if !ok {
		return nil, false
	}
	e, ok := r.byID[id]
	return e, ok
}

// FindByPattern returns, in insertion order, the entries whose bound process
// name or search pattern matches expr. Matching ignores case.
func (r *Registry) FindByPattern(expr string) ([]*Entry, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	var out []*Entry
	for _, e := range r.Entries() {
		if h, ok := e.Bound(); ok && re.MatchString(h.Name) {
			out = append(out, e)
			continue
		}
		if re.MatchString(e.Pattern()) {
			out = append(out, e)
		}
	}
	return out, nil
}

// FindBySearchPattern returns the entry whose search pattern is exactly pattern.
func (r *Registry) FindBySearchPattern(pattern string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Pattern() == pattern {
			return e, true
		}
	}
	return nil, false
}

// Entries returns a copy of the collection in insertion order.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Entry(nil), r.entries...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Remove drops e and stops its loop. It reports false if e was not registered.
func (r *Registry) Remove(e *Entry) bool {
	r.mu.Lock()
	idx := -1
	for i, cur := range r.entries {
		if cur == e {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
	delete(r.byID, e.ID())
	e.detach()
	r.mu.Unlock()

	e.Stop()
	return true
}

// StopAll stops every entry and empties the registry. It does not wait for
// the loops to exit; see Shutdown.
func (r *Registry) StopAll() []*Entry {
	r.mu.Lock()
	stopped := r.entries
	r.entries = nil
	r.byID = make(map[EntryID]*Entry)
	for _, e := range stopped {
		e.detach()
	}
	r.mu.Unlock()

	for _, e := range stopped {
		e.Stop()
	}
	return stopped
}

// Shutdown stops every entry and waits for their loops until ctx expires.
func (r *Registry) Shutdown(ctx context.Context) error {
	for _, e := range r.StopAll() {
		select {
		case <-e.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *Registry) claim(pid int, id EntryID) bool {
	r.claimsMu.Lock()
	defer r.claimsMu.Unlock()
	if owner, ok := r.claims[pid]; ok && owner != id {
		return false
	}
	r.claims[pid] = id
	return true
}

func (r *Registry) release(pid int, id EntryID) {
	r.claimsMu.Lock()
	defer r.claimsMu.Unlock()
	if r.claims[pid] == id {
		delete(r.claims, pid)
	}
}
