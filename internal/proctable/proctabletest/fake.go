// Package proctabletest provides an in-memory process table for tests.
package proctabletest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"procwatch/internal/proctable"
)

// Table is a scriptable proctable.Table. The zero value is not usable; call New.
type Table struct {
	mu           sync.Mutex
	procs        map[int]proctable.Handle
	subs         map[int]map[int]func()
	nextSub      int
	kills        []proctable.Handle
	enumerateErr error
	terminateErr map[int]error
	enumerations int
	zombies      bool
}

// New returns an empty table.
func New() *Table {
	return &Table{
		procs:        make(map[int]proctable.Handle),
		subs:         make(map[int]map[int]func()),
		terminateErr: make(map[int]error),
	}
}

// Add inserts or replaces a process and returns its handle.
func (t *Table) Add(pid int, name string, start time.Time) proctable.Handle {
	h := proctable.Handle{PID: pid, Name: name, StartTime: start, Cmdline: name}
	t.mu.Lock()
	t.procs[pid] = h
	t.mu.Unlock()
	return h
}

// Remove deletes the process without notifying subscribers, like a process
// that exits before anyone hears about it.
func (t *Table) Remove(pid int) {
	t.mu.Lock()
	delete(t.procs, pid)
	t.mu.Unlock()
}

// Exit deletes the process and fires its exit subscribers.
func (t *Table) Exit(pid int) {
	t.mu.Lock()
	delete(t.procs, pid)
	fire := t.takeSubsLocked(pid)
	t.mu.Unlock()
	for _, fn := range fire {
		fn()
	}
}

// SetEnumerateErr makes Enumerate fail until cleared with nil.
func (t *Table) SetEnumerateErr(err error) {
	t.mu.Lock()
	t.enumerateErr = err
	t.mu.Unlock()
}

// SetTerminateErr makes Terminate fail for pid until cleared with nil.
func (t *Table) SetTerminateErr(pid int, err error) {
	t.mu.Lock()
	if err == nil {
		delete(t.terminateErr, pid)
	} else {
		t.terminateErr[pid] = err
	}
	t.mu.Unlock()
}

// KeepKilled makes Terminate leave killed processes listed, like zombies
// whose parent has not reaped them yet. Subscribers are not notified. Use
// Remove to reap.
func (t *Table) KeepKilled(keep bool) {
	t.mu.Lock()
	t.zombies = keep
	t.mu.Unlock()
}

// Kills returns every successfully terminated handle in order.
func (t *Table) Kills() []proctable.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]proctable.Handle(nil), t.kills...)
}

// Enumerations counts Enumerate calls.
func (t *Table) Enumerations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enumerations
}

// SubscriberCount reports live subscriptions for pid.
func (t *Table) SubscriberCount(pid int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs[pid])
}

func (t *Table) Enumerate(ctx context.Context) ([]proctable.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enumerations++
	if t.enumerateErr != nil {
		return nil, t.enumerateErr
	}
	out := make([]proctable.Handle, 0, len(t.procs))
	for _, h := range t.procs {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

func (t *Table) Terminate(ctx context.Context, h proctable.Handle) error {
	t.mu.Lock()
	if err, ok := t.terminateErr[h.PID]; ok {
		t.mu.Unlock()
		return err
	}
	cur, ok := t.procs[h.PID]
	if !ok || !cur.Same(h) {
		t.mu.Unlock()
		return fmt.Errorf("pid %d: %w", h.PID, proctable.ErrNotFound)
	}
	t.kills = append(t.kills, h)
	if t.zombies {
		t.mu.Unlock()
		return nil
	}
	delete(t.procs, h.PID)
	fire := t.takeSubsLocked(h.PID)
	t.mu.Unlock()
	for _, fn := range fire {
		fn()
	}
	return nil
}

func (t *Table) Subscribe(h proctable.Handle, onExit func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextSub++
	id := t.nextSub
	if t.subs[h.PID] == nil {
		t.subs[h.PID] = make(map[int]func())
	}
	t.subs[h.PID][id] = onExit
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs[h.PID], id)
	}
}

func (t *Table) takeSubsLocked(pid int) []func() {
	var fire []func()
	for _, fn := range t.subs[pid] {
		fire = append(fire, fn)
	}
	delete(t.subs, pid)
	return fire
}
