package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procwatch/internal/proctable/proctabletest"
)

func TestRegistryAddAssignsIDsInOrder(t *testing.T) {
	table := proctabletest.New()
	r := NewRegistry()
	a, _ := manualEntry(t, table, "alpha", 1, 60)
	b, _ := manualEntry(t, table, "beta", 1, 60)

	idA, err := r.Add(a)
	require.NoError(t, err)
	idB, err := r.Add(b)
	require.NoError(t, err)

	assert.Equal(t, EntryID(1), idA)
	assert.Equal(t, EntryID(2), idB)
	assert.Equal(t, idA, a.ID())
	assert.Equal(t, []*Entry{a, b}, r.Entries())
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(idB)
	require.True(t, ok)
	assert.Same(t, b, got)

	_, err = r.Add(a)
	assert.ErrorIs(t, err, ErrRegistered)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryRejectsDuplicatePID(t *testing.T) {
	table := proctabletest.New()
	h := table.Add(10, "worker", t0)
	r := NewRegistry()
	a, _ := manualEntry(t, table, "worker", 1, 60, WithProcess(h))
	b, _ := manualEntry(t, table, "^worker$", 1, 60, WithProcess(h))

	_, err := r.Add(a)
	require.NoError(t, err)
	_, err = r.Add(b)
	assert.ErrorIs(t, err, ErrDuplicatePID)
	assert.Equal(t, []*Entry{a}, r.Entries())
	assert.Equal(t, EntryID(0), b.ID())
}

func TestRegistryAutoBindSkipsClaimedPID(t *testing.T) {
	table := proctabletest.New()
	h := table.Add(10, "worker", t0)
	r := NewRegistry()
	a, _ := manualEntry(t, table, "worker", 1, 3600, WithProcess(h), WithClock(newFakeClock(t0).Now))
	b, rec := manualEntry(t, table, "^work", 1, 3600, WithClock(newFakeClock(t0).Now))
	_, err := r.Add(a)
	require.NoError(t, err)
	_, err = r.Add(b)
	require.NoError(t, err)

	b.cycle(b.ctx)
	_, ok := b.Bound()
	assert.False(t, ok)
	assert.Empty(t, rec.kinds())

	got, ok := r.FindByPid(10)
	require.True(t, ok)
	assert.Same(t, a, got)

	// Once a lets go, b may take over.
	require.True(t, r.Remove(a))
	b.cycle(b.ctx)
	bound, ok := b.Bound()
	require.True(t, ok)
	assert.Equal(t, 10, bound.PID)
	got, ok = r.FindByPid(10)
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestRegistryRemoveStopsAndExcludes(t *testing.T) {
	table := proctabletest.New()
	h := table.Add(10, "worker", t0)
	r := NewRegistry()
	e, err := New("worker", 0.01, 3600, table, WithProcess(h), WithClock(newFakeClock(t0).Now))
	require.NoError(t, err)
	_, err = r.Add(e)
	require.NoError(t, err)

	_, ok := r.FindByPid(10)
	require.True(t, ok)

	assert.True(t, r.Remove(e))
	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("removed entry kept running")
	}
	assert.False(t, e.Running())

	_, ok = r.FindByPid(10)
	assert.False(t, ok)
	found, err := r.FindByPattern("worker")
	require.NoError(t, err)
	assert.Empty(t, found)
	_, ok = r.FindBySearchPattern("worker")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())

	assert.False(t, r.Remove(e))
}

func TestRegistryFindByPattern(t *testing.T) {
	table := proctabletest.New()
	h := table.Add(10, "nginx-worker", t0)
	r := NewRegistry()
	bound, _ := manualEntry(t, table, "^nginx", 1, 3600, WithProcess(h))
	unbound, _ := manualEntry(t, table, "Postgres", 1, 3600)
	for _, e := range []*Entry{bound, unbound} {
		_, err := r.Add(e)
		require.NoError(t, err)
	}

	got, err := r.FindByPattern("worker$")
	require.NoError(t, err)
	assert.Equal(t, []*Entry{bound}, got, "matches the bound process name")

	got, err = r.FindByPattern("postgres")
	require.NoError(t, err)
	assert.Equal(t, []*Entry{unbound}, got, "matches the search pattern ignoring case")

	got, err = r.FindByPattern(".")
	require.NoError(t, err)
	assert.Equal(t, []*Entry{bound, unbound}, got)

	_, err = r.FindByPattern("[")
	assert.ErrorIs(t, err, ErrInvalidPattern)

	e, ok := r.FindBySearchPattern("Postgres")
	require.True(t, ok)
	assert.Same(t, unbound, e)
}

func TestRegistryKillReleasesClaim(t *testing.T) {
	table := proctabletest.New()
	h := table.Add(10, "worker", t0)
	r := NewRegistry()
	e, _ := manualEntry(t, table, "worker", 1, 1, WithProcess(h), WithClock(newFakeClock(t0.Add(time.Minute)).Now))
	_, err := r.Add(e)
	require.NoError(t, err)

	e.cycle(e.ctx)
	require.Len(t, table.Kills(), 1)
	_, ok := r.FindByPid(10)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len(), "the entry stays registered and keeps searching")
}

func TestRegistryStopAll(t *testing.T) {
	table := proctabletest.New()
	r := NewRegistry()
	var entries []*Entry
	for _, p := range []string{"a", "b", "c"} {
		e, err := New(p, 0.01, 60, table)
		require.NoError(t, err)
		_, err = r.Add(e)
		require.NoError(t, err)
		entries = append(entries, e)
	}

	stopped := r.StopAll()
	assert.Len(t, stopped, 3)
	assert.Equal(t, 0, r.Len())
	for _, e := range entries {
		select {
		case <-e.Done():
		case <-time.After(time.Second):
			t.Fatalf("entry %q still running", e.Pattern())
		}
	}
}

func TestRegistryShutdown(t *testing.T) {
	table := proctabletest.New()
	r := NewRegistry()
	e, err := New("a", 0.01, 60, table)
	require.NoError(t, err)
	_, err = r.Add(e)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	assert.False(t, e.Running())
	assert.Equal(t, 0, r.Len())
}
