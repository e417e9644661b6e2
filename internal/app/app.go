package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"procwatch/internal/proctable"
	"procwatch/internal/watchdog"
)

const (
	defaultFrequency   = 1.0
	defaultMaxLifetime = 3600.0
	defaultEventBuffer = 64
)

// Options configures the in-process controller.
type Options struct {
	Table  proctable.Table
	Logger *zap.Logger
	// Observer also receives every watchdog event, e.g. the metrics collector.
	Observer           func(watchdog.Event)
	DefaultFrequency   float64
	DefaultMaxLifetime float64
	// EventBuffer sizes the Events channel. Events are dropped when it is full.
	EventBuffer int
	Clock       func() time.Time
}

// App holds the watchdog state that the shell, the daemon and the CLI share.
type App struct {
	table   proctable.Table
	log     *zap.Logger
	reg     *watchdog.Registry
	observe func(watchdog.Event)
	now     func() time.Time
	events  chan Event

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int

	defFreq float64
	defLife float64

	// mu serializes mutations so check-then-add stays atomic.
	mu sync.Mutex
}

// New constructs the controller. Table is required.
func New(opts Options) (*App, error) {
	if opts.Table == nil {
		return nil, errors.New("process table is required")
	}
	a := &App{
		table:   opts.Table,
		log:     opts.Logger,
		reg:     watchdog.NewRegistry(),
		observe: opts.Observer,
		now:     opts.Clock,
		defFreq: opts.DefaultFrequency,
		defLife: opts.DefaultMaxLifetime,
		subs:    make(map[int]chan Event),
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if !positive(a.defFreq) {
		a.defFreq = defaultFrequency
	}
	if !positive(a.defLife) {
		a.defLife = defaultMaxLifetime
	}
	size := opts.EventBuffer
	if size <= 0 {
		size = defaultEventBuffer
	}
	a.events = make(chan Event, size)
	return a, nil
}

// Events delivers watchdog events. The channel is never closed.
func (a *App) Events() <-chan Event {
	return a.events
}

// Subscribe returns a channel that receives every event from now on,
// independent of Events and of other subscribers. Events are dropped when
// the subscriber falls buffer events behind. cancel closes the channel.
func (a *App) Subscribe(buffer int) (events <-chan Event, cancel func()) {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	ch := make(chan Event, buffer)
	a.subsMu.Lock()
	a.nextSub++
	id := a.nextSub
	a.subs[id] = ch
	a.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subsMu.Lock()
			delete(a.subs, id)
			a.subsMu.Unlock()
			close(ch)
		})
	}
}

// Registry exposes the underlying entries.
func (a *App) Registry() *watchdog.Registry {
	return a.reg
}

// Counts reports registered and bound entries.
func (a *App) Counts() (entries, bound int) {
	for _, e := range a.reg.Entries() {
		entries++
		if _, ok := e.Bound(); ok {
			bound++
		}
	}
	return entries, bound
}

// Shutdown stops every entry and waits for the loops to exit.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.reg.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop watch loops: %w", err)
	}
	return nil
}

func (a *App) newEntry(pattern string, freq, life float64, opts ...watchdog.Option) (*watchdog.Entry, error) {
	opts = append([]watchdog.Option{
		watchdog.WithLogger(a.log),
		watchdog.WithClock(a.now),
		watchdog.WithObserver(a.handleEvent),
	}, opts...)
	e, err := watchdog.New(pattern, freq, life, a.table, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return e, nil
}

func (a *App) handleEvent(ev watchdog.Event) {
	if a.observe != nil {
		a.observe(ev)
	}
	out := eventFromWatchdog(ev)
	select {
	case a.events <- out:
	default:
		a.log.Debug("event dropped, buffer full", zap.Stringer("kind", ev.Kind))
	}

	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- out:
		default:
			a.log.Debug("event dropped for slow subscriber", zap.Stringer("kind", ev.Kind))
		}
	}
}

func (a *App) snapshot(ctx context.Context) ([]proctable.Handle, error) {
	snap, err := a.table.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("read process table: %w", err)
	}
	return snap, nil
}
