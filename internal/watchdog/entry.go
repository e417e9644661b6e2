// Package watchdog resolves search patterns to live processes and kills the
// ones that outlive their configured lifetime.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"procwatch/internal/proctable"
)

var (
	ErrInvalidPattern   = errors.New("invalid search pattern")
	ErrInvalidFrequency = errors.New("frequency must be a positive number of checks per minute")
	ErrInvalidLifetime  = errors.New("max lifetime must be a positive number of seconds")
)

// EntryID is assigned by the Registry. Zero means the entry is not registered.
type EntryID uint64

// IntervalFor converts checks per minute into the wait between cycles.
func IntervalFor(frequencyPerMinute float64) time.Duration {
	return time.Duration(float64(time.Minute) / frequencyPerMinute)
}

func validRate(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Option customizes an Entry.
type Option func(*options)

type options struct {
	process  *proctable.Handle
	log      *zap.Logger
	now      func() time.Time
	observer func(Event)
}

// WithProcess binds the entry to an already resolved process.
func WithProcess(h proctable.Handle) Option {
	return func(o *options) { o.process = &h }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock replaces time.Now for process age computation.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver receives every event the loop reports. It is called from the
// loop goroutine and must not block.
func WithObserver(fn func(Event)) Option {
	return func(o *options) { o.observer = fn }
}

type claimer interface {
	claim(pid int, id EntryID) bool
	release(pid int, id EntryID)
}

// Entry watches one search pattern. Its loop starts in New and runs until Stop.
type Entry struct {
	pattern string
	re      *regexp.Regexp
	table   proctable.Table
	log     *zap.Logger
	now     func() time.Time
	observe func(Event)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}

	mu          sync.Mutex
	id          EntryID
	frequency   float64
	maxLifetime float64
	bound       *proctable.Handle
	unsubscribe func()
	gen         uint64
	claims      claimer
	// terminated is the last process this entry killed. A zombie keeps its
	// PID and start time until reaped and must not be bound again.
	terminated *proctable.Handle

	// exitedGen holds the binding generation whose exit was reported.
	exitedGen atomic.Uint64
}

// New validates the parameters and starts the check loop.
func New(pattern string, frequencyPerMinute, maxLifetimeSeconds float64, table proctable.Table, opts ...Option) (*Entry, error) {
	e, err := newEntry(pattern, frequencyPerMinute, maxLifetimeSeconds, table, opts...)
	if err != nil {
		return nil, err
	}
	go e.run()
	return e, nil
}

func newEntry(pattern string, frequencyPerMinute, maxLifetimeSeconds float64, table proctable.Table, opts ...Option) (*Entry, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPattern)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if !validRate(frequencyPerMinute) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrequency, frequencyPerMinute)
	}
	if !validRate(maxLifetimeSeconds) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLifetime, maxLifetimeSeconds)
	}
	if table == nil {
		return nil, errors.New("process table is required")
	}

	o := options{log: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Entry{
		pattern:     pattern,
		re:          re,
		table:       table,
		log:         o.log.With(zap.String("pattern", pattern)),
		now:         o.now,
		observe:     o.observer,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		wake:        make(chan struct{}, 1),
		frequency:   frequencyPerMinute,
		maxLifetime: maxLifetimeSeconds,
	}
	if o.process != nil {
		e.mu.Lock()
		e.bindLocked(*o.process)
		e.mu.Unlock()
	}
	return e, nil
}

// Stop asks the loop to exit and returns immediately. Safe to call repeatedly.
func (e *Entry) Stop() {
	e.cancel()
}

// Done is closed once the loop has exited.
func (e *Entry) Done() <-chan struct{} {
	return e.done
}

// Running reports whether the loop is still live.
func (e *Entry) Running() bool {
	if e.ctx.Err() != nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

func (e *Entry) ID() EntryID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

func (e *Entry) Pattern() string { return e.pattern }

func (e *Entry) Frequency() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frequency
}

func (e *Entry) MaxLifetime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxLifetime
}

// Interval is the current wait between cycles.
func (e *Entry) Interval() time.Duration {
	return IntervalFor(e.Frequency())
}

// Bound returns the process the entry currently tracks.
func (e *Entry) Bound() (proctable.Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bound == nil {
		return proctable.Handle{}, false
	}
	return *e.bound, true
}

// SetFrequency changes the check rate. A waiting loop picks up the new
// interval without finishing the old wait.
func (e *Entry) SetFrequency(perMinute float64) error {
	if !validRate(perMinute) {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, perMinute)
	}
	e.mu.Lock()
	e.frequency = perMinute
	e.mu.Unlock()
	e.poke()
	return nil
}

// SetMaxLifetime changes the kill threshold; it applies from the next cycle.
func (e *Entry) SetMaxLifetime(seconds float64) error {
	if !validRate(seconds) {
		return fmt.Errorf("%w: %v", ErrInvalidLifetime, seconds)
	}
	e.mu.Lock()
	e.maxLifetime = seconds
	e.mu.Unlock()
	return nil
}

// EntryInfo is a point-in-time copy of an entry's state.
type EntryInfo struct {
	ID          EntryID
	Pattern     string
	Frequency   float64
	MaxLifetime float64
	Interval    time.Duration
	Process     *proctable.Handle
	Age         time.Duration
	Running     bool
}

func (e *Entry) Info() EntryInfo {
	running := e.Running()
	e.mu.Lock()
	defer e.mu.Unlock()
	info := EntryInfo{
		ID:          e.id,
		Pattern:     e.pattern,
		Frequency:   e.frequency,
		MaxLifetime: e.maxLifetime,
		Interval:    IntervalFor(e.frequency),
		Running:     running,
	}
	if e.bound != nil {
		h := *e.bound
		info.Process = &h
		info.Age = h.Age(e.now())
	}
	return info
}

func (e *Entry) run() {
	defer e.finish()
	e.log.Debug("watch loop started")
	for {
		started := time.Now()
		e.cycle(e.ctx)
		if !e.wait(started) {
			e.log.Debug("watch loop stopped")
			return
		}
	}
}

// wait blocks until the interval measured from started has passed. It
// returns false when the entry was stopped.
func (e *Entry) wait(started time.Time) bool {
	for {
		d := time.Until(started.Add(e.Interval()))
		if d <= 0 {
			return e.ctx.Err() == nil
		}
		timer := time.NewTimer(d)
		select {
		case <-e.ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
			return true
		case <-e.wake:
			timer.Stop()
			if e.exitPending() {
				return true
			}
		}
	}
}

func (e *Entry) poke() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Entry) finish() {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.mu.Unlock()
	close(e.done)
}

// cycle runs one resolve, age and kill pass. Only the loop calls it.
func (e *Entry) cycle(ctx context.Context) {
	snapshot, err := e.table.Enumerate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.log.Warn("process snapshot failed", zap.Error(err))
		e.emit(Event{Kind: EventSnapshotFailed, Err: err})
		return
	}

	if _, ok := e.Bound(); !ok {
		e.resolve(snapshot)
	}

	h, ok := e.Bound()
	if !ok {
		return
	}
	current, present := e.refresh(snapshot, h)
	if !present || e.exitPending() {
		if e.unbind(h) {
			e.log.Info("bound process exited", zap.Int("pid", h.PID), zap.String("name", h.Name))
			e.emit(Event{Kind: EventExited, Process: h})
		}
		return
	}
	h = current

	if h.Age(e.now()).Seconds() <= e.MaxLifetime() {
		return
	}
	if ctx.Err() != nil {
		return
	}
	err = e.table.Terminate(ctx, h)
	switch {
	case err == nil:
		e.markTerminated(h)
		if e.unbind(h) {
			e.log.Info("process killed after exceeding max lifetime",
				zap.Int("pid", h.PID), zap.String("name", h.Name), zap.Duration("age", h.Age(e.now())))
			e.emit(Event{Kind: EventKilled, Process: h})
		}
	case errors.Is(err, proctable.ErrNotFound):
		e.markTerminated(h)
		if e.unbind(h) {
			e.log.Info("bound process vanished before kill", zap.Int("pid", h.PID), zap.String("name", h.Name))
			e.emit(Event{Kind: EventExited, Process: h})
		}
	default:
		e.log.Warn("kill failed, will retry next cycle", zap.Int("pid", h.PID), zap.Error(err))
		e.emit(Event{Kind: EventKillFailed, Process: h, Err: err})
	}
}

// resolve binds the single process whose name matches the pattern. Zero or
// several matches leave the entry unbound until a later cycle. The process
// this entry last killed is not counted.
func (e *Entry) resolve(snapshot []proctable.Handle) {
	e.mu.Lock()
	var terminated proctable.Handle
	if e.terminated != nil {
		terminated = *e.terminated
	}
	e.mu.Unlock()

	var match proctable.Handle
	n := 0
	for _, h := range snapshot {
		if !e.re.MatchString(h.Name) {
			continue
		}
		if terminated.PID != 0 && terminated.Same(h) {
			continue
		}
		match = h
		n++
	}
	if n != 1 {
		if n > 1 {
			e.log.Debug("pattern is ambiguous", zap.Int("matches", n))
		}
		return
	}

	e.mu.Lock()
	ok := e.bound == nil && e.bindLocked(match)
	e.mu.Unlock()
	if !ok {
		return
	}
	e.log.Info("process bound automatically", zap.Int("pid", match.PID), zap.String("name", match.Name))
	e.emit(Event{Kind: EventBound, Process: match})
}

// bindLocked claims h for this entry and subscribes to its exit once.
func (e *Entry) bindLocked(h proctable.Handle) bool {
	if e.claims != nil && !e.claims.claim(h.PID, e.id) {
		e.log.Debug("process already claimed by another entry", zap.Int("pid", h.PID))
		return false
	}
	e.gen++
	gen := e.gen
	e.bound = &h
	e.unsubscribe = e.table.Subscribe(h, func() {
		e.exitedGen.Store(gen)
		e.poke()
	})
	return true
}

// unbind clears the binding if it still refers to h.
func (e *Entry) unbind(h proctable.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bound == nil || e.bound.PID != h.PID {
		return false
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	if e.claims != nil {
		e.claims.release(h.PID, e.id)
	}
	e.bound = nil
	return true
}

// refresh checks that the bound process is still in the snapshot. A handle
// supplied without a start time adopts the one from the snapshot.
func (e *Entry) refresh(snapshot []proctable.Handle, h proctable.Handle) (proctable.Handle, bool) {
	cur, ok := proctable.Find(snapshot, h.PID)
	if !ok {
		return h, false
	}
	if h.StartTime.IsZero() {
		e.mu.Lock()
		if e.bound != nil && e.bound.PID == cur.PID {
			e.bound.StartTime = cur.StartTime
		}
		e.mu.Unlock()
		h.StartTime = cur.StartTime
		return h, true
	}
	return h, cur.Same(h)
}

func (e *Entry) markTerminated(h proctable.Handle) {
	e.mu.Lock()
	e.terminated = &h
	e.mu.Unlock()
}

func (e *Entry) exitPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bound != nil && e.exitedGen.Load() == e.gen
}

func (e *Entry) emit(ev Event) {
	if e.observe == nil {
		return
	}
	ev.Pattern = e.pattern
	ev.Entry = e.ID()
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	e.observe(ev)
}

// attach registers the entry with a claim table under id. The current
// binding, if any, must be claimable.
func (e *Entry) attach(c claimer, id EntryID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.claims != nil {
		return errors.New("entry already registered")
	}
	if e.bound != nil && !c.claim(e.bound.PID, id) {
		return fmt.Errorf("%w: pid %d", ErrDuplicatePID, e.bound.PID)
	}
	e.claims = c
	e.id = id
	return nil
}

func (e *Entry) detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.claims == nil {
		return
	}
	if e.bound != nil {
		e.claims.release(e.bound.PID, e.id)
	}
	e.claims = nil
}
