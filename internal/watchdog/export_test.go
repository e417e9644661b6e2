package watchdog

import "procwatch/internal/proctable"

// newManual builds an entry without its check loop. Cycles are driven by the
// caller; Stop still closes Done.
func newManual(pattern string, freq, life float64, table proctable.Table, opts ...Option) (*Entry, error) {
	e, err := newEntry(pattern, freq, life, table, opts...)
	if err != nil {
		return nil, err
	}
	go func() {
		<-e.ctx.Done()
		e.finish()
	}()
	return e, nil
}
