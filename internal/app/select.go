package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"procwatch/internal/watchdog"
)

// Select resolves sel to exactly one entry.
func (a *App) Select(ctx context.Context, sel Selector) (Entry, error) {
	e, err := a.lookup(sel)
	if err != nil {
		return Entry{}, err
	}
	return entryFromInfo(e.Info()), nil
}

func (a *App) lookup(sel Selector) (*watchdog.Entry, error) {
	switch {
	case sel.empty():
		return nil, fmt.Errorf("%w: empty selector", ErrInvalidInput)
	case sel.ID > 0:
		if e, ok := a.reg.Get(watchdog.EntryID(sel.ID)); ok {
			return e, nil
		}
	case sel.PID > 0:
		if e, ok := a.reg.FindByPid(sel.PID); ok {
			return e, nil
		}
	default:
		pattern := strings.TrimSpace(sel.Pattern)
		if e, ok := a.reg.FindBySearchPattern(pattern); ok {
			return e, nil
		}
		found, err := a.reg.FindByPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if len(found) > 1 {
			ids := make([]string, 0, len(found))
			for _, e := range found {
				ids = append(ids, fmt.Sprintf("#%d", e.ID()))
			}
			return nil, fmt.Errorf("%w: %s matches %s", ErrAmbiguous, sel, strings.Join(ids, ", "))
		}
		if len(found) == 1 {
			return found[0], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoEntry, sel)
}

// Configure updates frequency and max lifetime. Both values are validated
// before either is applied.
func (a *App) Configure(ctx context.Context, params ConfigureParams) (Entry, error) {
	if params.Frequency == nil && params.MaxLifetime == nil {
		return Entry{}, fmt.Errorf("%w: nothing to change", ErrInvalidInput)
	}
	if params.Frequency != nil && !positive(*params.Frequency) {
		return Entry{}, fmt.Errorf("%w: %w: %v", ErrInvalidInput, watchdog.ErrInvalidFrequency, *params.Frequency)
	}
	if params.MaxLifetime != nil && !positive(*params.MaxLifetime) {
		return Entry{}, fmt.Errorf("%w: %w: %v", ErrInvalidInput, watchdog.ErrInvalidLifetime, *params.MaxLifetime)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	e, err := a.lookup(params.Selector)
	if err != nil {
		return Entry{}, err
	}
	if params.Frequency != nil {
		if err := e.SetFrequency(*params.Frequency); err != nil {
			return Entry{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	if params.MaxLifetime != nil {
		if err := e.SetMaxLifetime(*params.MaxLifetime); err != nil {
			return Entry{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	info := e.Info()
	a.log.Info("watch entry updated",
		zap.Uint64("entry", uint64(info.ID)),
		zap.Float64("frequency", info.Frequency),
		zap.Float64("max_lifetime", info.MaxLifetime))
	return entryFromInfo(info), nil
}
