package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Remove stops and unregisters the selected entry. The watched process is
// left running.
func (a *App) Remove(ctx context.Context, sel Selector) (Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, err := a.lookup(sel)
	if err != nil {
		return Entry{}, err
	}
	removed := entryFromInfo(e.Info())
	if !a.reg.Remove(e) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNoEntry, sel)
	}
	removed.Running = false
	a.log.Info("watch entry removed", zap.Uint64("entry", removed.ID), zap.String("pattern", removed.Pattern))
	return removed, nil
}
