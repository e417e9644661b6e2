package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// List returns every entry in insertion order.
func (a *App) List(ctx context.Context) ([]Entry, error) {
	entries := a.reg.Entries()
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryFromInfo(e.Info()))
	}
	return out, nil
}

// Processes lists the live process table, optionally filtered by a
// case-insensitive pattern over the process name.
func (a *App) Processes(ctx context.Context, pattern string) ([]Process, error) {
	var re *regexp.Regexp
	if p := strings.TrimSpace(pattern); p != "" {
		var err error
		re, err = regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	snap, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Process, 0, len(snap))
	for _, h := range snap {
		if re != nil && !re.MatchString(h.Name) {
			continue
		}
		out = append(out, a.describe(h))
	}
	return out, nil
}
