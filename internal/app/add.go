package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"procwatch/internal/proctable"
	"procwatch/internal/watchdog"
)

// Add registers a watch target. A numeric target must be a live, unwatched
// pid; its entry then searches for the exact process name. Any other target
// is a pattern that binds when it matches exactly one process.
func (a *App) Add(ctx context.Context, params AddParams) (AddResult, error) {
	var result AddResult

	target := strings.TrimSpace(params.Target)
	if target == "" {
		return result, fmt.Errorf("%w: target must not be empty", ErrInvalidInput)
	}
	freq, life := params.Frequency, params.MaxLifetime
	if freq <= 0 {
		freq = a.defFreq
	}
	if life <= 0 {
		life = a.defLife
	}
	if !positive(freq) {
		return result, fmt.Errorf("%w: %w: %v", ErrInvalidInput, watchdog.ErrInvalidFrequency, freq)
	}
	if !positive(life) {
		return result, fmt.Errorf("%w: %w: %v", ErrInvalidInput, watchdog.ErrInvalidLifetime, life)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	snap, err := a.snapshot(ctx)
	if err != nil {
		return result, err
	}

	if pid, ok := parsePID(target); ok {
		return a.addPID(pid, snap, freq, life)
	}

	re, err := regexp.Compile(target)
	if err != nil {
		return result, fmt.Errorf("%w: %w: %v", ErrInvalidInput, watchdog.ErrInvalidPattern, err)
	}
	if e, ok := a.reg.FindBySearchPattern(target); ok {
		return result, fmt.Errorf("%w: pattern %q is entry #%d", ErrAlreadyWatched, target, e.ID())
	}

	var matches []proctable.Handle
	for _, h := range snap {
		if re.MatchString(h.Name) {
			matches = append(matches, h)
		}
	}
	for _, h := range matches {
		result.Matches = append(result.Matches, a.describe(h))
	}

	var opts []watchdog.Option
	switch {
	case len(matches) == 1:
		h := matches[0]
		if owner, ok := a.reg.FindByPid(h.PID); ok {
			return result, fmt.Errorf("%w: pid %d is entry #%d", ErrAlreadyWatched, h.PID, owner.ID())
		}
		opts = append(opts, watchdog.WithProcess(h))
	case !params.Force && len(matches) == 0:
		result.Message = fmt.Sprintf("No process matches %q; use force to watch it anyway", target)
		return result, nil
	case !params.Force:
		result.Message = fmt.Sprintf("%d processes match %q; narrow the pattern or use force", len(matches), target)
		return result, nil
	}

	entry, err := a.register(target, freq, life, opts...)
	if err != nil {
		return result, err
	}
	result.Added = true
	result.Entry = entry
	if entry.Process != nil {
		result.Message = fmt.Sprintf("Watching %s [%d] as #%d", entry.Process.Name, entry.Process.PID, entry.ID)
	} else {
		result.Message = fmt.Sprintf("Watching %q as #%d; waiting for a single match", target, entry.ID)
	}
	return result, nil
}

func (a *App) addPID(pid int, snap []proctable.Handle, freq, life float64) (AddResult, error) {
	var result AddResult
	h, ok := proctable.Find(snap, pid)
	if !ok {
		return result, fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	}
	if owner, ok := a.reg.FindByPid(pid); ok {
		return result, fmt.Errorf("%w: pid %d is entry #%d", ErrAlreadyWatched, pid, owner.ID())
	}
	pattern := "^" + regexp.QuoteMeta(h.Name) + "$"
	entry, err := a.register(pattern, freq, life, watchdog.WithProcess(h))
	if err != nil {
		return result, err
	}
	result.Added = true
	result.Entry = entry
	result.Matches = []Process{processFromHandle(h)}
	result.Message = fmt.Sprintf("Watching %s [%d] as #%d", h.Name, h.PID, entry.ID)
	return result, nil
}

func (a *App) register(pattern string, freq, life float64, opts ...watchdog.Option) (Entry, error) {
	e, err := a.newEntry(pattern, freq, life, opts...)
	if err != nil {
		return Entry{}, err
	}
	if _, err := a.reg.Add(e); err != nil {
		e.Stop()
		if errors.Is(err, watchdog.ErrDuplicatePID) {
			return Entry{}, fmt.Errorf("%w: %v", ErrAlreadyWatched, err)
		}
		return Entry{}, err
	}
	a.log.Info("watch entry added",
		zap.Uint64("entry", uint64(e.ID())),
		zap.String("pattern", pattern),
		zap.Float64("frequency", freq),
		zap.Float64("max_lifetime", life))
	return entryFromInfo(e.Info()), nil
}

func (a *App) describe(h proctable.Handle) Process {
	p := processFromHandle(h)
	if e, ok := a.reg.FindByPid(h.PID); ok {
		p.WatchedBy = uint64(e.ID())
	}
	return p
}
