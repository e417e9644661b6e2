package proctable

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

const defaultExitPollInterval = time.Second

// System is the Table backed by the host process table.
type System struct {
	exitPoll time.Duration
	ownPID   int
	log      *zap.Logger
}

// NewSystem returns a Table over the host OS. exitPoll controls how often
// exit subscriptions re-check their process; non-positive means one second.
func NewSystem(exitPoll time.Duration, log *zap.Logger) *System {
	if exitPoll <= 0 {
		exitPoll = defaultExitPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &System{
		exitPoll: exitPoll,
		ownPID:   os.Getpid(),
		log:      log,
	}
}

// Enumerate lists every process whose name and start time can be read.
// Processes that vanish while being inspected are skipped, and so are zombies:
// they keep their PID and start time until reaped but are already dead.
func (s *System) Enumerate(ctx context.Context) ([]Handle, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	out := make([]Handle, 0, len(procs))
	for _, p := range procs {
		if int(p.Pid) == s.ownPID {
			continue
		}
		if zombie(ctx, p) {
			continue
		}
		h, err := inspect(ctx, p)
		if err != nil {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

// Terminate sends SIGKILL (TerminateProcess on Windows) to h after checking it
// is still the same process instance.
func (s *System) Terminate(ctx context.Context, h Handle) error {
	p, err := process.NewProcessWithContext(ctx, int32(h.PID))
	if err != nil {
		return fmt.Errorf("pid %d: %w", h.PID, ErrNotFound)
	}
	if !h.StartTime.IsZero() {
		if created, err := p.CreateTimeWithContext(ctx); err == nil && !time.UnixMilli(created).Equal(h.StartTime) {
			return fmt.Errorf("pid %d was reused: %w", h.PID, ErrNotFound)
		}
	}
	if err := p.KillWithContext(ctx); err != nil {
		return s.classifyKillError(ctx, h, err)
	}
	return nil
}

func (s *System) classifyKillError(ctx context.Context, h Handle, err error) error {
	switch {
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("kill pid %d: %w: %v", h.PID, ErrPermission, err)
	case errors.Is(err, os.ErrProcessDone):
		return fmt.Errorf("kill pid %d: %w", h.PID, ErrNotFound)
	}
	if exists, existsErr := process.PidExistsWithContext(ctx, int32(h.PID)); existsErr == nil && !exists {
		return fmt.Errorf("kill pid %d: %w", h.PID, ErrNotFound)
	}
	return fmt.Errorf("kill pid %d: %w", h.PID, err)
}

// Subscribe polls h on its own goroutine and calls onExit once the process is
// gone or its PID now belongs to a different process.
func (s *System) Subscribe(h Handle, onExit func()) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(s.exitPoll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.alive(ctx, h) {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				s.log.Debug("subscribed process exited", zap.Int("pid", h.PID), zap.String("name", h.Name))
				onExit()
				return
			}
		}
	}()
	return cancel
}

func (s *System) alive(ctx context.Context, h Handle) bool {
	p, err := process.NewProcessWithContext(ctx, int32(h.PID))
	if err != nil {
		return false
	}
	if zombie(ctx, p) {
		return false
	}
	if h.StartTime.IsZero() {
		return true
	}
	created, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		// Unreadable is not the same as gone; let the next poll decide.
		return true
	}
	return time.UnixMilli(created).Equal(h.StartTime)
}

func zombie(ctx context.Context, p *process.Process) bool {
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		return false
	}
	for _, st := range status {
		if st == process.Zombie {
			return true
		}
	}
	return false
}

func inspect(ctx context.Context, p *process.Process) (Handle, error) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return Handle{}, err
	}
	created, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return Handle{}, err
	}
	cmdline, _ := p.CmdlineWithContext(ctx)
	return Handle{
		PID:       int(p.Pid),
		Name:      name,
		StartTime: time.UnixMilli(created),
		Cmdline:   cmdline,
	}, nil
}
