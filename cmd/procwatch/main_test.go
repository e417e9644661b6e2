package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"procwatch/internal/app"
	"procwatch/internal/remote"
)

type stubController struct {
	pingFunc      func(ctx context.Context) (remote.Status, error)
	addFunc       func(ctx context.Context, params app.AddParams) (app.AddResult, error)
	listFunc      func(ctx context.Context) ([]app.Entry, error)
	configureFunc func(ctx context.Context, params app.ConfigureParams) (app.Entry, error)
	removeFunc    func(ctx context.Context, sel app.Selector) (app.Entry, error)
}

func (s *stubController) Ping(ctx context.Context) (remote.Status, error) {
	if s.pingFunc != nil {
		return s.pingFunc(ctx)
	}
	return remote.Status{}, errors.New("ping not implemented")
}

func (s *stubController) Add(ctx context.Context, params app.AddParams) (app.AddResult, error) {
	if s.addFunc != nil {
		return s.addFunc(ctx, params)
	}
	panic("Add not implemented")
}

func (s *stubController) List(ctx context.Context) ([]app.Entry, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx)
	}
	panic("List not implemented")
}

func (s *stubController) Select(ctx context.Context, sel app.Selector) (app.Entry, error) {
	panic("Select not implemented")
}

func (s *stubController) Configure(ctx context.Context, params app.ConfigureParams) (app.Entry, error) {
	if s.configureFunc != nil {
		return s.configureFunc(ctx, params)
	}
	panic("Configure not implemented")
}

func (s *stubController) Remove(ctx context.Context, sel app.Selector) (app.Entry, error) {
	if s.removeFunc != nil {
		return s.removeFunc(ctx, sel)
	}
	panic("Remove not implemented")
}

func (s *stubController) Processes(ctx context.Context, pattern string) ([]app.Process, error) {
	panic("Processes not implemented")
}

func withController(t *testing.T, stub controllerAPI) {
	t.Helper()
	origFactory := controllerFactory
	controllerFactory = func() controllerAPI {
		return stub
	}
	t.Cleanup(func() {
		controllerFactory = origFactory
	})
}

func withOutput(t *testing.T, cmd *cobra.Command) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetContext(context.Background())
	t.Cleanup(func() { cmd.SetOut(nil) })
	return buf
}

func TestPingSuccess(t *testing.T) {
	withController(t, &stubController{
		pingFunc: func(ctx context.Context) (remote.Status, error) {
			return remote.Status{Version: "1.0.0", PID: 321, Entries: 2, StartedAt: time.Now()}, nil
		},
	})
	buf := withOutput(t, cmdPing)

	if err := cmdPing.RunE(cmdPing, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if got := buf.String(); got != "pong: procwatch 1.0.0 pid 321, 2 entries, up 0s\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPingError(t *testing.T) {
	withController(t, &stubController{
		pingFunc: func(ctx context.Context) (remote.Status, error) {
			return remote.Status{}, remote.ErrNotRunning
		},
	})
	withOutput(t, cmdPing)

	err := cmdPing.RunE(cmdPing, nil)
	if !errors.Is(err, remote.ErrNotRunning) {
		t.Fatalf("expected error %v, got %v", remote.ErrNotRunning, err)
	}
}

func TestListRendersTable(t *testing.T) {
	withController(t, &stubController{
		listFunc: func(ctx context.Context) ([]app.Entry, error) {
			return []app.Entry{
				{ID: 1, Pattern: "nginx", MaxLifetime: 600, Interval: time.Minute, Age: 90 * time.Second,
					Process: &app.Process{PID: 10, Name: "nginx"}},
				{ID: 2, Pattern: "redis", MaxLifetime: 3600, Interval: 30 * time.Second},
			}, nil
		},
	})
	buf := withOutput(t, cmdList)

	if err := cmdList.RunE(cmdList, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"#1", "nginx", "00:01:30", "00:08:30", "#2", "redis", "01:00:00", "30s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestListEmpty(t *testing.T) {
	withController(t, &stubController{
		listFunc: func(ctx context.Context) ([]app.Entry, error) { return nil, nil },
	})
	buf := withOutput(t, cmdList)

	if err := cmdList.RunE(cmdList, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if got := buf.String(); got != "No watch entries\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestAddShowsCandidates(t *testing.T) {
	withController(t, &stubController{
		addFunc: func(ctx context.Context, params app.AddParams) (app.AddResult, error) {
			if params.Target != "redis" || params.Force {
				t.Fatalf("unexpected params %+v", params)
			}
			return app.AddResult{
				Message: `2 processes match "redis"; narrow the pattern or use force`,
				Matches: []app.Process{{PID: 10, Name: "redis-server"}, {PID: 11, Name: "redis-sentinel"}},
			}, nil
		},
	})
	buf := withOutput(t, cmdAdd)

	if err := cmdAdd.RunE(cmdAdd, []string{"redis"}); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "2 processes match") || !strings.Contains(out, "redis-sentinel") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSetSendsOnlyChangedFlags(t *testing.T) {
	withController(t, &stubController{
		configureFunc: func(ctx context.Context, params app.ConfigureParams) (app.Entry, error) {
			if params.Selector.ID != 3 {
				t.Fatalf("unexpected selector %+v", params.Selector)
			}
			if params.MaxLifetime != nil {
				t.Fatalf("lifetime should not be sent")
			}
			if params.Frequency == nil || *params.Frequency != 6 {
				t.Fatalf("unexpected frequency %v", params.Frequency)
			}
			return app.Entry{ID: 3, Pattern: "nginx", Frequency: 6, Interval: 10 * time.Second, MaxLifetime: 60}, nil
		},
	})
	buf := withOutput(t, cmdSet)
	if err := cmdSet.Flags().Set("frequency", "6"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	t.Cleanup(func() {
		cmdSet.Flags().Lookup("frequency").Changed = false
		setFrequency = 0
	})

	if err := cmdSet.RunE(cmdSet, []string{"#3"}); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if got := buf.String(); got != "#3 nginx: 6 checks/min (every 10s), max lifetime 00:01:00\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestSetRequiresAChange(t *testing.T) {
	withController(t, &stubController{})
	withOutput(t, cmdSet)

	if err := cmdSet.RunE(cmdSet, []string{"#3"}); err == nil {
		t.Fatalf("expected error without flags")
	}
}

func TestRmParsesSelector(t *testing.T) {
	withController(t, &stubController{
		removeFunc: func(ctx context.Context, sel app.Selector) (app.Entry, error) {
			if sel.PID != 42 {
				t.Fatalf("expected pid selector, got %+v", sel)
			}
			return app.Entry{ID: 5, Pattern: "^worker$"}, nil
		},
	})
	buf := withOutput(t, cmdRm)

	if err := cmdRm.RunE(cmdRm, []string{"42"}); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if got := buf.String(); got != "Removed #5 (^worker$)\n" {
		t.Fatalf("unexpected output %q", got)
	}

	if err := cmdRm.RunE(cmdRm, []string{"#x"}); !errors.Is(err, app.ErrInvalidInput) {
		t.Fatalf("expected invalid selector error, got %v", err)
	}
}

func TestConfigPrintsYAML(t *testing.T) {
	buf := withOutput(t, cmdConfig)

	if err := cmdConfig.RunE(cmdConfig, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if !strings.Contains(buf.String(), "default_frequency: 1") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}
