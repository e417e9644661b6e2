package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func addAll(t *testing.T, app *App, targets ...string) {
	t.Helper()
	for _, target := range targets {
		if _, err := app.Add(context.Background(), AddParams{Target: target, Force: true}); err != nil {
			t.Fatalf("add %s: %v", target, err)
		}
	}
}

func TestSelect(t *testing.T) {
	app, table := newTestApp(t)
	table.Add(10, "nginx", t0)
	addAll(t, app, "nginx", "redis-server", "redis-sentinel")

	cases := []struct {
		name string
		sel  Selector
		want uint64
		err  error
	}{
		{"by id", Selector{ID: 2}, 2, nil},
		{"by pid", Selector{PID: 10}, 1, nil},
		{"exact pattern wins", Selector{Pattern: "redis-server"}, 2, nil},
		{"by bound name", Selector{Pattern: "NGINX"}, 1, nil},
		{"ambiguous", Selector{Pattern: "redis"}, 0, ErrAmbiguous},
		{"unknown id", Selector{ID: 9}, 0, ErrNoEntry},
		{"unbound pid", Selector{PID: 99}, 0, ErrNoEntry},
		{"no match", Selector{Pattern: "mysql"}, 0, ErrNoEntry},
		{"bad pattern", Selector{Pattern: "("}, 0, ErrInvalidInput},
		{"empty", Selector{}, 0, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := app.Select(context.Background(), tc.sel)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tc.want {
				t.Fatalf("expected entry #%d, got #%d", tc.want, got.ID)
			}
		})
	}
}

func TestConfigure(t *testing.T) {
	app, _ := newTestApp(t)
	addAll(t, app, "redis")

	freq, life := 2.0, 90.0
	got, err := app.Configure(context.Background(), ConfigureParams{
		Selector:    Selector{ID: 1},
		Frequency:   &freq,
		MaxLifetime: &life,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Frequency != 2 || got.MaxLifetime != 90 || got.Interval != 30*time.Second {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestConfigureRejectsWithoutPartialUpdate(t *testing.T) {
	app, _ := newTestApp(t)
	addAll(t, app, "redis")

	freq, life := 5.0, 0.0
	_, err := app.Configure(context.Background(), ConfigureParams{
		Selector:    Selector{ID: 1},
		Frequency:   &freq,
		MaxLifetime: &life,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	got, err := app.Select(context.Background(), Selector{ID: 1})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Frequency != 0.01 {
		t.Fatalf("frequency must be unchanged, got %v", got.Frequency)
	}

	if _, err := app.Configure(context.Background(), ConfigureParams{Selector: Selector{ID: 1}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected nothing-to-change error, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	app, table := newTestApp(t)
	table.Add(10, "nginx", t0)
	addAll(t, app, "nginx", "redis")

	removed, err := app.Remove(context.Background(), Selector{PID: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed.ID != 1 || removed.Running {
		t.Fatalf("unexpected removed entry: %+v", removed)
	}
	if len(table.Kills()) != 0 {
		t.Fatal("removing an entry must not kill its process")
	}

	if _, err := app.Select(context.Background(), Selector{PID: 10}); !errors.Is(err, ErrNoEntry) {
		t.Fatalf("expected removed entry to be gone, got %v", err)
	}
	if _, err := app.Remove(context.Background(), Selector{ID: 1}); !errors.Is(err, ErrNoEntry) {
		t.Fatalf("expected second remove to fail, got %v", err)
	}
	entries, _ := app.List(context.Background())
	if len(entries) != 1 || entries[0].Pattern != "redis" {
		t.Fatalf("unexpected remaining entries: %+v", entries)
	}
}
