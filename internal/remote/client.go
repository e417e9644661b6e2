// Package remote implements app.Controller by forwarding every call to the
// daemon over its UNIX socket.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	watchdogv1 "procwatch/api/watchdog/v1"
	"procwatch/internal/app"
	"procwatch/internal/daemon"
)

// DefaultTimeout bounds a single round trip to the daemon.
const DefaultTimeout = 5 * time.Second

var (
	daemonIsRunning  = daemon.IsRunning
	dialDaemonClient = dialSocket
)

func dialSocket(ctx context.Context) (watchdogv1.WatchdogClient, io.Closer, error) {
	client, conn, err := daemon.Dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	return client, conn, nil
}

func resetDaemonDeps() {
	daemonIsRunning = daemon.IsRunning
	dialDaemonClient = dialSocket
}

// ErrNotRunning is returned when no daemon answers on the socket.
var ErrNotRunning = errors.New("daemon is not running")

// Client talks to a running daemon.
type Client struct {
	Timeout time.Duration
}

var _ app.Controller = (*Client)(nil)

// New returns a client using timeout per call, or DefaultTimeout when
// timeout is not positive.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{Timeout: timeout}
}

func (c *Client) withClient(ctx context.Context, fn func(context.Context, watchdogv1.WatchdogClient) error) error {
	if c.Timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	if !daemonIsRunning() {
		return ErrNotRunning
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	client, conn, err := dialDaemonClient(ctx)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	if conn != nil {
		defer conn.Close()
	}

	return daemon.FromStatus(fn(ctx, client))
}

// Status is what the daemon reports about itself.
type Status struct {
	Version   string
	PID       int
	Entries   int
	StartedAt time.Time
}

// Ping checks that the daemon answers and returns its status.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	var st Status
	err := c.withClient(ctx, func(ctx context.Context, client watchdogv1.WatchdogClient) error {
		resp, err := client.Ping(ctx, &watchdogv1.PingRequest{})
		if err != nil {
			return err
		}
		st = Status{Version: resp.Version, PID: resp.PID, Entries: resp.Entries, StartedAt: resp.StartedAt}
		return nil
	})
	return st, err
}

func (c *Client) Add(ctx context.Context, p app.AddParams) (app.AddResult, error) {
	var res app.AddResult
	err := c.withClient(ctx, func(ctx context.Context, client watchdogv1.WatchdogClient) error {
		resp, err := client.Add(ctx, &watchdogv1.AddRequest{
			Target:             p.Target,
			Frequency:          p.Frequency,
			MaxLifetimeSeconds: p.MaxLifetime,
			Force:              p.Force,
		})
		if err != nil {
			return err
		}
		res = app.AddResult{
			Added:   resp.Added,
			Matches: daemon.ProcessesFromAPI(resp.Matches),
			Message: resp.Message,
		}
		if resp.Entry != nil {
			res.Entry = daemon.EntryFromAPI(*resp.Entry)
		}
		return nil
	})
	return res, err
}

func (c *Client) List(ctx context.Context) ([]app.Entry, error) {
	var out []app.Entry
	err := c.withClient(ctx, func(ctx context.Context, client watchdogv1.WatchdogClient) error {
		resp, err := client.List(ctx, &watchdogv1.ListRequest{})
		if err != nil {
			return err
		}
		out = make([]app.Entry, 0, len(resp.Entries))
		for _, e := range resp.Entries {
			out = append(out, daemon.EntryFromAPI(e))
		}
		return nil
	})
	return out, err
}

func (c *Client) Select(ctx context.Context, sel app.Selector) (app.Entry, error) {
	return c.entryCall(ctx, func(ctx context.Context, client watchdogv1.WatchdogClient) (*watchdogv1.EntryResponse, error) {
		return client.Select(ctx, &watchdogv1.SelectRequest{Selector: daemon.SelectorToAPI(sel)})
	})
}

func (c *Client) Configure(ctx context.Context, p app.ConfigureParams) (app.Entry, error) {
	return c.entryCall(ctx, func(ctx context.Context, client watchdogv1.WatchdogClient) (*watchdogv1.EntryResponse, error) {
		return client.Configure(ctx, &watchdogv1.ConfigureRequest{
			Selector:           daemon.SelectorToAPI(p.Selector),
			Frequency:          p.Frequency,
			MaxLifetimeSeconds: p.MaxLifetime,
		})
	})
}

func (c *Client) Remove(ctx context.Context, sel app.Selector) (app.Entry, error) {
	return c.entryCall(ctx, func(ctx context.Context, client watchdogv1.WatchdogClient) (*watchdogv1.EntryResponse, error) {
		return client.Remove(ctx, &watchdogv1.SelectRequest{Selector: daemon.SelectorToAPI(sel)})
	})
}

func (c *Client) Processes(ctx context.Context, pattern string) ([]app.Process, error) {
	var out []app.Process
	err := c.withClient(ctx, func(ctx context.Context, client watchdogv1.WatchdogClient) error {
		resp, err := client.Processes(ctx, &watchdogv1.ProcessesRequest{Pattern: pattern})
		if err != nil {
			return err
		}
		out = daemon.ProcessesFromAPI(resp.Processes)
		return nil
	})
	return out, err
}

func (c *Client) entryCall(ctx context.Context, call func(context.Context, watchdogv1.WatchdogClient) (*watchdogv1.EntryResponse, error)) (app.Entry, error) {
	var out app.Entry
	err := c.withClient(ctx, func(ctx context.Context, client watchdogv1.WatchdogClient) error {
		resp, err := call(ctx, client)
		if err != nil {
			return err
		}
		out = daemon.EntryFromAPI(resp.Entry)
		return nil
	})
	return out, err
}

// Events follows the daemon's watchdog events until ctx ends or the daemon
// goes away, then closes the channel. Only connecting is bounded by Timeout.
func (c *Client) Events(ctx context.Context) (<-chan app.Event, error) {
	if c.Timeout <= 0 {
		return nil, errors.New("timeout must be greater than 0")
	}
	if !daemonIsRunning() {
		return nil, ErrNotRunning
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	client, conn, err := dialDaemonClient(dialCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	stream, err := client.Events(ctx, &watchdogv1.EventsRequest{})
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, daemon.FromStatus(err)
	}

	out := make(chan app.Event, 16)
	go func() {
		defer close(out)
		if conn != nil {
			defer conn.Close()
		}
		for {
			ev, err := stream.Recv()
			if err != nil {
				return
			}
			select {
			case out <- daemon.EventFromAPI(*ev):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
