package daemon

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	watchdogv1 "procwatch/api/watchdog/v1"
	"procwatch/internal/app"
)

// service implements the Watchdog gRPC service on top of a controller.
type service struct {
	watchdogv1.UnimplementedWatchdogServer

	ctrl    app.Controller
	version string
	started time.Time

	closing   chan struct{}
	closeOnce sync.Once
}

// eventSource is implemented by controllers that can fan events out to
// stream subscribers.
type eventSource interface {
	Subscribe(buffer int) (<-chan app.Event, func())
}

const streamBuffer = 64

func newService(ctrl app.Controller, version string) *service {
	return &service{ctrl: ctrl, version: version, started: time.Now(), closing: make(chan struct{})}
}

// shutdown ends every open event stream.
func (s *service) shutdown() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func (s *service) Ping(ctx context.Context, _ *watchdogv1.PingRequest) (*watchdogv1.PingResponse, error) {
	entries, err := s.ctrl.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &watchdogv1.PingResponse{
		Version:   s.version,
		PID:       os.Getpid(),
		Entries:   len(entries),
		StartedAt: s.started,
	}, nil
}

func (s *service) List(ctx context.Context, _ *watchdogv1.ListRequest) (*watchdogv1.ListResponse, error) {
	entries, err := s.ctrl.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &watchdogv1.ListResponse{Entries: make([]watchdogv1.Entry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, EntryToAPI(e))
	}
	return resp, nil
}

func (s *service) Add(ctx context.Context, req *watchdogv1.AddRequest) (*watchdogv1.AddResponse, error) {
	res, err := s.ctrl.Add(ctx, app.AddParams{
		Target:      req.Target,
		Frequency:   req.Frequency,
		MaxLifetime: req.MaxLifetimeSeconds,
		Force:       req.Force,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &watchdogv1.AddResponse{
		Added:   res.Added,
		Matches: ProcessesToAPI(res.Matches),
		Message: res.Message,
	}
	if res.Added {
		e := EntryToAPI(res.Entry)
		resp.Entry = &e
	}
	return resp, nil
}

func (s *service) Select(ctx context.Context, req *watchdogv1.SelectRequest) (*watchdogv1.EntryResponse, error) {
	e, err := s.ctrl.Select(ctx, SelectorFromAPI(req.Selector))
	if err != nil {
		return nil, toStatus(err)
	}
	return &watchdogv1.EntryResponse{Entry: EntryToAPI(e)}, nil
}

func (s *service) Configure(ctx context.Context, req *watchdogv1.ConfigureRequest) (*watchdogv1.EntryResponse, error) {
	e, err := s.ctrl.Configure(ctx, app.ConfigureParams{
		Selector:    SelectorFromAPI(req.Selector),
		Frequency:   req.Frequency,
		MaxLifetime: req.MaxLifetimeSeconds,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &watchdogv1.EntryResponse{Entry: EntryToAPI(e)}, nil
}

func (s *service) Remove(ctx context.Context, req *watchdogv1.SelectRequest) (*watchdogv1.EntryResponse, error) {
	e, err := s.ctrl.Remove(ctx, SelectorFromAPI(req.Selector))
	if err != nil {
		return nil, toStatus(err)
	}
	return &watchdogv1.EntryResponse{Entry: EntryToAPI(e)}, nil
}

func (s *service) Processes(ctx context.Context, req *watchdogv1.ProcessesRequest) (*watchdogv1.ProcessesResponse, error) {
	ps, err := s.ctrl.Processes(ctx, req.Pattern)
	if err != nil {
		return nil, toStatus(err)
	}
	return &watchdogv1.ProcessesResponse{Processes: ProcessesToAPI(ps)}, nil
}

func (s *service) Events(_ *watchdogv1.EventsRequest, stream watchdogv1.Watchdog_EventsServer) error {
	src, ok := s.ctrl.(eventSource)
	if !ok {
		return status.Error(codes.Unimplemented, "controller does not publish events")
	}
	events, cancel := src.Subscribe(streamBuffer)
	defer cancel()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.closing:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			msg := EventToAPI(ev)
			if err := stream.Send(&msg); err != nil {
				return err
			}
		}
	}
}

// toStatus maps controller errors onto gRPC codes. FromStatus reverses it.
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, app.ErrAlreadyWatched):
		code = codes.AlreadyExists
	case errors.Is(err, app.ErrNoEntry), errors.Is(err, app.ErrProcessNotFound):
		code = codes.NotFound
	case errors.Is(err, app.ErrAmbiguous):
		code = codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}

type statusError struct {
	sentinel error
	msg      string
}

func (e *statusError) Error() string { return e.msg }

func (e *statusError) Unwrap() error { return e.sentinel }

// FromStatus turns a daemon error back into one that matches the app
// sentinels with errors.Is. Other errors are returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.InvalidArgument:
		sentinel = app.ErrInvalidInput
	case codes.AlreadyExists:
		sentinel = app.ErrAlreadyWatched
	case codes.NotFound:
		sentinel = app.ErrNoEntry
		if strings.HasPrefix(st.Message(), app.ErrProcessNotFound.Error()) {
			sentinel = app.ErrProcessNotFound
		}
	case codes.FailedPrecondition:
		sentinel = app.ErrAmbiguous
	default:
		return err
	}
	return &statusError{sentinel: sentinel, msg: st.Message()}
}
