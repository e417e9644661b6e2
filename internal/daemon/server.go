package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	watchdogv1 "procwatch/api/watchdog/v1"
	"procwatch/internal/app"
	"procwatch/internal/config"
	"procwatch/internal/metrics"
	"procwatch/internal/proctable"
)

const shutdownTimeout = 5 * time.Second

// Options configures StartDaemon.
type Options struct {
	Config  config.Config
	Logger  *zap.Logger
	Version string
	// Table defaults to the host process table.
	Table proctable.Table
}

// Server owns the control socket, the optional metrics listener and the
// watchdog state behind them.
type Server struct {
	ln      net.Listener
	path    string
	grpc    *grpc.Server
	svc     *service
	http    *http.Server
	app     *app.App
	metrics *metrics.Collector
	log     *zap.Logger

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// StartDaemon builds the watchdog, registers the configured targets and starts
// serving on the UNIX socket.
func StartDaemon(opts Options) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config
	table := opts.Table
	if table == nil {
		table = proctable.NewSystem(cfg.ExitPollInterval, log.Named("proctable"))
	}

	if err := EnsureRuntimeDir(); err != nil {
		return nil, fmt.Errorf("create runtime dir: %w", err)
	}
	path := SocketPath()
	if _, err := os.Stat(path); err == nil {
		if IsRunning() {
			return nil, fmt.Errorf("daemon already running on %s", path)
		}
		// stale socket from a crashed daemon
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}

	collector := metrics.New()
	a, err := app.New(app.Options{
		Table:              table,
		Logger:             log.Named("watchdog"),
		Observer:           collector.Observe,
		DefaultFrequency:   cfg.DefaultFrequency,
		DefaultMaxLifetime: cfg.DefaultMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	collector.TrackRegistry(a.Counts)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, err
	}

	s := &Server{
		ln:      ln,
		path:    path,
		grpc:    grpc.NewServer(),
		app:     a,
		metrics: collector,
		log:     log,
		done:    make(chan struct{}),
	}
	s.svc = newService(a, opts.Version)
	watchdogv1.RegisterWatchdogServer(s.grpc, s.svc)

	if err := WritePID(os.Getpid()); err != nil {
		s.Close()
		return nil, err
	}
	if cfg.MetricsAddr != "" {
		if err := s.startHTTP(cfg.MetricsAddr); err != nil {
			s.Close()
			return nil, err
		}
	}

	go func() {
		if err := s.grpc.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.log.Error("control socket stopped", zap.Error(err))
		}
	}()

	s.registerTargets(cfg.Targets)
	s.log.Info("daemon started", zap.String("socket", path), zap.Int("pid", os.Getpid()))
	return s, nil
}

func (s *Server) registerTargets(targets []config.Target) {
	for _, t := range targets {
		res, err := s.app.Add(context.Background(), app.AddParams{
			Target:      t.Pattern,
			Frequency:   t.Frequency,
			MaxLifetime: t.MaxLifetime,
			Force:       true,
		})
		if err != nil {
			s.log.Warn("configured target rejected", zap.String("pattern", t.Pattern), zap.Error(err))
			continue
		}
		s.log.Info(res.Message)
	}
}

func (s *Server) startHTTP(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	s.http = &http.Server{
		Handler:      newHTTPHandler(s.metrics, s.app),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		s.log.Info("metrics server listening", zap.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server error", zap.Error(err))
		}
	}()
	return nil
}

// App returns the controller the daemon serves.
func (s *Server) App() *app.App {
	return s.app
}

// Done is closed once Close has finished.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Close stops serving, stops every watch loop and unlinks the socket and
// pid file. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.close()
		close(s.done)
	})
	return s.closeErr
}

func (s *Server) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	// Event streams never finish on their own; end them so GracefulStop can.
	s.svc.shutdown()
	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpc.Stop()
	}
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if err := s.app.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	if err := RemovePID(); err != nil {
		errs = append(errs, err)
	}
	s.log.Info("daemon stopped")
	return errors.Join(errs...)
}

// StopRunningDaemon sends a termination signal to the currently running daemon if any.
func StopRunningDaemon(force bool) error {
	pid, err := RunningPID()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if IsRunning() {
				return fmt.Errorf("daemon is running but PID file %q is missing; stop it manually", PIDPath())
			}
			return nil
		}
		return fmt.Errorf("unable to read daemon PID: %w", err)
	}
	if pid == os.Getpid() {
		return errors.New("refusing to stop current process")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := sendSignal(proc, syscall.SIGTERM); err != nil {
		return err
	}
	if waitForShutdown(3 * time.Second) {
		return nil
	}
	if !force {
		return fmt.Errorf("daemon process %d did not exit after SIGTERM", pid)
	}
	if err := sendSignal(proc, syscall.SIGKILL); err != nil {
		return err
	}
	if waitForShutdown(2 * time.Second) {
		return nil
	}
	return fmt.Errorf("daemon process %d did not exit after SIGKILL", pid)
}

func sendSignal(proc *os.Process, sig syscall.Signal) error {
	if err := proc.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = RemovePID()
			return nil
		}
		return err
	}
	return nil
}

func waitForShutdown(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !IsRunning() {
			_ = RemovePID()
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}
