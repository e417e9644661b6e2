package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	watchdogv1 "procwatch/api/watchdog/v1"
)

// SocketBaseName is the UNIX socket filename
const SocketBaseName = "procwatch.sock"

const pidFileName = "procwatch.pid"

var (
	overrideMu     sync.RWMutex
	socketOverride string
)

// UseSocket makes SocketPath return path, typically the socket_path config
// value. An empty path restores the default lookup.
func UseSocket(path string) {
	overrideMu.Lock()
	socketOverride = path
	overrideMu.Unlock()
}

// SocketPath returns the full path to the UNIX socket
// Order of precedence (first wins):
// 1) UseSocket override
// 2) PROCWATCH_SOCKET (absolute path to socket)
// 3) PROCWATCH_RUNTIME_DIR
// 4) on linux $XDG_RUNTIME_DIR or /run/user/<UID>, elsewhere /tmp
func SocketPath() string {
	overrideMu.RLock()
	override := socketOverride
	overrideMu.RUnlock()
	if override != "" {
		return override
	}
	if explicit := os.Getenv("PROCWATCH_SOCKET"); explicit != "" {
		return explicit
	}

	uid := currentUID()

	if rd := os.Getenv("PROCWATCH_RUNTIME_DIR"); rd != "" {
		return filepath.Join(rd, SocketBaseName)
	}

	if runtime.GOOS == "linux" {
		if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
			return filepath.Join(v, SocketBaseName)
		}
		return filepath.Join("/run/user", uid, SocketBaseName)
	}

	// macOS / BSD: keep it short to stay under the sun_path limit
	return filepath.Join("/tmp", "procwatch-"+uid+".sock")
}

// EnsureRuntimeDir creates the socket's parent directory if needed
func EnsureRuntimeDir() error {
	return os.MkdirAll(filepath.Dir(SocketPath()), 0o700)
}

// PIDPath returns the full path to the PID file
func PIDPath() string {
	return filepath.Join(filepath.Dir(SocketPath()), pidFileName)
}

// WritePID stores the provided pid into the pid file
func WritePID(pid int) error {
	if err := EnsureRuntimeDir(); err != nil {
		return err
	}
	return os.WriteFile(PIDPath(), []byte(fmt.Sprintf("%d\n", pid)), 0o600)
}

// RemovePID removes the pid file if it exists
func RemovePID() error {
	if err := os.Remove(PIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RunningPID returns the pid stored in the pid file if any
func RunningPID() (int, error) {
	data, err := os.ReadFile(PIDPath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", PIDPath(), err)
	}
	return pid, nil
}

// IsRunning pings the daemon over gRPC and reports whether it answered.
func IsRunning() bool {
	if _, err := os.Stat(SocketPath()); err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	client, conn, err := Dial(ctx)
	if err != nil {
		return false
	}
	defer conn.Close()

	_, err = client.Ping(ctx, &watchdogv1.PingRequest{})
	return err == nil
}

func currentUID() string {
	u, err := user.Current()
	if err == nil && u != nil && u.Uid != "" {
		return u.Uid
	}
	return "0"
}
