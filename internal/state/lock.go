package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bonecondor/space-weather/internal/logging"
)

// lockInfo is the lockfile payload.
type lockInfo struct {
	PID       int       `json:"pid"`
	Timestamp time.Time `json:"timestamp"`
	Hostname  string    `json:"hostname"`
}

// Lock is single-writer mutual exclusion via a PID-stamped lockfile.
// A holder that is dead, unparseable, or older than the timeout is stolen;
// a live holder within the timeout refuses the run.
type Lock struct {
	path    string
	timeout time.Duration
	logger  *logging.Logger
	pid     int
}

// NewLock creates a lock over the given lockfile path.
func NewLock(path string, timeout time.Duration, logger *logging.Logger) *Lock {
	return &Lock{path: path, timeout: timeout, logger: logger, pid: os.Getpid()}
}

// Acquire attempts to take the lock. It returns false, nil when a live
// holder within the timeout owns it — the expected cadence collision, not an
// error.
func (l *Lock) Acquire() (bool, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, l.write()
		}
		return false, fmt.Errorf("read lockfile failed: %w", err)
	}

	var holder lockInfo
	if err := json.Unmarshal(data, &holder); err != nil {
		l.logger.Warnf("Lockfile unparseable, stealing: %v", err)
		return true, l.write()
	}

	if !pidAlive(holder.PID) {
		l.logger.Warnf("Lock holder pid %d is dead (orphaned lock), stealing", holder.PID)
		return true, l.write()
	}

	age := time.Since(holder.Timestamp)
	if age < l.timeout {
		l.logger.Infof("Lock held by live pid %d on %s (age %v), refusing to run", holder.PID, holder.Hostname, age.Round(time.Second))
		return false, nil
	}

	l.logger.Warnf("Lock holder pid %d alive but lock is %v old (timeout %v), assuming hung run and stealing", holder.PID, age.Round(time.Second), l.timeout)
	return true, l.write()
}

// Release removes the lockfile, but only if it still names our pid — a
// concurrent steal must not have its lock removed out from under it.
func (l *Lock) Release() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	var holder lockInfo
	if err := json.Unmarshal(data, &holder); err != nil {
		return
	}
	if holder.PID != l.pid {
		l.logger.Warnf("Lockfile now names pid %d, not releasing", holder.PID)
		return
	}
	if err := os.Remove(l.path); err != nil {
		l.logger.Errorf("Remove lockfile failed: %v", err)
	}
}

func (l *Lock) write() error {
	hostname, _ := os.Hostname()
	data, err := json.Marshal(lockInfo{PID: l.pid, Timestamp: time.Now().UTC(), Hostname: hostname})
	if err != nil {
		return fmt.Errorf("marshal lockfile failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir failed: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write lockfile failed: %w", err)
	}
	return nil
}

// pidAlive tests liveness with a no-op signal; any failure means the process
// is gone or unreachable and the lock is treated as orphaned.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
