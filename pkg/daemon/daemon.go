// Package daemon detaches long running commands from the terminal.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/sevlyar/go-daemon"
)

var ErrAlreadyRunning = errors.New("daemon already running")

// WasReborn reports whether this process is the detached child.
func WasReborn() bool {
	return daemon.WasReborn()
}

// UnsetMark clears the marker the child is recognised by, so processes it
// starts are not mistaken for daemons.
func UnsetMark() {
	os.Unsetenv(daemon.MARK_NAME)
}

// ReadPidFile returns the pid stored in path.
func ReadPidFile(path string) (int, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(buf)))
	if err != nil {
		return 0, fmt.Errorf("bad pid file %s: %w", path, err)
	}
	return pid, nil
}

// CheckStalePid removes pidFile when the process it names is gone and fails
// with ErrAlreadyRunning when that process is still alive.
func CheckStalePid(pidFile string) error {
	pid, err := ReadPidFile(pidFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return os.Remove(pidFile)
	}
	proc, err := os.FindProcess(pid)
	if err == nil && proc.Signal(syscall.Signal(0)) == nil {
		return fmt.Errorf("%w with pid %d", ErrAlreadyRunning, pid)
	}
	if err := os.Remove(pidFile); err != nil {
		return fmt.Errorf("failed to remove stale pid file %s: %w", pidFile, err)
	}
	return nil
}

// Daemonize starts a detached copy of this process running args, with output
// going to logFile. It returns the child in the parent and nil in the child.
func Daemonize(pidFile, logFile string, args []string) (*os.Process, error) {
	if logFile == "" {
		logFile = os.DevNull
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cntxt := &daemon.Context{
		PidFileName: pidFile,
		PidFilePerm: 0644,
		LogFileName: logFile,
		LogFilePerm: 0640,
		WorkDir:     wd,
		Umask:       027,
		Args:        args,
	}
	return cntxt.Reborn()
}
