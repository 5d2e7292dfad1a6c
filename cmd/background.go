package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"github.com/zhengshuai-xiao/xbackup/internal"
	"github.com/zhengshuai-xiao/xbackup/pkg/daemon"
)

// handleBackgroundMode detaches the process when --background is set. It
// returns true in the parent, which should exit right away.
func handleBackgroundMode(c *cli.Context) (shouldExit bool, err error) {
	if daemon.WasReborn() {
		daemon.UnsetMark()
		return false, nil
	}
	if !c.Bool("background") {
		return false, nil
	}
	if c.Args().First() == "-" {
		return false, fmt.Errorf("cannot read stdin in background mode")
	}

	logDir := c.String("logdir")
	if logDir == "" {
		logDir = internal.GetDefaultLogDir()
	}
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return false, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	pidFile := filepath.Join(logDir, "xbackup.pid")
	if err := daemon.CheckStalePid(pidFile); err != nil {
		return false, err
	}

	// the child gets the same arguments without the flag
	var newArgs []string
	for _, arg := range os.Args {
		if arg != "--background" && arg != "-d" {
			newArgs = append(newArgs, arg)
		}
	}

	child, err := daemon.Daemonize(pidFile, filepath.Join(logDir, "xbackup.out"), newArgs)
	if err != nil {
		return false, fmt.Errorf("unable to run in background: %w", err)
	}
	if child != nil {
		fmt.Fprintf(c.App.Writer, "backup running in background with pid %d, logs in %s\n", child.Pid, logDir)
	}
	return child != nil, nil
}
