package commandmanager

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// CommandConfig describes a single external tool invocation. Stdin is
// fed to the tool when non-empty; secrets travel this way so they never
// appear in the process table.
type CommandConfig struct {
	Command string
	Args    []string
	Stdin   string
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// Runner executes external commands. All the admin tools this
// application drives (kadmin, xfs_quota, setquota, quota, df) run on
// the local host.
type Runner interface {
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)
}

// UnixCommandManager runs commands on the local system.
type UnixCommandManager struct{}

func (u *UnixCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	if config.Stdin != "" {
		cmd.Stdin = strings.NewReader(config.Stdin)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := CommandResult{
		Command:   config.Command,
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  time.Since(start),
		Timestamp: start,
	}

	// A non-zero exit is reported through ExitCode; err is reserved for
	// failures to run the tool at all.
	if _, ok := err.(*exec.ExitError); ok {
		return result, nil
	}
	return result, err
}

func getExitCode(err error) int {
	if exitError, ok := err.(*exec.ExitError); ok {
		return exitError.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}
