// Package hook runs the configured downstream command after a segmentation
// result has been written.
package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"podseg/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Job describes one persisted result.
type Job struct {
	SourceID   string
	ResultPath string
	Segments   int
}

// Runner executes the hook command. It holds no mutable state and may be
// shared by concurrent pipelines.
type Runner struct {
	command string
	args    []string
	env     map[string]string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewRunner parses cfg.Hook once. A runner with no command is valid and
// reports Enabled() == false.
func NewRunner(cfg *config.Config, logger *logrus.Logger) (*Runner, error) {
	args, err := ParseArgs(cfg.Hook.Args)
	if err != nil {
		return nil, fmt.Errorf("hook.args: %w", err)
	}
	return &Runner{
		command: strings.TrimSpace(cfg.Hook.Command),
		args:    args,
		env:     cfg.Hook.Env,
		timeout: time.Duration(float64(time.Second) * cfg.Hook.TimeoutSec),
		logger:  logger,
	}, nil
}

// Enabled reports whether a hook command is configured.
func (r *Runner) Enabled() bool { return r != nil && r.command != "" }

// Run executes the command with the result path appended to its args.
func (r *Runner) Run(ctx context.Context, job Job) error {
	if !r.Enabled() {
		return fmt.Errorf("no hook.command configured")
	}
	args := append(append([]string{}, r.args...), job.ResultPath)

	runCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, r.command, args...)
	// children that inherit stdout must not hold Run open past the kill
	cmd.WaitDelay = time.Second
	cmd.Env = os.Environ()
	for k, v := range r.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env,
		"PODSEG_RESULT_PATH="+job.ResultPath,
		"PODSEG_SOURCE_ID="+job.SourceID,
		"PODSEG_SEGMENTS="+strconv.Itoa(job.Segments),
	)

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.logger.WithField("source", job.SourceID).Infof("hook output: %s", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("hook failed: %w", err)
	}
	return nil
}

// ParseArgs allows Hook.Args to be configured as a single string.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	return shlex.Split(raw)
}
