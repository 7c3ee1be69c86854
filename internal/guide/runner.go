package guide

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
)

// CommandRunner abstracts how the external documentation and test commands
// are executed, so tasks can be exercised without the real tools.
type CommandRunner interface {
	Run(ctx context.Context, dir string, argv []string) error
}

// ExecRunner runs commands as child processes. Output is streamed to Stdout
// and Stderr when set; the tail of stderr is attached to failures.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

const stderrTail = 2048

func (r *ExecRunner) Run(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 {
		return errors.ValidationError("empty command").Build()
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return errors.WrapError(err, errors.CategoryBuild, fmt.Sprintf("command not found: %s", argv[0])).
			Fatal().
			WithContext("command", argv[0]).
			Build()
	}

	// #nosec G204 -- argv comes from the guide configuration
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stdout = r.Stdout
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.Stderr, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	slog.Debug("Invoking command", "dir", dir, "argv", argv)
	if err := cmd.Run(); err != nil {
		b := errors.BuildError(fmt.Sprintf("command failed: %s", strings.Join(argv, " "))).
			WithCause(err).
			WithContext("command", argv[0])
		if out := stderr.Bytes(); len(out) > 0 {
			if len(out) > stderrTail {
				out = out[len(out)-stderrTail:]
			}
			b = b.WithContext("stderr", strings.TrimSpace(string(out)))
		}
		return b.Build()
	}
	return nil
}

// NoopRunner logs the command instead of running it.
type NoopRunner struct{}

func (NoopRunner) Run(_ context.Context, dir string, argv []string) error {
	slog.Info("Dry run, not invoking command", "dir", dir, "argv", argv)
	return nil
}
