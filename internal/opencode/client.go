// Package opencode wraps the external opencode CLI: resolving the binary,
// listing models, and building run invocations against a target folder.
package opencode

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/ralphcodes/ralph/internal/errors"
	"github.com/ralphcodes/ralph/internal/logging"
)

// Client invokes the opencode CLI.
type Client struct {
	binary   string
	logLevel string
	logger   *logging.Logger
}

// NewClient creates a Client for the given binary name or path. logLevel is
// passed to every invocation via --log-level.
func NewClient(binary, logLevel string, logger *logging.Logger) *Client {
	if binary == "" {
		binary = "opencode"
	}
	if logLevel == "" {
		logLevel = "INFO"
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{binary: binary, logLevel: logLevel, logger: logger}
}

// Binary returns the configured binary name or path.
func (c *Client) Binary() string {
	return c.binary
}

// Resolve locates the opencode binary on PATH and returns its absolute
// path, or ErrOpencodeNotFound.
func (c *Client) Resolve() (string, error) {
	path, err := exec.LookPath(c.binary)
	if err != nil {
		return "", errors.NewOpencodeError("cannot locate binary "+c.binary, errors.ErrOpencodeNotFound).
			WithRetryable(false)
	}
	return path, nil
}

// Models runs `opencode models` and returns the reported model names, one
// per output line. The caller bounds the call with the context.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, c.binary, "models")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(errors.ErrTimeout, "listing opencode models")
		}
		if ctx.Err() == context.Canceled {
			return nil, errors.Wrap(errors.ErrCanceled, "listing opencode models")
		}
		if execErr, ok := err.(*exec.Error); ok && execErr.Err == exec.ErrNotFound {
			return nil, errors.NewOpencodeError("cannot locate binary "+c.binary, errors.ErrOpencodeNotFound).
				WithRetryable(false)
		}
		return nil, errors.NewOpencodeError("models listing failed", errors.ErrOpencodeFailed).
			WithExitCode(cmd.ProcessState.ExitCode()).
			WithOutput(stderr.String())
	}

	return ParseModels(stdout.String()), nil
}

// ParseModels extracts model names from `opencode models` output: one name
// per line, blank lines skipped.
func ParseModels(output string) []string {
	var models []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			models = append(models, line)
		}
	}
	return models
}

// RunSpec describes one `opencode run` invocation.
type RunSpec struct {
	// Dir is the working directory for the run (the target folder).
	Dir string
	// Model is passed via --model.
	Model string
	// Variant is passed via --variant when non-empty.
	Variant string
	// Prompt is the instruction text given to `run`.
	Prompt string
}

// RunArgs builds the argument list for an `opencode run` invocation,
// excluding the binary itself.
func (c *Client) RunArgs(spec RunSpec) []string {
	args := []string{"--log-level", c.logLevel, "--model", spec.Model}
	if spec.Variant != "" {
		args = append(args, "--variant", spec.Variant)
	}
	return append(args, "run", spec.Prompt)
}

// Command builds the exec.Cmd for a run, with the target folder as working
// directory and the process placed in its own process group so the whole
// tree can be killed.
func (c *Client) Command(ctx context.Context, spec RunSpec) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.binary, c.RunArgs(spec)...)
	cmd.Dir = spec.Dir
	setProcessGroup(cmd)
	return cmd
}

// Terminate asks the run's process group to exit gracefully.
func Terminate(cmd *exec.Cmd) error {
	return signalGroup(cmd, false)
}

// Kill force-kills the run's process group.
func Kill(cmd *exec.Cmd) error {
	return signalGroup(cmd, true)
}
