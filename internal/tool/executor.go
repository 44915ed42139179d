package tool

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"time"
)

// Result holds the outcome of a single invocation.
type Result struct {
	Stderr string
	Err    error
}

// Invoker runs the configured command as a synchronous subprocess.
// The zero value invokes with no PATH override, no deadline, and the
// process's own stdout/stderr.
type Invoker struct {
	// ToolPath, when set, is prepended to PATH so the command can locate
	// the image-processing toolkit.
	ToolPath string

	// Timeout, when positive, bounds each invocation. A hung command is
	// killed when the deadline expires.
	Timeout time.Duration

	// Stdout and Stderr default to os.Stdout and os.Stderr. The invoked
	// script's own output passes through; stderr is additionally captured
	// for failure reporting.
	Stdout io.Writer
	Stderr io.Writer
}

// Invoke runs argv[0] with the remaining entries as arguments, appending
// input and output as the final two positional arguments. The command's
// exit status is returned in Result.Err; the batch decides whether that
// stops the run.
func (iv *Invoker) Invoke(ctx context.Context, argv []string, input, output string) Result {
	if iv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(argv)+2)
	args = append(args, argv[1:]...)
	args = append(args, input, output)

	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Env = Environ(iv.ToolPath)

	stdout := iv.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderrSink := iv.Stderr
	if stderrSink == nil {
		stderrSink = os.Stderr
	}

	var stderrBuf bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(&stderrBuf, stderrSink)

	err := cmd.Run()
	return Result{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}
