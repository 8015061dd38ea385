package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/voforge/voforge-api/log"
)

const stderrTailChars = 500

// MediaToolError is returned when an external media tool (ffmpeg, ffprobe)
// exits non-zero. It carries the exit code and the tail of stderr so callers
// can build actionable error messages without dumping megabytes of logs.
type MediaToolError struct {
	Tool       string
	ExitCode   int
	StderrTail string
}

func (e *MediaToolError) Error() string {
	return fmt.Sprintf("%s failed (exit=%d): %s", e.Tool, e.ExitCode, e.StderrTail)
}

// Result holds the captured output of a completed command.
type Result struct {
	Args       []string
	ExitCode   int
	Stdout     string
	StderrTail string
}

// Run executes cmd, captures stdout and stderr, and returns a typed error
// on non-zero exit. The command's argv is preserved in the Result so
// pipelines can record exact provenance of every media tool invocation.
func Run(ctx context.Context, cmd *exec.Cmd) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	tool := cmd.Path
	if parts := strings.Split(cmd.Path, "/"); len(parts) > 0 {
		tool = parts[len(parts)-1]
	}

	err := cmd.Run()
	if ctx.Err() != nil {
		return Result{Args: cmd.Args}, ctx.Err()
	}

	res := Result{
		Args:       cmd.Args,
		Stdout:     stdout.String(),
		StderrTail: Tail(stderr.String(), stderrTailChars),
	}
	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		res.ExitCode = exitCode
		log.LogNoJobID("media tool failed", "tool", tool, "exit_code", exitCode, "stderr_tail", res.StderrTail)
		return res, &MediaToolError{Tool: tool, ExitCode: exitCode, StderrTail: res.StderrTail}
	}
	return res, nil
}

// Command builds an *exec.Cmd bound to ctx.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// Tail returns the last n characters of s.
func Tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
