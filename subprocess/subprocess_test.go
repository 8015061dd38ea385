package subprocess

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	res, err := Run(context.Background(), Command(context.Background(), "sh", "-c", "echo hello"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", res.Stdout)
	require.Equal(t, 0, res.ExitCode)
}

func TestRunReturnsTypedErrorOnNonZeroExit(t *testing.T) {
	res, err := Run(context.Background(), Command(context.Background(), "sh", "-c", "echo boom >&2; exit 3"))
	require.Error(t, err)

	mediaErr, ok := err.(*MediaToolError)
	require.True(t, ok)
	require.Equal(t, 3, mediaErr.ExitCode)
	require.Equal(t, "boom", mediaErr.StderrTail)
	require.Equal(t, 3, res.ExitCode)
	require.Contains(t, mediaErr.Error(), "exit=3")
}

func TestTailTruncatesLongOutput(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "abcde"
	}
	tail := Tail(long, 500)
	require.Len(t, tail, 500)
}
