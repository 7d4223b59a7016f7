package process

import (
	"context"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestResultCombinedOutput(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		expected string
	}{
		{"Both", Result{Stdout: "out", Stderr: "err"}, "out\nerr"},
		{"StdoutOnly", Result{Stdout: "out"}, "out"},
		{"StderrOnly", Result{Stderr: "err"}, "err"},
		{"Empty", Result{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.CombinedOutput())
		})
	}
}

func TestExecRunner(t *testing.T) {
	requireShell(t)
	r := NewExecRunner()
	ctx := context.Background()

	t.Run("CapturesStreams", func(t *testing.T) {
		res, err := r.Run(ctx, "sh", "-c", "echo hello; echo oops 1>&2")
		require.NoError(t, err)
		assert.True(t, res.Success())
		assert.Equal(t, "hello\n", res.Stdout)
		assert.Equal(t, "oops\n", res.Stderr)
	})

	t.Run("NonZeroExitIsNotAnError", func(t *testing.T) {
		res, err := r.Run(ctx, "sh", "-c", "echo bad 1>&2; exit 3")
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "bad\n", res.Stderr)
	})

	t.Run("MissingExecutable", func(t *testing.T) {
		_, err := r.Run(ctx, "audiopatch-no-such-tool")
		assert.Error(t, err)
	})

	t.Run("Cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Run(cancelled, "sh", "-c", "sleep 5")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunnerFunc(t *testing.T) {
	var got []string
	r := RunnerFunc(func(ctx context.Context, exe string, args ...string) (Result, error) {
		got = append([]string{exe}, args...)
		return Result{ExitCode: 1}, nil
	})

	res, err := r.Run(context.Background(), "tool", "a", "b")
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.Equal(t, []string{"tool", "a", "b"}, got)
}
