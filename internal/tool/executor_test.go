package tool

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestInvoke_AppendsInputAndOutput(t *testing.T) {
	requireTool(t, "cp")

	dir := t.TempDir()
	input := filepath.Join(dir, "in.jpg")
	output := filepath.Join(dir, "out.jpg")
	require.NoError(t, os.WriteFile(input, []byte("pixels"), 0o644))

	iv := &Invoker{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	res := iv.Invoke(context.Background(), []string{"cp"}, input, output)
	require.NoError(t, res.Err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))
}

func TestInvoke_NonZeroExitIsError(t *testing.T) {
	requireTool(t, "false")

	iv := &Invoker{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	res := iv.Invoke(context.Background(), []string{"false"}, "in", "out")
	assert.Error(t, res.Err)
}

func TestInvoke_CapturesStderr(t *testing.T) {
	requireTool(t, "sh")

	var tee bytes.Buffer
	iv := &Invoker{Stdout: &bytes.Buffer{}, Stderr: &tee}
	res := iv.Invoke(context.Background(),
		[]string{"sh", "-c", `echo "boom" >&2; exit 3`}, "in", "out")

	require.Error(t, res.Err)
	assert.Contains(t, res.Stderr, "boom")
	assert.Contains(t, tee.String(), "boom")
}

func TestInvoke_TimeoutKillsHungCommand(t *testing.T) {
	requireTool(t, "sleep")

	iv := &Invoker{
		Timeout: 100 * time.Millisecond,
		Stdout:  &bytes.Buffer{},
		Stderr:  &bytes.Buffer{},
	}
	start := time.Now()
	res := iv.Invoke(context.Background(), []string{"sleep", "30"}, "in", "out")

	assert.Error(t, res.Err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestInvoke_MissingCommand(t *testing.T) {
	iv := &Invoker{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	res := iv.Invoke(context.Background(), []string{"definitely-not-a-command-xyz"}, "in", "out")
	assert.Error(t, res.Err)
}
