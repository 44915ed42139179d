package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pixeldrift/magickbatch/internal/config"
	"github.com/pixeldrift/magickbatch/internal/tool"
)

// fakeInvoker records invocations instead of spawning subprocesses.
type fakeInvoker struct {
	mu    sync.Mutex
	calls []invocation
	fail  map[string]bool // input basename -> simulated failure
}

type invocation struct {
	argv   []string
	input  string
	output string
}

func (f *fakeInvoker) invoke(_ context.Context, argv []string, input, output string) tool.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invocation{argv: argv, input: input, output: output})
	if f.fail[filepath.Base(input)] {
		return tool.Result{Stderr: "convert: no decode delegate\n", Err: errors.New("exit status 1")}
	}
	return tool.Result{}
}

func (f *fakeInvoker) inputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = filepath.Base(c.input)
	}
	return out
}

func newTestRunner(t *testing.T, cfg *config.Config, fake *fakeInvoker) *Runner {
	t.Helper()
	require.NoError(t, cfg.Validate())
	return &Runner{cfg: cfg, log: zap.NewNop().Sugar(), invoke: fake.invoke}
}

func testConfig(t *testing.T, in string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Command = "magick-wave -a 10"
	cfg.InputDir = in
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	return cfg
}

func TestRun_FilterAndDerivation(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "a.jpg")
	touch(t, in, "b.png")
	touch(t, in, "c.txt")

	cfg := testConfig(t, in)
	cfg.Format = "jpg,png"
	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.jpg", "b.png"}, fake.inputs())
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Filtered)
	assert.Equal(t, 2, stats.Processed)
	assert.Zero(t, stats.Failed)

	require.Len(t, fake.calls, 2)
	assert.Equal(t, []string{"magick-wave", "-a", "10"}, fake.calls[0].argv)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "a.jpg"), fake.calls[0].output)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "b.png"), fake.calls[1].output)
}

func TestRun_KeepsExtensionAsStored(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "photo.PNG")

	cfg := testConfig(t, in)
	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "photo.PNG"), fake.calls[0].output)
}

func TestRun_SuffixOverride(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "photo.png")

	cfg := testConfig(t, in)
	cfg.Suffix = "tiff"
	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "photo.tiff"), fake.calls[0].output)
}

func TestRun_CreatesOutputFolder(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "a.jpg")

	cfg := testConfig(t, in)
	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	fi, err := os.Stat(cfg.OutputDir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestRun_EmptyInputFolderIsConfigError(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, config.IsError(err))
	assert.Empty(t, fake.calls)
}

func TestRun_UnreadableOutputFolderIsConfigError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root; permission checks are bypassed")
	}

	in := t.TempDir()
	touch(t, in, "a.jpg")
	out := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(out, 0o000))
	t.Cleanup(func() { _ = os.Chmod(out, 0o755) })

	cfg := testConfig(t, in)
	cfg.OutputDir = out
	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, config.IsError(err))
	assert.Empty(t, fake.calls)
}

func TestRun_ContinuesAfterFailure(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "a.jpg")
	touch(t, in, "b.jpg")
	touch(t, in, "c.jpg")

	cfg := testConfig(t, in)
	fake := &fakeInvoker{fail: map[string]bool{"b.jpg": true}}
	r := newTestRunner(t, cfg, fake)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, fake.inputs())
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
}

func TestRun_FailFastStopsBatch(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "a.jpg")
	touch(t, in, "b.jpg")
	touch(t, in, "c.jpg")

	cfg := testConfig(t, in)
	cfg.FailFast = true
	fake := &fakeInvoker{fail: map[string]bool{"a.jpg": true}}
	r := newTestRunner(t, cfg, fake)

	stats, err := r.Run(context.Background())
	require.Error(t, err)
	assert.False(t, config.IsError(err))
	assert.Equal(t, []string{"a.jpg"}, fake.inputs())
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Processed)
}

func TestRun_DryRunInvokesNothing(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "a.jpg")
	touch(t, in, "b.jpg")

	cfg := testConfig(t, in)
	cfg.DryRun = true
	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fake.calls)
	assert.Equal(t, 2, stats.Processed)
}

func TestRun_SkipExisting(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "a.jpg")
	touch(t, in, "b.jpg")

	cfg := testConfig(t, in)
	cfg.SkipExisting = true
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))
	touch(t, cfg.OutputDir, "a.jpg")

	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.jpg"}, fake.inputs())
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Processed)
}

func TestRun_ParallelProcessesAll(t *testing.T) {
	in := t.TempDir()
	names := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}
	for _, n := range names {
		touch(t, in, n)
	}

	cfg := testConfig(t, in)
	cfg.Jobs = 3
	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(names), stats.Processed)
	assert.ElementsMatch(t, names, fake.inputs())
}

func TestRun_CancelledContextStopsWithoutError(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "a.jpg")
	touch(t, in, "b.jpg")

	cfg := testConfig(t, in)
	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, fake.calls)
	assert.Zero(t, stats.Processed)
}

func TestWatchLoop_ProcessesNewFile(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "seed.jpg")

	cfg := testConfig(t, in)
	cfg.Format = "jpg"
	fake := &fakeInvoker{}
	r := newTestRunner(t, cfg, fake)
	require.NoError(t, cfg.EnsureDirs())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.WatchLoop(ctx) }()

	// Give the watcher a moment to register, then drop a new file in.
	time.Sleep(200 * time.Millisecond)
	touch(t, in, "new.jpg")

	deadline := time.After(5 * time.Second)
	for len(fake.inputs()) == 0 {
		select {
		case <-deadline:
			t.Fatal("watch loop never processed the new file")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"new.jpg"}, fake.inputs())
}
