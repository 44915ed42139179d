package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pixeldrift/magickbatch/internal/config"
	"github.com/pixeldrift/magickbatch/internal/tool"
)

// InvokeFunc runs the command template for one file. It matches
// [tool.Invoker.Invoke] and is injectable for tests.
type InvokeFunc func(ctx context.Context, argv []string, input, output string) tool.Result

// Runner executes a batch over one input folder.
type Runner struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	invoke InvokeFunc

	mu    sync.Mutex
	stats RunStats
}

// New builds a Runner that invokes the real external command.
func New(cfg *config.Config, log *zap.SugaredLogger) *Runner {
	iv := &tool.Invoker{ToolPath: cfg.ToolPath, Timeout: cfg.Timeout}
	return &Runner{cfg: cfg, log: log, invoke: iv.Invoke}
}

// errFailFast signals that a per-file failure should stop the batch.
var errFailFast = errors.New("stopping batch: fail-fast is enabled")

// Run validates the folders, enumerates the input folder once, and
// processes every candidate. The returned error is non-nil only for
// configuration failures (before any file is touched), a fail-fast abort,
// or a discovery error; ordinary per-file failures land in RunStats and
// leave the error nil.
func (r *Runner) Run(ctx context.Context) (RunStats, error) {
	if err := r.cfg.EnsureDirs(); err != nil {
		return r.snapshot(), err
	}

	files, err := Discover(r.cfg.InputDir)
	if err != nil {
		return r.snapshot(), fmt.Errorf("enumerating %s: %w", r.cfg.InputDir, err)
	}

	r.mu.Lock()
	r.stats.Total = len(files)
	r.mu.Unlock()

	r.logHeader(len(files))
	start := time.Now()

	if r.cfg.Jobs > 1 {
		err = r.runParallel(ctx, files)
	} else {
		err = r.runSequential(ctx, files)
	}

	// An interrupt stops the batch but is not a batch failure.
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	stats := r.snapshot()
	r.logSummary(stats, time.Since(start))
	return stats, err
}

func (r *Runner) runSequential(ctx context.Context, files []string) error {
	for i, path := range files {
		if ctx.Err() != nil {
			r.log.Warnf("Interrupted")
			return nil
		}
		r.log.Infof("[%d/%d] %s", i+1, len(files), filepath.Base(path))
		if err := r.processFile(ctx, path); err != nil {
			if errors.Is(err, errFailFast) {
				return err
			}
			return nil // interrupted mid-file
		}
	}
	return nil
}

func (r *Runner) runParallel(ctx context.Context, files []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Jobs)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			r.log.Infof("[%d/%d] %s", i+1, len(files), filepath.Base(path))
			return r.processFile(gctx, path)
		})
	}
	return g.Wait()
}

// processFile handles one candidate: filter -> derive output -> invoke.
// The returned error is nil for every outcome that should let the batch
// continue, including an ordinary invocation failure.
func (r *Runner) processFile(ctx context.Context, path string) error {
	name := filepath.Base(path)

	if !MatchFilter(name, r.cfg.FilterTokens) {
		r.count(func(s *RunStats) { s.Filtered++ })
		if r.cfg.Verbose {
			r.log.Debugf("Filtered out: %s", name)
		}
		return nil
	}

	outPath := DeriveOutput(r.cfg.OutputDir, name, r.cfg.Suffix)

	if r.cfg.SkipExisting {
		if _, err := os.Stat(outPath); err == nil {
			r.count(func(s *RunStats) { s.Skipped++ })
			r.log.Warnf("Skip (exists): %s", filepath.Base(outPath))
			return nil
		}
	}

	if r.cfg.DryRun {
		r.count(func(s *RunStats) { s.Processed++ })
		r.log.Infof("[DRY] %s %s %s", strings.Join(r.cfg.Tokens, " "), path, outPath)
		return nil
	}

	start := time.Now()
	res := r.invoke(ctx, r.cfg.Tokens, path, outPath)

	if ctx.Err() != nil {
		r.log.Warnf("Interrupted: %s", name)
		return ctx.Err()
	}

	if res.Err != nil {
		r.count(func(s *RunStats) { s.Failed++ })
		r.log.Warnf("%s failed: %v", name, res.Err)
		r.logStderrTail(res.Stderr)
		if r.cfg.FailFast {
			return fmt.Errorf("%s: %w", name, errFailFast)
		}
		return nil
	}

	r.count(func(s *RunStats) { s.Processed++ })
	r.log.Infof("%s -> %s (%.1fs)", name, filepath.Base(outPath), time.Since(start).Seconds())
	return nil
}

func (r *Runner) count(f func(*RunStats)) {
	r.mu.Lock()
	f(&r.stats)
	r.mu.Unlock()
}

func (r *Runner) snapshot() RunStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Runner) logHeader(total int) {
	r.log.Infof("Found %d files in %s", total, r.cfg.InputDir)
	r.log.Infof("Command: %s", strings.Join(r.cfg.Tokens, " "))
	r.log.Infof("Out: %s", r.cfg.OutputDir)
	if len(r.cfg.FilterTokens) > 0 {
		r.log.Infof("Filter: %s", strings.Join(r.cfg.FilterTokens, ", "))
	}
	if r.cfg.Suffix != "" {
		r.log.Infof("Suffix: .%s", r.cfg.Suffix)
	}
	if r.cfg.Jobs > 1 {
		r.log.Infof("Jobs: %d", r.cfg.Jobs)
	}
	if r.cfg.Timeout > 0 {
		r.log.Infof("Timeout: %s per file", r.cfg.Timeout)
	}
	if r.cfg.DryRun {
		r.log.Warnf("DRY RUN - no commands will be executed")
	}
}

func (r *Runner) logSummary(stats RunStats, elapsed time.Duration) {
	r.log.Infof("==============================")
	r.log.Infof("Done in %s: %d processed, %d filtered, %d skipped, %d failed",
		elapsed.Round(time.Millisecond), stats.Processed, stats.Filtered, stats.Skipped, stats.Failed)
	if stats.Failed > 0 && !r.cfg.FailFast {
		r.log.Warnf("%d invocation(s) failed; see warnings above", stats.Failed)
	}
}

// logStderrTail reports the last lines of a failed invocation's stderr so
// the failure is visible without rerunning the command by hand.
func (r *Runner) logStderrTail(stderr string) {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return
	}
	lines := strings.Split(stderr, "\n")
	start := 0
	if len(lines) > 10 {
		start = len(lines) - 10
	}
	for _, l := range lines[start:] {
		r.log.Warnf("  %s", l)
	}
}
