// Command magickbatch batch-applies an external image-processing command to
// every matching file in a folder. It parses flags, validates configuration,
// and runs the batch; per-file command failures do not stop the run unless
// --fail-fast is set.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pixeldrift/magickbatch/internal/batch"
	"github.com/pixeldrift/magickbatch/internal/config"
	"github.com/pixeldrift/magickbatch/internal/logging"
)

// version is injected at build time via -ldflags. When built with plain
// "go build" it retains its default.
var version = "1.0.0"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	fl := &runFlags{}
	root := &cobra.Command{
		Use:   "magickbatch",
		Short: "Apply an image-processing command to every file in a folder",
		Long: `magickbatch runs an external image-processing command (typically an
ImageMagick effect script) once per file in a folder, appending the input
and the derived output path as the final two arguments.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, fl)
		},
	}
	addRunFlags(root, fl)

	root.AddCommand(newRunCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newFetchCmd())
	return root
}

// newRunCmd is an explicit alias for the root behavior, so scripts can spell
// out "magickbatch run ..." next to "magickbatch check" and "magickbatch fetch".
func newRunCmd() *cobra.Command {
	fl := &runFlags{}
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Process a folder of images (the default action)",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, fl)
		},
	}
	addRunFlags(cmd, fl)
	return cmd
}

// runFlags holds the CLI values before they are layered onto the config;
// only flags the user actually set override the file and environment layers.
type runFlags struct {
	command    string
	input      string
	output     string
	format     string
	suffix     string
	toolPath   string
	jobs       int
	timeout    string
	failFast   bool
	skipExist  bool
	dryRun     bool
	watch      bool
	verbose    bool
	noColor    bool
	logFile    string
	configFile string
}

func addRunFlags(cmd *cobra.Command, fl *runFlags) {
	f := cmd.Flags()
	f.StringVarP(&fl.command, "command", "c", "", "command line to run per file, excluding the two file arguments (required)")
	f.StringVarP(&fl.input, "input", "i", "", "input folder (default: current directory)")
	f.StringVarP(&fl.output, "output", "o", "", "output folder (default: input folder; created if missing)")
	f.StringVarP(&fl.format, "format", "f", "", "comma/space separated extension substrings to process (default: all)")
	f.StringVarP(&fl.suffix, "suffix", "s", "", "output extension without dot (default: each file's own)")
	f.StringVarP(&fl.toolPath, "toolpath", "p", "", "directory prepended to PATH so the command finds the toolkit")
	f.IntVar(&fl.jobs, "jobs", 1, "parallel invocations (1 = sequential)")
	f.StringVar(&fl.timeout, "timeout", "", "per-invocation deadline, e.g. 30s (default: none)")
	f.BoolVar(&fl.failFast, "fail-fast", false, "stop the batch at the first failed invocation")
	f.BoolVar(&fl.skipExist, "skip-existing", false, "skip files whose output already exists")
	f.BoolVarP(&fl.dryRun, "dry-run", "d", false, "log derived invocations without executing")
	f.BoolVar(&fl.watch, "watch", false, "keep watching the input folder for new files")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "verbose output")
	f.BoolVar(&fl.noColor, "no-color", false, "disable colored logs")
	f.StringVarP(&fl.logFile, "log", "l", "", "append logs to file")
	f.StringVar(&fl.configFile, "config", "", "config file (default: "+config.DefaultFileName+" if present)")
}

// loadConfig layers defaults, config file, environment, and flags.
func loadConfig(cmd *cobra.Command, fl *runFlags) (*config.Config, error) {
	cfg := config.Default()
	if err := config.ApplyFile(cfg, fl.configFile); err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := applyRunFlags(cmd, fl, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyRunFlags(cmd *cobra.Command, fl *runFlags, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("command") {
		cfg.Command = fl.command
		cfg.CommandArgs = nil // the flag replaces any token list from the file
	}
	if f.Changed("input") {
		cfg.InputDir = fl.input
	}
	if f.Changed("output") {
		cfg.OutputDir = fl.output
	}
	if f.Changed("format") {
		cfg.Format = fl.format
	}
	if f.Changed("suffix") {
		cfg.Suffix = fl.suffix
	}
	if f.Changed("toolpath") {
		cfg.ToolPath = fl.toolPath
	}
	if f.Changed("jobs") {
		cfg.Jobs = fl.jobs
	}
	if f.Changed("timeout") {
		d, err := parseTimeout(fl.timeout)
		if err != nil {
			return err
		}
		cfg.Timeout = d
	}
	if f.Changed("fail-fast") {
		cfg.FailFast = fl.failFast
	}
	if f.Changed("skip-existing") {
		cfg.SkipExisting = fl.skipExist
	}
	if f.Changed("dry-run") {
		cfg.DryRun = fl.dryRun
	}
	if f.Changed("watch") {
		cfg.Watch = fl.watch
	}
	if f.Changed("verbose") {
		cfg.Verbose = fl.verbose
	}
	if f.Changed("no-color") {
		cfg.NoColor = fl.noColor
	}
	if f.Changed("log") {
		cfg.LogFile = fl.logFile
	}
	return nil
}

func runBatch(cmd *cobra.Command, fl *runFlags) error {
	// Phase 1: Bootstrap — the logger doesn't exist yet, so configuration
	// errors go to stderr via cobra, together with the usage text.
	cfg, err := loadConfig(cmd, fl)
	if err != nil {
		return usageError(cmd, err)
	}
	if err := cfg.Validate(); err != nil {
		return usageError(cmd, err)
	}

	log, closeLog, err := logging.New(logging.Options{
		Verbose: cfg.Verbose,
		NoColor: cfg.NoColor,
		LogFile: cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "magickbatch: %v\n", err)
		return err
	}
	defer closeLog()

	// Phase 2: Signal handling — cancel the context on SIGINT/SIGTERM so
	// the batch stops after the in-flight invocation(s).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warnf("Received interrupt, finishing current file(s)...")
		cancel()
	}()

	log.Infof("=== magickbatch v%s ===", version)
	if cfg.LogFile != "" {
		log.Infof("Log: %s", cfg.LogPath())
	}

	// Phase 3: Run the batch; folder validation happens inside Run before
	// any file is touched.
	runner := batch.New(cfg, log)
	if _, err := runner.Run(ctx); err != nil {
		if config.IsError(err) {
			return usageError(cmd, err)
		}
		log.Errorf("%v", err)
		return err
	}

	if cfg.Watch {
		if err := runner.WatchLoop(ctx); err != nil {
			log.Errorf("%v", err)
			return err
		}
	}
	return nil
}

// usageError reports a configuration error together with the usage text.
func usageError(cmd *cobra.Command, err error) error {
	cmd.SilenceUsage = false
	return err
}

// parseTimeout parses the --timeout value, accepting an empty string as no
// deadline.
func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, config.Errorf("timeout must be a duration like 30s (got %q)", s)
	}
	return d, nil
}
