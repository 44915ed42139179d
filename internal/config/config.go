// Package config holds runtime configuration: defaults, layered loading
// (config file, environment, CLI flags), and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all runtime settings for a batch run. It is populated by
// [Default] and then layered by [ApplyFile], [ApplyEnv], and the CLI flag
// bindings before being passed (by pointer) to packages that need it.
type Config struct {
	// Command template. Command is the raw command line (script plus its own
	// flags) invoked once per file, excluding the input/output file
	// arguments. CommandArgs, when set (config file only), is an explicit
	// token list that bypasses whitespace splitting so arguments containing
	// spaces or parentheses (e.g. "rgb(255,0,0)") survive intact.
	Command     string
	CommandArgs []string

	// Paths.
	InputDir  string // Default: current directory.
	OutputDir string // Default: InputDir.

	// Selection and naming.
	Format string // Comma/space separated extension substrings; empty = all.
	Suffix string // Output extension without dot; empty = keep each file's own.

	// ToolPath is a directory prepended to PATH so the invoked command can
	// find the image-processing toolkit when it is not installed globally.
	ToolPath string

	// Behavior.
	Jobs         int           // Parallel invocations. Default: 1 (sequential).
	Timeout      time.Duration // Per-invocation deadline. 0 = none.
	FailFast     bool          // Stop the batch at the first failed invocation.
	SkipExisting bool          // Skip files whose output already exists.
	DryRun       bool          // Log derived invocations without executing.
	Watch        bool          // Keep watching the input folder for new files.

	// Display and logging.
	Verbose bool
	NoColor bool
	LogFile string // Optional log file path.

	// Fetch command settings.
	ListingURL string // Remote script listing URL.
	ScriptDir  string // Where fetched scripts are written.

	// Derived by Validate. Tokens is the final argv prefix; FilterTokens are
	// the lowercased format filter substrings, parsed once before iteration.
	Tokens       []string
	FilterTokens []string
}

// Default returns a Config with the built-in defaults applied.
func Default() *Config {
	return &Config{
		InputDir:  ".",
		Jobs:      1,
		ScriptDir: "scripts",
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an
// empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	if trimmed := strings.TrimRight(path, "/"); trimmed != "" {
		return trimmed
	}
	return path
}

// Validate checks field-level configuration and computes the derived
// Tokens and FilterTokens. It performs no filesystem access; see
// [Config.EnsureDirs] for the folder checks. All failures are *Error.
func (c *Config) Validate() error {
	tokens := c.CommandArgs
	if len(tokens) == 0 {
		tokens = strings.Fields(c.Command)
	}
	if len(tokens) == 0 {
		return Errorf("command is required (use -c)")
	}
	if strings.HasPrefix(tokens[0], "-") {
		return Errorf("command must not begin with a dash (got %q)", tokens[0])
	}
	c.Tokens = tokens

	c.Suffix = strings.TrimPrefix(strings.TrimSpace(c.Suffix), ".")
	c.FilterTokens = ParseFilter(c.Format)

	if c.Jobs < 1 {
		return Errorf("jobs must be at least 1 (got %d)", c.Jobs)
	}
	if c.Timeout < 0 {
		return Errorf("timeout must not be negative (got %s)", c.Timeout)
	}

	c.InputDir = NormalizeDirArg(c.InputDir)
	if c.OutputDir == "" {
		c.OutputDir = c.InputDir
	}
	c.OutputDir = NormalizeDirArg(c.OutputDir)
	return nil
}

// ParseFilter splits a format filter spec on commas and whitespace and
// lowercases the tokens. An empty spec yields nil, meaning no filtering.
func ParseFilter(spec string) []string {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	var tokens []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tokens = append(tokens, strings.ToLower(f))
		}
	}
	return tokens
}

// EnsureDirs verifies the input folder and prepares the output folder.
// The input folder must exist, be readable, and contain at least one entry.
// The output folder is created when missing; when present it must be
// readable. Any violation is an *Error and nothing is processed.
func (c *Config) EnsureDirs() error {
	fi, err := os.Stat(c.InputDir)
	if err != nil {
		return Errorf("input folder %s does not exist", c.InputDir)
	}
	if !fi.IsDir() {
		return Errorf("input folder %s is not a directory", c.InputDir)
	}
	entries, err := os.ReadDir(c.InputDir)
	if err != nil {
		return wrapError(err, "input folder %s is not readable", c.InputDir)
	}
	if len(entries) == 0 {
		return Errorf("input folder %s is empty", c.InputDir)
	}

	if fi, err := os.Stat(c.OutputDir); err != nil {
		if mkErr := os.MkdirAll(c.OutputDir, 0o755); mkErr != nil {
			return wrapError(mkErr, "cannot create output folder %s", c.OutputDir)
		}
	} else {
		if !fi.IsDir() {
			return Errorf("output folder %s is not a directory", c.OutputDir)
		}
		if _, err := os.ReadDir(c.OutputDir); err != nil {
			return wrapError(err, "output folder %s is not readable", c.OutputDir)
		}
	}
	return nil
}

// Tool returns the executable name of the configured command, or "" when
// no command is configured. Valid only after [Config.Validate].
func (c *Config) Tool() string {
	if len(c.Tokens) == 0 {
		return ""
	}
	return c.Tokens[0]
}

// LogPath returns the absolute form of LogFile for display purposes.
func (c *Config) LogPath() string {
	if c.LogFile == "" {
		return ""
	}
	if abs, err := filepath.Abs(c.LogFile); err == nil {
		return abs
	}
	return c.LogFile
}

func wrapError(err error, format string, args ...interface{}) error {
	return &Error{msg: fmt.Sprintf(format, args...), err: err}
}
