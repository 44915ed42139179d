// Package check provides toolchain diagnostics: it resolves the configured
// command and probes the common ImageMagick entrypoints.
package check

import (
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/pixeldrift/magickbatch/internal/config"
	"github.com/pixeldrift/magickbatch/internal/tool"
)

// Checker validates the external toolchain. The lookup and version probes
// are injectable so tests never spawn real processes.
type Checker struct {
	lookPath func(toolPath, name string) (string, error)
	version  func(ctx context.Context, path string) (string, error)
}

// New builds a checker using real OS lookups.
func New() *Checker {
	return &Checker{
		lookPath: tool.LookPath,
		version:  toolVersion,
	}
}

// magickNames are the ImageMagick entrypoints probed informationally.
// "magick" is the IM7 umbrella binary; "convert" the IM6 legacy one.
var magickNames = []string{"magick", "convert"}

// Run reports where the configured command and the ImageMagick binaries
// resolve to. It returns an error only when a command is configured and its
// executable cannot be found; the ImageMagick probes are informational.
func (c *Checker) Run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	log.Infof("=== Toolchain check ===")
	if cfg.ToolPath != "" {
		log.Infof("Tool path: %s", cfg.ToolPath)
	}

	var cmdErr error
	if name := cfg.Tool(); name != "" {
		path, err := c.lookPath(cfg.ToolPath, name)
		if err != nil {
			log.Errorf("command %q not found: %v", name, err)
			cmdErr = config.Errorf("command %q not found", name)
		} else {
			log.Infof("command: %s -> %s", name, path)
		}
	}

	for _, name := range magickNames {
		path, err := c.lookPath(cfg.ToolPath, name)
		if err != nil {
			log.Warnf("%s: not found", name)
			continue
		}
		ver, err := c.version(ctx, path)
		if err != nil {
			log.Warnf("%s: found at %s but -version failed: %v", name, path, err)
			continue
		}
		log.Infof("%s: %s", name, ver)
	}

	return cmdErr
}

// toolVersion runs "<path> -version" and returns the first output line.
func toolVersion(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(out))
	if idx := strings.Index(line, "\n"); idx > 0 {
		line = line[:idx]
	}
	return line, nil
}
