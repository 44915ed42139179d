package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pixeldrift/magickbatch/internal/check"
	"github.com/pixeldrift/magickbatch/internal/config"
	"github.com/pixeldrift/magickbatch/internal/logging"
)

// newCheckCmd builds the "check" subcommand: toolchain diagnostics.
func newCheckCmd() *cobra.Command {
	var (
		command    string
		toolPath   string
		verbose    bool
		noColor    bool
		configFile string
	)
	cmd := &cobra.Command{
		Use:          "check",
		Short:        "Verify the external toolchain is available",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := config.ApplyFile(cfg, configFile); err != nil {
				return usageError(cmd, err)
			}
			if err := config.ApplyEnv(cfg); err != nil {
				return usageError(cmd, err)
			}
			f := cmd.Flags()
			if f.Changed("command") {
				cfg.Command = command
				cfg.CommandArgs = nil
			}
			if f.Changed("toolpath") {
				cfg.ToolPath = toolPath
			}

			// A command is optional here; when one is given, validate it so
			// the diagnostic resolves the same executable a run would.
			if cfg.Command != "" || len(cfg.CommandArgs) > 0 {
				if err := cfg.Validate(); err != nil {
					return usageError(cmd, err)
				}
			}

			log, closeLog, err := logging.New(logging.Options{Verbose: verbose, NoColor: noColor})
			if err != nil {
				return err
			}
			defer closeLog()

			return check.New().Run(context.Background(), cfg, log)
		},
	}
	cmd.Flags().StringVarP(&command, "command", "c", "", "command whose executable should be resolved")
	cmd.Flags().StringVarP(&toolPath, "toolpath", "p", "", "directory prepended to PATH")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored logs")
	cmd.Flags().StringVar(&configFile, "config", "", "config file (default: "+config.DefaultFileName+" if present)")
	return cmd
}
