package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pixeldrift/magickbatch/internal/config"
	"github.com/pixeldrift/magickbatch/internal/fetch"
	"github.com/pixeldrift/magickbatch/internal/logging"
)

// newFetchCmd builds the "fetch" subcommand: downloads effect scripts named
// by a remote listing into a local folder.
func newFetchCmd() *cobra.Command {
	var (
		listingURL string
		destDir    string
		verbose    bool
		noColor    bool
		configFile string
	)
	cmd := &cobra.Command{
		Use:          "fetch",
		Short:        "Download effect scripts from a remote listing",
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
			if f.Changed("url") {
				cfg.ListingURL = listingURL
			}
			if f.Changed("dest") {
				cfg.ScriptDir = destDir
			}

			log, closeLog, err := logging.New(logging.Options{Verbose: verbose, NoColor: noColor})
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			_, err = fetch.New(log).Run(ctx, cfg.ListingURL, cfg.ScriptDir)
			if err != nil {
				log.Errorf("%v", err)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&listingURL, "url", "u", "", "listing URL (one script name or URL per line)")
	cmd.Flags().StringVarP(&destDir, "dest", "d", "", "folder to save scripts into (default: scripts)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored logs")
	cmd.Flags().StringVar(&configFile, "config", "", "config file (default: "+config.DefaultFileName+" if present)")
	return cmd
}
