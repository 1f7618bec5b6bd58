// Package cmd defines the CLI commands for the netawatch executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openneta/netawatch/internal/app"
	"github.com/openneta/netawatch/internal/config"
)

var cfgFile string

// buildApp is a variable so tests can substitute a prebuilt graph.
var buildApp = func() (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "netawatch",
		Short: "Acquisition service for Indian legislator disclosures",
		Long: `netawatch resolves legislator profile pages and election affidavits
from their public portals into structured, cached records. It runs either
as a long-lived HTTP service or as one-shot lookups from the command line.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMemberCmd())
	cmd.AddCommand(newAffidavitCmd())
	return cmd
}

// Execute is the CLI entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
