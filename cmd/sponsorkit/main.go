package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	workDir    string
	verbose    bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "sponsorkit",
	Short: "Collect sponsors from every platform and render sponsor sheets",
	Long: `sponsorkit fetches sponsorships from GitHub Sponsors, Patreon,
OpenCollective, Afdian, Polar, Liberapay and YouTube memberships, merges
them into one list and renders JSON, SVG and PNG sponsor sheets.

Available subcommands:
  run         - Fetch (or reuse the cache) and render every sheet
  serve       - Serve the rendered sheets over HTTP
  credentials - Manage provider tokens stored in Postgres`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: sponsorkit.yaml in --dir)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "d", ".", "Working directory for the config and .env")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Timeout for a single pipeline run")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(credentialsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
