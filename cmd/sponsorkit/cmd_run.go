package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	forceFetch bool
	clearCache bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch sponsors and render every configured sheet",
	Long: `Run one pipeline pass. The cached sponsor snapshot is reused unless
--force is given or no snapshot exists yet. --clear-cache deletes the
snapshot first, which also drops it from the Postgres cache backend.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().BoolVarP(&forceFetch, "force", "f", false, "Ignore the cache and fetch every provider")
	runCmd.Flags().BoolVar(&clearCache, "clear-cache", false, "Delete the cached snapshot before running")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := loadApp(ctx, forceFetch)
	if err != nil {
		return err
	}
	defer a.close()

	runner, err := a.newRunner(ctx)
	if err != nil {
		return err
	}
	if clearCache {
		if err := runner.ClearCache(ctx); err != nil {
			return err
		}
	}
	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	source := "providers"
	if res.FromCache {
		source = "cache"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d sponsors from %s, wrote %d files to %s\n",
		res.Sponsors, source, len(res.Outputs), runner.Output().BasePath())
	for _, p := range res.FailedProviders {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped failing provider %s\n", p)
	}
	return nil
}
