package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sponsorkit/internal/http/handlers"
	"sponsorkit/internal/http/httpapi"
	"sponsorkit/internal/infra"
)

var refreshOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered sheets over HTTP",
	Long: `Serve the output directory over HTTP:

  GET  /v1/healthz        - liveness
  GET  /v1/renders/       - list rendered files
  GET  /v1/renders/{file} - one rendered file
  GET  /v1/renders.zip    - every rendered file as a zip
  POST /v1/refresh        - refetch and re-render (bearer SPONSORKIT_REFRESH_TOKEN)`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&refreshOnStart, "refresh", false, "Run the pipeline once before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	runner, err := a.newRunner(ctx)
	if err != nil {
		return err
	}
	if refreshOnStart {
		if _, err := runner.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("sponsorkit: initial run failed")
		}
	}
	if a.infra.RefreshToken == "" {
		logger.Warn().Msg("sponsorkit: SPONSORKIT_REFRESH_TOKEN unset, refresh endpoint disabled")
	}

	app := handlers.NewApp(runner, runner.Output(), &logger, a.infra.RunTimeout)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:           &logger,
		RefreshToken:     a.infra.RefreshToken,
		RefreshPerMinute: a.infra.RateLimitPerMin,
		AllowedOrigins:   a.infra.CORSOrigins,
	})
	server := infra.NewHTTPServer(a.infra, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("sponsorkit: listening on %s", server.Addr())
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.infra.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("sponsorkit: failed to shutdown server")
	}
	logger.Info().Msg("sponsorkit: server stopped")
	return nil
}
