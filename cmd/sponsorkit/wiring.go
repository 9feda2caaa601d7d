package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"sponsorkit/internal/cache"
	"sponsorkit/internal/config"
	"sponsorkit/internal/infra"
	"sponsorkit/internal/infra/credentials"
	"sponsorkit/internal/pipeline"
	"sponsorkit/internal/providers/fetch"
)

// app holds everything a subcommand needs. close releases the database
// pool when one was opened.
type app struct {
	infra  *infra.Config
	cfg    *config.Config
	logger infra.Logger
	pool   *pgxpool.Pool
	sql    infra.SQLExecutor
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func newLogger(appEnv string) infra.Logger {
	logger := infra.NewLogger(appEnv)
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}
	return logger
}

// openInfra loads process settings and connects Postgres when configured.
func openInfra(ctx context.Context) (*app, error) {
	infraCfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{infra: infraCfg, logger: newLogger(infraCfg.AppEnv)}
	if infraCfg.HasDatabase() {
		pool, err := infra.NewDBPool(ctx, infraCfg)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.sql = infra.NewSQLRunner(pool, a.logger.With().Str("component", "sql").Logger())
	}
	return a, nil
}

// loadApp opens infra and loads the sponsorkit configuration, filling
// missing provider tokens from the credentials table.
func loadApp(ctx context.Context, force bool) (*app, error) {
	a, err := openInfra(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.LoadOptions{
		Path: configPath,
		Dir:  workDir,
		Override: func(c *config.Config) {
			if force {
				c.Force = true
			}
		},
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.cfg = cfg

	if a.sql != nil {
		if err := credentials.NewStore(a.sql).Apply(ctx, cfg); err != nil {
			a.logger.Warn().Err(err).Msg("sponsorkit: stored credentials unavailable")
		}
	}
	return a, nil
}

func (a *app) newRunner(ctx context.Context) (*pipeline.Runner, error) {
	var store cache.Store
	if a.infra.CacheBackend == infra.CacheBackendPostgres {
		if a.sql == nil {
			return nil, fmt.Errorf("sponsorkit: postgres cache needs DATABASE_URL")
		}
		pg := cache.NewPostgresStore(a.sql, a.cfg.Name)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		store = pg
	}
	return pipeline.NewRunner(pipeline.Options{
		Config: a.cfg,
		Cache:  store,
		Logger: &a.logger,
		Fetch:  fetch.Options{Logger: &a.logger},
	})
}
