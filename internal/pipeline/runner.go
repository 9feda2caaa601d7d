// Package pipeline runs a full sponsorkit pass: fetch, merge, replace,
// resolve avatars, cache, sort and render.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sponsorkit/internal/avatar"
	"sponsorkit/internal/cache"
	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/infra"
	"sponsorkit/internal/merge"
	"sponsorkit/internal/ordering"
	"sponsorkit/internal/providers"
	"sponsorkit/internal/providers/fetch"
	"sponsorkit/internal/render"
	"sponsorkit/internal/replace"
	"sponsorkit/internal/storage"
	"sponsorkit/internal/tiers"
)

// ErrBusy is returned by TryRefresh while another run is in progress.
var ErrBusy = errors.New("pipeline: run already in progress")

// Options wires a Runner. Nil fields are built from Config.
type Options struct {
	Config    *config.Config
	Providers []providers.Provider
	Fetch     fetch.Options
	Avatars   *avatar.Resolver
	Cache     cache.Store
	Output    *storage.FileStore
	Logger    *infra.Logger
	Now       func() time.Time
}

// Result summarizes one run.
type Result struct {
	RunID     string
	FromCache bool
	// Fetched counts provider records before merging.
	Fetched  int
	Sponsors int
	Merged   int
	// FailedProviders lists providers skipped under TolerateProviderErrors.
	FailedProviders []string
	Outputs         []string
	StartedAt       time.Time
	Duration        time.Duration
}

type Runner struct {
	cfg       *config.Config
	providers []providers.Provider
	avatars   *avatar.Resolver
	cache     cache.Store
	output    *storage.FileStore
	logger    *infra.Logger
	now       func() time.Time

	mu sync.Mutex
}

// NewRunner validates the configuration and fills in default collaborators.
func NewRunner(opts Options) (*Runner, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: %w: config is required", domain.ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := infra.OrDiscard(opts.Logger)

	fetchOpts := opts.Fetch
	if fetchOpts.Logger == nil {
		fetchOpts.Logger = logger
	}

	provs := opts.Providers
	if provs == nil {
		var err error
		provs, err = providers.ForConfig(cfg, fetchOpts)
		if err != nil {
			return nil, err
		}
	}

	avatars := opts.Avatars
	if avatars == nil {
		avatars = avatar.NewResolver(avatar.Options{
			HTTPClient:  fetchOpts.HTTPClient,
			Logger:      logger,
			Concurrency: cfg.AvatarConcurrency,
		})
	}

	output := opts.Output
	if output == nil {
		var err error
		output, err = storage.NewFileStore(cfg.OutputDir)
		if err != nil {
			return nil, err
		}
	}

	store := opts.Cache
	if store == nil {
		store = cache.NewFileStore(filepath.Join(output.BasePath(), cfg.CacheFile))
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		cfg:       cfg,
		providers: provs,
		avatars:   avatars,
		cache:     store,
		output:    output,
		logger:    logger,
		now:       now,
	}, nil
}

// Output exposes the store the runner writes to.
func (r *Runner) Output() *storage.FileStore { return r.output }

// Run executes one pass, using the cache unless Config.Force is set.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run(ctx, r.cfg.Force)
}

// TryRefresh refetches every provider, or returns ErrBusy when a run is
// already going.
func (r *Runner) TryRefresh(ctx context.Context) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()
	return r.run(ctx, true)
}

// ClearCache drops the stored snapshot so the next run fetches every
// provider. It waits for a run in progress.
func (r *Runner) ClearCache(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.cache.Clear(ctx); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	r.logger.Info().Msg("pipeline: cache cleared")
	return nil
}

func (r *Runner) run(ctx context.Context, force bool) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), StartedAt: r.now()}
	logger := r.logger.With().Str("run_id", res.RunID).Logger()

	passes := r.cfg.RenderPasses()
	for _, pass := range passes {
		if pass.Renderer == config.RendererTiers && pass.CustomComposer == nil {
			if err := tiers.Validate(pass.Tiers); err != nil {
				return nil, fmt.Errorf("pipeline: render %q: %w", pass.Name, err)
			}
		}
	}

	ships, fromCache, err := r.loadCached(ctx, force, &logger)
	if err != nil {
		return nil, err
	}
	res.FromCache = fromCache
	if !fromCache {
		if ships, err = r.collect(ctx, res, &logger); err != nil {
			return nil, err
		}
	}

	ordering.Sort(ships)
	if r.cfg.OnSponsorsReady != nil {
		if out := r.cfg.OnSponsorsReady(ships); out != nil {
			ships = out
		}
	}
	res.Sponsors = len(ships)

	outputs, err := r.renderAll(ctx, passes, ships, &logger)
	if err != nil {
		return nil, err
	}
	res.Outputs = outputs
	res.Duration = r.now().Sub(res.StartedAt)

	logger.Info().
		Bool("from_cache", res.FromCache).
		Int("sponsors", res.Sponsors).
		Int("outputs", len(res.Outputs)).
		Dur("duration", res.Duration).
		Msg("pipeline: run finished")
	return res, nil
}

func (r *Runner) loadCached(ctx context.Context, force bool, logger *infra.Logger) ([]*domain.Sponsorship, bool, error) {
	if force {
		return nil, false, nil
	}
	ships, err := r.cache.Load(ctx)
	switch {
	case err == nil:
		logger.Info().Int("sponsors", len(ships)).Msg("pipeline: loaded sponsors from cache")
		return ships, true, nil
	case errors.Is(err, domain.ErrNotFound):
		return nil, false, nil
	case ctx.Err() != nil:
		return nil, false, ctx.Err()
	default:
		logger.Warn().Err(err).Msg("pipeline: unreadable cache, fetching again")
		return nil, false, nil
	}
}

// collect fetches, merges, rewrites and resolves avatars, then saves the
// snapshot.
func (r *Runner) collect(ctx context.Context, res *Result, logger *infra.Logger) ([]*domain.Sponsorship, error) {
	ships, failed, err := r.fetchAll(ctx, logger)
	if err != nil {
		return nil, err
	}
	res.FailedProviders = failed
	res.Fetched = len(ships)

	if r.cfg.OnSponsorsAllFetched != nil {
		if out := r.cfg.OnSponsorsAllFetched(ships); out != nil {
			ships = out
		}
	}

	merged := merge.Merge(ships, merge.Options{
		Rules:     r.cfg.MergeSponsors,
		AutoMerge: r.cfg.SponsorsAutoMerge,
		Logger:    logger,
	})
	ships = merged.Sponsors
	res.Merged = len(merged.Groups)

	replace.Apply(ships, r.cfg.ReplaceLinks, r.cfg.ReplaceAvatars)

	fallback, err := r.avatars.LoadFallback(ctx, r.cfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	r.avatars.SetFallback(fallback)
	logger.Info().Int("sponsors", len(ships)).Msg("pipeline: resolving avatars")
	if err := r.avatars.Resolve(ctx, ships); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	if err := r.cache.Save(ctx, ships); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return ships, nil
}

// fetchAll queries every provider concurrently and joins the results in
// declaration order.
func (r *Runner) fetchAll(ctx context.Context, logger *infra.Logger) ([]*domain.Sponsorship, []string, error) {
	results := make([][]*domain.Sponsorship, len(r.providers))
	failures := make([]error, len(r.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range r.providers {
		g.Go(func() error {
			logger.Info().Str("provider", p.Name()).Msg("pipeline: fetching sponsorships")
			ships, err := p.FetchSponsors(gctx, r.cfg)
			if err != nil {
				err = fmt.Errorf("pipeline: %s: %w", p.Name(), err)
				if r.cfg.TolerateProviderErrors && ctx.Err() == nil {
					failures[i] = err
					return nil
				}
				return err
			}
			for _, s := range ships {
				s.Provider = p.Name()
			}
			results[i] = ships
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []*domain.Sponsorship
	var failed []string
	for i, p := range r.providers {
		if failures[i] != nil {
			logger.Error().Err(failures[i]).Str("provider", p.Name()).Msg("pipeline: provider failed, continuing without it")
			failed = append(failed, p.Name())
			continue
		}
		ships := results[i]
		if r.cfg.OnSponsorsFetched != nil {
			if out := r.cfg.OnSponsorsFetched(ships, p.Name()); out != nil {
				ships = out
			}
		}
		logger.Info().Str("provider", p.Name()).Int("sponsors", len(ships)).Msg("pipeline: fetched sponsorships")
		all = append(all, ships...)
	}
	return all, failed, nil
}

func (r *Runner) renderAll(ctx context.Context, passes []config.RenderOptions, ships []*domain.Sponsorship, logger *infra.Logger) ([]string, error) {
	keys := make([][]string, len(passes))
	g, gctx := errgroup.WithContext(ctx)
	for i, pass := range passes {
		g.Go(func() error {
			written, err := r.renderPass(gctx, pass, domain.CloneAll(ships), logger)
			if err != nil {
				return fmt.Errorf("pipeline: render %q: %w", pass.Name, err)
			}
			keys[i] = written
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		out = append(out, k...)
	}
	return out, nil
}

func (r *Runner) renderPass(ctx context.Context, pass config.RenderOptions, ships []*domain.Sponsorship, logger *infra.Logger) ([]string, error) {
	renderer, err := render.ForName(pass.Renderer)
	if err != nil {
		return nil, err
	}
	if pass.OnBeforeRenderer != nil {
		if out := pass.OnBeforeRenderer(ships); out != nil {
			ships = out
		}
	}

	var written []string
	write := func(ext string, data []byte) error {
		key, err := r.output.Write(ctx, pass.Name+"."+ext, data)
		if err != nil {
			return err
		}
		logger.Info().Str("render", pass.Name).Str("key", key).Msg("pipeline: wrote output")
		written = append(written, key)
		return nil
	}

	if pass.HasFormat(config.FormatJSON) {
		raw, err := json.MarshalIndent(ships, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		if err := write(config.FormatJSON, raw); err != nil {
			return nil, err
		}
	}
	if !pass.HasFormat(config.FormatSVG) && !pass.HasFormat(config.FormatPNG) {
		return written, nil
	}

	visible := ordering.Filter(ships, pass.Filter, pass.PrivateIncluded())
	logger.Debug().Str("render", pass.Name).Int("sponsors", len(visible)).Msg("pipeline: composing")
	comp, err := renderer.Compose(ctx, pass, visible)
	if err != nil {
		return nil, err
	}

	if pass.HasFormat(config.FormatSVG) {
		svg := comp.SVG()
		if pass.OnSVGGenerated != nil {
			if out := pass.OnSVGGenerated(svg); out != "" {
				svg = out
			}
		}
		if err := write(config.FormatSVG, []byte(svg)); err != nil {
			return nil, err
		}
	}
	if pass.HasFormat(config.FormatPNG) {
		raw, err := comp.PNG()
		if err != nil {
			return nil, err
		}
		if err := write(config.FormatPNG, raw); err != nil {
			return nil, err
		}
	}
	return written, nil
}
