// Package avatar downloads sponsor avatars and normalizes them into small
// square PNG buffers.
package avatar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/infra"
)

const (
	userAgent       = "Mozilla/5.0 Chrome/124.0.0.0 Safari/537.36 Sponsorkit"
	maxAvatarBytes  = 10 << 20
	defaultParallel = 15
)

// Options configures a Resolver.
type Options struct {
	HTTPClient  *http.Client
	Logger      *infra.Logger
	Concurrency int
	Size        int
	// Fallback replaces avatars that are private, missing or broken. Nil
	// makes a broken avatar fatal.
	Fallback []byte
}

// Resolver fills Sponsor.AvatarBuffer.
type Resolver struct {
	httpClient  *http.Client
	logger      *infra.Logger
	concurrency int
	size        int
	fallback    []byte
}

func NewResolver(opts Options) *Resolver {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultParallel
	}
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	return &Resolver{
		httpClient:  httpClient,
		logger:      logger,
		concurrency: concurrency,
		size:        size,
		fallback:    opts.Fallback,
	}
}

// Resolve downloads and resizes every avatar with bounded concurrency.
// Each record is written by exactly one goroutine.
func (r *Resolver) Resolve(ctx context.Context, ships []*domain.Sponsorship) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, ship := range ships {
		g.Go(func() error {
			return r.resolveOne(ctx, ship)
		})
	}
	return g.Wait()
}

func (r *Resolver) resolveOne(ctx context.Context, ship *domain.Sponsorship) error {
	if ship.IsPrivate() || ship.Sponsor.AvatarURL == "" {
		ship.Sponsor.AvatarBuffer = r.fallback
		return nil
	}
	raw, err := r.download(ctx, ship.Sponsor.AvatarURL)
	var buf []byte
	if err == nil {
		buf, err = Resize(raw, r.size)
	}
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("sponsor", ship.DisplayName()).
			Str("url", ship.Sponsor.AvatarURL).
			Msg("avatar: failed to fetch avatar")
		if r.fallback == nil {
			return fmt.Errorf("avatar: %s: %w: %w", ship.DisplayName(), domain.ErrAvatarUnavailable, err)
		}
		buf = r.fallback
	}
	ship.Sponsor.AvatarBuffer = buf
	return nil
}

func (r *Resolver) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("avatar: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avatar: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("avatar: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		return nil, fmt.Errorf("avatar: read: %w", err)
	}
	return data, nil
}

// LoadFallback returns the fallback avatar for cfg, resized. Inline data
// wins over FallbackAvatar, which may be a URL or a file path. With
// neither, the built-in silhouette is used. DisableFallbackAvatar returns
// nil.
func (r *Resolver) LoadFallback(ctx context.Context, cfg *config.Config) ([]byte, error) {
	if cfg.DisableFallbackAvatar {
		return nil, nil
	}
	var raw []byte
	switch src := strings.TrimSpace(cfg.FallbackAvatar); {
	case len(cfg.FallbackAvatarData) > 0:
		raw = cfg.FallbackAvatarData
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		data, err := r.download(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("avatar: fallback: %w", err)
		}
		raw = data
	case src != "":
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("avatar: fallback: %w", err)
		}
		raw = data
	default:
		return DefaultFallback(), nil
	}
	return Resize(raw, r.size)
}

// SetFallback replaces the fallback buffer used by Resolve.
func (r *Resolver) SetFallback(b []byte) {
	r.fallback = b
}
