// Package providers resolves the configured sponsor platforms.
package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/providers/afdian"
	"sponsorkit/internal/providers/fetch"
	"sponsorkit/internal/providers/github"
	"sponsorkit/internal/providers/liberapay"
	"sponsorkit/internal/providers/opencollective"
	"sponsorkit/internal/providers/patreon"
	"sponsorkit/internal/providers/polar"
	"sponsorkit/internal/providers/youtube"
)

// Provider fetches the sponsorships of one platform.
type Provider interface {
	Name() string
	FetchSponsors(ctx context.Context, cfg *config.Config) ([]*domain.Sponsorship, error)
}

// Factory builds a provider from shared client options.
type Factory func(opts fetch.Options) Provider

var factories = map[string]Factory{
	github.Name:         func(o fetch.Options) Provider { return github.New(o) },
	patreon.Name:        func(o fetch.Options) Provider { return patreon.New(o) },
	opencollective.Name: func(o fetch.Options) Provider { return opencollective.New(o) },
	afdian.Name:         func(o fetch.Options) Provider { return afdian.New(o) },
	polar.Name:          func(o fetch.Options) Provider { return polar.New(o) },
	liberapay.Name:      func(o fetch.Options) Provider { return liberapay.New(o) },
	youtube.Name:        func(o fetch.Options) Provider { return youtube.New(o) },
}

// Names lists the known provider names in alphabetical order.
func Names() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Guess returns the providers whose credentials are present in cfg, in a
// fixed order. GitHub is the fallback when nothing is configured.
func Guess(cfg *config.Config) []string {
	var out []string
	if cfg.GitHub.Login != "" {
		out = append(out, github.Name)
	}
	if cfg.Patreon.Token != "" {
		out = append(out, patreon.Name)
	}
	if oc := cfg.OpenCollective; oc.ID != "" || oc.Slug != "" || oc.GitHubHandle != "" {
		out = append(out, opencollective.Name)
	}
	if cfg.Afdian.UserID != "" && cfg.Afdian.Token != "" {
		out = append(out, afdian.Name)
	}
	if cfg.Polar.Token != "" {
		out = append(out, polar.Name)
	}
	if cfg.Liberapay.Login != "" {
		out = append(out, liberapay.Name)
	}
	if cfg.YouTube.ClientID != "" {
		out = append(out, youtube.Name)
	}
	if len(out) == 0 {
		out = append(out, github.Name)
	}
	return out
}

// Resolve builds providers for names, dropping duplicates while keeping
// the first occurrence. Unknown names fail the whole call.
func Resolve(names []string, opts fetch.Options) ([]Provider, error) {
	seen := map[string]struct{}{}
	out := make([]Provider, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		factory, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("providers: %w: %q (known: %s)", domain.ErrUnknownProvider, raw, strings.Join(Names(), ", "))
		}
		out = append(out, factory(opts))
	}
	return out, nil
}

// ForConfig resolves cfg.Providers, or guesses them when unset.
func ForConfig(cfg *config.Config, opts fetch.Options) ([]Provider, error) {
	names := cfg.Providers
	if len(names) == 0 {
		names = Guess(cfg)
	}
	return Resolve(names, opts)
}
