package render

import (
	"context"
	"fmt"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
)

// Renderer turns a filtered sponsor list into a composed sheet. Renderers
// never modify ships.
type Renderer interface {
	Name() string
	Compose(ctx context.Context, opts config.RenderOptions, ships []*domain.Sponsorship) (*Composer, error)
	RenderSVG(ctx context.Context, opts config.RenderOptions, ships []*domain.Sponsorship) (string, error)
}

var builtin = map[string]Renderer{
	config.RendererTiers:   Tiers{},
	config.RendererCircles: Circles{},
}

// ForName returns the built-in renderer registered as name. An empty name
// selects tiers.
func ForName(name string) (Renderer, error) {
	if name == "" {
		name = config.RendererTiers
	}
	r, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("render: %w: unknown renderer %q", domain.ErrConfig, name)
	}
	return r, nil
}

func renderSVG(ctx context.Context, r Renderer, opts config.RenderOptions, ships []*domain.Sponsorship) (string, error) {
	c, err := r.Compose(ctx, opts, ships)
	if err != nil {
		return "", err
	}
	return c.SVG(), nil
}
