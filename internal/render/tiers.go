package render

import (
	"context"
	"fmt"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/tiers"
)

const (
	sheetPadding      = 20
	tierPaddingTop    = 20
	tierPaddingBottom = 10
	titleGap          = 5
)

// Tiers draws one titled grid per tier, richest tier first.
type Tiers struct{}

func (Tiers) Name() string { return config.RendererTiers }

func (t Tiers) RenderSVG(ctx context.Context, opts config.RenderOptions, ships []*domain.Sponsorship) (string, error) {
	return renderSVG(ctx, t, opts, ships)
}

func (Tiers) Compose(ctx context.Context, opts config.RenderOptions, ships []*domain.Sponsorship) (*Composer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := NewComposer(opts)
	if opts.CustomComposer != nil {
		opts.CustomComposer(c, ships, opts)
		return c, nil
	}

	partitions, err := tiers.Partition(ships, opts.Tiers, opts.PastIncluded())
	if err != nil {
		return nil, fmt.Errorf("render: %s: %w", opts.Name, err)
	}

	c.AddSpan(opts.Padding.TopOr(sheetPadding))
	for _, p := range partitions {
		tier := p.Tier
		if tier.ComposeBefore != nil {
			tier.ComposeBefore(c, p.Sponsors)
		}
		if tier.Compose != nil {
			tier.Compose(c, p.Sponsors)
		} else {
			composeTier(c, tier, p.Sponsors)
		}
		if tier.ComposeAfter != nil {
			tier.ComposeAfter(c, p.Sponsors)
		}
	}
	c.AddSpan(opts.Padding.BottomOr(sheetPadding))
	return c, nil
}

func composeTier(c *Composer, tier domain.Tier, ships []*domain.Sponsorship) {
	preset := tier.ResolvedPreset()
	if len(ships) == 0 || preset.Avatar.Size == 0 {
		return
	}
	if top := tier.Padding.TopOr(tierPaddingTop); top != 0 {
		c.AddSpan(top)
	}
	if tier.Title != "" {
		c.AddTitle(tier.Title).AddSpan(titleGap)
	}
	c.AddSponsorGrid(ships, preset)
	if bottom := tier.Padding.BottomOr(tierPaddingBottom); bottom != 0 {
		c.AddSpan(bottom)
	}
}
