package config

import (
	"sponsorkit/internal/domain"
	"sponsorkit/internal/merge"
	"sponsorkit/internal/ordering"
	"sponsorkit/internal/replace"
	"sponsorkit/internal/tiers"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// Renderers.
const (
	RendererTiers   = "tiers"
	RendererCircles = "circles"
)

// GitHubConfig selects the GitHub Sponsors account.
type GitHubConfig struct {
	Login string `yaml:"login"`
	Token string `yaml:"token"`
	// Type is user or organization.
	Type string `yaml:"type"`
	// ScrapePastSponsors also reads the public inactive sponsors page.
	ScrapePastSponsors bool `yaml:"scrapePastSponsors"`
}

type PatreonConfig struct {
	Token string `yaml:"token"`
}

type OpenCollectiveConfig struct {
	Key          string `yaml:"key"`
	ID           string `yaml:"id"`
	Slug         string `yaml:"slug"`
	GitHubHandle string `yaml:"githubHandle"`
	// Type is collective or individual.
	Type string `yaml:"type"`
}

type AfdianConfig struct {
	UserID       string  `yaml:"userId"`
	Token        string  `yaml:"token"`
	ExchangeRate float64 `yaml:"exchangeRate"`
	// IncludePurchases keeps one-time purchases next to plans.
	IncludePurchases *bool `yaml:"includePurchases"`
	// PurchaseEffectivity is how many days a one-time purchase counts as active.
	PurchaseEffectivity *int `yaml:"purchaseEffectivity"`
}

type PolarConfig struct {
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
}

type LiberapayConfig struct {
	Login string `yaml:"login"`
}

type YouTubeConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	RefreshToken string `yaml:"refreshToken"`
}

// CircleOptions tunes the circles renderer.
type CircleOptions struct {
	RadiusMin  float64 `yaml:"radiusMin"`
	RadiusMax  float64 `yaml:"radiusMax"`
	RadiusPast float64 `yaml:"radiusPast"`
}

// RenderOptions configures one output sheet. Zero values inherit from the
// top level config.
type RenderOptions struct {
	Name                string         `yaml:"name"`
	Renderer            string         `yaml:"renderer"`
	Formats             []string       `yaml:"formats"`
	Tiers               []domain.Tier  `yaml:"tiers"`
	Circles             *CircleOptions `yaml:"circles"`
	Width               int            `yaml:"width"`
	Padding             domain.Padding `yaml:"padding"`
	SVGInlineCSS        string         `yaml:"svgInlineCSS"`
	IncludePrivate      *bool          `yaml:"includePrivate"`
	IncludePastSponsors *bool          `yaml:"includePastSponsors"`

	Filter           ordering.FilterFunc                                                  `yaml:"-"`
	CustomComposer   func(c domain.Composer, ships []*domain.Sponsorship, r RenderOptions) `yaml:"-"`
	OnBeforeRenderer func(ships []*domain.Sponsorship) []*domain.Sponsorship              `yaml:"-"`
	OnSVGGenerated   func(svg string) string                                              `yaml:"-"`
}

// HasFormat reports whether f is one of the requested output formats.
func (r RenderOptions) HasFormat(f string) bool {
	for _, v := range r.Formats {
		if v == f {
			return true
		}
	}
	return false
}

// PrivateIncluded resolves IncludePrivate.
func (r RenderOptions) PrivateIncluded() bool {
	return r.IncludePrivate != nil && *r.IncludePrivate
}

// PastIncluded resolves IncludePastSponsors.
func (r RenderOptions) PastIncluded() bool {
	return r.IncludePastSponsors != nil && *r.IncludePastSponsors
}

// Config is the complete sponsorkit configuration.
type Config struct {
	RenderOptions `yaml:",inline"`

	GitHub         GitHubConfig         `yaml:"github"`
	Patreon        PatreonConfig        `yaml:"patreon"`
	OpenCollective OpenCollectiveConfig `yaml:"opencollective"`
	Afdian         AfdianConfig         `yaml:"afdian"`
	Polar          PolarConfig          `yaml:"polar"`
	Liberapay      LiberapayConfig      `yaml:"liberapay"`
	YouTube        YouTubeConfig        `yaml:"youtube"`

	// Providers lists provider names; empty means guess from credentials.
	Providers []string `yaml:"providers"`
	// TolerateProviderErrors keeps going when a provider fails.
	TolerateProviderErrors bool `yaml:"tolerateProviderErrors"`

	Force     bool   `yaml:"force"`
	CacheFile string `yaml:"cacheFile"`
	OutputDir string `yaml:"outputDir"`

	ReplaceLinks      replace.Rules `yaml:"replaceLinks"`
	ReplaceAvatars    replace.Rules `yaml:"replaceAvatars"`
	MergeSponsors     []merge.Rule  `yaml:"mergeSponsors"`
	SponsorsAutoMerge bool          `yaml:"sponsorsAutoMerge"`

	// FallbackAvatar is a URL or file path; FallbackAvatarData wins when set.
	FallbackAvatar        string `yaml:"fallbackAvatar"`
	FallbackAvatarData    []byte `yaml:"-"`
	DisableFallbackAvatar bool   `yaml:"disableFallbackAvatar"`
	AvatarConcurrency     int    `yaml:"avatarConcurrency"`

	Renders []RenderOptions `yaml:"renders"`

	OnSponsorsFetched    func(ships []*domain.Sponsorship, provider string) []*domain.Sponsorship `yaml:"-"`
	OnSponsorsAllFetched func(ships []*domain.Sponsorship) []*domain.Sponsorship                  `yaml:"-"`
	OnSponsorsReady      func(ships []*domain.Sponsorship) []*domain.Sponsorship                  `yaml:"-"`
}

// RenderPasses returns the resolved render options, one per output sheet.
func (c *Config) RenderPasses() []RenderOptions {
	if len(c.Renders) == 0 {
		return []RenderOptions{withPastDefault(c.RenderOptions)}
	}
	out := make([]RenderOptions, 0, len(c.Renders))
	for _, r := range c.Renders {
		out = append(out, withPastDefault(c.Resolve(r)))
	}
	return out
}

// withPastDefault turns past sponsors on when unset and the tiers have a
// place for them.
func withPastDefault(r RenderOptions) RenderOptions {
	if r.IncludePastSponsors == nil {
		v := tiers.HasPastTier(r.Tiers)
		r.IncludePastSponsors = &v
	}
	return r
}

// Resolve fills the zero fields of r from the top level options.
func (c *Config) Resolve(r RenderOptions) RenderOptions {
	base := c.RenderOptions
	if r.Name == "" {
		r.Name = base.Name
	}
	if r.Renderer == "" {
		r.Renderer = base.Renderer
	}
	if len(r.Formats) == 0 {
		r.Formats = base.Formats
	}
	if len(r.Tiers) == 0 {
		r.Tiers = base.Tiers
	}
	if r.Circles == nil {
		r.Circles = base.Circles
	}
	if r.Width == 0 {
		r.Width = base.Width
	}
	if r.Padding.Top == nil {
		r.Padding.Top = base.Padding.Top
	}
	if r.Padding.Bottom == nil {
		r.Padding.Bottom = base.Padding.Bottom
	}
	if r.SVGInlineCSS == "" {
		r.SVGInlineCSS = base.SVGInlineCSS
	}
	if r.IncludePrivate == nil {
		r.IncludePrivate = base.IncludePrivate
	}
	if r.IncludePastSponsors == nil {
		r.IncludePastSponsors = base.IncludePastSponsors
	}
	if r.Filter == nil {
		r.Filter = base.Filter
	}
	if r.CustomComposer == nil {
		r.CustomComposer = base.CustomComposer
	}
	if r.OnBeforeRenderer == nil {
		r.OnBeforeRenderer = base.OnBeforeRenderer
	}
	if r.OnSVGGenerated == nil {
		r.OnSVGGenerated = base.OnSVGGenerated
	}
	return r
}
