package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sponsorkit/internal/domain"
	"sponsorkit/internal/tiers"
)

// DefaultInlineCSS styles the generated SVG.
const DefaultInlineCSS = `
text {
  font-weight: 300;
  font-size: 14px;
  fill: #777777;
  font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, 'Open Sans', 'Helvetica Neue', sans-serif;
}
.sponsorkit-link {
  cursor: pointer;
}
.sponsorkit-tier-title {
  font-weight: 500;
  font-size: 20px;
}
`

// CandidateFiles are looked up in the working directory when no explicit
// config path is given.
var CandidateFiles = []string{
	"sponsorkit.yaml",
	"sponsorkit.yml",
	"sponsor.config.yaml",
	"sponsor.config.yml",
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is an explicit config file. Missing explicit files are an error.
	Path string
	// Dir is where candidate files and .env are looked up.
	Dir string
	// Override runs last, after env and file values are applied.
	Override func(c *Config)
}

// Defaults returns the configuration used before env and files apply.
func Defaults() *Config {
	includePrivate := false
	return &Config{
		RenderOptions: RenderOptions{
			Name:           "sponsors",
			Renderer:       RendererTiers,
			Formats:        []string{FormatJSON, FormatSVG, FormatPNG},
			Tiers:          domain.DefaultTiers(),
			Width:          800,
			SVGInlineCSS:   DefaultInlineCSS,
			IncludePrivate: &includePrivate,
		},
		OutputDir:         "./sponsorkit",
		CacheFile:         ".cache.json",
		AvatarConcurrency: 15,
		Afdian:            AfdianConfig{ExchangeRate: 6.5},
	}
}

// Load builds the configuration: defaults, then environment (with .env),
// then the YAML file, then opts.Override.
func Load(opts LoadOptions) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	// A missing .env is fine.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg := Defaults()
	// Tiers stay empty until the file and override ran so the past sponsor
	// default only looks at tiers the user configured.
	stockTiers := cfg.Tiers
	cfg.Tiers = nil
	applyEnv(cfg)

	path, err := findFile(dir, opts.Path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if opts.Override != nil {
		opts.Override(cfg)
	}
	resolvePastDefault(cfg)
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = stockTiers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePastDefault turns past sponsors on for every sheet whose own tiers
// have a non-positive bound, unless the sheet says otherwise. The stock
// "Past Sponsors" tier does not count.
func resolvePastDefault(cfg *Config) {
	for i := range cfg.Renders {
		r := &cfg.Renders[i]
		if r.IncludePastSponsors == nil && len(r.Tiers) > 0 {
			v := tiers.HasPastTier(r.Tiers)
			r.IncludePastSponsors = &v
		}
	}
	if cfg.IncludePastSponsors == nil {
		v := tiers.HasPastTier(cfg.Tiers)
		cfg.IncludePastSponsors = &v
	}
}

func decode(raw []byte, cfg *Config) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func findFile(dir, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		return explicit, nil
	}
	for _, name := range CandidateFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config: %w", err)
		}
	}
	return "", nil
}

// Validate reports configuration errors that can be detected before any
// network call.
func (c *Config) Validate() error {
	seen := map[string]int{}
	for i, r := range c.RenderPasses() {
		if prev, ok := seen[r.Name]; ok {
			return fmt.Errorf("config: %w: %q at index %d (first at %d)", domain.ErrDuplicateRender, r.Name, i, prev)
		}
		seen[r.Name] = i
		switch r.Renderer {
		case RendererTiers, RendererCircles:
		default:
			return fmt.Errorf("config: %w: render %q uses unknown renderer %q", domain.ErrConfig, r.Name, r.Renderer)
		}
		for _, f := range r.Formats {
			switch f {
			case FormatJSON, FormatSVG, FormatPNG:
			default:
				return fmt.Errorf("config: %w: render %q uses unknown format %q", domain.ErrConfig, r.Name, f)
			}
		}
		for _, t := range r.Tiers {
			if t.PresetName == "" || t.Preset != nil {
				continue
			}
			if _, ok := domain.Presets[t.PresetName]; !ok {
				return fmt.Errorf("config: %w: tier %q uses unknown preset %q", domain.ErrConfig, t.Title, t.PresetName)
			}
		}
	}
	return nil
}

func applyEnv(c *Config) {
	c.GitHub.Login = firstEnv(c.GitHub.Login, "SPONSORKIT_GITHUB_LOGIN", "SPONSORKIT_LOGIN", "GITHUB_ID")
	c.GitHub.Token = firstEnv(c.GitHub.Token, "SPONSORKIT_GITHUB_TOKEN", "SPONSORKIT_TOKEN", "GITHUB_TOKEN")
	c.GitHub.Type = firstEnv(c.GitHub.Type, "SPONSORKIT_GITHUB_TYPE")
	c.Patreon.Token = firstEnv(c.Patreon.Token, "SPONSORKIT_PATREON_TOKEN")
	c.OpenCollective.Key = firstEnv(c.OpenCollective.Key, "SPONSORKIT_OPENCOLLECTIVE_KEY")
	c.OpenCollective.ID = firstEnv(c.OpenCollective.ID, "SPONSORKIT_OPENCOLLECTIVE_ID")
	c.OpenCollective.Slug = firstEnv(c.OpenCollective.Slug, "SPONSORKIT_OPENCOLLECTIVE_SLUG")
	c.OpenCollective.GitHubHandle = firstEnv(c.OpenCollective.GitHubHandle, "SPONSORKIT_OPENCOLLECTIVE_GH_HANDLE")
	c.OpenCollective.Type = firstEnv(c.OpenCollective.Type, "SPONSORKIT_OPENCOLLECTIVE_TYPE")
	c.Afdian.UserID = firstEnv(c.Afdian.UserID, "SPONSORKIT_AFDIAN_USER_ID")
	c.Afdian.Token = firstEnv(c.Afdian.Token, "SPONSORKIT_AFDIAN_TOKEN")
	c.Afdian.ExchangeRate = getEnvFloat("SPONSORKIT_AFDIAN_EXCHANGE_RATE", c.Afdian.ExchangeRate)
	c.Polar.Token = firstEnv(c.Polar.Token, "SPONSORKIT_POLAR_TOKEN")
	c.Polar.Organization = firstEnv(c.Polar.Organization, "SPONSORKIT_POLAR_ORGANIZATION")
	c.Liberapay.Login = firstEnv(c.Liberapay.Login, "SPONSORKIT_LIBERAPAY_LOGIN")
	c.YouTube.ClientID = firstEnv(c.YouTube.ClientID, "SPONSORKIT_YOUTUBE_CLIENT_ID")
	c.YouTube.ClientSecret = firstEnv(c.YouTube.ClientSecret, "SPONSORKIT_YOUTUBE_CLIENT_SECRET")
	c.YouTube.RefreshToken = firstEnv(c.YouTube.RefreshToken, "SPONSORKIT_YOUTUBE_REFRESH_TOKEN")
	c.OutputDir = getEnv("SPONSORKIT_DIR", c.OutputDir)
	c.AvatarConcurrency = getEnvInt("SPONSORKIT_AVATAR_CONCURRENCY", c.AvatarConcurrency)
}

// firstEnv returns the first non-empty variable among keys, or current.
func firstEnv(current string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return current
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
