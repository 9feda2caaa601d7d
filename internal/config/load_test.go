package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sponsorkit/internal/domain"
	"sponsorkit/internal/replace"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SPONSORKIT_GITHUB_LOGIN", "SPONSORKIT_LOGIN", "GITHUB_ID",
		"SPONSORKIT_GITHUB_TOKEN", "SPONSORKIT_TOKEN", "GITHUB_TOKEN",
		"SPONSORKIT_PATREON_TOKEN", "SPONSORKIT_DIR",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(LoadOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Name != "sponsors" || cfg.Width != 800 || cfg.OutputDir != "./sponsorkit" {
		t.Fatalf("unexpected defaults: name=%q width=%d dir=%q", cfg.Name, cfg.Width, cfg.OutputDir)
	}
	if cfg.PastIncluded() {
		t.Fatalf("past sponsors should be excluded when no tiers are configured")
	}
	if len(cfg.Tiers) != len(domain.DefaultTiers()) {
		t.Fatalf("expected the stock tiers, got %d", len(cfg.Tiers))
	}
	if cfg.PrivateIncluded() {
		t.Fatalf("private sponsors should be excluded by default")
	}
}

func TestLoadEnvThenFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPONSORKIT_GITHUB_LOGIN", "from-env")
	t.Setenv("SPONSORKIT_GITHUB_TOKEN", "token-env")
	dir := t.TempDir()
	writeFile(t, dir, "sponsorkit.yaml", `
github:
  login: from-file
sponsorsAutoMerge: true
replaceLinks:
  https://github.com/a: https://a.dev
mergeSponsors:
  - - login: antfu
      provider: github
    - login: antfu
      provider: patreon
tiers:
  - title: Backers
  - title: Gold
    monthlyDollars: 100
    preset: xl
`)

	cfg, err := Load(LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.GitHub.Login != "from-file" {
		t.Fatalf("login = %q, want from-file", cfg.GitHub.Login)
	}
	if cfg.GitHub.Token != "token-env" {
		t.Fatalf("token = %q, want token-env", cfg.GitHub.Token)
	}
	if !cfg.SponsorsAutoMerge {
		t.Fatalf("expected auto merge to be enabled")
	}
	if len(cfg.ReplaceLinks) != 1 || cfg.ReplaceLinks[0].Kind != replace.KindLiteral ||
		cfg.ReplaceLinks[0].From != "https://github.com/a" || cfg.ReplaceLinks[0].To != "https://a.dev" {
		t.Fatalf("unexpected replaceLinks: %#v", cfg.ReplaceLinks)
	}
	if len(cfg.MergeSponsors) != 1 || len(cfg.MergeSponsors[0].Matchers) != 2 {
		t.Fatalf("unexpected mergeSponsors: %#v", cfg.MergeSponsors)
	}
	if len(cfg.Tiers) != 2 || cfg.Tiers[1].LowerBound() != 100 {
		t.Fatalf("unexpected tiers: %#v", cfg.Tiers)
	}
	if cfg.PastIncluded() {
		t.Fatalf("tiers without a past tier should not include past sponsors")
	}
}

func TestLoadPastDefaultFollowsConfiguredTiers(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "sponsorkit.yaml", `
tiers:
  - title: Past Sponsors
    monthlyDollars: -1
  - title: Backers
renders:
  - name: sponsors
  - name: wall
    tiers:
      - title: Everyone
  - name: circles
    renderer: circles
    includePastSponsors: false
`)
	cfg, err := Load(LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.PastIncluded() {
		t.Fatalf("a configured past tier should include past sponsors")
	}
	passes := cfg.RenderPasses()
	want := map[string]bool{"sponsors": true, "wall": false, "circles": false}
	for _, p := range passes {
		if p.PastIncluded() != want[p.Name] {
			t.Fatalf("render %q: PastIncluded = %v, want %v", p.Name, p.PastIncluded(), want[p.Name])
		}
	}
}

func TestLoadPastDefaultFromOverride(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(LoadOptions{Dir: t.TempDir(), Override: func(c *Config) {
		c.Tiers = domain.DefaultTiers()
	}})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.PastIncluded() {
		t.Fatalf("tiers set by the override should drive the past default")
	}
}

func TestLoadOverrideWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "sponsorkit.yaml", "width: 600\n")
	cfg, err := Load(LoadOptions{Dir: dir, Override: func(c *Config) { c.Width = 1000 }})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Width != 1000 {
		t.Fatalf("width = %d, want 1000", cfg.Width)
	}
}

func TestLoadRejectsDuplicateRenderNames(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "sponsorkit.yaml", `
renders:
  - name: sponsors
  - renderer: circles
`)
	_, err := Load(LoadOptions{Dir: dir})
	if !errors.Is(err, domain.ErrDuplicateRender) {
		t.Fatalf("expected duplicate render error, got %v", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "sponsorkit.yaml", "widht: 10\n")
	if _, err := Load(LoadOptions{Dir: dir}); err == nil {
		t.Fatalf("expected unknown field to fail")
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	clearEnv(t)
	if _, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatalf("expected missing explicit config to fail")
	}
}

func TestRenderPassesInheritTopLevel(t *testing.T) {
	cfg := Defaults()
	cfg.Renders = []RenderOptions{
		{Name: "sponsors"},
		{Name: "circles", Renderer: RendererCircles, Width: 400},
	}
	passes := cfg.RenderPasses()
	if len(passes) != 2 {
		t.Fatalf("passes = %d, want 2", len(passes))
	}
	if passes[0].Width != 800 || passes[0].Renderer != RendererTiers {
		t.Fatalf("first pass did not inherit: %+v", passes[0])
	}
	if passes[1].Width != 400 || passes[1].Renderer != RendererCircles {
		t.Fatalf("second pass lost its overrides: %+v", passes[1])
	}
	if !passes[1].HasFormat(FormatSVG) {
		t.Fatalf("second pass should inherit formats")
	}
}
