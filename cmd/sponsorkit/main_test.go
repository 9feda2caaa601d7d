package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sponsorkit/internal/cache"
	"sponsorkit/internal/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{{"run"}, {"serve"}, {"credentials", "set"}, {"credentials", "list"}, {"credentials", "delete"}} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not registered: %v", path, err)
		}
	}
}

func TestCredentialsSetValidatesBeforeConnecting(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SPONSORKIT_CACHE_BACKEND", "")
	t.Setenv("SPONSORKIT_GITHUB_TOKEN", "")

	_, err := execute(t, "credentials", "set", "--provider", "nope", "--token", "x")
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected unknown provider, got %v", err)
	}
	_, err = execute(t, "credentials", "set", "--provider", "github", "--token", "")
	if err == nil || !strings.Contains(err.Error(), "token is required") {
		t.Fatalf("expected missing token error, got %v", err)
	}
	_, err = execute(t, "credentials", "set", "--provider", "github", "--token", "ghp_x")
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

// seedProject writes a config and a cached snapshot with one sponsor and
// returns the project and output directories.
func seedProject(t *testing.T) (string, string) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "SPONSORKIT_CACHE_BACKEND", "SPONSORKIT_GITHUB_LOGIN",
		"SPONSORKIT_GITHUB_TOKEN", "SPONSORKIT_TOKEN", "GITHUB_TOKEN",
		"SPONSORKIT_PATREON_TOKEN", "SPONSORKIT_POLAR_TOKEN", "SPONSORKIT_DIR",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("APP_ENV", "test")

	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	cfg := "outputDir: " + outDir + "\ngithub:\n  login: someone\n"
	if err := os.WriteFile(filepath.Join(dir, "sponsorkit.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	snapshot := []*domain.Sponsorship{{
		Sponsor:        domain.Sponsor{Type: domain.SponsorTypeUser, Login: "antfu", Name: "Anthony"},
		MonthlyDollars: 25,
		PrivacyLevel:   domain.PrivacyPublic,
		CreatedAt:      "2023-01-01T00:00:00.000Z",
		Provider:       "github",
	}}
	if err := cache.NewFileStore(filepath.Join(outDir, ".cache.json")).Save(t.Context(), snapshot); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	return dir, outDir
}

func TestRunRendersFromCache(t *testing.T) {
	dir, outDir := seedProject(t)

	out, err := execute(t, "run", "--dir", dir, "--config", "", "--force=false", "--clear-cache=false")
	if err != nil {
		t.Fatalf("run returned error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 sponsors from cache, wrote 3 files") {
		t.Fatalf("unexpected output: %q", out)
	}
	for _, name := range []string{"sponsors.json", "sponsors.svg", "sponsors.png"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestRunClearCacheDropsSnapshot(t *testing.T) {
	dir, outDir := seedProject(t)

	// Without a token the refetch fails before any request is sent.
	_, err := execute(t, "run", "--dir", dir, "--config", "", "--force=false", "--clear-cache")
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials after clearing, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, ".cache.json")); !os.IsNotExist(err) {
		t.Fatalf("snapshot should be gone, stat error: %v", err)
	}
}
