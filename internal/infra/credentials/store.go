package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/infra"
	"sponsorkit/internal/sqlinline"
)

// Providers whose secret can be kept in the integration_tokens table.
const (
	ProviderGitHub         = "github"
	ProviderPatreon        = "patreon"
	ProviderOpenCollective = "opencollective"
	ProviderAfdian         = "afdian"
	ProviderPolar          = "polar"
	ProviderYouTube        = "youtube"
)

// tokenFields maps a provider to the config field holding its secret.
var tokenFields = map[string]func(c *config.Config) *string{
	ProviderGitHub:         func(c *config.Config) *string { return &c.GitHub.Token },
	ProviderPatreon:        func(c *config.Config) *string { return &c.Patreon.Token },
	ProviderOpenCollective: func(c *config.Config) *string { return &c.OpenCollective.Key },
	ProviderAfdian:         func(c *config.Config) *string { return &c.Afdian.Token },
	ProviderPolar:          func(c *config.Config) *string { return &c.Polar.Token },
	ProviderYouTube:        func(c *config.Config) *string { return &c.YouTube.RefreshToken },
}

// Entry describes a stored token without exposing it.
type Entry struct {
	Provider  string
	UpdatedAt time.Time
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Supported reports whether provider has a storable secret.
func Supported(provider string) bool {
	_, ok := tokenFields[provider]
	return ok
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !Supported(provider) {
		return fmt.Errorf("credentials: %w: %q", domain.ErrUnknownProvider, provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("credentials: %s token is required", provider)
	}
	return s.upsert(ctx, provider, token, map[string]any{"source": "cli"})
}

func (s *Store) Delete(ctx context.Context, provider string) error {
	tag, err := s.sql.Exec(ctx, sqlinline.QDeleteIntegrationToken, provider)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credentials: %s: %w", provider, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListIntegrationProviders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Provider, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Apply fills every empty provider secret in cfg from the store. Values
// already set through env or the config file win.
func (s *Store) Apply(ctx context.Context, cfg *config.Config) error {
	for provider, field := range tokenFields {
		dst := field(cfg)
		if *dst != "" {
			continue
		}
		token, err := s.Token(ctx, provider)
		if err != nil {
			return fmt.Errorf("credentials: load %s: %w", provider, err)
		}
		*dst = token
	}
	return nil
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
