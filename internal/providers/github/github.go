// Package github reads sponsorships from the GitHub Sponsors GraphQL API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/providers/fetch"
)

const Name = "github"

const (
	defaultAPI = "https://api.github.com"
	defaultWeb = "https://github.com"
)

type Provider struct {
	client *fetch.Client
	api    string
	web    string
}

// New builds the provider. opts.BaseURL replaces both the API and the
// public web host.
func New(opts fetch.Options) *Provider {
	return &Provider{
		client: fetch.New(Name, opts),
		api:    fetch.BaseURL(opts, defaultAPI),
		web:    fetch.BaseURL(opts, defaultWeb),
	}
}

func (p *Provider) Name() string { return Name }

type graphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type sponsorshipNode struct {
	CreatedAt    string `json:"createdAt"`
	PrivacyLevel string `json:"privacyLevel"`
	IsActive     bool   `json:"isActive"`
	Tier         *struct {
		Name                  string  `json:"name"`
		IsOneTime             bool    `json:"isOneTime"`
		MonthlyPriceInCents   int     `json:"monthlyPriceInCents"`
		MonthlyPriceInDollars float64 `json:"monthlyPriceInDollars"`
	} `json:"tier"`
	SponsorEntity struct {
		Typename   string `json:"__typename"`
		Login      string `json:"login"`
		Name       string `json:"name"`
		AvatarURL  string `json:"avatarUrl"`
		WebsiteURL string `json:"websiteUrl"`
	} `json:"sponsorEntity"`
}

type sponsorshipsPage struct {
	PageInfo struct {
		EndCursor   string `json:"endCursor"`
		HasNextPage bool   `json:"hasNextPage"`
	} `json:"pageInfo"`
	Nodes []json.RawMessage `json:"nodes"`
}

type queryResponse struct {
	Data   map[string]*struct {
		SponsorshipsAsMaintainer sponsorshipsPage `json:"sponsorshipsAsMaintainer"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// FetchSponsors pages through sponsorshipsAsMaintainer. Inactive
// sponsorships are requested only when past sponsors are rendered.
func (p *Provider) FetchSponsors(ctx context.Context, cfg *config.Config) ([]*domain.Sponsorship, error) {
	token := cfg.GitHub.Token
	login := cfg.GitHub.Login
	accountType := cfg.GitHub.Type
	if accountType == "" {
		accountType = "user"
	}
	if token == "" {
		return nil, fmt.Errorf("github: token is required: %w", domain.ErrMissingCredentials)
	}
	if login == "" {
		return nil, fmt.Errorf("github: login is required: %w", domain.ErrMissingCredentials)
	}
	if accountType != "user" && accountType != "organization" {
		return nil, fmt.Errorf("github: %w: type must be either user or organization, got %q", domain.ErrConfig, accountType)
	}
	includePast := cfg.PastIncluded()

	header := http.Header{"Authorization": {"bearer " + token}}
	var out []*domain.Sponsorship
	cursor := ""
	for {
		query := MakeQuery(login, accountType, !includePast, cursor)
		var resp queryResponse
		if err := p.client.PostJSON(ctx, p.api+"/graphql", header, map[string]string{"query": query}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Errors) > 0 {
			if resp.Errors[0].Type == "INSUFFICIENT_SCOPES" {
				return nil, fmt.Errorf("github: token is missing the read:user and/or read:org scopes: %w", domain.ErrMissingCredentials)
			}
			detail, _ := json.Marshal(resp.Errors)
			return nil, fmt.Errorf("github: api error %s: %w", detail, domain.ErrProviderFailure)
		}
		account := resp.Data[accountType]
		if account == nil {
			return nil, fmt.Errorf("github: no %s named %q: %w", accountType, login, domain.ErrProviderFailure)
		}
		page := account.SponsorshipsAsMaintainer
		for _, raw := range page.Nodes {
			var node sponsorshipNode
			if err := json.Unmarshal(raw, &node); err != nil {
				return nil, fmt.Errorf("github: decode sponsorship: %w", err)
			}
			if node.Tier == nil {
				continue
			}
			out = append(out, toSponsorship(node, raw))
		}
		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" {
			break
		}
		cursor = page.PageInfo.EndCursor
	}

	if cfg.GitHub.ScrapePastSponsors && includePast {
		past, err := p.scrapePastSponsors(ctx, login)
		if err != nil {
			p.client.Logger().Warn().Err(err).Str("login", login).Msg("github: past sponsors scrape failed")
		} else {
			out = appendUnseen(out, past)
		}
	}
	return out, nil
}

func toSponsorship(node sponsorshipNode, raw json.RawMessage) *domain.Sponsorship {
	dollars := node.Tier.MonthlyPriceInDollars
	if !node.IsActive {
		dollars = domain.PastSponsorDollars
	}
	entity := node.SponsorEntity
	return &domain.Sponsorship{
		Sponsor: domain.Sponsor{
			Type:       domain.SponsorType(entity.Typename),
			Login:      entity.Login,
			Name:       entity.Name,
			AvatarURL:  entity.AvatarURL,
			WebsiteURL: fetch.NormalizeURL(entity.WebsiteURL),
			LinkURL:    "https://github.com/" + entity.Login,
		},
		IsOneTime:      node.Tier.IsOneTime,
		MonthlyDollars: dollars,
		PrivacyLevel:   domain.PrivacyLevel(node.PrivacyLevel),
		TierName:       node.Tier.Name,
		CreatedAt:      node.CreatedAt,
		Raw:            raw,
	}
}

// appendUnseen adds scraped records whose login the API did not return.
func appendUnseen(ships, scraped []*domain.Sponsorship) []*domain.Sponsorship {
	seen := make(map[string]struct{}, len(ships))
	for _, s := range ships {
		seen[strings.ToLower(s.Sponsor.Login)] = struct{}{}
	}
	for _, s := range scraped {
		if s.Sponsor.Login != "" {
			key := strings.ToLower(s.Sponsor.Login)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
		}
		ships = append(ships, s)
	}
	return ships
}

// MakeQuery builds the sponsorshipsAsMaintainer query for one page.
func MakeQuery(login, accountType string, activeOnly bool, cursor string) string {
	after := ""
	if cursor != "" {
		after = fmt.Sprintf(" after: %q", cursor)
	}
	return fmt.Sprintf(`{
  %s(login: %q) {
    sponsorshipsAsMaintainer(activeOnly: %t, first: 100%s) {
      totalCount
      pageInfo {
        endCursor
        hasNextPage
      }
      nodes {
        createdAt
        privacyLevel
        isActive
        tier {
          name
          isOneTime
          monthlyPriceInCents
          monthlyPriceInDollars
        }
        sponsorEntity {
          __typename
          ...on Organization {
            login
            name
            avatarUrl
            websiteUrl
          }
          ...on User {
            login
            name
            avatarUrl
            websiteUrl
          }
        }
      }
    }
  }
}`, accountType, login, activeOnly, after)
}
