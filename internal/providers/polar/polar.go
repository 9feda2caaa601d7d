// Package polar reads subscriptions from the Polar API.
package polar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/providers/fetch"
)

const Name = "polar"

const defaultAPI = "https://api.polar.sh/api/v1"

type Provider struct {
	client *fetch.Client
	api    string
}

func New(opts fetch.Options) *Provider {
	return &Provider{client: fetch.New(Name, opts), api: fetch.BaseURL(opts, defaultAPI)}
}

func (p *Provider) Name() string { return Name }

type price struct {
	PriceAmount   float64 `json:"price_amount"`
	PriceCurrency string  `json:"price_currency"`
}

type subscription struct {
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	User      struct {
		PublicName     string `json:"public_name"`
		AvatarURL      string `json:"avatar_url"`
		GitHubUsername string `json:"github_username"`
	} `json:"user"`
	SubscriptionTier struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"subscription_tier"`
	Price        *price `json:"price"`
	Subscription *struct {
		Price *price `json:"price"`
	} `json:"subscription"`
}

type searchResponse struct {
	Items      []json.RawMessage `json:"items"`
	Pagination struct {
		MaxPage int `json:"max_page"`
	} `json:"pagination"`
}

// FetchSponsors pages the subscription search. Free subscriptions carry no
// price and are dropped; inactive ones become past sponsors.
func (p *Provider) FetchSponsors(ctx context.Context, cfg *config.Config) ([]*domain.Sponsorship, error) {
	token := cfg.Polar.Token
	if token == "" {
		return nil, fmt.Errorf("polar: token is required: %w", domain.ErrMissingCredentials)
	}
	header := http.Header{"Authorization": {"Bearer " + token}}

	var out []*domain.Sponsorship
	for page, pages := 1, 1; page <= pages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		if cfg.Polar.Organization != "" {
			q.Set("organization_name", cfg.Polar.Organization)
		}
		var resp searchResponse
		if err := p.client.GetJSON(ctx, p.api+"/subscriptions/subscriptions/search?"+q.Encode(), header, &resp); err != nil {
			return nil, err
		}
		pages = resp.Pagination.MaxPage
		for _, raw := range resp.Items {
			var sub subscription
			if err := json.Unmarshal(raw, &sub); err != nil {
				return nil, fmt.Errorf("polar: decode subscription: %w", err)
			}
			if sub.Price == nil {
				continue
			}
			out = append(out, toSponsorship(sub, raw))
		}
	}
	return out, nil
}

func toSponsorship(sub subscription, raw json.RawMessage) *domain.Sponsorship {
	amount := sub.Price.PriceAmount
	if sub.Subscription != nil && sub.Subscription.Price != nil {
		amount = sub.Subscription.Price.PriceAmount
	}
	dollars := amount / 100
	if sub.Status != "" && sub.Status != "active" {
		dollars = domain.PastSponsorDollars
	}
	sponsorType := domain.SponsorTypeOrganization
	if sub.SubscriptionTier.Type == "individual" {
		sponsorType = domain.SponsorTypeUser
	}
	return &domain.Sponsorship{
		Sponsor: domain.Sponsor{
			Type:      sponsorType,
			Login:     sub.User.GitHubUsername,
			Name:      sub.User.PublicName,
			AvatarURL: sub.User.AvatarURL,
		},
		IsOneTime:      false,
		MonthlyDollars: dollars,
		PrivacyLevel:   domain.PrivacyPublic,
		TierName:       sub.SubscriptionTier.Name,
		CreatedAt:      domain.FormatTime(domain.ParseTime(sub.CreatedAt)),
		Raw:            raw,
	}
}
