// Package patreon reads campaign members from the Patreon v2 API.
package patreon

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/providers/fetch"
)

const Name = "patreon"

const defaultAPI = "https://www.patreon.com/api/oauth2"

type Provider struct {
	client *fetch.Client
	api    string
}

func New(opts fetch.Options) *Provider {
	return &Provider{client: fetch.New(Name, opts), api: fetch.BaseURL(opts, defaultAPI)}
}

func (p *Provider) Name() string { return Name }

type relationship struct {
	Data json.RawMessage `json:"data"`
}

type resourceRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type member struct {
	ID         string `json:"id"`
	Attributes struct {
		CurrentlyEntitledAmountCents int     `json:"currently_entitled_amount_cents"`
		PatronStatus                 *string `json:"patron_status"`
		PledgeRelationshipStart      string  `json:"pledge_relationship_start"`
		LifetimeSupportCents         int     `json:"lifetime_support_cents"`
	} `json:"attributes"`
	Relationships struct {
		User                   relationship `json:"user"`
		CurrentlyEntitledTiers relationship `json:"currently_entitled_tiers"`
	} `json:"relationships"`
}

type included struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		ImageURL    string `json:"image_url"`
		URL         string `json:"url"`
		FirstName   string `json:"first_name"`
		FullName    string `json:"full_name"`
		AmountCents int    `json:"amount_cents"`
	} `json:"attributes"`
}

type membersPage struct {
	Data     []member   `json:"data"`
	Included []included `json:"included"`
	Links    struct {
		Next string `json:"next"`
	} `json:"links"`
}

// FetchSponsors reads every member of the token owner's default campaign.
func (p *Provider) FetchSponsors(ctx context.Context, cfg *config.Config) ([]*domain.Sponsorship, error) {
	token := cfg.Patreon.Token
	if token == "" {
		return nil, fmt.Errorf("patreon: token is required: %w", domain.ErrMissingCredentials)
	}
	header := http.Header{"Authorization": {"bearer " + token}}

	var campaigns struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := p.client.GetJSON(ctx, p.api+"/api/current_user/campaigns?include=null", header, &campaigns); err != nil {
		return nil, err
	}
	if len(campaigns.Data) == 0 {
		return nil, fmt.Errorf("patreon: no campaign for this token: %w", domain.ErrProviderFailure)
	}

	q := url.Values{}
	q.Set("include", "user,currently_entitled_tiers")
	q.Set("fields[member]", "currently_entitled_amount_cents,patron_status,pledge_relationship_start,lifetime_support_cents")
	q.Set("fields[user]", "image_url,url,first_name,full_name")
	q.Set("fields[tier]", "amount_cents")
	q.Set("page[count]", "100")
	next := fmt.Sprintf("%s/v2/campaigns/%s/members?%s", p.api, url.PathEscape(campaigns.Data[0].ID), q.Encode())

	var out []*domain.Sponsorship
	for next != "" {
		var page membersPage
		if err := p.client.GetJSON(ctx, next, header, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Data {
			// Members who never pledged have no status.
			if m.Attributes.PatronStatus == nil {
				continue
			}
			out = append(out, toSponsorship(m, page.Included))
		}
		next = page.Links.Next
	}
	return out, nil
}

func toSponsorship(m member, inc []included) *domain.Sponsorship {
	var user, tier included
	if ref, ok := firstRef(m.Relationships.User.Data); ok {
		user = find(inc, "user", ref.ID)
	}
	if ref, ok := firstRef(m.Relationships.CurrentlyEntitledTiers.Data); ok {
		tier = find(inc, "tier", ref.ID)
	}
	ship := &domain.Sponsorship{
		Sponsor: domain.Sponsor{
			Type:      domain.SponsorTypeUser,
			AvatarURL: user.Attributes.ImageURL,
			Login:     user.Attributes.FirstName,
			Name:      user.Attributes.FullName,
			LinkURL:   user.Attributes.URL,
		},
		MonthlyDollars: math.Floor(float64(m.Attributes.CurrentlyEntitledAmountCents) / 100),
		PrivacyLevel:   domain.PrivacyPublic,
		TierName:       "Patreon",
		CreatedAt:      m.Attributes.PledgeRelationshipStart,
		Raw:            domain.RawJSON(m),
	}
	switch status := *m.Attributes.PatronStatus; {
	case status == "former_patron" || status == "declined_patron":
		ship.MonthlyDollars = domain.PastSponsorDollars
	case ship.MonthlyDollars <= 0 && tier.Attributes.AmountCents > 0:
		// Gifted memberships carry no pledge but still have a tier amount.
		ship.MonthlyDollars = math.Floor(float64(tier.Attributes.AmountCents) / 100)
	}
	return ship
}

// firstRef accepts both a single resource identifier and a list of them.
func firstRef(raw json.RawMessage) (resourceRef, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return resourceRef{}, false
	}
	var one resourceRef
	if err := json.Unmarshal(raw, &one); err == nil && one.ID != "" {
		return one, true
	}
	var many []resourceRef
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0], true
	}
	return resourceRef{}, false
}

func find(inc []included, typ, id string) included {
	for _, v := range inc {
		if v.Type == typ && v.ID == id {
			return v
		}
	}
	return included{}
}
