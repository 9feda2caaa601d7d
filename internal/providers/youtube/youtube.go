// Package youtube lists channel members through the YouTube Data API.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/providers/fetch"
)

const Name = "youtube"

const (
	defaultOAuth = "https://oauth2.googleapis.com"
	defaultAPI   = "https://www.googleapis.com/youtube/v3"
)

type Provider struct {
	client *fetch.Client
	oauth  string
	api    string
}

func New(opts fetch.Options) *Provider {
	return &Provider{
		client: fetch.New(Name, opts),
		oauth:  fetch.BaseURL(opts, defaultOAuth),
		api:    fetch.BaseURL(opts, defaultAPI),
	}
}

func (p *Provider) Name() string { return Name }

type member struct {
	Snippet struct {
		MemberDetails struct {
			DisplayName     string `json:"displayName"`
			ChannelID       string `json:"channelId"`
			ProfileImageURL string `json:"profileImageUrl"`
		} `json:"memberDetails"`
		MembershipsDuration struct {
			TotalDurationMonths int `json:"totalDurationMonths"`
		} `json:"membershipsDuration"`
		MembershipsLevelName string `json:"membershipsLevelName"`
	} `json:"snippet"`
}

type membersResponse struct {
	Items         []member `json:"items"`
	NextPageToken string   `json:"nextPageToken"`
}

// FetchSponsors exchanges the refresh token and pages the members list.
// The API reports no amounts, so members are listed as past sponsors with
// a creation date estimated from their membership duration.
func (p *Provider) FetchSponsors(ctx context.Context, cfg *config.Config) ([]*domain.Sponsorship, error) {
	yt := cfg.YouTube
	var missing []string
	if yt.ClientID == "" {
		missing = append(missing, "clientId")
	}
	if yt.ClientSecret == "" {
		missing = append(missing, "clientSecret")
	}
	if yt.RefreshToken == "" {
		missing = append(missing, "refreshToken")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("youtube: missing %s: %w", strings.Join(missing, ", "), domain.ErrMissingCredentials)
	}

	token, err := p.accessToken(ctx, yt)
	if err != nil {
		return nil, err
	}
	header := http.Header{"Authorization": {"Bearer " + token}, "Accept": {"application/json"}}

	var out []*domain.Sponsorship
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("part", "snippet")
		q.Set("maxResults", "50")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		var resp membersResponse
		if err := p.client.GetJSON(ctx, p.api+"/members?"+q.Encode(), header, &resp); err != nil {
			return nil, err
		}
		for _, m := range resp.Items {
			out = append(out, p.toSponsorship(m))
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return out, nil
}

func (p *Provider) accessToken(ctx context.Context, yt config.YouTubeConfig) (string, error) {
	form := url.Values{}
	form.Set("client_id", yt.ClientID)
	form.Set("client_secret", yt.ClientSecret)
	form.Set("refresh_token", yt.RefreshToken)
	form.Set("grant_type", "refresh_token")
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := p.client.PostForm(ctx, p.oauth+"/token", form, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("youtube: empty access token: %w", domain.ErrMissingCredentials)
	}
	return resp.AccessToken, nil
}

func (p *Provider) toSponsorship(m member) *domain.Sponsorship {
	months := m.Snippet.MembershipsDuration.TotalDurationMonths
	created := p.client.Now().Add(-time.Duration(months) * 30 * 24 * time.Hour)
	d := m.Snippet.MemberDetails
	return &domain.Sponsorship{
		Sponsor: domain.Sponsor{
			Type:      domain.SponsorTypeUser,
			Login:     d.ChannelID,
			Name:      d.DisplayName,
			AvatarURL: d.ProfileImageURL,
			LinkURL:   "https://www.youtube.com/channel/" + d.ChannelID,
		},
		MonthlyDollars: domain.PastSponsorDollars,
		PrivacyLevel:   domain.PrivacyPublic,
		TierName:       m.Snippet.MembershipsLevelName,
		CreatedAt:      domain.FormatTime(created),
		Raw:            domain.RawJSON(m),
	}
}
