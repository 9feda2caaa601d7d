// Package afdian reads sponsors from the afdian open API.
package afdian

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/providers/fetch"
)

const Name = "afdian"

const defaultAPI = "https://afdian.com/api/open"

const (
	defaultExchangeRate        = 6.5
	defaultPurchaseEffectivity = 30
	anonymousPrefix            = "爱发电用户_"
)

type Provider struct {
	client *fetch.Client
	api    string
}

func New(opts fetch.Options) *Provider {
	return &Provider{client: fetch.New(Name, opts), api: fetch.BaseURL(opts, defaultAPI)}
}

func (p *Provider) Name() string { return Name }

type plan struct {
	Name        string `json:"name"`
	ProductType int    `json:"product_type"`
	UpdateTime  int64  `json:"update_time"`
	ExpireTime  int64  `json:"expire_time"`
}

type sponsor struct {
	User struct {
		UserID string `json:"user_id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	} `json:"user"`
	AllSumAmount string `json:"all_sum_amount"`
	FirstPayTime int64  `json:"first_pay_time"`
	CurrentPlan  *plan  `json:"current_plan"`
}

type queryResponse struct {
	EC   int    `json:"ec"`
	EM   string `json:"em"`
	Data struct {
		TotalPage int               `json:"total_page"`
		List      []json.RawMessage `json:"list"`
	} `json:"data"`
}

type signedRequest struct {
	UserID string `json:"user_id"`
	Params string `json:"params"`
	TS     int64  `json:"ts"`
	Sign   string `json:"sign"`
}

// FetchSponsors pages query-sponsor. Amounts are CNY totals converted with
// the configured exchange rate.
func (p *Provider) FetchSponsors(ctx context.Context, cfg *config.Config) ([]*domain.Sponsorship, error) {
	opts := cfg.Afdian
	if opts.UserID == "" || opts.Token == "" {
		return nil, fmt.Errorf("afdian: user id and token are required: %w", domain.ErrMissingCredentials)
	}
	rate := opts.ExchangeRate
	if rate <= 0 {
		rate = defaultExchangeRate
	}
	includePurchases := opts.IncludePurchases == nil || *opts.IncludePurchases
	effectivity := defaultPurchaseEffectivity
	if opts.PurchaseEffectivity != nil {
		effectivity = *opts.PurchaseEffectivity
	}

	var out []*domain.Sponsorship
	for page, pages := 1, 1; page <= pages; page++ {
		params := fmt.Sprintf(`{"page":%d}`, page)
		ts := p.client.Now().Unix()
		req := signedRequest{UserID: opts.UserID, Params: params, TS: ts, Sign: Sign(opts.Token, params, ts, opts.UserID)}
		var resp queryResponse
		if err := p.client.PostJSON(ctx, p.api+"/query-sponsor", nil, req, &resp); err != nil {
			return nil, err
		}
		if resp.EC != 200 {
			return nil, fmt.Errorf("afdian: api error %d %s: %w", resp.EC, resp.EM, domain.ErrProviderFailure)
		}
		pages = resp.Data.TotalPage
		for _, raw := range resp.Data.List {
			var s sponsor
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("afdian: decode sponsor: %w", err)
			}
			purchase := s.CurrentPlan != nil && s.CurrentPlan.ProductType != 0
			if purchase && !includePurchases {
				continue
			}
			if purchase && effectivity > 0 {
				s.CurrentPlan.ExpireTime = s.CurrentPlan.UpdateTime + int64(effectivity)*24*3600
			}
			out = append(out, p.toSponsorship(s, raw, rate))
		}
	}
	return out, nil
}

func (p *Provider) toSponsorship(s sponsor, raw json.RawMessage, rate float64) *domain.Sponsorship {
	var expire int64
	if s.CurrentPlan != nil {
		expire = s.CurrentPlan.ExpireTime
	}
	name := s.User.Name
	if strings.HasPrefix(name, anonymousPrefix) {
		name = s.User.UserID
		if len(name) > 5 {
			name = name[:5]
		}
	}
	dollars := float64(domain.PastSponsorDollars)
	if expire != 0 && expire >= p.client.Now().Unix() {
		cny, _ := strconv.ParseFloat(s.AllSumAmount, 64)
		dollars = cny / rate
	}
	ship := &domain.Sponsorship{
		Sponsor: domain.Sponsor{
			Type:      domain.SponsorTypeUser,
			Login:     s.User.UserID,
			Name:      name,
			AvatarURL: s.User.Avatar,
			LinkURL:   "https://afdian.com/u/" + s.User.UserID,
		},
		MonthlyDollars: dollars,
		PrivacyLevel:   domain.PrivacyPublic,
		TierName:       "Afdian",
		CreatedAt:      domain.FormatTime(time.Unix(s.FirstPayTime, 0)),
		// A sponsor without a current plan name paid once.
		IsOneTime: s.CurrentPlan == nil || s.CurrentPlan.Name == "",
		Raw:       raw,
	}
	if expire != 0 {
		ship.ExpireAt = domain.FormatUnix(expire)
	}
	return ship
}

// Sign computes the request signature: md5 of token, params, ts and
// user_id concatenated with their field names.
func Sign(token, params string, ts int64, userID string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%sparams%sts%duser_id%s", token, params, ts, userID)))
	return hex.EncodeToString(sum[:])
}
