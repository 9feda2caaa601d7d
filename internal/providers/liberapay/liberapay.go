// Package liberapay reads the public patrons CSV of a Liberapay account.
package liberapay

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/providers/fetch"
)

const Name = "liberapay"

const (
	defaultSite  = "https://liberapay.com"
	defaultRates = "https://www.floatrates.com"

	weeksPerMonth = 4.345
)

type Provider struct {
	client *fetch.Client
	site   string
	rates  string
}

func New(opts fetch.Options) *Provider {
	return &Provider{
		client: fetch.New(Name, opts),
		site:   fetch.BaseURL(opts, defaultSite),
		rates:  fetch.BaseURL(opts, defaultRates),
	}
}

func (p *Provider) Name() string { return Name }

// Row is one line of public.csv.
type Row struct {
	PledgeDate       string
	PatronID         string
	PatronUsername   string
	PatronPublicName string
	DonationCurrency string
	WeeklyAmount     string
	PatronAvatarURL  string
}

type exchangeRate struct {
	Code        string  `json:"code"`
	InverseRate float64 `json:"inverseRate"`
}

// FetchSponsors converts weekly pledges into monthly USD.
func (p *Provider) FetchSponsors(ctx context.Context, cfg *config.Config) ([]*domain.Sponsorship, error) {
	login := cfg.Liberapay.Login
	if login == "" {
		return nil, fmt.Errorf("liberapay: login is required: %w", domain.ErrConfig)
	}
	body, err := p.client.GetBytes(ctx, fmt.Sprintf("%s/%s/patrons/public.csv", p.site, url.PathEscape(login)), nil)
	if err != nil {
		return nil, err
	}
	rows, err := ParseCSV(body)
	if err != nil {
		return nil, err
	}

	rates := map[string]exchangeRate{}
	for _, r := range rows {
		if r.DonationCurrency != "USD" {
			if err := p.client.GetJSON(ctx, p.rates+"/daily/usd.json", nil, &rates); err != nil {
				return nil, err
			}
			break
		}
	}

	out := make([]*domain.Sponsorship, 0, len(rows))
	for _, r := range rows {
		weekly, _ := strconv.ParseFloat(r.WeeklyAmount, 64)
		name := r.PatronPublicName
		if name == "" {
			name = r.PatronUsername
		}
		out = append(out, &domain.Sponsorship{
			Sponsor: domain.Sponsor{
				Type:      domain.SponsorTypeUser,
				Login:     r.PatronUsername,
				Name:      name,
				AvatarURL: r.PatronAvatarURL,
				LinkURL:   "https://liberapay.com/" + r.PatronUsername,
			},
			MonthlyDollars: MonthlyDollars(weekly, r.DonationCurrency, rates),
			PrivacyLevel:   domain.PrivacyPublic,
			CreatedAt:      domain.FormatTime(domain.ParseTime(r.PledgeDate)),
			Raw:            domain.RawJSON(r),
		})
	}
	return out, nil
}

// MonthlyDollars converts a weekly amount in currency to monthly USD.
// Unknown currencies are taken at par.
func MonthlyDollars(weekly float64, currency string, rates map[string]exchangeRate) float64 {
	monthly := weekly * weeksPerMonth
	if currency == "USD" {
		return monthly
	}
	if r, ok := rates[strings.ToLower(currency)]; ok && r.InverseRate > 0 {
		return monthly * r.InverseRate
	}
	return monthly
}

// ParseCSV reads public.csv by header name. Empty lines are skipped and
// cells are trimmed.
func ParseCSV(body []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("liberapay: read csv header: %w", err)
	}
	index := map[string]int{}
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	cell := func(rec []string, key string) string {
		i, ok := index[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("liberapay: read csv: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		rows = append(rows, Row{
			PledgeDate:       cell(rec, "pledge_date"),
			PatronID:         cell(rec, "patron_id"),
			PatronUsername:   cell(rec, "patron_username"),
			PatronPublicName: cell(rec, "patron_public_name"),
			DonationCurrency: cell(rec, "donation_currency"),
			WeeklyAmount:     cell(rec, "weekly_amount"),
			PatronAvatarURL:  cell(rec, "patron_avatar_url"),
		})
	}
	return rows, nil
}
