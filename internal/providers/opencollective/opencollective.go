// Package opencollective reads backers from the OpenCollective GraphQL v2
// API: recurring orders plus credit transactions.
package opencollective

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/providers/fetch"
)

const Name = "opencollective"

const defaultAPI = "https://api.opencollective.com/graphql/v2"

// Account types.
const (
	TypeCollective = "collective"
	TypeIndividual = "individual"
)

// ignoredSlug is the mirror account for GitHub Sponsors payouts; those
// backers are already reported by the github provider.
const ignoredSlug = "github-sponsors"

type Provider struct {
	client *fetch.Client
	api    string
}

func New(opts fetch.Options) *Provider {
	return &Provider{client: fetch.New(Name, opts), api: fetch.BaseURL(opts, defaultAPI)}
}

func (p *Provider) Name() string { return Name }

type amount struct {
	Value float64 `json:"value"`
}

type socialLink struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type account struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Type        string       `json:"type"`
	SocialLinks []socialLink `json:"socialLinks"`
	IsIncognito bool         `json:"isIncognito"`
	ImageURL    string       `json:"imageUrl"`
}

type tier struct {
	Name string `json:"name"`
}

type order struct {
	ID          string  `json:"id"`
	CreatedAt   string  `json:"createdAt"`
	Frequency   string  `json:"frequency"`
	Status      string  `json:"status"`
	Tier        *tier   `json:"tier"`
	Amount      amount  `json:"amount"`
	FromAccount account `json:"fromAccount"`
}

type transaction struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	Order     *struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Frequency string `json:"frequency"`
		Tier      *tier  `json:"tier"`
		Amount    amount `json:"amount"`
	} `json:"order"`
	Amount          amount  `json:"amount"`
	FromAccount     account `json:"fromAccount"`
	OppositeAccount account `json:"oppositeAccount"`
}

type connection[T any] struct {
	TotalCount int `json:"totalCount"`
	Nodes      []T `json:"nodes"`
}

type ordersResponse struct {
	Data struct {
		Account *struct {
			Orders connection[order] `json:"orders"`
		} `json:"account"`
	} `json:"data"`
}

type transactionsResponse struct {
	Data struct {
		Account *struct {
			Transactions connection[transaction] `json:"transactions"`
		} `json:"account"`
	} `json:"data"`
}

// FetchSponsors dispatches on the configured account type.
func (p *Provider) FetchSponsors(ctx context.Context, cfg *config.Config) ([]*domain.Sponsorship, error) {
	oc := cfg.OpenCollective
	if oc.Key == "" {
		return nil, fmt.Errorf("opencollective: api key is required: %w", domain.ErrMissingCredentials)
	}
	selector, err := accountSelector(oc)
	if err != nil {
		return nil, err
	}
	switch oc.Type {
	case "", TypeCollective:
		return p.fetchCollective(ctx, oc.Key, selector, cfg.PastIncluded())
	case TypeIndividual:
		return p.fetchIndividual(ctx, oc.Key, selector)
	default:
		return nil, fmt.Errorf("opencollective: %w: type must be collective or individual, got %q", domain.ErrConfig, oc.Type)
	}
}

func accountSelector(oc config.OpenCollectiveConfig) (string, error) {
	switch {
	case oc.ID != "":
		return fmt.Sprintf("id: %q", oc.ID), nil
	case oc.Slug != "":
		return fmt.Sprintf("slug: %q", oc.Slug), nil
	case oc.GitHubHandle != "":
		return fmt.Sprintf("githubHandle: %q", oc.GitHubHandle), nil
	}
	return "", fmt.Errorf("opencollective: collective id, slug or GitHub handle is required: %w", domain.ErrConfig)
}

func (p *Provider) post(ctx context.Context, key, query string, out any) error {
	header := http.Header{"Api-Key": {key}}
	return p.client.PostJSON(ctx, p.api+"/", header, map[string]string{"query": query}, out)
}

func (p *Provider) fetchCollective(ctx context.Context, key, selector string, includePast bool) ([]*domain.Sponsorship, error) {
	var orders []order
	for offset := 0; ; {
		var resp ordersResponse
		if err := p.post(ctx, key, ordersQuery(selector, offset, !includePast), &resp); err != nil {
			return nil, err
		}
		if resp.Data.Account == nil {
			return nil, fmt.Errorf("opencollective: account not found: %w", domain.ErrProviderFailure)
		}
		page := resp.Data.Account.Orders
		orders = append(orders, page.Nodes...)
		offset += len(page.Nodes)
		if len(page.Nodes) == 0 || offset >= page.TotalCount {
			break
		}
	}

	now := p.client.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	var dateFrom *time.Time
	if !includePast {
		dateFrom = &monthStart
	}
	var txs []transaction
	for offset := 0; ; {
		var resp transactionsResponse
		if err := p.post(ctx, key, transactionsQuery(selector, offset, dateFrom), &resp); err != nil {
			return nil, err
		}
		if resp.Data.Account == nil {
			return nil, fmt.Errorf("opencollective: account not found: %w", domain.ErrProviderFailure)
		}
		page := resp.Data.Account.Transactions
		txs = append(txs, page.Nodes...)
		offset += len(page.Nodes)
		if len(page.Nodes) == 0 || offset >= page.TotalCount {
			break
		}
	}

	byOrderAccount := newLatestByAccount()
	seenOrders := map[string]struct{}{}
	for _, o := range orders {
		if o.FromAccount.Slug == ignoredSlug {
			continue
		}
		ship, err := fromOrder(o)
		if err != nil {
			return nil, err
		}
		seenOrders[o.ID] = struct{}{}
		byOrderAccount.keepLatest(o.FromAccount.ID, ship)
	}

	byTxAccount := newLatestByAccount()
	for _, tx := range txs {
		if tx.FromAccount.Slug == ignoredSlug {
			continue
		}
		if tx.Order != nil {
			if _, ok := seenOrders[tx.Order.ID]; ok {
				continue
			}
		}
		ship, err := fromTransaction(tx, monthStart)
		if err != nil {
			return nil, err
		}
		byTxAccount.addMonthly(tx.FromAccount.ID, ship)
	}

	return append(byOrderAccount.list(), byTxAccount.list()...), nil
}

// fetchIndividual sums every outgoing transaction of a personal account
// per counterparty.
func (p *Provider) fetchIndividual(ctx context.Context, key, selector string) ([]*domain.Sponsorship, error) {
	var txs []transaction
	for offset := 0; ; {
		var resp transactionsResponse
		if err := p.post(ctx, key, individualQuery(selector, offset), &resp); err != nil {
			return nil, err
		}
		if resp.Data.Account == nil {
			return nil, fmt.Errorf("opencollective: account not found: %w", domain.ErrProviderFailure)
		}
		page := resp.Data.Account.Transactions
		txs = append(txs, page.Nodes...)
		offset += len(page.Nodes)
		if len(page.Nodes) == 0 || offset >= page.TotalCount {
			break
		}
	}
	totals := map[string]*domain.Sponsorship{}
	var out []*domain.Sponsorship
	for _, tx := range txs {
		acc := tx.OppositeAccount
		if existing, ok := totals[acc.Slug]; ok {
			existing.MonthlyDollars += tx.Amount.Value
			if domain.ParseTime(tx.CreatedAt).After(domain.ParseTime(existing.CreatedAt)) {
				existing.CreatedAt = tx.CreatedAt
			}
			continue
		}
		sponsorType := domain.SponsorTypeOrganization
		if acc.Type == "INDIVIDUAL" {
			sponsorType = domain.SponsorTypeUser
		}
		privacy := domain.PrivacyPublic
		if acc.IsIncognito {
			privacy = domain.PrivacyPrivate
		}
		ship := &domain.Sponsorship{
			Sponsor: domain.Sponsor{
				Type:      sponsorType,
				Login:     acc.Slug,
				Name:      acc.Name,
				AvatarURL: acc.ImageURL,
				LinkURL:   "https://opencollective.com/" + acc.Slug,
			},
			IsOneTime:      true,
			MonthlyDollars: tx.Amount.Value,
			PrivacyLevel:   privacy,
			CreatedAt:      tx.CreatedAt,
			Raw:            domain.RawJSON(tx),
		}
		totals[acc.Slug] = ship
		out = append(out, ship)
	}
	return out, nil
}

func fromOrder(o order) (*domain.Sponsorship, error) {
	dollars := o.Amount.Value
	switch {
	case o.Status != "ACTIVE":
		dollars = domain.PastSponsorDollars
	case o.Frequency == "YEARLY":
		dollars = o.Amount.Value / 12
	}
	ship, err := baseSponsorship(o.FromAccount)
	if err != nil {
		return nil, err
	}
	ship.IsOneTime = o.Frequency == "ONETIME"
	ship.MonthlyDollars = dollars
	ship.CreatedAt = o.CreatedAt
	if o.Tier != nil {
		ship.TierName = o.Tier.Name
	}
	ship.Raw = domain.RawJSON(o)
	return ship, nil
}

// fromTransaction prices a transaction without a listed order. Inactive
// orders only count as active when paid this month.
func fromTransaction(tx transaction, monthStart time.Time) (*domain.Sponsorship, error) {
	dollars := tx.Amount.Value
	frequency := ""
	if tx.Order != nil {
		frequency = tx.Order.Frequency
	}
	switch {
	case tx.Order == nil || tx.Order.Status != "ACTIVE":
		if domain.ParseTime(tx.CreatedAt).Before(monthStart) {
			dollars = domain.PastSponsorDollars
		}
	case frequency == "MONTHLY":
		dollars = tx.Order.Amount.Value
	case frequency == "YEARLY":
		dollars = tx.Order.Amount.Value / 12
	}
	ship, err := baseSponsorship(tx.FromAccount)
	if err != nil {
		return nil, err
	}
	ship.IsOneTime = frequency == "ONETIME"
	ship.MonthlyDollars = dollars
	ship.CreatedAt = tx.CreatedAt
	if tx.Order != nil && tx.Order.Tier != nil {
		ship.TierName = tx.Order.Tier.Name
	}
	ship.Raw = domain.RawJSON(tx)
	return ship, nil
}

func baseSponsorship(acc account) (*domain.Sponsorship, error) {
	sponsorType, err := accountType(acc.Type)
	if err != nil {
		return nil, err
	}
	privacy := domain.PrivacyPublic
	if acc.IsIncognito {
		privacy = domain.PrivacyPrivate
	}
	return &domain.Sponsorship{
		Sponsor: domain.Sponsor{
			Type:         sponsorType,
			Login:        acc.Slug,
			Name:         acc.Name,
			AvatarURL:    acc.ImageURL,
			WebsiteURL:   fetch.NormalizeURL(bestURL(acc.SocialLinks)),
			LinkURL:      "https://opencollective.com/" + acc.Slug,
			SocialLogins: socialLogins(acc.SocialLinks, acc.Slug),
		},
		PrivacyLevel: privacy,
	}, nil
}

func accountType(t string) (domain.SponsorType, error) {
	switch t {
	case "INDIVIDUAL":
		return domain.SponsorTypeUser, nil
	case "ORGANIZATION", "COLLECTIVE", "FUND", "PROJECT", "EVENT", "VENDOR", "BOT":
		return domain.SponsorTypeOrganization, nil
	}
	return "", fmt.Errorf("opencollective: unknown account type %q: %w", t, domain.ErrProviderFailure)
}

// urlPriority lists the social link types usable as a website. The first
// matching link wins.
var urlPriority = map[string]bool{
	"WEBSITE": true, "GITHUB": true, "GITLAB": true, "TWITTER": true, "FACEBOOK": true,
	"YOUTUBE": true, "INSTAGRAM": true, "LINKEDIN": true, "DISCORD": true, "TUMBLR": true,
}

func bestURL(links []socialLink) string {
	for _, l := range links {
		if urlPriority[l.Type] {
			return l.URL
		}
	}
	return ""
}

var githubLogin = regexp.MustCompile(`github\.com/([^/?#]+)`)

func socialLogins(links []socialLink, slug string) map[string]string {
	out := map[string]string{}
	for _, l := range links {
		if l.Type != "GITHUB" {
			continue
		}
		if m := githubLogin.FindStringSubmatch(l.URL); m != nil {
			out["github"] = m[1]
		}
	}
	if slug != "" {
		out[Name] = slug
	}
	return out
}

// latestByAccount keeps one record per account id in first-seen order.
type latestByAccount struct {
	order []string
	byID  map[string]*domain.Sponsorship
}

func newLatestByAccount() *latestByAccount {
	return &latestByAccount{byID: map[string]*domain.Sponsorship{}}
}

func (l *latestByAccount) keepLatest(id string, ship *domain.Sponsorship) {
	existing, ok := l.byID[id]
	if !ok {
		l.order = append(l.order, id)
		l.byID[id] = ship
		return
	}
	if !domain.ParseTime(ship.CreatedAt).Before(domain.ParseTime(existing.CreatedAt)) {
		l.byID[id] = ship
	}
}

// addMonthly keeps the latest transaction and adds older payments made in
// the same calendar month to it.
func (l *latestByAccount) addMonthly(id string, ship *domain.Sponsorship) {
	existing, ok := l.byID[id]
	if !ok {
		l.order = append(l.order, id)
		l.byID[id] = ship
		return
	}
	newAt, oldAt := domain.ParseTime(ship.CreatedAt), domain.ParseTime(existing.CreatedAt)
	if !newAt.Before(oldAt) {
		if sameMonth(newAt, oldAt) && ship.MonthlyDollars > 0 && existing.MonthlyDollars > 0 {
			ship.MonthlyDollars += existing.MonthlyDollars
		}
		l.byID[id] = ship
		return
	}
	if sameMonth(newAt, oldAt) && ship.MonthlyDollars > 0 && existing.MonthlyDollars > 0 {
		existing.MonthlyDollars += ship.MonthlyDollars
	}
}

func (l *latestByAccount) list() []*domain.Sponsorship {
	out := make([]*domain.Sponsorship, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.byID[id])
	}
	return out
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
