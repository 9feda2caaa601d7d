package github

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sponsorkit/internal/domain"
)

// maxPastPages bounds the inactive sponsors scrape.
const maxPastPages = 100

// pastSponsorDate is the creation date given to scraped records, which
// carry none. It sorts them after every dated sponsor.
var pastSponsorDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var titleCase = cases.Title(language.English)

func (p *Provider) scrapePastSponsors(ctx context.Context, login string) ([]*domain.Sponsorship, error) {
	var out []*domain.Sponsorship
	for page := 1; page <= maxPastPages; page++ {
		endpoint := fmt.Sprintf("%s/sponsors/%s/sponsors_partial?filter=inactive&page=%d", p.web, url.PathEscape(login), page)
		body, err := p.client.GetBytes(ctx, endpoint, nil)
		if err != nil {
			return out, err
		}
		ships, err := ParsePastSponsors(body)
		if err != nil {
			return out, err
		}
		if len(ships) == 0 {
			break
		}
		out = append(out, ships...)
	}
	return out, nil
}

// ParsePastSponsors reads one sponsors_partial page. Every innermost div
// is one sponsor; a div without an avatar image is a private sponsor.
func ParsePastSponsors(body []byte) ([]*domain.Sponsorship, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("github: parse past sponsors: %w", err)
	}
	var out []*domain.Sponsorship
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Div && !hasDescendant(n, atom.Div) {
			if ship := pastSponsorFromDiv(n); ship != nil {
				out = append(out, ship)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

func pastSponsorFromDiv(div *html.Node) *domain.Sponsorship {
	img := findFirst(div, atom.Img)
	link := findFirst(div, atom.A)
	if img == nil && link == nil {
		return nil
	}
	ship := &domain.Sponsorship{
		MonthlyDollars: domain.PastSponsorDollars,
		CreatedAt:      domain.FormatTime(pastSponsorDate),
		Sponsor:        domain.Sponsor{Type: domain.SponsorTypeUser},
	}
	if link != nil {
		if t := strings.TrimSpace(attr(link, "data-hovercard-type")); t != "" {
			ship.Sponsor.Type = domain.SponsorType(titleCase.String(t))
		}
	}
	if img == nil {
		ship.PrivacyLevel = domain.PrivacyPrivate
		ship.Sponsor.Name = "Private Sponsor"
		return ship
	}
	name := strings.TrimPrefix(attr(img, "alt"), "@")
	ship.PrivacyLevel = domain.PrivacyPublic
	ship.Sponsor.Name = name
	ship.Sponsor.AvatarURL = attr(img, "src")
	ship.Sponsor.LinkURL = "https://github.com/" + name
	if link != nil {
		ship.Sponsor.Login = strings.Trim(attr(link, "href"), "/")
	}
	return ship
}

func hasDescendant(n *html.Node, a atom.Atom) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return true
		}
		if hasDescendant(c, a) {
			return true
		}
	}
	return false
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
