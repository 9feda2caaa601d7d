// Package render lays out sponsor sheets and serializes them as SVG or PNG.
package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"sponsorkit/internal/avatar"
	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
)

const (
	titleClass = "sponsorkit-tier-title"
	textClass  = "text"
	linkClass  = "sponsorkit-link"
	nameClass  = "sponsorkit-name"
	textLine   = 20
)

type itemKind int

const (
	itemText itemKind = iota
	itemBadge
	itemRaw
)

// item is one element of the display list. The same list feeds the SVG
// serializer and the PNG rasterizer.
type item struct {
	kind itemKind

	x, y  float64
	text  string
	class string
	fill  string

	// badge fields
	href       string
	id         string
	imgX       float64
	imgY       float64
	size       float64
	radius     float64
	avatar     []byte
	hasLabel   bool
	labelClass string

	raw string
}

// Composer accumulates a sheet top to bottom. It implements domain.Composer
// so tier hooks can draw on it.
type Composer struct {
	width  float64
	css    string
	height float64
	items  []item
}

var _ domain.Composer = (*Composer)(nil)

// NewComposer starts an empty sheet sized for opts.
func NewComposer(opts config.RenderOptions) *Composer {
	width := float64(opts.Width)
	if width <= 0 {
		width = 800
	}
	return &Composer{width: width, css: opts.SVGInlineCSS}
}

// Width is the sheet width in pixels.
func (c *Composer) Width() float64 { return c.width }

// Height is the current sheet height in pixels.
func (c *Composer) Height() float64 { return c.height }

// SetHeight overrides the accumulated height.
func (c *Composer) SetHeight(h float64) { c.height = h }

func (c *Composer) AddSpan(height float64) domain.Composer {
	c.height += height
	return c
}

func (c *Composer) AddTitle(text string) domain.Composer {
	return c.AddText(text, titleClass)
}

// AddText centers a line of text at the current height and advances by one
// line.
func (c *Composer) AddText(text, class string) domain.Composer {
	if class == "" {
		class = textClass
	}
	c.items = append(c.items, item{kind: itemText, x: c.width / 2, y: c.height, text: text, class: class})
	c.height += textLine
	return c
}

// AddRaw appends SVG markup verbatim. Raw markup is not rasterized.
func (c *Composer) AddRaw(svg string) domain.Composer {
	c.items = append(c.items, item{kind: itemRaw, raw: svg})
	return c
}

// AddSponsorGrid wraps ships into centered lines of preset sized badges.
func (c *Composer) AddSponsorGrid(ships []*domain.Sponsorship, preset domain.BadgePreset) domain.Composer {
	if preset.BoxWidth <= 0 || len(ships) == 0 {
		return c
	}
	side := 0.0
	if preset.Container != nil {
		side = preset.Container.SidePadding
	}
	perLine := int(math.Floor((c.width - side*2) / preset.BoxWidth))
	if perLine < 1 {
		perLine = 1
	}
	for start := 0; start < len(ships); start += perLine {
		end := min(start+perLine, len(ships))
		c.addSponsorLine(ships[start:end], preset)
	}
	return c
}

func (c *Composer) addSponsorLine(ships []*domain.Sponsorship, preset domain.BadgePreset) {
	offsetX := (c.width - float64(len(ships))*preset.BoxWidth) / 2
	for i, s := range ships {
		radius := 0.5
		if s.Sponsor.Type == domain.SponsorTypeOrganization {
			radius = 0.1
		}
		c.AddBadge(offsetX+preset.BoxWidth*float64(i), c.height, s, preset, radius)
	}
	c.height += preset.BoxHeight
}

// AddBadge places one sponsor badge with its box's top left corner at x, y.
// radius is the corner radius as a fraction of the avatar size.
func (c *Composer) AddBadge(x, y float64, s *domain.Sponsorship, preset domain.BadgePreset, radius float64) {
	size := preset.Avatar.Size
	it := item{
		kind:   itemBadge,
		href:   badgeLink(s),
		id:     s.Sponsor.Login,
		class:  preset.Classes,
		imgX:   x + (preset.BoxWidth-size)/2,
		imgY:   y + (preset.BoxHeight-size)/2,
		size:   size,
		radius: radius,
		avatar: avatarFor(s, size),
	}
	if preset.Name != nil {
		it.hasLabel = true
		it.x = x + preset.BoxWidth/2
		it.y = y + preset.BoxHeight
		it.text = TruncateName(badgeName(s), preset.Name.MaxLength)
		it.fill = preset.Name.Color
		it.labelClass = preset.Name.Classes
	}
	c.items = append(c.items, it)
}

func badgeName(s *domain.Sponsorship) string {
	if name := strings.TrimSpace(s.Sponsor.Name); name != "" {
		return name
	}
	return strings.TrimSpace(s.Sponsor.Login)
}

func badgeLink(s *domain.Sponsorship) string {
	if s.Sponsor.WebsiteURL != "" {
		return s.Sponsor.WebsiteURL
	}
	return s.Sponsor.LinkURL
}

// avatarFor picks the resolution bucket for an avatar drawn at size pixels.
func avatarFor(s *domain.Sponsorship, size float64) []byte {
	if len(s.Sponsor.AvatarBuffer) == 0 || size <= 0 {
		return nil
	}
	px := 120
	switch {
	case size < 50:
		px = 50
	case size < 80:
		px = 80
	}
	out, err := avatar.Resize(s.Sponsor.AvatarBuffer, px)
	if err != nil {
		return nil
	}
	return out
}

// TruncateName shortens names longer than maxLength: to the first word when
// there is one, otherwise with an ellipsis.
func TruncateName(name string, maxLength int) string {
	runes := []rune(name)
	if maxLength <= 0 || len(runes) <= maxLength {
		return name
	}
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	keep := max(maxLength-3, 0)
	return string(runes[:keep]) + "..."
}

// SVG serializes the sheet.
func (c *Composer) SVG() string {
	var b strings.Builder
	w, h := num(c.width), num(c.height)
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n", w, h, w, h)
	b.WriteString("<!-- Generated by sponsorkit -->\n")
	fmt.Fprintf(&b, "<style>%s</style>\n", c.css)
	clips := 0
	for _, it := range c.items {
		switch it.kind {
		case itemText:
			fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" class="%s">%s</text>`+"\n",
				num(it.x), num(it.y), html.EscapeString(it.class), html.EscapeString(it.text))
		case itemRaw:
			b.WriteString(it.raw)
			b.WriteString("\n")
		case itemBadge:
			clips++
			writeBadge(&b, it, "c"+strconv.Itoa(clips))
		}
	}
	b.WriteString("</svg>")
	return b.String()
}

func writeBadge(b *strings.Builder, it item, clip string) {
	class := it.class
	if class == "" {
		class = linkClass
	}
	b.WriteString("<a ")
	if it.href != "" {
		fmt.Fprintf(b, `href="%s" `, html.EscapeString(it.href))
	}
	fmt.Fprintf(b, `class="%s" target="_blank" id="%s">`+"\n", html.EscapeString(class), html.EscapeString(it.id))
	if it.hasLabel {
		fill := it.fill
		if fill == "" {
			fill = "currentColor"
		}
		label := it.labelClass
		if label == "" {
			label = nameClass
		}
		fmt.Fprintf(b, `  <text x="%s" y="%s" text-anchor="middle" class="%s" fill="%s">%s</text>`+"\n",
			num(it.x), num(it.y), html.EscapeString(label), html.EscapeString(fill), html.EscapeString(it.text))
	}
	if len(it.avatar) > 0 {
		x, y, s, r := num(it.imgX), num(it.imgY), num(it.size), num(it.size*it.radius)
		fmt.Fprintf(b, `  <clipPath id="%s"><rect x="%s" y="%s" width="%s" height="%s" rx="%s" ry="%s" /></clipPath>`+"\n",
			clip, x, y, s, s, r, r)
		fmt.Fprintf(b, `  <image x="%s" y="%s" width="%s" height="%s" href="%s" clip-path="url(#%s)"/>`+"\n",
			x, y, s, s, avatar.DataURI(it.avatar), clip)
	}
	b.WriteString("</a>\n")
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
