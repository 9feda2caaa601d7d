package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"strings"
	"testing"

	"sponsorkit/internal/avatar"
	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
)

func ship(login string, dollars float64, createdAt string) *domain.Sponsorship {
	return &domain.Sponsorship{
		Sponsor:        domain.Sponsor{Type: domain.SponsorTypeUser, Login: login, Name: login, LinkURL: "https://github.com/" + login},
		MonthlyDollars: dollars,
		PrivacyLevel:   domain.PrivacyPublic,
		CreatedAt:      createdAt,
	}
}

func baseOptions() config.RenderOptions {
	past := false
	return config.RenderOptions{
		Name:                "sponsors",
		Width:               800,
		SVGInlineCSS:        config.DefaultInlineCSS,
		IncludePastSponsors: &past,
		Tiers: []domain.Tier{
			{Title: "Backers", PresetName: domain.PresetBase},
			{Title: "Gold", MonthlyDollars: domain.Dollars(100), PresetName: domain.PresetXL},
		},
	}
}

func TestTiersLayoutHeight(t *testing.T) {
	c, err := Tiers{}.Compose(context.Background(), baseOptions(), []*domain.Sponsorship{
		ship("alice", 5, "2023-01-01T00:00:00Z"),
	})
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	// 20 sheet top, 20 tier top, 20 title, 5 gap, 65 base box, 10 tier bottom, 20 sheet bottom.
	if got, want := c.Height(), 160.0; got != want {
		t.Fatalf("height = %v, want %v", got, want)
	}
}

func TestTiersSVGOrdersRichestTierFirst(t *testing.T) {
	svg, err := Tiers{}.RenderSVG(context.Background(), baseOptions(), []*domain.Sponsorship{
		ship("alice", 5, "2023-01-01T00:00:00Z"),
		ship("bob", 150, "2023-02-01T00:00:00Z"),
	})
	if err != nil {
		t.Fatalf("RenderSVG returned error: %v", err)
	}
	gold, backers := strings.Index(svg, ">Gold<"), strings.Index(svg, ">Backers<")
	if gold < 0 || backers < 0 || gold > backers {
		t.Fatalf("expected Gold before Backers, got gold=%d backers=%d", gold, backers)
	}
	if !strings.Contains(svg, `href="https://github.com/bob"`) {
		t.Fatalf("badge link missing:\n%s", svg)
	}
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("not a standalone svg document")
	}
}

func TestTiersSkipsEmptyTiers(t *testing.T) {
	svg, err := Tiers{}.RenderSVG(context.Background(), baseOptions(), []*domain.Sponsorship{
		ship("alice", 5, "2023-01-01T00:00:00Z"),
	})
	if err != nil {
		t.Fatalf("RenderSVG returned error: %v", err)
	}
	if strings.Contains(svg, ">Gold<") {
		t.Fatalf("empty tier should not be drawn")
	}
}

func TestTiersRejectsBadTierList(t *testing.T) {
	opts := baseOptions()
	opts.Tiers = []domain.Tier{{Title: "A"}, {Title: "B"}}
	_, err := Tiers{}.Compose(context.Background(), opts, nil)
	if !errors.Is(err, domain.ErrCatchAllTier) {
		t.Fatalf("expected catch-all error, got %v", err)
	}
}

func TestTiersHooks(t *testing.T) {
	opts := baseOptions()
	var seen int
	opts.Tiers[0].ComposeBefore = func(c domain.Composer, ships []*domain.Sponsorship) {
		c.AddText("before", "")
	}
	opts.Tiers[0].Compose = func(c domain.Composer, ships []*domain.Sponsorship) {
		seen = len(ships)
		c.AddRaw(`<g id="custom"/>`)
	}
	svg, err := Tiers{}.RenderSVG(context.Background(), opts, []*domain.Sponsorship{
		ship("alice", 5, "2023-01-01T00:00:00Z"),
		ship("carol", 8, "2023-01-02T00:00:00Z"),
	})
	if err != nil {
		t.Fatalf("RenderSVG returned error: %v", err)
	}
	if seen != 2 {
		t.Fatalf("compose hook saw %d sponsors, want 2", seen)
	}
	if !strings.Contains(svg, `<g id="custom"/>`) || !strings.Contains(svg, ">before<") {
		t.Fatalf("hook output missing:\n%s", svg)
	}
	if strings.Contains(svg, ">Backers<") {
		t.Fatalf("custom compose should replace the default tier drawing")
	}
}

func TestGridWrapsLines(t *testing.T) {
	opts := baseOptions()
	opts.Width = 200
	c := NewComposer(opts)
	ships := []*domain.Sponsorship{
		ship("a", 1, ""), ship("b", 1, ""), ship("c", 1, ""), ship("d", 1, ""),
	}
	// (200 - 2*30) / 65 = 2 per line.
	c.AddSponsorGrid(ships, domain.Presets[domain.PresetBase])
	if got, want := c.Height(), 130.0; got != want {
		t.Fatalf("height = %v, want %v", got, want)
	}
}

func TestTruncateName(t *testing.T) {
	cases := []struct {
		name string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"Anthony Fu Long Name", 10, "Anthony"},
		{"abcdefghijklmnop", 10, "abcdefg..."},
		{"名前名前名前名前名前名前", 10, "名前名前名前名..."},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := TruncateName(tc.name, tc.max); got != tc.want {
			t.Fatalf("TruncateName(%q, %d) = %q, want %q", tc.name, tc.max, got, tc.want)
		}
	}
}

func TestSVGEscapesText(t *testing.T) {
	c := NewComposer(baseOptions())
	c.AddText(`<b>&"`, "")
	svg := c.SVG()
	if strings.Contains(svg, "<b>") || !strings.Contains(svg, "&lt;b&gt;&amp;") {
		t.Fatalf("text not escaped:\n%s", svg)
	}
}

func TestCirclesFitAndDoNotOverlap(t *testing.T) {
	ships := []*domain.Sponsorship{
		ship("a", 100, ""), ship("b", 50, ""), ship("c", 10, ""),
		ship("d", 5, ""), ship("e", 5, ""), ship("f", 1, ""),
		ship("g", -1, ""),
	}
	circles := layoutCircles(ships, circleBounds(nil), 400)
	if len(circles) != len(ships) {
		t.Fatalf("got %d circles, want %d", len(circles), len(ships))
	}
	for i, a := range circles {
		if a.x-a.r < -0.5 || a.y-a.r < -0.5 || a.x+a.r > 400.5 || a.y+a.r > 400.5 {
			t.Fatalf("circle %s escapes the canvas: %+v", a.ship.Sponsor.Login, a)
		}
		for _, b := range circles[i+1:] {
			if math.Hypot(a.x-b.x, a.y-b.y) < a.r+b.r-1e-6 {
				t.Fatalf("circles %s and %s overlap", a.ship.Sponsor.Login, b.ship.Sponsor.Login)
			}
		}
	}
	if circles[0].ship.Sponsor.Login != "a" {
		t.Fatalf("largest sponsor should be packed first, got %s", circles[0].ship.Sponsor.Login)
	}
}

func TestCirclesDropPastUnlessIncluded(t *testing.T) {
	opts := baseOptions()
	opts.Renderer = config.RendererCircles
	ships := []*domain.Sponsorship{ship("a", 10, ""), ship("old", -1, "")}
	svg, err := Circles{}.RenderSVG(context.Background(), opts, ships)
	if err != nil {
		t.Fatalf("RenderSVG returned error: %v", err)
	}
	if strings.Contains(svg, `id="old"`) {
		t.Fatalf("past sponsor should be hidden")
	}
	include := true
	opts.IncludePastSponsors = &include
	svg, err = Circles{}.RenderSVG(context.Background(), opts, ships)
	if err != nil {
		t.Fatalf("RenderSVG returned error: %v", err)
	}
	if !strings.Contains(svg, `id="old"`) {
		t.Fatalf("past sponsor should be drawn when included")
	}
	if !strings.Contains(svg, `height="800"`) {
		t.Fatalf("circles sheet should be square")
	}
}

func TestPNGMatchesLayout(t *testing.T) {
	s := ship("alice", 5, "2023-01-01T00:00:00Z")
	s.Sponsor.AvatarBuffer = avatar.DefaultFallback()
	c, err := Tiers{}.Compose(context.Background(), baseOptions(), []*domain.Sponsorship{s})
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if !strings.Contains(c.SVG(), "data:image/png;base64,") {
		t.Fatalf("avatar should be inlined")
	}
	raw, err := c.PNG()
	if err != nil {
		t.Fatalf("PNG returned error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if got, want := img.Bounds(), image.Rect(0, 0, 800, 160); got != want {
		t.Fatalf("bounds = %v, want %v", got, want)
	}
	// the avatar center is opaque
	_, _, _, a := img.At(400, 20+20+20+5+32).RGBA()
	if a == 0 {
		t.Fatalf("expected avatar pixels at the badge center")
	}
}

func TestForName(t *testing.T) {
	if r, err := ForName(""); err != nil || r.Name() != config.RendererTiers {
		t.Fatalf("ForName(\"\") = %v, %v", r, err)
	}
	if _, err := ForName("hexagons"); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
