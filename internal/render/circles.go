package render

import (
	"context"
	"math"
	"sort"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
)

const (
	radiusMin  = 10
	radiusMax  = 300
	radiusPast = 6
)

// Circles packs every sponsor into a square as a circle whose area follows
// the monthly contribution.
type Circles struct{}

func (Circles) Name() string { return config.RendererCircles }

func (c Circles) RenderSVG(ctx context.Context, opts config.RenderOptions, ships []*domain.Sponsorship) (string, error) {
	return renderSVG(ctx, c, opts, ships)
}

type circle struct {
	x, y, r float64
	ship    *domain.Sponsorship
}

func (Circles) Compose(ctx context.Context, opts config.RenderOptions, ships []*domain.Sponsorship) (*Composer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	comp := NewComposer(opts)
	width := comp.Width()

	included := make([]*domain.Sponsorship, 0, len(ships))
	for _, s := range ships {
		if s.MonthlyDollars > 0 || opts.PastIncluded() {
			included = append(included, s)
		}
	}

	circles := layoutCircles(included, circleBounds(opts.Circles), width)
	for _, ci := range circles {
		d := ci.r * 2
		preset := domain.BadgePreset{BoxWidth: d, BoxHeight: d, Avatar: domain.AvatarPreset{Size: d}}
		comp.AddBadge(ci.x-ci.r, ci.y-ci.r, ci.ship, preset, 0.5)
	}
	comp.SetHeight(width)
	return comp, nil
}

func circleBounds(o *config.CircleOptions) config.CircleOptions {
	b := config.CircleOptions{RadiusMin: radiusMin, RadiusMax: radiusMax, RadiusPast: radiusPast}
	if o == nil {
		return b
	}
	if o.RadiusMin > 0 {
		b.RadiusMin = o.RadiusMin
	}
	if o.RadiusMax > 0 {
		b.RadiusMax = o.RadiusMax
	}
	if o.RadiusPast > 0 {
		b.RadiusPast = o.RadiusPast
	}
	return b
}

// circleWeight is the packed area of a sponsor.
func circleWeight(s *domain.Sponsorship, amountMax float64, b config.CircleOptions) float64 {
	if s.MonthlyDollars < 0 {
		return b.RadiusPast
	}
	t := 0.0
	if amountMax > 0 {
		t = math.Pow(math.Max(0.1, s.MonthlyDollars)/amountMax, 0.9)
	}
	return lerp(b.RadiusMin, b.RadiusMax, t)
}

func lerp(a, b, t float64) float64 {
	if t < 0 {
		return a
	}
	return a + (b-a)*t
}

// layoutCircles packs the sponsors and fits the result into a width x width
// square with a width/400 gap between neighbours.
func layoutCircles(ships []*domain.Sponsorship, b config.CircleOptions, width float64) []circle {
	if len(ships) == 0 {
		return nil
	}
	amountMax := math.Inf(-1)
	for _, s := range ships {
		amountMax = math.Max(amountMax, s.MonthlyDollars)
	}

	circles := make([]circle, len(ships))
	for i, s := range ships {
		circles[i] = circle{r: math.Sqrt(circleWeight(s, amountMax, b)), ship: s}
	}
	sort.SliceStable(circles, func(i, j int) bool { return circles[i].r > circles[j].r })

	packCircles(circles)

	extent := 0.0
	for _, c := range circles {
		extent = math.Max(extent, math.Hypot(c.x, c.y)+c.r)
	}
	gap := width / 400
	scale := (width/2 - gap) / extent
	for i := range circles {
		circles[i].x = width/2 + circles[i].x*scale
		circles[i].y = width/2 + circles[i].y*scale
		circles[i].r = math.Max(circles[i].r*scale-gap/2, 0.5)
	}
	return circles
}

// packCircles places circles in order, each at the position closest to the
// origin that touches already placed circles without overlapping them.
func packCircles(circles []circle) {
	const eps = 1e-9
	for i := range circles {
		r := circles[i].r
		switch i {
		case 0:
			circles[i].x, circles[i].y = 0, 0
			continue
		case 1:
			circles[i].x, circles[i].y = circles[0].r+r, 0
			continue
		}
		placed := circles[:i]
		best, bestDist := [2]float64{}, math.Inf(1)
		try := func(x, y float64) {
			d := math.Hypot(x, y)
			if d >= bestDist {
				return
			}
			for _, p := range placed {
				if math.Hypot(x-p.x, y-p.y) < p.r+r-eps {
					return
				}
			}
			best, bestDist = [2]float64{x, y}, d
		}
		for a := 0; a < len(placed); a++ {
			for b := a + 1; b < len(placed); b++ {
				for _, pt := range tangentPoints(placed[a], placed[b], r) {
					try(pt[0], pt[1])
				}
			}
		}
		if math.IsInf(bestDist, 1) {
			extent := 0.0
			for _, p := range placed {
				extent = math.Max(extent, math.Hypot(p.x, p.y)+p.r)
			}
			best = [2]float64{extent + r, 0}
		}
		circles[i].x, circles[i].y = best[0], best[1]
	}
}

// tangentPoints returns the centers of a circle of radius r touching both a
// and b.
func tangentPoints(a, b circle, r float64) [][2]float64 {
	ra, rb := a.r+r, b.r+r
	dx, dy := b.x-a.x, b.y-a.y
	d := math.Hypot(dx, dy)
	if d == 0 || d > ra+rb || d < math.Abs(ra-rb) {
		return nil
	}
	along := (ra*ra - rb*rb + d*d) / (2 * d)
	h := math.Sqrt(math.Max(ra*ra-along*along, 0))
	mx, my := a.x+along*dx/d, a.y+along*dy/d
	ox, oy := -dy*h/d, dx*h/d
	return [][2]float64{{mx + ox, my + oy}, {mx - ox, my - oy}}
}
