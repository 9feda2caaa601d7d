package merge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sponsorkit/internal/domain"
)

func sponsorship(provider, login string, dollars float64, createdAt string) *domain.Sponsorship {
	return &domain.Sponsorship{
		Sponsor:        domain.Sponsor{Type: domain.SponsorTypeUser, Login: login, Name: login},
		MonthlyDollars: dollars,
		CreatedAt:      createdAt,
		Provider:       provider,
		PrivacyLevel:   domain.PrivacyPublic,
	}
}

func TestAutoMergeSocialLogins(t *testing.T) {
	gh := sponsorship("github", "A", 10, "2021-01-01T00:00:00.000Z")
	gh.Sponsor.SocialLogins = map[string]string{"patreon": "A"}
	pt := sponsorship("patreon", "A", 5, "2021-06-01T00:00:00.000Z")
	other := sponsorship("github", "B", 3, "2021-03-01T00:00:00.000Z")

	res := Merge([]*domain.Sponsorship{gh, pt, other}, Options{AutoMerge: true})

	require.Len(t, res.Sponsors, 2)
	merged := res.Sponsors[0]
	require.Same(t, gh, merged)
	require.Equal(t, "github+patreon", merged.Provider)
	require.Equal(t, 15.0, merged.MonthlyDollars)
	require.Equal(t, "2021-01-01T00:00:00.000Z", merged.CreatedAt)
	require.Same(t, other, res.Sponsors[1])
	require.Len(t, res.Groups, 1)
}

func TestAutoMergeDisabledKeepsRecords(t *testing.T) {
	gh := sponsorship("github", "A", 10, "")
	gh.Sponsor.SocialLogins = map[string]string{"patreon": "A"}
	pt := sponsorship("patreon", "A", 5, "")

	res := Merge([]*domain.Sponsorship{gh, pt}, Options{})
	require.Len(t, res.Sponsors, 2)
	require.Empty(t, res.Groups)
}

func TestMatcherRuleMergesAcrossProviders(t *testing.T) {
	a := sponsorship("patreon", "antfu", 5, "2022-01-01")
	b := sponsorship("github", "antfu", 20, "2020-01-01")
	c := sponsorship("opencollective", "someone", 1, "2019-01-01")

	res := Merge([]*domain.Sponsorship{a, b, c}, Options{Rules: []Rule{
		ByMatchers(Matcher{Login: "antfu", Provider: "github"}, Matcher{Login: "antfu", Provider: "patreon"}),
	}})

	require.Len(t, res.Sponsors, 2)
	require.Same(t, a, res.Sponsors[0], "earliest discovered record survives")
	require.Equal(t, "patreon+github", a.Provider)
	require.Equal(t, 25.0, a.MonthlyDollars)
	require.Equal(t, "2020-01-01", a.CreatedAt)
}

func TestMatcherWithoutMatchIsReported(t *testing.T) {
	a := sponsorship("github", "a", 5, "")
	res := Merge([]*domain.Sponsorship{a}, Options{Rules: []Rule{
		ByMatchers(Matcher{Login: "ghost"}),
	}})
	require.Len(t, res.Sponsors, 1)
	require.Equal(t, []Matcher{{Login: "ghost"}}, res.Unmatched)
}

func TestMatcherEmptyFieldsDoNotFilter(t *testing.T) {
	s := sponsorship("github", "x", 1, "")
	require.True(t, Matcher{}.Matches(s))
	require.True(t, Matcher{Type: domain.SponsorTypeUser}.Matches(s))
	require.False(t, Matcher{Type: domain.SponsorTypeOrganization}.Matches(s))
	require.False(t, Matcher{Login: "x", Provider: "patreon"}.Matches(s))
}

func TestFuncRuleGroupsByName(t *testing.T) {
	a := sponsorship("github", "a1", 2, "")
	a.Sponsor.Name = "Alice"
	b := sponsorship("patreon", "a2", 3, "")
	b.Sponsor.Name = "Alice"
	c := sponsorship("polar", "c", 4, "")

	byName := ByFunc(func(ship *domain.Sponsorship, all []*domain.Sponsorship) []*domain.Sponsorship {
		var out []*domain.Sponsorship
		for _, s := range all {
			if s.Sponsor.Name == ship.Sponsor.Name {
				out = append(out, s)
			}
		}
		return out
	})

	res := Merge([]*domain.Sponsorship{a, b, c}, Options{Rules: []Rule{byName}})
	require.Len(t, res.Sponsors, 2)
	require.Equal(t, 5.0, a.MonthlyDollars)
	require.Equal(t, "github+patreon", a.Provider)
}

func TestOverlappingGroupsAreUnioned(t *testing.T) {
	a := sponsorship("github", "a", 1, "")
	b := sponsorship("patreon", "b", 2, "")
	c := sponsorship("polar", "c", 4, "")
	d := sponsorship("afdian", "d", 8, "")

	res := Merge([]*domain.Sponsorship{a, b, c, d}, Options{Rules: []Rule{
		ByMatchers(Matcher{Login: "c"}, Matcher{Login: "d"}),
		ByMatchers(Matcher{Login: "a"}, Matcher{Login: "b"}),
		ByMatchers(Matcher{Login: "b"}, Matcher{Login: "c"}),
	}})

	require.Len(t, res.Sponsors, 1)
	require.Same(t, a, res.Sponsors[0])
	require.Equal(t, 15.0, a.MonthlyDollars)
	require.Equal(t, "github+patreon+polar+afdian", a.Provider)
}

func TestPrimaryIsIndependentOfRuleOrder(t *testing.T) {
	build := func() []*domain.Sponsorship {
		return []*domain.Sponsorship{
			sponsorship("github", "a", 1, ""),
			sponsorship("patreon", "b", 2, ""),
			sponsorship("polar", "c", 4, ""),
		}
	}
	forward := build()
	resF := Merge(forward, Options{Rules: []Rule{
		ByMatchers(Matcher{Login: "a"}, Matcher{Login: "b"}),
		ByMatchers(Matcher{Login: "b"}, Matcher{Login: "c"}),
	}})
	backward := build()
	resB := Merge(backward, Options{Rules: []Rule{
		ByMatchers(Matcher{Login: "c"}, Matcher{Login: "b"}),
		ByMatchers(Matcher{Login: "b"}, Matcher{Login: "a"}),
	}})

	require.Same(t, forward[0], resF.Sponsors[0])
	require.Same(t, backward[0], resB.Sponsors[0])
	require.Equal(t, resF.Sponsors[0].Provider, resB.Sponsors[0].Provider)
}

func TestFoldDollarRules(t *testing.T) {
	cases := []struct {
		name    string
		dollars []float64
		want    float64
	}{
		{"all past stays past", []float64{-1, -1, -1}, -1},
		{"past members contribute nothing", []float64{-1, 10, -1}, 10},
		{"sum of positives", []float64{3, 4.5, 0}, 7.5},
		{"zero and past is zero", []float64{0, -1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ships []*domain.Sponsorship
			for _, d := range tc.dollars {
				ships = append(ships, sponsorship("p", "x", d, ""))
			}
			Fold(ships[0], ships[1:])
			require.Equal(t, tc.want, ships[0].MonthlyDollars)
		})
	}
}

func TestFoldDates(t *testing.T) {
	a := sponsorship("github", "a", 1, "2021-05-01")
	a.ExpireAt = "2022-01-01"
	a.IsOneTime = true
	b := sponsorship("patreon", "a", 1, "")
	b.ExpireAt = "2023-01-01"
	b.IsOneTime = true
	c := sponsorship("polar", "a", 1, "2020-01-01")
	c.IsOneTime = false

	Fold(a, []*domain.Sponsorship{b, c})
	require.Equal(t, "2023-01-01", a.ExpireAt)
	require.Equal(t, "2020-01-01", a.CreatedAt)
	require.False(t, a.IsOneTime)
}

func TestMergeIsIdempotent(t *testing.T) {
	gh := sponsorship("github", "A", 10, "2021-01-01")
	gh.Sponsor.SocialLogins = map[string]string{"patreon": "A"}
	pt := sponsorship("patreon", "A", 5, "2021-06-01")
	oc := sponsorship("opencollective", "A", 7, "2021-02-01")
	rules := []Rule{ByMatchers(Matcher{Login: "A", Provider: "opencollective"}, Matcher{Login: "A", Provider: "github"})}

	first := Merge([]*domain.Sponsorship{gh, pt, oc}, Options{Rules: rules, AutoMerge: true})
	require.Len(t, first.Sponsors, 1)
	snapshot := first.Sponsors[0].Clone()

	second := Merge(first.Sponsors, Options{Rules: rules, AutoMerge: true})
	require.Empty(t, second.Groups)
	require.Len(t, second.Sponsors, 1)
	require.Equal(t, snapshot, second.Sponsors[0])
}

func TestDollarConservation(t *testing.T) {
	ships := []*domain.Sponsorship{
		sponsorship("github", "a", 12, ""),
		sponsorship("patreon", "a", -1, ""),
		sponsorship("polar", "a", 8, ""),
		sponsorship("github", "b", 30, ""),
		sponsorship("patreon", "b", 2, ""),
		sponsorship("polar", "solo", 9, ""),
	}
	var before float64
	for _, s := range ships {
		if s.MonthlyDollars > 0 {
			before += s.MonthlyDollars
		}
	}

	res := Merge(ships, Options{Rules: []Rule{
		ByMatchers(Matcher{Login: "a"}),
		ByMatchers(Matcher{Login: "b"}),
	}})

	var after float64
	for _, s := range res.Sponsors {
		if s.MonthlyDollars > 0 {
			after += s.MonthlyDollars
		}
	}
	require.Len(t, res.Sponsors, 3)
	require.Equal(t, before, after)
}
