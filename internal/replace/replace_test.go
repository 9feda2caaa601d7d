package replace

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"sponsorkit/internal/domain"
)

func ship(login, link, avatar string) *domain.Sponsorship {
	return &domain.Sponsorship{Sponsor: domain.Sponsor{Login: login, LinkURL: link, AvatarURL: avatar}}
}

func TestApplyFirstMatchShortCircuits(t *testing.T) {
	secondCalled := false
	links := Rules{
		Predicate(func(s *domain.Sponsorship) string {
			if s.Sponsor.Login == "antfu" {
				return "https://antfu.me"
			}
			return ""
		}),
		Predicate(func(*domain.Sponsorship) string {
			secondCalled = true
			return "https://never.example"
		}),
	}

	s := ship("antfu", "https://github.com/antfu", "")
	Apply([]*domain.Sponsorship{s}, links, nil)

	require.Equal(t, "https://antfu.me", s.Sponsor.LinkURL)
	require.False(t, secondCalled, "second rule must not be evaluated once the first matched")
}

func TestApplyLiteralBeforePredicate(t *testing.T) {
	called := false
	links := Rules{
		Literal("https://github.com/a", "https://a.dev"),
		Predicate(func(*domain.Sponsorship) string {
			called = true
			return "https://other"
		}),
	}
	s := ship("a", "https://github.com/a", "")
	Apply([]*domain.Sponsorship{s}, links, nil)
	require.Equal(t, "https://a.dev", s.Sponsor.LinkURL)
	require.False(t, called)
}

func TestApplyEmptyPredicateFallsThrough(t *testing.T) {
	links := Rules{
		Predicate(func(*domain.Sponsorship) string { return "" }),
		Literal("x", "y"),
	}
	s := ship("a", "x", "")
	Apply([]*domain.Sponsorship{s}, links, nil)
	require.Equal(t, "y", s.Sponsor.LinkURL)
}

func TestApplyNoMatchLeavesFieldsUntouched(t *testing.T) {
	s := ship("a", "link", "avatar")
	Apply([]*domain.Sponsorship{s}, Rules{Literal("other", "x")}, Rules{Literal("nope", "y")})
	require.Equal(t, "link", s.Sponsor.LinkURL)
	require.Equal(t, "avatar", s.Sponsor.AvatarURL)
}

func TestApplyFieldsAreIndependent(t *testing.T) {
	same := Rules{Literal("v", "w")}
	s := ship("a", "v", "v")
	Apply([]*domain.Sponsorship{s}, same, nil)
	require.Equal(t, "w", s.Sponsor.LinkURL)
	require.Equal(t, "v", s.Sponsor.AvatarURL)

	Apply([]*domain.Sponsorship{s}, nil, same)
	require.Equal(t, "w", s.Sponsor.AvatarURL)
}

func TestRulesUnmarshalYAML(t *testing.T) {
	var cfg struct {
		Links   Rules `yaml:"links"`
		Avatars Rules `yaml:"avatars"`
	}
	src := `
links:
  b: "2"
  a: "1"
avatars:
  - from: x
    to: y
  - z: w
`
	require.NoError(t, yaml.Unmarshal([]byte(src), &cfg))
	require.Equal(t, Rules{Literal("a", "1"), Literal("b", "2")}, cfg.Links)
	require.Equal(t, Rules{Literal("x", "y"), Literal("z", "w")}, cfg.Avatars)
}

func TestApplyEmptyLiteralNeverMatchesUnsetField(t *testing.T) {
	links := Rules{Literal("", "https://everyone.example")}
	avatars := Rules{Literal("", "https://avatar.example/default.png")}

	s := ship("antfu", "", "")
	Apply([]*domain.Sponsorship{s}, links, avatars)

	require.Empty(t, s.Sponsor.LinkURL)
	require.Empty(t, s.Sponsor.AvatarURL)
}

func TestRulesUnmarshalYAMLRejectsEmptyFrom(t *testing.T) {
	for _, src := range []string{
		"links:\n  \"\": https://x.example\n",
		"links:\n  - from: \"\"\n    to: https://x.example\n",
		"links:\n  - \"\": https://x.example\n",
	} {
		var cfg struct {
			Links Rules `yaml:"links"`
		}
		require.Error(t, yaml.Unmarshal([]byte(src), &cfg), src)
	}
}
