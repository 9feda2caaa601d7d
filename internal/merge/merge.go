// Package merge folds sponsorship records that belong to the same sponsor
// into a single record.
package merge

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"sponsorkit/internal/domain"
)

// Matcher selects records by exact field equality. Empty fields do not
// filter.
type Matcher struct {
	Provider string             `yaml:"provider" json:"provider,omitempty"`
	Login    string             `yaml:"login" json:"login,omitempty"`
	Name     string             `yaml:"name" json:"name,omitempty"`
	Type     domain.SponsorType `yaml:"type" json:"type,omitempty"`
}

// Matches reports whether ship satisfies every populated field of m.
func (m Matcher) Matches(ship *domain.Sponsorship) bool {
	if m.Provider != "" && ship.Provider != m.Provider {
		return false
	}
	if m.Login != "" && ship.Sponsor.Login != m.Login {
		return false
	}
	if m.Name != "" && ship.Sponsor.Name != m.Name {
		return false
	}
	if m.Type != "" && ship.Sponsor.Type != m.Type {
		return false
	}
	return true
}

func (m Matcher) String() string {
	raw, _ := json.Marshal(m)
	return string(raw)
}

// MatchFunc returns the records that should be merged with ship. It is
// called once for every record.
type MatchFunc func(ship *domain.Sponsorship, all []*domain.Sponsorship) []*domain.Sponsorship

// Rule is either a list of matchers or a custom function.
type Rule struct {
	Matchers []Matcher
	Func     MatchFunc
}

// ByMatchers builds a rule merging everything the matchers select.
func ByMatchers(ms ...Matcher) Rule {
	return Rule{Matchers: ms}
}

// ByFunc builds a rule from a custom match function.
func ByFunc(fn MatchFunc) Rule {
	return Rule{Func: fn}
}

// UnmarshalYAML decodes a rule from a sequence of matchers.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("merge: line %d: a rule is a list of matchers", node.Line)
	}
	return node.Decode(&r.Matchers)
}

// Options configures a merge pass.
type Options struct {
	Rules     []Rule
	AutoMerge bool
	Logger    *zerolog.Logger
}

// Group is one set of records folded together.
type Group struct {
	Primary *domain.Sponsorship
	Merged  []*domain.Sponsorship
}

// Result is the outcome of Merge.
type Result struct {
	Sponsors  []*domain.Sponsorship
	Groups    []Group
	Unmatched []Matcher
}

// Merge groups records by the configured rules and folds every group into
// its earliest record. The primary records are updated in place; the
// others are dropped from the returned list.
func Merge(ships []*domain.Sponsorship, opts Options) Result {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	index := make(map[*domain.Sponsorship]int, len(ships))
	for i, s := range ships {
		index[s] = i
	}
	indicesOf := func(group []*domain.Sponsorship) []int {
		out := make([]int, 0, len(group))
		for _, s := range group {
			if i, ok := index[s]; ok {
				out = append(out, i)
			}
		}
		return out
	}

	set := newDisjointSet(len(ships))
	var unmatched []Matcher

	for _, rule := range opts.Rules {
		if rule.Func != nil {
			for _, ship := range ships {
				if matched := rule.Func(ship, ships); len(matched) > 0 {
					set.pushGroup(indicesOf(matched))
				}
			}
			continue
		}
		var group []int
		for _, m := range rule.Matchers {
			found := false
			for i, s := range ships {
				if m.Matches(s) {
					group = append(group, i)
					found = true
				}
			}
			if !found {
				unmatched = append(unmatched, m)
				logger.Warn().Str("matcher", m.String()).Msg("merge: no sponsor matched")
			}
		}
		set.pushGroup(group)
	}

	if opts.AutoMerge {
		for i, ship := range ships {
			for provider, login := range ship.Sponsor.SocialLogins {
				group := []int{i}
				for j, other := range ships {
					if other.Provider == provider && other.Sponsor.Login == login {
						group = append(group, j)
					}
				}
				set.pushGroup(group)
			}
		}
	}

	removed := make([]bool, len(ships))
	var groups []Group
	for _, members := range set.groups() {
		primary := ships[members[0]]
		others := make([]*domain.Sponsorship, 0, len(members)-1)
		for _, i := range members[1:] {
			others = append(others, ships[i])
			removed[i] = true
		}
		logger.Info().Msgf("merge: merging %s", describe(primary, others))
		Fold(primary, others)
		groups = append(groups, Group{Primary: primary, Merged: others})
	}

	kept := make([]*domain.Sponsorship, 0, len(ships))
	for i, s := range ships {
		if !removed[i] {
			kept = append(kept, s)
		}
	}
	return Result{Sponsors: kept, Groups: groups, Unmatched: unmatched}
}

// Fold combines others into primary.
func Fold(primary *domain.Sponsorship, others []*domain.Sponsorship) *domain.Sponsorship {
	all := append([]*domain.Sponsorship{primary}, others...)

	oneTime := true
	allPast := true
	var sum float64
	var expireAt, createdAt string
	var providers []string
	seen := map[string]bool{}

	for _, s := range all {
		oneTime = oneTime && s.IsOneTime
		if s.MonthlyDollars != domain.PastSponsorDollars {
			allPast = false
		}
		if s.MonthlyDollars > 0 {
			sum += s.MonthlyDollars
		}
		if s.ExpireAt != "" && s.ExpireAt > expireAt {
			expireAt = s.ExpireAt
		}
		if s.CreatedAt != "" && (createdAt == "" || s.CreatedAt < createdAt) {
			createdAt = s.CreatedAt
		}
		for _, p := range strings.Split(s.Provider, "+") {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			providers = append(providers, p)
		}
	}

	primary.IsOneTime = oneTime
	primary.ExpireAt = expireAt
	primary.CreatedAt = createdAt
	if allPast {
		primary.MonthlyDollars = domain.PastSponsorDollars
	} else {
		primary.MonthlyDollars = sum
	}
	primary.Provider = strings.Join(providers, "+")
	return primary
}

func describe(primary *domain.Sponsorship, others []*domain.Sponsorship) string {
	parts := make([]string, 0, len(others)+1)
	for _, s := range append([]*domain.Sponsorship{primary}, others...) {
		parts = append(parts, fmt.Sprintf("@%s(%s)", s.DisplayName(), s.Provider))
	}
	return strings.Join(parts, " + ")
}
