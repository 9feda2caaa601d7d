// Package replace rewrites sponsor links and avatars with user supplied
// rules. Rules are evaluated in declaration order and the first match wins.
package replace

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"sponsorkit/internal/domain"
)

// Kind tags the variant held by a Rule.
type Kind int

const (
	KindLiteral Kind = iota
	KindPredicate
)

// PredicateFunc returns the replacement for a record, or "" to pass.
type PredicateFunc func(ship *domain.Sponsorship) string

// Rule is either a literal from/to mapping or a predicate.
type Rule struct {
	Kind Kind
	From string
	To   string
	Fn   PredicateFunc
}

// Literal builds a rule replacing the exact value from with to.
func Literal(from, to string) Rule {
	return Rule{Kind: KindLiteral, From: from, To: to}
}

// Predicate builds a rule computed from the record.
func Predicate(fn PredicateFunc) Rule {
	return Rule{Kind: KindPredicate, Fn: fn}
}

// Match reports the replacement for current, if this rule matches.
func (r Rule) Match(ship *domain.Sponsorship, current string) (string, bool) {
	switch r.Kind {
	case KindPredicate:
		if r.Fn == nil {
			return "", false
		}
		if v := r.Fn(ship); v != "" {
			return v, true
		}
	case KindLiteral:
		// An unset field never equals a literal.
		if r.From != "" && r.From == current {
			return r.To, true
		}
	}
	return "", false
}

// Rules is an ordered rule list.
type Rules []Rule

// Resolve returns the first matching replacement for current.
func (rs Rules) Resolve(ship *domain.Sponsorship, current string) (string, bool) {
	for _, r := range rs {
		if v, ok := r.Match(ship, current); ok {
			return v, true
		}
	}
	return "", false
}

// UnmarshalYAML accepts either a mapping of from: to (expanded in sorted key
// order) or a sequence whose items are {from, to} pairs or single-entry
// mappings.
func (rs *Rules) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		pairs := map[string]string{}
		if err := node.Decode(&pairs); err != nil {
			return err
		}
		if _, ok := pairs[""]; ok {
			return fmt.Errorf("replace: line %d: empty from value", node.Line)
		}
		*rs = append(*rs, literalsFromMap(pairs)...)
		return nil
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				return fmt.Errorf("replace: line %d: expected mapping", item.Line)
			}
			var pair struct {
				From *string `yaml:"from"`
				To   *string `yaml:"to"`
			}
			if err := item.Decode(&pair); err == nil && pair.From != nil && pair.To != nil {
				if *pair.From == "" {
					return fmt.Errorf("replace: line %d: empty from value", item.Line)
				}
				*rs = append(*rs, Literal(*pair.From, *pair.To))
				continue
			}
			entries := map[string]string{}
			if err := item.Decode(&entries); err != nil {
				return fmt.Errorf("replace: line %d: %w", item.Line, err)
			}
			if _, ok := entries[""]; ok {
				return fmt.Errorf("replace: line %d: empty from value", item.Line)
			}
			*rs = append(*rs, literalsFromMap(entries)...)
		}
		return nil
	default:
		return fmt.Errorf("replace: line %d: expected mapping or sequence", node.Line)
	}
}

func literalsFromMap(pairs map[string]string) []Rule {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Rule, 0, len(keys))
	for _, k := range keys {
		out = append(out, Literal(k, pairs[k]))
	}
	return out
}

// Apply rewrites LinkURL with links and AvatarURL with avatars on every
// record. The two fields are resolved independently.
func Apply(ships []*domain.Sponsorship, links, avatars Rules) {
	for _, ship := range ships {
		if v, ok := links.Resolve(ship, ship.Sponsor.LinkURL); ok {
			ship.Sponsor.LinkURL = v
		}
		if v, ok := avatars.Resolve(ship, ship.Sponsor.AvatarURL); ok {
			ship.Sponsor.AvatarURL = v
		}
	}
}
