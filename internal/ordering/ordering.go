// Package ordering sorts and filters the final sponsor list.
package ordering

import (
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"sponsorkit/internal/domain"
)

// FilterFunc decides whether ship stays in the rendered list. all is the
// complete sorted list.
type FilterFunc func(ship *domain.Sponsorship, all []*domain.Sponsorship) bool

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English)
)

func compareNames(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// Less orders by monthly dollars descending, then creation date descending,
// then login (or name) ascending.
func Less(a, b *domain.Sponsorship) bool {
	if a.MonthlyDollars != b.MonthlyDollars {
		return a.MonthlyDollars > b.MonthlyDollars
	}
	ta, tb := domain.ParseTime(a.CreatedAt), domain.ParseTime(b.CreatedAt)
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return compareNames(a.DisplayName(), b.DisplayName()) < 0
}

// Sort orders ships in place.
func Sort(ships []*domain.Sponsorship) {
	sort.SliceStable(ships, func(i, j int) bool {
		return Less(ships[i], ships[j])
	})
}

// Filter applies the user filter and the privacy rule to an already sorted
// list. The result keeps the input order; the input is not modified.
func Filter(ships []*domain.Sponsorship, filter FilterFunc, includePrivate bool) []*domain.Sponsorship {
	out := make([]*domain.Sponsorship, 0, len(ships))
	for _, s := range ships {
		if filter != nil && !filter(s, ships) {
			continue
		}
		if !includePrivate && s.IsPrivate() {
			continue
		}
		out = append(out, s)
	}
	return out
}
