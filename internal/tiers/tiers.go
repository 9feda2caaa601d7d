// Package tiers classifies sponsors into the configured monetary tiers.
package tiers

import (
	"fmt"
	"sort"

	"sponsorkit/internal/domain"
)

// Validate checks that exactly one tier is the catch-all.
func Validate(tierList []domain.Tier) error {
	var catchAll []string
	for _, t := range tierList {
		if t.IsCatchAll() {
			catchAll = append(catchAll, fmt.Sprintf("%q", t.Title))
		}
	}
	if len(catchAll) != 1 {
		return fmt.Errorf("tiers: %w, but got %d %v", domain.ErrCatchAllTier, len(catchAll), catchAll)
	}
	return nil
}

// HasPastTier reports whether any tier has an explicit non-positive bound,
// which turns on past sponsor inclusion when it is not configured.
func HasPastTier(tierList []domain.Tier) bool {
	for _, t := range tierList {
		if t.MonthlyDollars != nil && *t.MonthlyDollars <= 0 {
			return true
		}
	}
	return false
}

// Partition assigns every sponsor to the highest tier whose lower bound it
// reaches. Sponsors are visited oldest first. Past sponsors are dropped
// unless includePast is set. The input slice is left untouched.
func Partition(ships []*domain.Sponsorship, tierList []domain.Tier, includePast bool) ([]domain.TierPartition, error) {
	if err := Validate(tierList); err != nil {
		return nil, err
	}

	partitions := make([]domain.TierPartition, len(tierList))
	for i, t := range tierList {
		partitions[i] = domain.TierPartition{MonthlyDollars: t.LowerBound(), Tier: t}
	}
	sort.SliceStable(partitions, func(i, j int) bool {
		return partitions[i].MonthlyDollars > partitions[j].MonthlyDollars
	})
	catchAll := 0
	for i := range partitions {
		if partitions[i].Tier.IsCatchAll() {
			catchAll = i
			break
		}
	}

	ordered := make([]*domain.Sponsorship, 0, len(ships))
	for _, s := range ships {
		if s.MonthlyDollars > 0 || includePast {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return domain.ParseTime(ordered[i].CreatedAt).Before(domain.ParseTime(ordered[j].CreatedAt))
	})

	for _, s := range ordered {
		target := catchAll
		for i := range partitions {
			if s.MonthlyDollars >= partitions[i].MonthlyDollars {
				target = i
				break
			}
		}
		partitions[target].Sponsors = append(partitions[target].Sponsors, s)
	}
	return partitions, nil
}
