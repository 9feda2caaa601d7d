package ordering

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sponsorkit/internal/domain"
)

func ship(login, name string, dollars float64, createdAt string) *domain.Sponsorship {
	return &domain.Sponsorship{
		Sponsor:        domain.Sponsor{Login: login, Name: name},
		MonthlyDollars: dollars,
		CreatedAt:      createdAt,
		PrivacyLevel:   domain.PrivacyPublic,
	}
}

func logins(ships []*domain.Sponsorship) []string {
	out := make([]string, len(ships))
	for i, s := range ships {
		out[i] = s.DisplayName()
	}
	return out
}

func TestSortByDollarsThenDateThenName(t *testing.T) {
	ships := []*domain.Sponsorship{
		ship("low", "", 5, "2023-01-01T00:00:00Z"),
		ship("old", "", 50, "2020-01-01T00:00:00Z"),
		ship("new", "", 50, "2022-01-01T00:00:00Z"),
		ship("past", "", -1, "2024-01-01T00:00:00Z"),
	}
	Sort(ships)
	require.Equal(t, []string{"new", "old", "low", "past"}, logins(ships))
}

func TestSortTieBreaksAlphabetically(t *testing.T) {
	ships := []*domain.Sponsorship{
		ship("charlie", "", 10, "2021-01-01"),
		ship("", "Bravo", 10, "2021-01-01"),
		ship("alpha", "", 10, "2021-01-01"),
	}
	Sort(ships)
	require.Equal(t, []string{"alpha", "Bravo", "charlie"}, logins(ships))
}

func TestSortComparesParsedTimestamps(t *testing.T) {
	// RFC1123 and ISO strings for the same instant compare equal.
	ships := []*domain.Sponsorship{
		ship("b", "", 1, "Fri, 01 Jan 2021 00:00:00 GMT"),
		ship("a", "", 1, "2021-01-01T00:00:00.000Z"),
		ship("c", "", 1, "2021-06-01T00:00:00.000Z"),
	}
	Sort(ships)
	require.Equal(t, []string{"c", "a", "b"}, logins(ships))
}

func TestFilterRunsAfterSortAndDropsPrivate(t *testing.T) {
	ships := []*domain.Sponsorship{
		ship("a", "", 30, ""),
		ship("b", "", 20, ""),
		ship("c", "", 10, ""),
	}
	ships[1].PrivacyLevel = domain.PrivacyPrivate

	var seen int
	onlyTopTwo := func(s *domain.Sponsorship, all []*domain.Sponsorship) bool {
		seen = len(all)
		return s != all[2]
	}

	out := Filter(ships, onlyTopTwo, false)
	require.Equal(t, []string{"a"}, logins(out))
	require.Equal(t, 3, seen)
	require.Len(t, ships, 3)

	out = Filter(ships, nil, true)
	require.Equal(t, []string{"a", "b", "c"}, logins(out))
}
