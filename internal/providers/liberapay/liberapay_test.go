package liberapay

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"sponsorkit/internal/config"
	"sponsorkit/internal/providers/fetch"
)

const publicCSV = `pledge_date,patron_id,patron_username,patron_public_name,donation_currency,weekly_amount,patron_avatar_url
2023-01-02,1,alice,Alice,USD,1.00,https://lp/alice.png

2023-02-03,2,bob,,EUR,2.00,https://lp/bob.png
`

func TestParseCSV(t *testing.T) {
	rows, err := ParseCSV([]byte(publicCSV))
	if err != nil {
		t.Fatalf("ParseCSV error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].PatronUsername != "bob" || rows[1].DonationCurrency != "EUR" || rows[1].WeeklyAmount != "2.00" {
		t.Fatalf("unexpected row: %+v", rows[1])
	}
}

func TestFetchSponsorsConvertsCurrency(t *testing.T) {
	rateCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/antfu/patrons/public.csv":
			io.WriteString(w, publicCSV)
		case "/daily/usd.json":
			rateCalls++
			io.WriteString(w, `{"eur":{"code":"EUR","inverseRate":1.1}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Liberapay.Login = "antfu"
	ships, err := New(fetch.Options{BaseURL: srv.URL}).FetchSponsors(context.Background(), cfg)
	if err != nil {
		t.Fatalf("FetchSponsors error: %v", err)
	}
	if rateCalls != 1 {
		t.Fatalf("expected one rate lookup, got %d", rateCalls)
	}
	if len(ships) != 2 {
		t.Fatalf("expected 2 sponsors, got %d", len(ships))
	}
	if math.Abs(ships[0].MonthlyDollars-4.345) > 1e-9 {
		t.Fatalf("alice monthly = %v", ships[0].MonthlyDollars)
	}
	if math.Abs(ships[1].MonthlyDollars-2*4.345*1.1) > 1e-9 {
		t.Fatalf("bob monthly = %v", ships[1].MonthlyDollars)
	}
	if ships[1].Sponsor.Name != "bob" || ships[1].Sponsor.LinkURL != "https://liberapay.com/bob" {
		t.Fatalf("unexpected bob: %+v", ships[1].Sponsor)
	}
	if ships[0].CreatedAt != "2023-01-02T00:00:00.000Z" {
		t.Fatalf("createdAt = %q", ships[0].CreatedAt)
	}
}

func TestMonthlyDollarsUnknownCurrencyAtPar(t *testing.T) {
	if got := MonthlyDollars(1, "XYZ", nil); math.Abs(got-4.345) > 1e-9 {
		t.Fatalf("got %v", got)
	}
}
