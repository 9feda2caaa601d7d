package patreon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
	"sponsorkit/internal/providers/fetch"
)

func TestFetchSponsors(t *testing.T) {
	var srvURL string
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "bearer pt" {
			t.Errorf("authorization = %q", got)
		}
		switch r.URL.Path {
		case "/api/current_user/campaigns":
			io.WriteString(w, `{"data":[{"id":"42"}]}`)
		case "/v2/campaigns/42/members":
			pages = append(pages, r.URL.Query().Get("cursor"))
			if r.URL.Query().Get("page[count]") != "100" {
				t.Errorf("page count = %q", r.URL.Query().Get("page[count]"))
			}
			if r.URL.Query().Get("cursor") == "2" {
				io.WriteString(w, `{"data":[
				  {"id":"m4","attributes":{"currently_entitled_amount_cents":0,"patron_status":"declined_patron","pledge_relationship_start":"2019-01-01T00:00:00Z"},
				   "relationships":{"user":{"data":{"id":"u4","type":"user"}},"currently_entitled_tiers":{"data":[]}}}
				],"included":[{"id":"u4","type":"user","attributes":{"first_name":"Dan","full_name":"Dan D"}}]}`)
				return
			}
			io.WriteString(w, `{"data":[
			  {"id":"m1","attributes":{"currently_entitled_amount_cents":550,"patron_status":"active_patron","pledge_relationship_start":"2021-01-01T00:00:00Z"},
			   "relationships":{"user":{"data":{"id":"u1","type":"user"}},"currently_entitled_tiers":{"data":[{"id":"t1","type":"tier"}]}}},
			  {"id":"m2","attributes":{"currently_entitled_amount_cents":0,"patron_status":null},
			   "relationships":{"user":{"data":{"id":"u2","type":"user"}},"currently_entitled_tiers":{"data":[]}}},
			  {"id":"m3","attributes":{"currently_entitled_amount_cents":0,"patron_status":"active_patron","pledge_relationship_start":"2022-01-01T00:00:00Z"},
			   "relationships":{"user":{"data":{"id":"u3","type":"user"}},"currently_entitled_tiers":{"data":[{"id":"t2","type":"tier"}]}}}
			],"included":[
			  {"id":"u1","type":"user","attributes":{"first_name":"Ann","full_name":"Ann A","image_url":"https://p/ann.png","url":"https://patreon.com/ann"}},
			  {"id":"u3","type":"user","attributes":{"first_name":"Cid","full_name":"Cid C"}},
			  {"id":"t1","type":"tier","attributes":{"amount_cents":500}},
			  {"id":"t2","type":"tier","attributes":{"amount_cents":300}}
			],"links":{"next":"`+srvURL+`/v2/campaigns/42/members?page%5Bcount%5D=100&cursor=2"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	cfg := config.Defaults()
	cfg.Patreon.Token = "pt"
	ships, err := New(fetch.Options{BaseURL: srv.URL}).FetchSponsors(context.Background(), cfg)
	if err != nil {
		t.Fatalf("FetchSponsors error: %v", err)
	}
	if len(pages) != 2 || pages[0] != "" || pages[1] != "2" {
		t.Fatalf("expected the next link to be followed once, got cursors %q", pages)
	}
	if len(ships) != 3 {
		t.Fatalf("expected 3 sponsors (never pledged dropped), got %d", len(ships))
	}
	if ships[0].MonthlyDollars != 5 || ships[0].Sponsor.Login != "Ann" || ships[0].Sponsor.Name != "Ann A" {
		t.Fatalf("unexpected ann: %+v", ships[0])
	}
	if ships[1].MonthlyDollars != 3 {
		t.Fatalf("gifted member should use tier amount, got %v", ships[1].MonthlyDollars)
	}
	if !ships[2].IsPast() {
		t.Fatalf("declined patron should be past, got %v", ships[2].MonthlyDollars)
	}
}

func TestFetchSponsorsRequiresToken(t *testing.T) {
	_, err := New(fetch.Options{}).FetchSponsors(context.Background(), config.Defaults())
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
}
