package avatar

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"sponsorkit/internal/config"
	"sponsorkit/internal/domain"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestResizeCoversSquare(t *testing.T) {
	out, err := Resize(solidPNG(t, 300, 150, color.RGBA{R: 255, A: 255}), 120)
	if err != nil {
		t.Fatalf("Resize error: %v", err)
	}
	if w, h := decodeSize(t, out); w != 120 || h != 120 {
		t.Fatalf("size = %dx%d want 120x120", w, h)
	}
	again, err := Resize(solidPNG(t, 300, 150, color.RGBA{R: 255, A: 255}), 120)
	if err != nil {
		t.Fatalf("Resize error: %v", err)
	}
	if !bytes.Equal(out, again) {
		t.Fatalf("memoized resize should return identical bytes")
	}
}

func TestResizeRejectsGarbage(t *testing.T) {
	if _, err := Resize([]byte("not an image"), 120); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestCoverRect(t *testing.T) {
	got := coverRect(image.Rect(0, 0, 300, 100))
	if got != image.Rect(100, 0, 200, 100) {
		t.Fatalf("coverRect = %v", got)
	}
	got = coverRect(image.Rect(0, 0, 50, 90))
	if got != image.Rect(0, 20, 50, 70) {
		t.Fatalf("coverRect = %v", got)
	}
}

func TestResolve(t *testing.T) {
	avatar := solidPNG(t, 64, 64, color.RGBA{B: 255, A: 255})
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		if r.URL.Path == "/broken.png" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Write(avatar)
	}))
	defer srv.Close()

	fallback := DefaultFallback()
	ships := []*domain.Sponsorship{
		{Sponsor: domain.Sponsor{Login: "ok", AvatarURL: srv.URL + "/ok.png"}},
		{Sponsor: domain.Sponsor{Login: "secret", AvatarURL: srv.URL + "/secret.png"}, PrivacyLevel: domain.PrivacyPrivate},
		{Sponsor: domain.Sponsor{Login: "broken", AvatarURL: srv.URL + "/broken.png"}},
		{Sponsor: domain.Sponsor{Login: "none"}},
	}
	r := NewResolver(Options{Concurrency: 2, Fallback: fallback})
	if err := r.Resolve(context.Background(), ships); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if w, h := decodeSize(t, ships[0].Sponsor.AvatarBuffer); w != 120 || h != 120 {
		t.Fatalf("resolved avatar size = %dx%d", w, h)
	}
	for _, s := range ships[1:] {
		if !bytes.Equal(s.Sponsor.AvatarBuffer, fallback) {
			t.Fatalf("%s should use the fallback avatar", s.Sponsor.Login)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("private and empty avatars must not be fetched, got %d requests", got)
	}
}

func TestResolveWithoutFallbackFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	ships := []*domain.Sponsorship{{Sponsor: domain.Sponsor{Login: "broken", AvatarURL: srv.URL + "/x.png"}}}
	err := NewResolver(Options{}).Resolve(context.Background(), ships)
	if !errors.Is(err, domain.ErrAvatarUnavailable) {
		t.Fatalf("expected avatar unavailable, got %v", err)
	}
}

func TestLoadFallback(t *testing.T) {
	r := NewResolver(Options{})
	cfg := config.Defaults()

	got, err := r.LoadFallback(context.Background(), cfg)
	if err != nil || !bytes.Equal(got, DefaultFallback()) {
		t.Fatalf("expected built-in fallback, err=%v", err)
	}

	path := filepath.Join(t.TempDir(), "fallback.png")
	if err := os.WriteFile(path, solidPNG(t, 10, 10, color.White), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg.FallbackAvatar = path
	got, err = r.LoadFallback(context.Background(), cfg)
	if err != nil {
		t.Fatalf("LoadFallback error: %v", err)
	}
	if w, _ := decodeSize(t, got); w != 120 {
		t.Fatalf("file fallback should be resized, width %d", w)
	}

	cfg.DisableFallbackAvatar = true
	got, err = r.LoadFallback(context.Background(), cfg)
	if err != nil || got != nil {
		t.Fatalf("disabled fallback should be nil, got %d bytes err=%v", len(got), err)
	}
}
