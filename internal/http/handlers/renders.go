package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sponsorkit/internal/domain"
	"sponsorkit/pkg/zip"
)

// ListRenders returns the keys of every rendered output.
func (a *App) ListRenders(w http.ResponseWriter, r *http.Request) {
	keys, err := a.Outputs.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: list renders")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list renders")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": keys})
}

// Render serves one output file.
func (a *App) Render(w http.ResponseWriter, r *http.Request) {
	out, err := a.Outputs.Read(r.Context(), chi.URLParam(r, "file"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "render not found")
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_key", err.Error())
		return
	}
	w.Header().Set("Content-Type", out.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

// Archive bundles every output into a zip download.
func (a *App) Archive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keys, err := a.Outputs.List(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: list renders")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list renders")
		return
	}
	if len(keys) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "nothing rendered yet")
		return
	}
	assets := make([]zip.Asset, 0, len(keys))
	for _, key := range keys {
		out, err := a.Outputs.Read(ctx, key)
		if err != nil {
			a.Logger.Error().Err(err).Str("key", key).Msg("http: read render")
			a.error(w, http.StatusInternalServerError, "internal", "failed to read renders")
			return
		}
		assets = append(assets, zip.Asset{Filename: out.Key, MIME: out.MIME, Data: out.Data})
	}
	raw, err := zip.Archive(assets, a.Now())
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: build archive")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="sponsorkit.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
