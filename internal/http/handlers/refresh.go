package handlers

import (
	"context"
	"errors"
	"net/http"

	"sponsorkit/internal/domain"
	"sponsorkit/internal/middleware"
	"sponsorkit/internal/pipeline"
)

// Refresh refetches every provider and re-renders the outputs.
func (a *App) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.RunTimeout)
		defer cancel()
	}
	logger := a.Logger.With().Str("request_id", middleware.RequestIDFromContext(r.Context())).Logger()

	res, err := a.Runner.TryRefresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrBusy):
		a.error(w, http.StatusConflict, "busy", "a refresh is already running")
		return
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error().Err(err).Msg("http: refresh timed out")
		a.error(w, http.StatusGatewayTimeout, "timeout", "refresh timed out")
		return
	case errors.Is(err, domain.ErrMissingCredentials), errors.Is(err, domain.ErrConfig), errors.Is(err, domain.ErrCatchAllTier):
		logger.Error().Err(err).Msg("http: refresh misconfigured")
		a.error(w, http.StatusUnprocessableEntity, "config", err.Error())
		return
	default:
		logger.Error().Err(err).Msg("http: refresh failed")
		a.error(w, http.StatusBadGateway, "refresh_failed", err.Error())
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"run_id":           res.RunID,
		"sponsors":         res.Sponsors,
		"fetched":          res.Fetched,
		"merged":           res.Merged,
		"failed_providers": res.FailedProviders,
		"outputs":          res.Outputs,
		"duration_ms":      res.Duration.Milliseconds(),
	})
}
