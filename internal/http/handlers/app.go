package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"sponsorkit/internal/infra"
	"sponsorkit/internal/pipeline"
	"sponsorkit/internal/storage"
)

// Refresher reruns the pipeline on demand.
type Refresher interface {
	TryRefresh(ctx context.Context) (*pipeline.Result, error)
}

// Outputs reads rendered files back.
type Outputs interface {
	Read(ctx context.Context, key string) (storage.Output, error)
	List(ctx context.Context) ([]string, error)
}

type App struct {
	Runner     Refresher
	Outputs    Outputs
	Logger     *infra.Logger
	RunTimeout time.Duration
	Now        func() time.Time
}

func NewApp(runner Refresher, outputs Outputs, logger *infra.Logger, runTimeout time.Duration) *App {
	return &App{
		Runner:     runner,
		Outputs:    outputs,
		Logger:     infra.OrDiscard(logger),
		RunTimeout: runTimeout,
		Now:        time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}
