// Package cache keeps the processed sponsor list between runs so renders
// can be regenerated without calling the providers again.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sponsorkit/internal/domain"
	"sponsorkit/internal/infra"
	"sponsorkit/internal/sqlinline"
)

// Store persists one sponsor snapshot. Load returns domain.ErrNotFound when
// nothing was saved yet, including after Clear.
type Store interface {
	Load(ctx context.Context) ([]*domain.Sponsorship, error)
	Save(ctx context.Context, ships []*domain.Sponsorship) error
	Clear(ctx context.Context) error
}

// Encode serializes a snapshot. Avatar buffers are base64 encoded by
// encoding/json.
func Encode(ships []*domain.Sponsorship) ([]byte, error) {
	if ships == nil {
		ships = []*domain.Sponsorship{}
	}
	raw, err := json.MarshalIndent(ships, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("cache: encode: %w", err)
	}
	return raw, nil
}

// Decode parses a snapshot written by Encode.
func Decode(raw []byte) ([]*domain.Sponsorship, error) {
	var ships []*domain.Sponsorship
	if err := json.Unmarshal(raw, &ships); err != nil {
		return nil, fmt.Errorf("cache: decode: %w", err)
	}
	return ships, nil
}

// FileStore keeps the snapshot as a JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) ([]*domain.Sponsorship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("cache: %s: %w", s.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("cache: read %s: %w", s.path, err)
	}
	return Decode(raw)
}

func (s *FileStore) Save(ctx context.Context, ships []*domain.Sponsorship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := Encode(ships)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("cache: ensure directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("cache: replace %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the snapshot file. A missing file is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cache: remove %s: %w", s.path, err)
	}
	return nil
}

// PostgresStore keeps the snapshot in the sponsor_snapshots table under a
// name, so several sheets can share one database.
type PostgresStore struct {
	sql  infra.SQLExecutor
	name string
}

func NewPostgresStore(sql infra.SQLExecutor, name string) *PostgresStore {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "default"
	}
	return &PostgresStore{sql: sql, name: name}
}

// EnsureSchema creates the snapshot table when it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QEnsureSponsorSnapshots); err != nil {
		return fmt.Errorf("cache: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]*domain.Sponsorship, error) {
	var payload []byte
	if err := s.sql.QueryRow(ctx, sqlinline.QSelectSponsorSnapshot, s.name).Scan(&payload); err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("cache: snapshot %q: %w", s.name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("cache: load snapshot %q: %w", s.name, err)
	}
	return Decode(payload)
}

func (s *PostgresStore) Save(ctx context.Context, ships []*domain.Sponsorship) error {
	raw, err := Encode(ships)
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertSponsorSnapshot, s.name, raw, len(ships)); err != nil {
		return fmt.Errorf("cache: save snapshot %q: %w", s.name, err)
	}
	return nil
}

// Clear drops the stored snapshot.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QDeleteSponsorSnapshot, s.name); err != nil {
		return fmt.Errorf("cache: clear snapshot %q: %w", s.name, err)
	}
	return nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
