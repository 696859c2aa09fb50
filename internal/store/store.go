// Package store persists finished interview sessions.
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/rbright/rehearse/internal/transcript"
)

// ErrNotFound is returned when no session matches an id.
var ErrNotFound = errors.New("session not found")

//go:embed migrations
var migrations embed.FS

// Record is one stored session with its summary and answer log.
type Record struct {
	ID           string             `json:"id"`
	Topic        string             `json:"topic"`
	Modality     string             `json:"modality"`
	OverallScore int                `json:"overallScore"`
	Summary      string             `json:"summary"`
	Answers      []transcript.Entry `json:"answers"`
	Early        bool               `json:"early"`
	StartedAt    time.Time          `json:"startedAt"`
	FinishedAt   time.Time          `json:"finishedAt"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// Store is a results database.
type Store interface {
	// Save inserts rec, assigning ID and CreatedAt when they are empty.
	Save(ctx context.Context, rec Record) (Record, error)
	// List returns the newest sessions first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Options selects and locates a backend.
type Options struct {
	Driver string
	Path   string
	DSN    string
}

// Open connects to the configured backend and applies pending migrations.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		return OpenSQLite(ctx, opts.Path)
	case "postgres":
		return OpenPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func migrationFS(dialect string) (fs.FS, error) {
	sub, err := fs.Sub(migrations, "migrations/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", dialect, err)
	}
	return sub, nil
}

func migrate(ctx context.Context, provider *goose.Provider) error {
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// prepare fills generated fields and normalizes nil slices before insert.
func prepare(rec Record, now time.Time) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.StartedAt = rec.StartedAt.UTC()
	rec.FinishedAt = rec.FinishedAt.UTC()
	if rec.Answers == nil {
		rec.Answers = []transcript.Entry{}
	}
	return rec
}

// validID rejects ids that cannot be stored, so lookups fail as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
