package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Postgres stores sessions in a shared database.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects with dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	fsys, err := migrationFS("postgres")
	if err != nil {
		pool.Close()
		return nil, err
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	if err := migrate(ctx, provider); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool, now: time.Now}, nil
}

// Close releases every pooled connection.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Save(ctx context.Context, rec Record) (Record, error) {
	rec = prepare(rec, p.now())
	if !validID(rec.ID) {
		return Record{}, fmt.Errorf("invalid session id %q", rec.ID)
	}
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return Record{}, fmt.Errorf("encode answers: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO sessions (id, topic, modality, overall_score, summary, answers, early, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.Topic, rec.Modality, rec.OverallScore, rec.Summary, answers, rec.Early,
		nullTime(rec.StartedAt), nullTime(rec.FinishedAt), rec.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("insert session: %w", err)
	}
	return rec, nil
}

func (p *Postgres) List(ctx context.Context, limit int) ([]Record, error) {
	query := `
		SELECT id::text, topic, modality, overall_score, summary, answers, early, started_at, finished_at, created_at
		FROM sessions
		ORDER BY created_at DESC, id ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, id string) (Record, error) {
	if !validID(id) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	row := p.pool.QueryRow(ctx, `
		SELECT id::text, topic, modality, overall_score, summary, answers, early, started_at, finished_at, created_at
		FROM sessions
		WHERE id = $1
	`, id)
	rec, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func scanPostgres(row pgx.Row) (Record, error) {
	var (
		rec                   Record
		answers               []byte
		startedAt, finishedAt *time.Time
	)
	if err := row.Scan(&rec.ID, &rec.Topic, &rec.Modality, &rec.OverallScore, &rec.Summary,
		&answers, &rec.Early, &startedAt, &finishedAt, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(answers, &rec.Answers); err != nil {
		return Record{}, fmt.Errorf("decode answers for %s: %w", rec.ID, err)
	}
	if startedAt != nil {
		rec.StartedAt = startedAt.UTC()
	}
	if finishedAt != nil {
		rec.FinishedAt = finishedAt.UTC()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
