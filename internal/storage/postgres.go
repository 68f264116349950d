package storage

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
)

// pgStore keeps saves in a single key/value table so SaveState stays a one
// statement upsert (all or nothing per call).
type pgStore struct {
	db *sql.DB
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS temperature_saves (
	k          TEXT PRIMARY KEY,
	v          JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func NewPostgresStore(dsn string) (Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(pgSchema); err != nil {
		return nil, err
	}
	return &pgStore{db: db}, nil
}

func (p *pgStore) put(ctx context.Context, key string, data []byte) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO temperature_saves (k, v, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = now()`,
		key, data)
	return err
}

func (p *pgStore) get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT v FROM temperature_saves WHERE k = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (p *pgStore) SaveState(ctx context.Context, id string, data []byte) error {
	return p.put(ctx, "save:"+id, data)
}

func (p *pgStore) LoadState(ctx context.Context, id string) ([]byte, error) {
	return p.get(ctx, "save:"+id)
}

func (p *pgStore) SaveConfig(ctx context.Context, data []byte) error {
	return p.put(ctx, "config", data)
}

func (p *pgStore) LoadConfig(ctx context.Context) ([]byte, error) {
	return p.get(ctx, "config")
}

func (p *pgStore) Clear(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM temperature_saves`)
	return err
}
