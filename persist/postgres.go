package persist

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// Postgres stores slots in a table of an existing database. Owner namespaces
// rows so one table can hold many users' slots.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
	owner string
}

// NewPostgres wraps pool. table must be a plain (optionally schema-qualified)
// identifier; it is created on demand by EnsureSchema.
func NewPostgres(pool *pgxpool.Pool, table, owner string) (*Postgres, error) {
	if pool == nil {
		return nil, errors.New("persist: postgres slot requires a pool")
	}
	if table == "" {
		table = "hrdesk_client_slots"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("persist: invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table, owner: owner}, nil
}

// OpenPostgres builds a pool from dsn, checks connectivity, and ensures the schema.
func OpenPostgres(ctx context.Context, dsn, table, owner string) (*Postgres, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p, err := NewPostgres(pool, table, owner)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates the slot table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+p.table+` (
		owner      TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (owner, key)
	)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", p.table, err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	var value []byte
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM `+p.table+` WHERE owner = $1 AND key = $2`,
		p.owner, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO `+p.table+` (owner, key, value, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (owner, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		p.owner, key, value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM `+p.table+` WHERE owner = $1 AND key = $2`, p.owner, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
