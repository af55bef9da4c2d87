package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/db"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot paths of the delivery loop.
var preparedStatements = map[string]string{
	"fetch_pending":        `SELECT id, name, phone, base_number, address, niche, maps_url, status, sent_at, created_at FROM leads WHERE status = 'pending' ORDER BY random() LIMIT $1`,
	"update_status":        `UPDATE leads SET status = $1, sent_at = $2 WHERE id = ANY($3)`,
	"find_pending_by_base": `SELECT id, name, phone, base_number, address, niche, maps_url, status, sent_at, created_at FROM leads WHERE base_number = $1 AND status = 'pending'`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	phone       TEXT NOT NULL DEFAULT '',
	base_number TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	niche       TEXT NOT NULL DEFAULT '',
	maps_url    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	sent_at     TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_base_number ON leads(base_number, status);
CREATE INDEX IF NOT EXISTS idx_leads_niche ON leads(niche);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const leadColumns = `id, name, phone, base_number, address, niche, maps_url, status, sent_at, created_at`

func (s *PostgresStore) FetchPendingBatch(ctx context.Context, limit int) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE status = 'pending' ORDER BY random() LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch pending batch")
	}
	defer rows.Close()

	return scanLeads(rows)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, ids []string, status model.DeliveryStatus, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if !status.Valid() {
		return eris.Errorf("postgres: invalid status %q", status)
	}

	_, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = $1, sent_at = $2 WHERE id = ANY($3)`,
		string(status), at.UTC(), ids,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update status for %d leads", len(ids))
	}
	return nil
}

func (s *PostgresStore) FindPendingByBaseNumber(ctx context.Context, base string) ([]model.Lead, error) {
	if base == "" {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE base_number = $1 AND status = 'pending'`,
		base,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find pending by base number %s", base)
	}
	defer rows.Close()

	return scanLeads(rows)
}

func (s *PostgresStore) InsertLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	columns := []string{"id", "name", "phone", "base_number", "address", "niche", "maps_url", "status", "created_at"}
	rows := make([][]any, 0, len(leads))
	now := time.Now().UTC()
	for _, l := range leads {
		id := l.ID
		if id == "" {
			id = uuid.New().String()
		}
		status := l.Status
		if status == "" {
			status = model.StatusPending
		}
		createdAt := l.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		rows = append(rows, []any{id, l.Name, l.Phone, l.BaseNumber, l.Address, l.Niche, l.MapsURL, string(status), createdAt})
	}

	n, err := db.CopyFrom(ctx, s.pool, "leads", columns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert leads")
	}
	return n, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE ($1 = '' OR status = $1) AND ($2 = '' OR niche = $2)
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		string(filter.Status), filter.Niche, limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	return scanLeads(rows)
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[model.DeliveryStatus]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by status")
	}
	defer rows.Close()

	counts := make(map[model.DeliveryStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.DeliveryStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate status counts")
	}
	return counts, nil
}

// scanLeads reads lead rows produced by a leadColumns select.
func scanLeads(rows pgx.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var status string
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.BaseNumber, &l.Address, &l.Niche, &l.MapsURL, &status, &l.SentAt, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		l.Status = model.DeliveryStatus(status)
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate leads")
	}
	return leads, nil
}
