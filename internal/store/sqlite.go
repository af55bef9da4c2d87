package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	phone       TEXT NOT NULL DEFAULT '',
	base_number TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	niche       TEXT NOT NULL DEFAULT '',
	maps_url    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	sent_at     DATETIME,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_base_number ON leads(base_number, status);
CREATE INDEX IF NOT EXISTS idx_leads_niche ON leads(niche);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteLeadColumns = `id, name, phone, base_number, address, niche, maps_url, status, sent_at, created_at`

func (s *SQLiteStore) FetchPendingBatch(ctx context.Context, limit int) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLeadColumns+` FROM leads WHERE status = 'pending' ORDER BY RANDOM() LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch pending batch")
	}
	defer rows.Close()

	return scanSQLiteLeads(rows)
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, ids []string, status model.DeliveryStatus, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if !status.Valid() {
		return eris.Errorf("sqlite: invalid status %q", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin update status")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `UPDATE leads SET status = ?, sent_at = ? WHERE id = ?`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare update status")
	}
	defer stmt.Close() //nolint:errcheck

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, string(status), at.UTC(), id); err != nil {
			return eris.Wrapf(err, "sqlite: update status %s", id)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit update status")
}

func (s *SQLiteStore) FindPendingByBaseNumber(ctx context.Context, base string) ([]model.Lead, error) {
	if base == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLeadColumns+` FROM leads WHERE base_number = ? AND status = 'pending'`,
		base,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find pending by base number %s", base)
	}
	defer rows.Close()

	return scanSQLiteLeads(rows)
}

func (s *SQLiteStore) InsertLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert leads")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (id, name, phone, base_number, address, niche, maps_url, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert leads")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var inserted int64
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
		if _, err := stmt.ExecContext(ctx, id, l.Name, l.Phone, l.BaseNumber, l.Address, l.Niche, l.MapsURL, string(status), createdAt); err != nil {
			return inserted, eris.Wrapf(err, "sqlite: insert lead %s", l.Name)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert leads")
	}
	return inserted, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLeadColumns+` FROM leads
		 WHERE (? = '' OR status = ?) AND (? = '' OR niche = ?)
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		string(filter.Status), string(filter.Status), filter.Niche, filter.Niche, limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	return scanSQLiteLeads(rows)
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.DeliveryStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by status")
	}
	defer rows.Close()

	counts := make(map[model.DeliveryStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts[model.DeliveryStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate status counts")
	}
	return counts, nil
}

func scanSQLiteLeads(rows *sql.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var status string
		var sentAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.BaseNumber, &l.Address, &l.Niche, &l.MapsURL, &status, &sentAt, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		l.Status = model.DeliveryStatus(status)
		if sentAt.Valid {
			t := sentAt.Time
			l.SentAt = &t
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate leads")
	}
	return leads, nil
}
