package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/flightzone/internal/mission"
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
CREATE TABLE IF NOT EXISTS missions (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	blob       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_missions_name ON missions(name);
CREATE INDEX IF NOT EXISTS idx_missions_created_at ON missions(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateMission(ctx context.Context, m mission.Mission) (*mission.Mission, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	blob, err := mission.EncodeBlob(m)
	if err != nil {
		return nil, err
	}

	m.ID = uuid.New().String()
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO missions (id, name, blob, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Name, string(blob), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert mission")
	}
	return &m, nil
}

func (s *SQLiteStore) GetMission(ctx context.Context, id string) (*mission.Mission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, blob, created_at, updated_at FROM missions WHERE id = ?`,
		id,
	)
	m, err := scanMission(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get mission %s", id)
	}
	return m, nil
}

func (s *SQLiteStore) UpdateMission(ctx context.Context, m mission.Mission) (*mission.Mission, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	blob, err := mission.EncodeBlob(m)
	if err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE missions SET name = ?, blob = ?, updated_at = ? WHERE id = ?`,
		m.Name, string(blob), m.UpdatedAt, m.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update mission %s", m.ID)
	}
	if err := checkRowsAffected(res, m.ID); err != nil {
		return nil, err
	}
	return s.GetMission(ctx, m.ID)
}

func (s *SQLiteStore) ListMissions(ctx context.Context, filter MissionFilter) ([]mission.Mission, error) {
	query := `SELECT id, name, blob, created_at, updated_at FROM missions WHERE 1=1`
	var args []any

	if filter.NameContains != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.NameContains+"%")
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list missions")
	}
	defer rows.Close()

	var missions []mission.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list missions")
		}
		missions = append(missions, *m)
	}
	return missions, eris.Wrap(rows.Err(), "sqlite: list missions iterate")
}

func (s *SQLiteStore) DeleteMission(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM missions WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete mission %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) ImportMissions(ctx context.Context, missions []mission.Mission) (int64, error) {
	if len(missions) == 0 {
		return 0, nil
	}
	rows, err := importRows(missions)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO missions (id, name, blob, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, blob = excluded.blob, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, r := range rows {
		r[2] = string(r[2].([]byte))
		res, err := stmt.ExecContext(ctx, r...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import mission %v", r[0])
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import: commit")
	}
	return n, nil
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "mission %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMission(row scannable) (*mission.Mission, error) {
	var m mission.Mission
	var blob string

	err := row.Scan(&m.ID, &m.Name, &blob, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan mission")
	}
	b, err := mission.DecodeBlob([]byte(blob))
	if err != nil {
		return nil, err
	}
	m.Apply(b)
	return &m, nil
}

// importRows encodes missions as (id, name, blob, created_at, updated_at)
// rows, assigning ids where missing.
func importRows(missions []mission.Mission) ([][]any, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(missions))
	for _, m := range missions {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		blob, err := mission.EncodeBlob(m)
		if err != nil {
			return nil, err
		}
		id := m.ID
		if id == "" {
			id = uuid.New().String()
		}
		created := m.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows = append(rows, []any{id, m.Name, blob, created, now})
	}
	return rows, nil
}
