package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/flightzone/internal/db"
	"github.com/sells-group/flightzone/internal/mission"
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

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
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
CREATE TABLE IF NOT EXISTS missions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	blob       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_missions_name ON missions(name);
CREATE INDEX IF NOT EXISTS idx_missions_created_at ON missions(created_at DESC);
`

var missionColumns = []string{"id", "name", "blob", "created_at", "updated_at"}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateMission(ctx context.Context, m mission.Mission) (*mission.Mission, error) {
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO missions (id, name, blob, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Name, blob, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert mission")
	}
	return &m, nil
}

func (s *PostgresStore) GetMission(ctx context.Context, id string) (*mission.Mission, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, blob, created_at, updated_at FROM missions WHERE id = $1`,
		id,
	)
	m, err := scanPgMission(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get mission %s", id)
	}
	return m, nil
}

func (s *PostgresStore) UpdateMission(ctx context.Context, m mission.Mission) (*mission.Mission, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	blob, err := mission.EncodeBlob(m)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE missions SET name = $1, blob = $2, updated_at = $3 WHERE id = $4
		 RETURNING id, name, blob, created_at, updated_at`,
		m.Name, blob, time.Now().UTC(), m.ID,
	)
	updated, err := scanPgMission(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update mission %s", m.ID)
	}
	return updated, nil
}

func (s *PostgresStore) ListMissions(ctx context.Context, filter MissionFilter) ([]mission.Mission, error) {
	query := `SELECT id, name, blob, created_at, updated_at FROM missions WHERE 1=1`
	var args []any
	argIdx := 1

	if filter.NameContains != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, argIdx)
		args = append(args, "%"+filter.NameContains+"%")
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list missions")
	}
	defer rows.Close()

	var missions []mission.Mission
	for rows.Next() {
		m, err := scanPgMission(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list missions")
		}
		missions = append(missions, *m)
	}
	return missions, eris.Wrap(rows.Err(), "postgres: list missions iterate")
}

func (s *PostgresStore) DeleteMission(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM missions WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete mission %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "mission %s", id)
	}
	return nil
}

func (s *PostgresStore) ImportMissions(ctx context.Context, missions []mission.Mission) (int64, error) {
	if len(missions) == 0 {
		return 0, nil
	}
	rows, err := importRows(missions)
	if err != nil {
		return 0, err
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "missions",
		Columns:      missionColumns,
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"name", "blob", "updated_at"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import missions")
	}
	return n, nil
}

func scanPgMission(row pgx.Row) (*mission.Mission, error) {
	var m mission.Mission
	var blob []byte

	err := row.Scan(&m.ID, &m.Name, &blob, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan mission")
	}
	b, err := mission.DecodeBlob(blob)
	if err != nil {
		return nil, err
	}
	m.Apply(b)
	return &m, nil
}
