package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/roofsolar/internal/db"
	"github.com/sells-group/roofsolar/internal/model"
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

const (
	sqlInsertProposal = `INSERT INTO proposals (id, label, annual_usage_kwh, result, created_at) VALUES ($1, $2, $3, $4, $5)`
	sqlGetProposal    = `SELECT id, label, result, created_at FROM proposals WHERE id = $1`
	sqlInsertView     = `INSERT INTO views (id, label, view, created_at) VALUES ($1, $2, $3, $4)`
	sqlGetView        = `SELECT id, label, view, created_at FROM views WHERE id = $1`
	sqlListSegments   = `SELECT view_id, segment_id, tilt_degrees, azimuth_degrees, area_meters2, avg_flux, hidden, panel_count, footprint FROM view_segments WHERE view_id = $1 ORDER BY segment_id`
)

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_proposal": sqlInsertProposal,
	"get_proposal":    sqlGetProposal,
	"insert_view":     sqlInsertView,
	"get_view":        sqlGetView,
	"list_segments":   sqlListSegments,
}

// segmentColumns is the COPY column order for view_segments.
var segmentColumns = []string{
	"view_id", "segment_id", "tilt_degrees", "azimuth_degrees",
	"area_meters2", "avg_flux", "hidden", "panel_count", "footprint",
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

// NewPostgresWithPool wraps an existing pool. Close does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS proposals (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	label            TEXT NOT NULL DEFAULT '',
	annual_usage_kwh INTEGER NOT NULL,
	result           JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS views (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	label      TEXT NOT NULL DEFAULT '',
	view       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS view_segments (
	view_id         TEXT NOT NULL REFERENCES views(id) ON DELETE CASCADE,
	segment_id      INTEGER NOT NULL,
	tilt_degrees    DOUBLE PRECISION NOT NULL,
	azimuth_degrees DOUBLE PRECISION NOT NULL,
	area_meters2    DOUBLE PRECISION,
	avg_flux        DOUBLE PRECISION,
	hidden          BOOLEAN NOT NULL DEFAULT false,
	panel_count     INTEGER NOT NULL DEFAULT 0,
	footprint       BYTEA,
	PRIMARY KEY (view_id, segment_id)
);

CREATE INDEX IF NOT EXISTS idx_proposals_label ON proposals(label);
CREATE INDEX IF NOT EXISTS idx_proposals_created_at ON proposals(created_at DESC);
`

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

func (s *PostgresStore) CreateProposal(ctx context.Context, label string, result model.ProposalResult) (*model.ProposalRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal proposal")
	}

	if _, err := s.pool.Exec(ctx, sqlInsertProposal, id, label, result.AnnualUsageKWh, resultJSON, now); err != nil {
		return nil, eris.Wrap(err, "postgres: insert proposal")
	}
	return &model.ProposalRecord{ID: id, Label: label, Result: result, CreatedAt: now}, nil
}

func (s *PostgresStore) GetProposal(ctx context.Context, id string) (*model.ProposalRecord, error) {
	rec, err := scanProposal(s.pool.QueryRow(ctx, sqlGetProposal, id))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get proposal %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) ListProposals(ctx context.Context, filter ProposalFilter) ([]model.ProposalRecord, error) {
	query := `SELECT id, label, result, created_at FROM proposals WHERE 1=1`
	var args []any
	argN := 1

	if filter.Label != "" {
		query += fmt.Sprintf(` AND label = $%d`, argN)
		args = append(args, filter.Label)
		argN++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argN)
	args = append(args, filter.limit())
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list proposals")
	}
	defer rows.Close()

	var out []model.ProposalRecord
	for rows.Next() {
		rec, err := scanProposal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list proposals")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list proposals iterate")
}

// CreateView inserts the view and COPYs its segment rows in one transaction.
func (s *PostgresStore) CreateView(ctx context.Context, label string, view model.SolarViewData, segments []model.SegmentRow) (*model.ViewRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	viewJSON, err := json.Marshal(view)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal view")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, sqlInsertView, id, label, viewJSON, now); err != nil {
		return nil, eris.Wrap(err, "postgres: insert view")
	}

	rows := make([][]any, len(segments))
	for i, r := range segments {
		rows[i] = segmentArgs(id, r)
	}
	if _, err := db.CopyFrom(ctx, tx, "view_segments", segmentColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy segments")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit view")
	}
	return &model.ViewRecord{ID: id, Label: label, View: view, CreatedAt: now}, nil
}

func (s *PostgresStore) GetView(ctx context.Context, id string) (*model.ViewRecord, error) {
	rec, err := scanView(s.pool.QueryRow(ctx, sqlGetView, id))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get view %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) ListSegments(ctx context.Context, viewID string) ([]model.SegmentRow, error) {
	rows, err := s.pool.Query(ctx, sqlListSegments, viewID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list segments")
	}
	defer rows.Close()

	var out []model.SegmentRow
	for rows.Next() {
		r, err := scanSegment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list segments")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list segments iterate")
}

func (s *PostgresStore) DeleteView(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM views WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete view %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "view %s", id)
	}
	return nil
}
