package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/roofsolar/internal/model"
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS proposals (
	id               TEXT PRIMARY KEY,
	label            TEXT NOT NULL DEFAULT '',
	annual_usage_kwh INTEGER NOT NULL,
	result           TEXT NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS views (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL DEFAULT '',
	view       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS view_segments (
	view_id         TEXT NOT NULL,
	segment_id      INTEGER NOT NULL,
	tilt_degrees    REAL NOT NULL,
	azimuth_degrees REAL NOT NULL,
	area_meters2    REAL,
	avg_flux        REAL,
	hidden          INTEGER NOT NULL DEFAULT 0,
	panel_count     INTEGER NOT NULL DEFAULT 0,
	footprint       BLOB,
	PRIMARY KEY (view_id, segment_id)
);

CREATE INDEX IF NOT EXISTS idx_proposals_label ON proposals(label);
CREATE INDEX IF NOT EXISTS idx_proposals_created_at ON proposals(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProposal(ctx context.Context, label string, result model.ProposalResult) (*model.ProposalRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal proposal")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO proposals (id, label, annual_usage_kwh, result, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, label, result.AnnualUsageKWh, string(resultJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert proposal")
	}

	return &model.ProposalRecord{ID: id, Label: label, Result: result, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetProposal(ctx context.Context, id string) (*model.ProposalRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, result, created_at FROM proposals WHERE id = ?`, id,
	)
	rec, err := scanProposal(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get proposal %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) ListProposals(ctx context.Context, filter ProposalFilter) ([]model.ProposalRecord, error) {
	query := `SELECT id, label, result, created_at FROM proposals WHERE 1=1`
	var args []any

	if filter.Label != "" {
		query += ` AND label = ?`
		args = append(args, filter.Label)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list proposals")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ProposalRecord
	for rows.Next() {
		rec, err := scanProposal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list proposals")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list proposals iterate")
}

func (s *SQLiteStore) CreateView(ctx context.Context, label string, view model.SolarViewData, segments []model.SegmentRow) (*model.ViewRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	viewJSON, err := json.Marshal(view)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal view")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO views (id, label, view, created_at) VALUES (?, ?, ?, ?)`,
		id, label, string(viewJSON), now,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert view")
	}

	if len(segments) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO view_segments (view_id, segment_id, tilt_degrees, azimuth_degrees, area_meters2, avg_flux, hidden, panel_count, footprint)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: prepare segment insert")
		}
		defer stmt.Close() //nolint:errcheck

		for _, r := range segments {
			if _, err := stmt.ExecContext(ctx, segmentArgs(id, r)...); err != nil {
				return nil, eris.Wrapf(err, "sqlite: insert segment %d", r.SegmentID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit view")
	}
	return &model.ViewRecord{ID: id, Label: label, View: view, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetView(ctx context.Context, id string) (*model.ViewRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, view, created_at FROM views WHERE id = ?`, id,
	)
	rec, err := scanView(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get view %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) ListSegments(ctx context.Context, viewID string) ([]model.SegmentRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT view_id, segment_id, tilt_degrees, azimuth_degrees, area_meters2, avg_flux, hidden, panel_count, footprint
		 FROM view_segments WHERE view_id = ? ORDER BY segment_id`, viewID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list segments")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.SegmentRow
	for rows.Next() {
		r, err := scanSegment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list segments")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list segments iterate")
}

// DeleteView removes a view and its segment rows.
func (s *SQLiteStore) DeleteView(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM view_segments WHERE view_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete segments %s", id)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM views WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete view %s", id)
	}
	if err := checkRowsAffected(res, "view", id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func segmentArgs(viewID string, r model.SegmentRow) []any {
	return []any{
		viewID, r.SegmentID, r.TiltDegrees, r.AzimuthDegrees,
		r.AreaMeters2, r.AvgFlux, r.Hidden, r.PanelCount, r.Footprint,
	}
}

func scanProposal(row scannable) (*model.ProposalRecord, error) {
	var rec model.ProposalRecord
	var resultJSON []byte
	if err := row.Scan(&rec.ID, &rec.Label, &resultJSON, &rec.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
		return nil, eris.Wrap(err, "unmarshal proposal result")
	}
	return &rec, nil
}

func scanView(row scannable) (*model.ViewRecord, error) {
	var rec model.ViewRecord
	var viewJSON []byte
	if err := row.Scan(&rec.ID, &rec.Label, &viewJSON, &rec.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(viewJSON, &rec.View); err != nil {
		return nil, eris.Wrap(err, "unmarshal view")
	}
	return &rec, nil
}

func scanSegment(row scannable) (model.SegmentRow, error) {
	var r model.SegmentRow
	err := row.Scan(&r.ViewID, &r.SegmentID, &r.TiltDegrees, &r.AzimuthDegrees,
		&r.AreaMeters2, &r.AvgFlux, &r.Hidden, &r.PanelCount, &r.Footprint)
	return r, err
}
