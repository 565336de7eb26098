// Package store persists proposal results and roof views.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/roofsolar/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = eris.New("store: not found")

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const defaultListLimit = 100

// ProposalFilter specifies criteria for listing proposals.
type ProposalFilter struct {
	Label  string `json:"label,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

func (f ProposalFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for proposals and views.
type Store interface {
	// Proposals
	CreateProposal(ctx context.Context, label string, result model.ProposalResult) (*model.ProposalRecord, error)
	GetProposal(ctx context.Context, id string) (*model.ProposalRecord, error)
	ListProposals(ctx context.Context, filter ProposalFilter) ([]model.ProposalRecord, error)

	// Views
	CreateView(ctx context.Context, label string, view model.SolarViewData, segments []model.SegmentRow) (*model.ViewRecord, error)
	GetView(ctx context.Context, id string) (*model.ViewRecord, error)
	ListSegments(ctx context.Context, viewID string) ([]model.SegmentRow, error)
	DeleteView(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store named by driver.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		if dsn == "" {
			dsn = "roofsolar.db"
		}
		return NewSQLite(dsn)
	case DriverPostgres, "pgx":
		if dsn == "" {
			return nil, eris.New("store: postgres requires database_url")
		}
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

type scannable interface {
	Scan(dest ...any) error
}

// notFound maps driver no-row errors onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
