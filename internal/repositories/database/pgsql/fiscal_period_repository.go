package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxFiscalPeriodRepository struct {
	BaseRepository
	journal *PgxJournalRepository
}

func newPgxFiscalPeriodRepository(pool *pgxpool.Pool, journal *PgxJournalRepository) *PgxFiscalPeriodRepository {
	return &PgxFiscalPeriodRepository{BaseRepository: BaseRepository{Pool: pool}, journal: journal}
}

var _ portsrepo.FiscalPeriodRepositoryFacade = (*PgxFiscalPeriodRepository)(nil)

const selectPeriodFields = `
	period_id, name, start_date, end_date, is_closed, is_locked,
	closed_at, closed_by, locked_at, locked_by,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanPeriod(row pgx.Row) (domain.FiscalPeriod, error) {
	var p domain.FiscalPeriod
	err := row.Scan(
		&p.PeriodID,
		&p.Name,
		&p.StartDate,
		&p.EndDate,
		&p.IsClosed,
		&p.IsLocked,
		&p.ClosedAt,
		&p.ClosedBy,
		&p.LockedAt,
		&p.LockedBy,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	return p, err
}

func collectPeriods(rows pgx.Rows) ([]domain.FiscalPeriod, error) {
	defer rows.Close()
	periods := []domain.FiscalPeriod{}
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan fiscal period row")
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "error iterating fiscal period rows")
	}
	return periods, nil
}

// lockPeriod reads a period row under the given row lock ("FOR SHARE" or "FOR UPDATE").
func lockPeriod(ctx context.Context, tx pgx.Tx, periodID string, lock string) (domain.FiscalPeriod, error) {
	query := `SELECT ` + selectPeriodFields + ` FROM fiscal_periods WHERE period_id = $1 ` + lock + `;`
	p, err := scanPeriod(tx.QueryRow(ctx, query, periodID))
	if err != nil {
		return p, mapPgError(err, "fiscal period "+periodID+" not found")
	}
	return p, nil
}

// FindPeriodForDate returns the period whose range contains date.
func (r *PgxFiscalPeriodRepository) FindPeriodForDate(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error) {
	query := `
		SELECT ` + selectPeriodFields + `
		FROM fiscal_periods
		WHERE start_date <= $1 AND end_date >= $1
		ORDER BY start_date DESC
		LIMIT 1;
	`
	day := domain.DateOnly(date)
	p, err := scanPeriod(r.Pool.QueryRow(ctx, query, day))
	if err != nil {
		return nil, mapPgError(err, "no fiscal period covers "+day.Format(time.DateOnly))
	}
	return &p, nil
}

func (r *PgxFiscalPeriodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.FiscalPeriod, error) {
	query := `SELECT ` + selectPeriodFields + ` FROM fiscal_periods WHERE period_id = $1;`
	p, err := scanPeriod(r.Pool.QueryRow(ctx, query, periodID))
	if err != nil {
		return nil, mapPgError(err, "fiscal period "+periodID+" not found")
	}
	return &p, nil
}

func (r *PgxFiscalPeriodRepository) ListPeriods(ctx context.Context) ([]domain.FiscalPeriod, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+selectPeriodFields+` FROM fiscal_periods ORDER BY start_date;`)
	if err != nil {
		return nil, mapPgError(err, "failed to list fiscal periods")
	}
	return collectPeriods(rows)
}

func (r *PgxFiscalPeriodRepository) FindOverlappingPeriods(ctx context.Context, start, end time.Time) ([]domain.FiscalPeriod, error) {
	query := `
		SELECT ` + selectPeriodFields + `
		FROM fiscal_periods
		WHERE start_date <= $2 AND end_date >= $1
		ORDER BY start_date;
	`
	rows, err := r.Pool.Query(ctx, query, domain.DateOnly(start), domain.DateOnly(end))
	if err != nil {
		return nil, mapPgError(err, "failed to query overlapping fiscal periods")
	}
	return collectPeriods(rows)
}

// SavePeriod inserts a period. The exclusion constraint on the date range rejects
// overlaps that slip past the service check.
func (r *PgxFiscalPeriodRepository) SavePeriod(ctx context.Context, period domain.FiscalPeriod) error {
	query := `
		INSERT INTO fiscal_periods (period_id, name, start_date, end_date, is_closed, is_locked,
		                            created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, FALSE, FALSE, $5, $6, $7, $8);
	`
	_, err := r.Pool.Exec(ctx, query,
		period.PeriodID,
		period.Name,
		domain.DateOnly(period.StartDate),
		domain.DateOnly(period.EndDate),
		period.CreatedAt,
		period.CreatedBy,
		period.LastUpdatedAt,
		period.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, "failed to save fiscal period "+period.Name)
	}
	return nil
}

// ClosePeriod locks the period row, computes and posts the closing entry from the
// activity it sees under that lock, then flags the period closed.
func (r *PgxFiscalPeriodRepository) ClosePeriod(ctx context.Context, periodID string, actorID string, at time.Time, build portsrepo.ClosingEntryBuilder) (*domain.FiscalPeriod, *domain.JournalEntry, error) {
	var closed domain.FiscalPeriod
	var entry *domain.JournalEntry

	err := r.withRetry(ctx, func() error {
		entry = nil
		return r.inTx(ctx, func(tx pgx.Tx) error {
			period, err := lockPeriod(ctx, tx, periodID, "FOR UPDATE")
			if err != nil {
				return err
			}
			if err := period.ValidateTransition(domain.PeriodClosed); err != nil {
				return err
			}

			activity, err := periodActivity(ctx, tx, period)
			if err != nil {
				return err
			}
			bundle, err := build(period, activity)
			if err != nil {
				return err
			}
			if bundle != nil {
				saved, err := r.journal.insertEntry(ctx, tx, *bundle)
				if err != nil {
					return err
				}
				entry = saved
			}

			query := `
				UPDATE fiscal_periods
				SET is_closed = TRUE, closed_at = $2, closed_by = $3, last_updated_at = $2, last_updated_by = $3
				WHERE period_id = $1
				RETURNING ` + selectPeriodFields + `;
			`
			closed, err = scanPeriod(tx.QueryRow(ctx, query, periodID, at, actorID))
			return mapPgError(err, "failed to close fiscal period "+period.Name)
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return &closed, entry, nil
}

// LockPeriod hard-locks a closed period.
func (r *PgxFiscalPeriodRepository) LockPeriod(ctx context.Context, periodID string, actorID string, at time.Time) (*domain.FiscalPeriod, error) {
	query := `
		UPDATE fiscal_periods
		SET is_locked = TRUE, locked_at = $2, locked_by = $3,
		    last_updated_at = $2, last_updated_by = $3
		WHERE period_id = $1
		RETURNING ` + selectPeriodFields + `;
	`
	return r.transition(ctx, periodID, domain.PeriodLocked, query, at, actorID)
}

// ReopenPeriod reverts a soft close. The closing entry stays in the ledger.
func (r *PgxFiscalPeriodRepository) ReopenPeriod(ctx context.Context, periodID string, actorID string, at time.Time) (*domain.FiscalPeriod, error) {
	query := `
		UPDATE fiscal_periods
		SET is_closed = FALSE, closed_at = NULL, closed_by = NULL, last_updated_at = $2, last_updated_by = $3
		WHERE period_id = $1
		RETURNING ` + selectPeriodFields + `;
	`
	return r.transition(ctx, periodID, domain.PeriodOpen, query, at, actorID)
}

func (r *PgxFiscalPeriodRepository) transition(ctx context.Context, periodID string, target domain.PeriodStatus, update string, at time.Time, actorID string) (*domain.FiscalPeriod, error) {
	var updated domain.FiscalPeriod
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			period, err := lockPeriod(ctx, tx, periodID, "FOR UPDATE")
			if err != nil {
				return err
			}
			if err := period.ValidateTransition(target); err != nil {
				return err
			}
			updated, err = scanPeriod(tx.QueryRow(ctx, update, periodID, at, actorID))
			return mapPgError(err, "failed to update fiscal period "+period.Name)
		})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
