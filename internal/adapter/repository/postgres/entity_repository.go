package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

type EntityRepository struct {
	db *sql.DB
}

func NewEntityRepository(db *sql.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

const entityColumns = `id, category, name, sub_category, capacity, current_bookings, deposit_required, payout_address`

func (r *EntityRepository) List(ctx context.Context) ([]domain.BookableEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM bookable_entities ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var entities []domain.BookableEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}

		entities = append(entities, *e)
	}

	return entities, rows.Err()
}

func (r *EntityRepository) GetByID(ctx context.Context, id string) (*domain.BookableEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM bookable_entities WHERE id = $1`

	e, err := scanEntity(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntityNotFound
		}

		return nil, err
	}

	return e, nil
}

func (r *EntityRepository) FindByName(ctx context.Context, name string) (*domain.BookableEntity, error) {
	query := `
	SELECT ` + entityColumns + `
	FROM bookable_entities
	WHERE lower(trim(name)) = $1
	ORDER BY position
	LIMIT 1
	`

	e, err := scanEntity(r.db.QueryRowContext(ctx, query, domain.NormalizeName(name)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntityNotFound
		}

		return nil, err
	}

	return e, nil
}

// IncrementBookings relies on the guarded UPDATE so the capacity check and
// the increment are one statement.
func (r *EntityRepository) IncrementBookings(ctx context.Context, id string) (int, error) {
	query := `
	UPDATE bookable_entities
	SET current_bookings = current_bookings + 1
	WHERE id = $1 AND current_bookings < capacity
	RETURNING capacity - current_bookings
	`

	var remaining int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to hold seat for %s: %w", id, err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return 0, err
	}

	return 0, domain.ErrNoSeatsLeft
}

func (r *EntityRepository) DecrementBookings(ctx context.Context, id string) (int, error) {
	query := `
	UPDATE bookable_entities
	SET current_bookings = GREATEST(current_bookings - 1, 0)
	WHERE id = $1
	RETURNING capacity - current_bookings
	`

	var remaining int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrEntityNotFound
		}

		return 0, fmt.Errorf("failed to release seat for %s: %w", id, err)
	}

	return remaining, nil
}

// Seed inserts entities that are not stored yet; existing rows keep their
// booking counters.
func (r *EntityRepository) Seed(ctx context.Context, entities []domain.BookableEntity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO bookable_entities (`+entityColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare seed statement: %w", err)
	}

	defer stmt.Close()

	for _, e := range entities {
		_, err := stmt.ExecContext(ctx, e.ID, e.Category, e.Name, e.SubCategory, e.Capacity, e.CurrentBookings, e.DepositRequired, e.PayoutAddress)
		if err != nil {
			return fmt.Errorf("failed to seed entity %s: %w", e.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*domain.BookableEntity, error) {
	var e domain.BookableEntity
	err := row.Scan(
		&e.ID,
		&e.Category,
		&e.Name,
		&e.SubCategory,
		&e.Capacity,
		&e.CurrentBookings,
		&e.DepositRequired,
		&e.PayoutAddress,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}
