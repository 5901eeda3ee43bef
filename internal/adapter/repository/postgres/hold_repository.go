package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

type HoldRepository struct {
	db *sql.DB
}

func NewHoldRepository(db *sql.DB) *HoldRepository {
	return &HoldRepository{db: db}
}

const holdColumns = `id, event_id, status, hold_expires_at, created_at, resolved_at, seat_reserved, escrow_owner, escrow_sequence`

func (r *HoldRepository) Create(ctx context.Context, hold *domain.Hold) error {
	query := `
	INSERT INTO holds (id, event_id, status, hold_expires_at, created_at, seat_reserved)
	VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query, hold.ID, hold.EventID, hold.Status, hold.HoldExpiresAt, hold.CreatedAt, hold.SeatReserved)
	if err != nil {
		return fmt.Errorf("failed to insert hold: %w", err)
	}

	return nil
}

func (r *HoldRepository) GetByID(ctx context.Context, id string) (*domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = $1`

	h, err := scanHold(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHoldNotFound
		}

		return nil, err
	}

	return h, nil
}

// TransitionStatus is a compare-and-swap on status = 'HELD'. Confirmation
// also requires the hold window to still be open at the given time.
func (r *HoldRepository) TransitionStatus(ctx context.Context, id string, status domain.HoldStatus, at time.Time) (*domain.Hold, bool, error) {
	query := `
	UPDATE holds
	SET status = $1, resolved_at = $2
	WHERE id = $3 AND status = 'HELD'`
	if status == domain.HoldConfirmed {
		query += ` AND hold_expires_at > $2`
	}
	query += `
	RETURNING ` + holdColumns

	h, err := scanHold(r.db.QueryRowContext(ctx, query, status, at, id))
	if err == nil {
		return h, true, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to update hold %s: %w", id, err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	return current, false, nil
}

func (r *HoldRepository) AttachEscrow(ctx context.Context, id string, pointer domain.EscrowPointer) error {
	query := `
	UPDATE holds
	SET escrow_owner = $1, escrow_sequence = $2
	WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, pointer.Owner, int64(pointer.OfferSequence), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrHoldNotFound
	}

	return nil
}

func (r *HoldRepository) FindByEscrow(ctx context.Context, pointer domain.EscrowPointer) (*domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE escrow_owner = $1 AND escrow_sequence = $2 LIMIT 1`

	h, err := scanHold(r.db.QueryRowContext(ctx, query, pointer.Owner, int64(pointer.OfferSequence)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHoldNotFound
		}

		return nil, err
	}

	return h, nil
}

func (r *HoldRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `
	SELECT id FROM holds
	WHERE status = 'HELD' AND hold_expires_at <= $1
	ORDER BY hold_expires_at
	LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func scanHold(row rowScanner) (*domain.Hold, error) {
	var h domain.Hold
	var resolvedAt sql.NullTime
	var escrowOwner sql.NullString
	var escrowSequence sql.NullInt64

	err := row.Scan(
		&h.ID,
		&h.EventID,
		&h.Status,
		&h.HoldExpiresAt,
		&h.CreatedAt,
		&resolvedAt,
		&h.SeatReserved,
		&escrowOwner,
		&escrowSequence,
	)
	if err != nil {
		return nil, err
	}

	if resolvedAt.Valid {
		t := resolvedAt.Time
		h.ResolvedAt = &t
	}

	if escrowOwner.Valid && escrowOwner.String != "" && escrowSequence.Valid {
		h.Escrow = &domain.EscrowPointer{
			Owner:         escrowOwner.String,
			OfferSequence: uint32(escrowSequence.Int64),
		}
	}

	return &h, nil
}
