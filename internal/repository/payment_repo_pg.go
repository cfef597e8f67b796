package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kseleznyov/spacebooking/internal/domain"
)

// PaymentSums aggregates a reservation's ledger by status.
type PaymentSums struct {
	Paid    float64
	Pending float64
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	ListByReservation(ctx context.Context, reservationID string) ([]domain.Payment, error)
	// MarkPaid flips PENDING to PAID, stamps paid_at and merges external_ref
	// (new value wins only if non-nil). Re-applying to a PAID payment just
	// re-stamps the timestamp.
	MarkPaid(ctx context.Context, id string, externalRef *string) (*domain.Payment, error)
	// Delete removes the payment unless it is PAID. The status check and the
	// delete are one statement so a concurrent MarkPaid cannot interleave.
	Delete(ctx context.Context, id string) error
	SumByStatus(ctx context.Context, reservationID string) (PaymentSums, error)
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

const paymentColumns = `id, reservation_id, amount, method, status, purpose, external_ref, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var externalRef *string
	if err := row.Scan(&p.ID, &p.ReservationID, &p.Amount, &p.Method, &p.Status, &p.Purpose, &externalRef, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if externalRef != nil {
		p.ExternalRef = *externalRef
	}
	return &p, nil
}

func (r *PGPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	var externalRef *string
	if p.ExternalRef != "" {
		externalRef = &p.ExternalRef
	}
	return r.db.QueryRow(ctx, `INSERT INTO payments (id, reservation_id, amount, method, status, purpose, external_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		p.ID, p.ReservationID, p.Amount, p.Method, p.Status, p.Purpose, externalRef).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id)
	return scanPayment(row)
}

func (r *PGPaymentRepository) ListByReservation(ctx context.Context, reservationID string) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reservation_id=$1 ORDER BY created_at ASC`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PGPaymentRepository) MarkPaid(ctx context.Context, id string, externalRef *string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `UPDATE payments
		SET status='PAID', paid_at=now(), external_ref=COALESCE($2, external_ref), updated_at=now()
		WHERE id=$1
		RETURNING `+paymentColumns, id, externalRef)
	return scanPayment(row)
}

func (r *PGPaymentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id=$1 AND status <> 'PAID'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	// Nothing deleted: either the payment is PAID or it does not exist.
	var status domain.PaymentStatus
	err = r.db.QueryRow(ctx, `SELECT status FROM payments WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrCannotDeletePaid
}

func (r *PGPaymentRepository) SumByStatus(ctx context.Context, reservationID string) (PaymentSums, error) {
	var sums PaymentSums
	err := r.db.QueryRow(ctx, `SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'PAID'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'PENDING'), 0)
		FROM payments WHERE reservation_id=$1`, reservationID).
		Scan(&sums.Paid, &sums.Pending)
	return sums, err
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
