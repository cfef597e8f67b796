package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kseleznyov/spacebooking/internal/domain"
)

// ReservationFilters narrows List; zero values mean "no filter".
type ReservationFilters struct {
	BranchID   string
	SpaceID    string
	CustomerID string
	Status     domain.ReservationStatus
	Date       *time.Time
}

// ScheduleUpdate carries a partial reservation update; nil fields keep the
// stored value (COALESCE semantics).
type ScheduleUpdate struct {
	Date               *time.Time
	Start              *domain.TimeOfDay
	End                *domain.TimeOfDay
	Notes              *string
	DepositRequiredPct *float64
	TotalAmount        *float64
}

type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	List(ctx context.Context, f ReservationFilters) ([]domain.Reservation, error)
	ListByDay(ctx context.Context, date time.Time, branchID string) ([]domain.Reservation, error)
	// ListForDay returns the non-cancelled reservations of one space on one
	// date, minus excludeID when set. Input to the overlap check.
	ListForDay(ctx context.Context, spaceID string, date time.Time, excludeID string) ([]domain.Reservation, error)
	UpdateSchedule(ctx context.Context, id string, upd ScheduleUpdate) (*domain.Reservation, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (*domain.Reservation, error)
	ListConfirmedWithBalance(ctx context.Context) ([]domain.ReservationBalance, error)
}

type PGReservationRepository struct {
	db *pgxpool.Pool
}

func NewReservationRepository(db *pgxpool.Pool) ReservationRepository {
	return &PGReservationRepository{db: db}
}

const reservationColumns = `id, space_id, branch_id, customer_id, date, start_min, end_min, status, total_amount, deposit_required_pct, notes, created_at, updated_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var r domain.Reservation
	var startMin, endMin int
	if err := row.Scan(&r.ID, &r.SpaceID, &r.BranchID, &r.CustomerID, &r.Date, &startMin, &endMin, &r.Status, &r.TotalAmount, &r.DepositRequiredPct, &r.Notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	r.Slot = domain.TimeSlot{Start: domain.TimeOfDay(startMin), End: domain.TimeOfDay(endMin)}
	return &r, nil
}

// isExclusionViolation matches the reservations_no_overlap constraint firing
// for a writer that lost the race.
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func (repo *PGReservationRepository) Create(ctx context.Context, r *domain.Reservation) error {
	err := repo.db.QueryRow(ctx, `INSERT INTO reservations (id, space_id, branch_id, customer_id, date, start_min, end_min, status, total_amount, deposit_required_pct, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		r.ID, r.SpaceID, r.BranchID, r.CustomerID, r.Date, int(r.Slot.Start), int(r.Slot.End), r.Status, r.TotalAmount, r.DepositRequiredPct, r.Notes).
		Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return domain.ErrSlotUnavailable
		}
		return err
	}
	return nil
}

func (repo *PGReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	row := repo.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1`, id)
	return scanReservation(row)
}

func (repo *PGReservationRepository) List(ctx context.Context, f ReservationFilters) ([]domain.Reservation, error) {
	clauses := make([]string, 0, 5)
	params := make([]any, 0, 5)

	add := func(clause string, value any) {
		params = append(params, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(params)))
	}
	if f.BranchID != "" {
		add("r.branch_id = $%d", f.BranchID)
	}
	if f.SpaceID != "" {
		add("r.space_id = $%d", f.SpaceID)
	}
	if f.CustomerID != "" {
		add("r.customer_id = $%d", f.CustomerID)
	}
	if f.Status != "" {
		add("r.status = $%d", f.Status)
	}
	if f.Date != nil {
		add("r.date = $%d", *f.Date)
	}

	where := ""
	for i, c := range clauses {
		if i == 0 {
			where = " WHERE " + c
		} else {
			where += " AND " + c
		}
	}

	sql := `SELECT r.id, r.space_id, r.branch_id, r.customer_id, r.date, r.start_min, r.end_min, r.status, r.total_amount, r.deposit_required_pct, r.notes, r.created_at, r.updated_at, s.name, b.name
		FROM reservations r
		JOIN spaces s ON s.id = r.space_id
		JOIN branches b ON b.id = r.branch_id` + where + `
		ORDER BY r.date DESC, r.start_min DESC`

	rows, err := repo.db.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectJoined(rows)
}

func (repo *PGReservationRepository) ListByDay(ctx context.Context, date time.Time, branchID string) ([]domain.Reservation, error) {
	sql := `SELECT r.id, r.space_id, r.branch_id, r.customer_id, r.date, r.start_min, r.end_min, r.status, r.total_amount, r.deposit_required_pct, r.notes, r.created_at, r.updated_at, s.name, b.name
		FROM reservations r
		JOIN spaces s ON s.id = r.space_id
		JOIN branches b ON b.id = r.branch_id
		WHERE r.date = $1`
	params := []any{date}
	if branchID != "" {
		sql += ` AND r.branch_id = $2`
		params = append(params, branchID)
	}
	sql += ` ORDER BY r.start_min ASC`

	rows, err := repo.db.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectJoined(rows)
}

func collectJoined(rows pgx.Rows) ([]domain.Reservation, error) {
	out := make([]domain.Reservation, 0)
	for rows.Next() {
		var r domain.Reservation
		var startMin, endMin int
		if err := rows.Scan(&r.ID, &r.SpaceID, &r.BranchID, &r.CustomerID, &r.Date, &startMin, &endMin, &r.Status, &r.TotalAmount, &r.DepositRequiredPct, &r.Notes, &r.CreatedAt, &r.UpdatedAt, &r.SpaceName, &r.BranchName); err != nil {
			return nil, err
		}
		r.Slot = domain.TimeSlot{Start: domain.TimeOfDay(startMin), End: domain.TimeOfDay(endMin)}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (repo *PGReservationRepository) ListForDay(ctx context.Context, spaceID string, date time.Time, excludeID string) ([]domain.Reservation, error) {
	sql := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE space_id = $1 AND date = $2 AND status <> 'CANCELLED'`
	params := []any{spaceID, date}
	if excludeID != "" {
		sql += ` AND id <> $3`
		params = append(params, excludeID)
	}

	rows, err := repo.db.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (repo *PGReservationRepository) UpdateSchedule(ctx context.Context, id string, upd ScheduleUpdate) (*domain.Reservation, error) {
	var start, end *int
	if upd.Start != nil {
		v := int(*upd.Start)
		start = &v
	}
	if upd.End != nil {
		v := int(*upd.End)
		end = &v
	}

	row := repo.db.QueryRow(ctx, `UPDATE reservations SET
			date = COALESCE($2, date),
			start_min = COALESCE($3, start_min),
			end_min = COALESCE($4, end_min),
			notes = COALESCE($5, notes),
			deposit_required_pct = COALESCE($6, deposit_required_pct),
			total_amount = COALESCE($7, total_amount),
			updated_at = now()
		WHERE id = $1
		RETURNING `+reservationColumns,
		id, upd.Date, start, end, upd.Notes, upd.DepositRequiredPct, upd.TotalAmount)

	r, err := scanReservation(row)
	if err != nil && isExclusionViolation(err) {
		return nil, domain.ErrSlotUnavailable
	}
	return r, err
}

func (repo *PGReservationRepository) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (*domain.Reservation, error) {
	row := repo.db.QueryRow(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE id=$1 RETURNING `+reservationColumns, id, status)
	return scanReservation(row)
}

func (repo *PGReservationRepository) ListConfirmedWithBalance(ctx context.Context) ([]domain.ReservationBalance, error) {
	rows, err := repo.db.Query(ctx, `SELECT r.id, r.customer_id, r.space_id, r.date, r.total_amount,
			COALESCE(SUM(p.amount) FILTER (WHERE p.status = 'PAID'), 0) AS paid
		FROM reservations r
		LEFT JOIN payments p ON p.reservation_id = r.id
		WHERE r.status = 'CONFIRMED'
		GROUP BY r.id
		HAVING r.total_amount > COALESCE(SUM(p.amount) FILTER (WHERE p.status = 'PAID'), 0)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ReservationBalance, 0)
	for rows.Next() {
		var b domain.ReservationBalance
		if err := rows.Scan(&b.ReservationID, &b.CustomerID, &b.SpaceID, &b.Date, &b.TotalAmount, &b.PaidAmount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var _ ReservationRepository = (*PGReservationRepository)(nil)
