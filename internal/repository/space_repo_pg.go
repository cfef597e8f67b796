package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kseleznyov/spacebooking/internal/domain"
)

// SpaceSearchFilters narrows Search. When Date and the slot are all set, only
// spaces free for that interval are returned.
type SpaceSearchFilters struct {
	City        string
	State       string
	MinCapacity int
	Date        *time.Time
	Slot        *domain.TimeSlot
}

// SpaceRepository reads space reference data. Spaces are owned by the
// directory service; the booking core never writes them.
type SpaceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Space, error)
	Search(ctx context.Context, f SpaceSearchFilters) ([]domain.SpaceSearchRow, error)
}

type PGSpaceRepository struct {
	db *pgxpool.Pool
}

func NewSpaceRepository(db *pgxpool.Pool) SpaceRepository {
	return &PGSpaceRepository{db: db}
}

func (r *PGSpaceRepository) GetByID(ctx context.Context, id string) (*domain.Space, error) {
	row := r.db.QueryRow(ctx, `SELECT id, branch_id, name, description, capacity, base_price_per_hour, active, created_at, updated_at FROM spaces WHERE id=$1`, id)
	var s domain.Space
	if err := row.Scan(&s.ID, &s.BranchID, &s.Name, &s.Description, &s.Capacity, &s.BasePricePerHour, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGSpaceRepository) Search(ctx context.Context, f SpaceSearchFilters) ([]domain.SpaceSearchRow, error) {
	where := `WHERE s.active = TRUE`
	params := make([]any, 0, 6)

	if f.MinCapacity > 0 {
		params = append(params, f.MinCapacity)
		where += fmt.Sprintf(` AND s.capacity >= $%d`, len(params))
	}
	if f.State != "" {
		params = append(params, f.State)
		where += fmt.Sprintf(` AND b.state = $%d`, len(params))
	}
	if f.City != "" {
		params = append(params, f.City)
		where += fmt.Sprintf(` AND b.city = $%d`, len(params))
	}

	if f.Date != nil && f.Slot != nil {
		params = append(params, *f.Date, int(f.Slot.Start), int(f.Slot.End))
		base := len(params) - 2
		where += fmt.Sprintf(`
			AND NOT EXISTS (
				SELECT 1 FROM reservations r
				WHERE r.space_id = s.id AND r.date = $%d AND r.status <> 'CANCELLED'
					AND NOT (r.end_min <= $%d OR r.start_min >= $%d)
			)`, base, base+1, base+2)
	}

	sql := `SELECT s.id, s.branch_id, s.name, s.description, s.capacity, s.base_price_per_hour, s.active, s.created_at, s.updated_at, b.name, b.city, b.state
		FROM spaces s
		JOIN branches b ON b.id = s.branch_id
		` + where + `
		ORDER BY s.name ASC`

	rows, err := r.db.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.SpaceSearchRow, 0)
	for rows.Next() {
		var row domain.SpaceSearchRow
		if err := rows.Scan(&row.ID, &row.BranchID, &row.Name, &row.Description, &row.Capacity, &row.BasePricePerHour, &row.Active, &row.CreatedAt, &row.UpdatedAt, &row.BranchName, &row.City, &row.State); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var _ SpaceRepository = (*PGSpaceRepository)(nil)
