package domain

import "time"

// Space is a bookable physical room or venue inside a branch. It is owned by
// the directory service; the booking core reads it as reference data (id,
// hourly rate, active flag, capacity for search).
type Space struct {
	ID               string
	BranchID         string
	Name             string
	Description      string
	Capacity         int
	BasePricePerHour float64
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SpaceSearchRow is a search hit: the space plus branch location columns.
type SpaceSearchRow struct {
	Space
	BranchName string
	City       string
	State      string
}
