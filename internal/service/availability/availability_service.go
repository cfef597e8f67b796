package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/kseleznyov/spacebooking/internal/domain"
	"github.com/kseleznyov/spacebooking/internal/repository"
)

type AvailabilityUseCase interface {
	// IsAvailable reports whether the space is free for the slot on the
	// given date. excludeID skips one reservation so a reschedule does not
	// conflict with itself.
	IsAvailable(ctx context.Context, spaceID string, date time.Time, slot domain.TimeSlot, excludeID string) (bool, error)
	Search(ctx context.Context, f repository.SpaceSearchFilters) ([]domain.SpaceSearchRow, error)
}

// SearchCache holds recent search results. Entries expire by TTL only, so
// results can lag a just-created reservation by at most the configured TTL.
type SearchCache interface {
	GetSearchResults(ctx context.Context, key string) ([]domain.SpaceSearchRow, error)
	SetSearchResults(ctx context.Context, key string, rows []domain.SpaceSearchRow) error
}

type AvailabilityService struct {
	reservations repository.ReservationRepository
	spaces       repository.SpaceRepository
	cache        SearchCache
}

func NewAvailabilityService(reservations repository.ReservationRepository, spaces repository.SpaceRepository, cache SearchCache) *AvailabilityService {
	return &AvailabilityService{reservations: reservations, spaces: spaces, cache: cache}
}

func (s *AvailabilityService) IsAvailable(ctx context.Context, spaceID string, date time.Time, slot domain.TimeSlot, excludeID string) (bool, error) {
	existing, err := s.reservations.ListForDay(ctx, spaceID, date, excludeID)
	if err != nil {
		return false, err
	}

	for _, r := range existing {
		if slot.Overlaps(r.Slot) {
			return false, nil
		}
	}
	return true, nil
}

func (s *AvailabilityService) Search(ctx context.Context, f repository.SpaceSearchFilters) ([]domain.SpaceSearchRow, error) {
	key := searchCacheKey(f)
	if s.cache != nil {
		if rows, err := s.cache.GetSearchResults(ctx, key); err == nil && rows != nil {
			return rows, nil
		}
	}

	rows, err := s.spaces.Search(ctx, f)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetSearchResults(ctx, key, rows)
	}
	return rows, nil
}

func searchCacheKey(f repository.SpaceSearchFilters) string {
	date, slotStr := "", ""
	if f.Date != nil {
		date = f.Date.Format(domain.DateFormat)
	}
	if f.Slot != nil {
		slotStr = f.Slot.Start.String() + "-" + f.Slot.End.String()
	}
	return fmt.Sprintf("%s|%s|%d|%s|%s", f.City, f.State, f.MinCapacity, date, slotStr)
}

var _ AvailabilityUseCase = (*AvailabilityService)(nil)
