package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kseleznyov/spacebooking/internal/domain"
	"github.com/kseleznyov/spacebooking/internal/repository"
	"github.com/kseleznyov/spacebooking/internal/service/availability"
)

type SpaceHandler struct {
	service availability.AvailabilityUseCase
}

func NewSpaceHandler(service availability.AvailabilityUseCase) *SpaceHandler {
	return &SpaceHandler{service: service}
}

func (h *SpaceHandler) Register(router *gin.RouterGroup) {
	router.GET("/spaces/availability", h.availability)
	router.GET("/spaces/search", h.search)
}

type spaceSearchResponse struct {
	ID               string  `json:"id"`
	BranchID         string  `json:"branch_id"`
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	Capacity         int     `json:"capacity"`
	BasePricePerHour float64 `json:"base_price_per_hour"`
	BranchName       string  `json:"branch_name"`
	City             string  `json:"city"`
	State            string  `json:"state"`
}

func (h *SpaceHandler) availability(c *gin.Context) {
	spaceID := c.Query("space_id")
	if spaceID == "" {
		badRequest(c, "space_id is required")
		return
	}
	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	start, err := domain.ParseTimeOfDay(c.Query("start_time"))
	if err != nil {
		badRequest(c, "start_time must be HH:MM")
		return
	}
	end, err := domain.ParseTimeOfDay(c.Query("end_time"))
	if err != nil {
		badRequest(c, "end_time must be HH:MM")
		return
	}
	slot := domain.TimeSlot{Start: start, End: end}
	if !slot.Valid() {
		badRequest(c, "end_time must be after start_time")
		return
	}

	free, err := h.service.IsAvailable(c.Request.Context(), spaceID, date, slot, "")
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": free})
}

func (h *SpaceHandler) search(c *gin.Context) {
	filters := repository.SpaceSearchFilters{
		City:  c.Query("city"),
		State: c.Query("state"),
	}
	if raw := c.Query("min_capacity"); raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil || capacity < 0 {
			badRequest(c, "min_capacity must be a non-negative integer")
			return
		}
		filters.MinCapacity = capacity
	}
	if raw := c.Query("date"); raw != "" {
		date, err := domain.ParseDate(raw)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		start, err := domain.ParseTimeOfDay(c.Query("start_time"))
		if err != nil {
			badRequest(c, "start_time must be HH:MM")
			return
		}
		end, err := domain.ParseTimeOfDay(c.Query("end_time"))
		if err != nil {
			badRequest(c, "end_time must be HH:MM")
			return
		}
		slot := domain.TimeSlot{Start: start, End: end}
		if !slot.Valid() {
			badRequest(c, "end_time must be after start_time")
			return
		}
		filters.Date = &date
		filters.Slot = &slot
	}

	rows, err := h.service.Search(c.Request.Context(), filters)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]spaceSearchResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, spaceSearchResponse{
			ID:               row.ID,
			BranchID:         row.BranchID,
			Name:             row.Name,
			Description:      row.Description,
			Capacity:         row.Capacity,
			BasePricePerHour: domain.RoundMoney(row.BasePricePerHour),
			BranchName:       row.BranchName,
			City:             row.City,
			State:            row.State,
		})
	}
	c.JSON(http.StatusOK, out)
}
