package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kseleznyov/spacebooking/internal/domain"
	"github.com/kseleznyov/spacebooking/internal/repository"
	"github.com/kseleznyov/spacebooking/internal/service/reservations"
)

type ReservationHandler struct {
	service reservations.ReservationUseCase
}

func NewReservationHandler(service reservations.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	router.POST("/reservations", h.create)
	router.GET("/reservations", h.list)
	router.GET("/reservations/day", h.listByDay)
	router.GET("/reservations/:id", h.get)
	router.PATCH("/reservations/:id", h.update)
	router.POST("/reservations/:id/confirm", h.confirm)
	router.POST("/reservations/:id/cancel", h.cancel)
}

type createReservationRequest struct {
	SpaceID            string  `json:"space_id"`
	BranchID           string  `json:"branch_id"`
	CustomerID         string  `json:"customer_id"`
	Date               string  `json:"date"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	DepositRequiredPct float64 `json:"deposit_required_pct"`
	Notes              string  `json:"notes"`
}

type updateReservationRequest struct {
	Date               *string  `json:"date"`
	StartTime          *string  `json:"start_time"`
	EndTime            *string  `json:"end_time"`
	Notes              *string  `json:"notes"`
	DepositRequiredPct *float64 `json:"deposit_required_pct"`
}

type reservationResponse struct {
	ID                 string  `json:"id"`
	SpaceID            string  `json:"space_id"`
	BranchID           string  `json:"branch_id"`
	CustomerID         string  `json:"customer_id"`
	Date               string  `json:"date"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	Status             string  `json:"status"`
	TotalAmount        float64 `json:"total_amount"`
	DepositRequiredPct float64 `json:"deposit_required_pct"`
	Notes              string  `json:"notes,omitempty"`
	SpaceName          string  `json:"space_name,omitempty"`
	BranchName         string  `json:"branch_name,omitempty"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

type reservationDetailResponse struct {
	reservationResponse
	Payments []paymentResponse `json:"payments"`
}

func toReservationResponse(r *domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:                 r.ID,
		SpaceID:            r.SpaceID,
		BranchID:           r.BranchID,
		CustomerID:         r.CustomerID,
		Date:               r.Date.Format(domain.DateFormat),
		StartTime:          r.Slot.Start.String(),
		EndTime:            r.Slot.End.String(),
		Status:             string(r.Status),
		TotalAmount:        domain.RoundMoney(r.TotalAmount),
		DepositRequiredPct: r.DepositRequiredPct,
		Notes:              r.Notes,
		SpaceName:          r.SpaceName,
		BranchName:         r.BranchName,
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          r.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *ReservationHandler) create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	start, err := domain.ParseTimeOfDay(req.StartTime)
	if err != nil {
		badRequest(c, "start_time must be HH:MM")
		return
	}
	end, err := domain.ParseTimeOfDay(req.EndTime)
	if err != nil {
		badRequest(c, "end_time must be HH:MM")
		return
	}

	reservation, err := h.service.Create(c.Request.Context(), reservations.CreateReservationInput{
		SpaceID:            req.SpaceID,
		BranchID:           req.BranchID,
		CustomerID:         req.CustomerID,
		Date:               date,
		Slot:               domain.TimeSlot{Start: start, End: end},
		DepositRequiredPct: req.DepositRequiredPct,
		Notes:              req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toReservationResponse(reservation))
}

func (h *ReservationHandler) list(c *gin.Context) {
	filters := repository.ReservationFilters{
		BranchID:   c.Query("branch_id"),
		SpaceID:    c.Query("space_id"),
		CustomerID: c.Query("customer_id"),
		Status:     domain.ReservationStatus(c.Query("status")),
	}
	if raw := c.Query("date"); raw != "" {
		date, err := domain.ParseDate(raw)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		filters.Date = &date
	}

	list, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]reservationResponse, 0, len(list))
	for i := range list {
		out = append(out, toReservationResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReservationHandler) listByDay(c *gin.Context) {
	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}

	list, err := h.service.ListByDay(c.Request.Context(), date, c.Query("branch_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]reservationResponse, 0, len(list))
	for i := range list {
		out = append(out, toReservationResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReservationHandler) get(c *gin.Context) {
	reservation, payments, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	detail := reservationDetailResponse{
		reservationResponse: toReservationResponse(reservation),
		Payments:            make([]paymentResponse, 0, len(payments)),
	}
	for i := range payments {
		detail.Payments = append(detail.Payments, toPaymentResponse(&payments[i]))
	}
	c.JSON(http.StatusOK, detail)
}

func (h *ReservationHandler) update(c *gin.Context) {
	var req updateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	input := reservations.RescheduleInput{
		Notes:              req.Notes,
		DepositRequiredPct: req.DepositRequiredPct,
	}
	if req.Date != nil {
		date, err := domain.ParseDate(*req.Date)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		input.Date = &date
	}
	if req.StartTime != nil {
		start, err := domain.ParseTimeOfDay(*req.StartTime)
		if err != nil {
			badRequest(c, "start_time must be HH:MM")
			return
		}
		input.Start = &start
	}
	if req.EndTime != nil {
		end, err := domain.ParseTimeOfDay(*req.EndTime)
		if err != nil {
			badRequest(c, "end_time must be HH:MM")
			return
		}
		input.End = &end
	}

	reservation, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toReservationResponse(reservation))
}

func (h *ReservationHandler) confirm(c *gin.Context) {
	reservation, err := h.service.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toReservationResponse(reservation))
}

func (h *ReservationHandler) cancel(c *gin.Context) {
	reservation, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toReservationResponse(reservation))
}
