package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kseleznyov/spacebooking/internal/domain"
	"github.com/kseleznyov/spacebooking/internal/service/payments"
)

type PaymentHandler struct {
	service payments.PaymentUseCase
}

func NewPaymentHandler(service payments.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/reservations/:id/payments", h.record)
	router.GET("/reservations/:id/payments", h.listByReservation)
	router.GET("/reservations/:id/summary", h.summary)
	router.GET("/payments/:id", h.get)
	router.POST("/payments/:id/paid", h.markPaid)
	router.DELETE("/payments/:id", h.delete)
}

type recordPaymentRequest struct {
	Amount      float64 `json:"amount"`
	Method      string  `json:"method"`
	Purpose     string  `json:"purpose"`
	ExternalRef string  `json:"external_ref"`
	Paid        bool    `json:"paid"`
}

type markPaidRequest struct {
	ExternalRef *string `json:"external_ref"`
}

type paymentResponse struct {
	ID            string  `json:"id"`
	ReservationID string  `json:"reservation_id"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	Status        string  `json:"status"`
	Purpose       string  `json:"purpose,omitempty"`
	ExternalRef   string  `json:"external_ref,omitempty"`
	PaidAt        *string `json:"paid_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type summaryResponse struct {
	ReservationID string  `json:"reservation_id"`
	Total         float64 `json:"total"`
	Paid          float64 `json:"paid"`
	Pending       float64 `json:"pending"`
	Remaining     float64 `json:"remaining"`
}

func toPaymentResponse(p *domain.Payment) paymentResponse {
	resp := paymentResponse{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		Amount:        domain.RoundMoney(p.Amount),
		Method:        p.Method,
		Status:        string(p.Status),
		Purpose:       p.Purpose,
		ExternalRef:   p.ExternalRef,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
	if p.PaidAt != nil {
		paidAt := p.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &paidAt
	}
	return resp
}

func (h *PaymentHandler) record(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	payment, err := h.service.Record(c.Request.Context(), payments.RecordPaymentInput{
		ReservationID: c.Param("id"),
		Amount:        req.Amount,
		Method:        req.Method,
		Purpose:       req.Purpose,
		ExternalRef:   req.ExternalRef,
		Paid:          req.Paid,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPaymentResponse(payment))
}

func (h *PaymentHandler) listByReservation(c *gin.Context) {
	list, err := h.service.ListByReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]paymentResponse, 0, len(list))
	for i := range list {
		out = append(out, toPaymentResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) summary(c *gin.Context) {
	summary, err := h.service.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaryResponse{
		ReservationID: summary.ReservationID,
		Total:         summary.Total,
		Paid:          summary.Paid,
		Pending:       summary.Pending,
		Remaining:     summary.Remaining,
	})
}

func (h *PaymentHandler) get(c *gin.Context) {
	payment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandler) markPaid(c *gin.Context) {
	// Body is optional: marking paid needs no gateway reference.
	var req markPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	payment, err := h.service.MarkPaid(c.Request.Context(), c.Param("id"), req.ExternalRef)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
