package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/model"
	"github.com/rutasur/tour-reservation/internal/repository"
)

// AdminInstallmentHandler manages payment installments. Payments are
// recorded manually by staff; there is no gateway integration.
type AdminInstallmentHandler struct {
	Reservations *repository.ReservationRepo
	Installments *repository.InstallmentRepo
}

func NewAdminInstallmentHandler(res *repository.ReservationRepo, ins *repository.InstallmentRepo) *AdminInstallmentHandler {
	if res == nil || ins == nil {
		panic("nil repository passed to NewAdminInstallmentHandler")
	}
	return &AdminInstallmentHandler{Reservations: res, Installments: ins}
}

// Create handles POST /api/reservations/:id/installments.
func (h *AdminInstallmentHandler) Create(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req struct {
		AmountDueCents uint32 `json:"amount_due_cents"`
		DueDate        string `json:"due_date"` // YYYY-MM-DD
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.AmountDueCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_due_cents must be positive"})
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid due_date"})
	}

	ctx := c.Request().Context()
	if _, err := h.Reservations.GetByID(ctx, id); err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	in := &model.PaymentInstallment{
		ReservationID:  id,
		AmountDueCents: req.AmountDueCents,
		DueDate:        due,
		Status:         model.InstallmentPending,
	}
	if err := h.Installments.Create(ctx, in); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create installment failed"})
	}
	return c.JSON(http.StatusCreated, in)
}

// List handles GET /api/reservations/:id/installments.
func (h *AdminInstallmentHandler) List(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	list, err := h.Installments.ListByReservation(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"installments": list})
}

// RecordPayment handles POST /api/installments/:id/payment. The
// installment flips to paid and the reservation's payment status is
// reconciled against the paid total in the same transaction.
func (h *AdminInstallmentHandler) RecordPayment(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid installment id"})
	}
	var req struct {
		Method       string   `json:"method"`
		Reference    string   `json:"reference"`
		ExchangeRate *float64 `json:"exchange_rate"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "method is required"})
	}

	in, err := h.Installments.RecordPayment(c.Request().Context(), id, repository.PaymentDetails{
		Method:       method,
		Reference:    strings.TrimSpace(req.Reference),
		ExchangeRate: req.ExchangeRate,
	}, time.Now().UTC())
	if err != nil {
		switch err {
		case repository.ErrInstallmentNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "installment not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "installment already paid"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record payment failed"})
	}
	return c.JSON(http.StatusOK, in)
}
