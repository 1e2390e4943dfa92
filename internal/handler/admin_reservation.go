package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/model"
	"github.com/rutasur/tour-reservation/internal/queue"
	"github.com/rutasur/tour-reservation/internal/repository"
	queue_publisher "github.com/rutasur/tour-reservation/internal/service"
)

// AdminReservationHandler serves the back-office reservation routes:
// listing, status transitions and the audit timeline.
type AdminReservationHandler struct {
	Reservations *repository.ReservationRepo
	Passengers   *repository.PassengerRepo
	TimelineRepo *repository.TimelineRepo
	Events       *queue_publisher.Publisher // nil disables event publishing
}

func NewAdminReservationHandler(res *repository.ReservationRepo, pas *repository.PassengerRepo, tl *repository.TimelineRepo, events *queue_publisher.Publisher) *AdminReservationHandler {
	if res == nil || pas == nil || tl == nil {
		panic("nil repository passed to NewAdminReservationHandler")
	}
	return &AdminReservationHandler{Reservations: res, Passengers: pas, TimelineRepo: tl, Events: events}
}

// List handles GET /api/reservations (admin) with optional status and
// departure_id filters.
func (h *AdminReservationHandler) List(c echo.Context) error {
	f := repository.ListFilter{}
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		status, ok := model.ParseReservationStatus(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
		f.Status = string(status)
	}
	if id, ok := queryID(c, "departure_id"); ok {
		f.DepartureID = id
	}
	list, err := h.Reservations.List(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]reservationResp, 0, len(list))
	for i := range list {
		out = append(out, toReservationResp(&list[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// Get handles GET /api/admin/reservations/:id.
func (h *AdminReservationHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	passengers, err := h.Passengers.ListByReservation(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation": toReservationResp(res),
		"passengers":  passengers,
	})
}

type statusUpdateReq struct {
	Status        string  `json:"status"`
	PaymentStatus *string `json:"payment_status"`
}

// UpdateStatus handles PUT /api/reservations/:id/status. A target
// in the cancellation class routes through CancelAtomic so the seat
// release commits with the status write; every other transition is a
// plain state update with no inventory side effects.
func (h *AdminReservationHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req statusUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	status, ok := model.ParseReservationStatus(strings.TrimSpace(req.Status))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	var payment *model.PaymentStatus
	if req.PaymentStatus != nil {
		p, ok := model.ParsePaymentStatus(strings.TrimSpace(*req.PaymentStatus))
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown payment status"})
		}
		payment = &p
	}

	ctx := c.Request().Context()
	var (
		res *model.Reservation
		err error
	)
	if status.IsCancellation() {
		res, err = h.Reservations.CancelAtomic(ctx, id, status, payment, model.ActorAdmin)
	} else {
		res, err = h.Reservations.UpdateStatus(ctx, id, status, payment, model.ActorAdmin)
	}
	if err != nil {
		switch err {
		case repository.ErrReservationNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case model.ErrInvalidTransition:
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid status transition"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if h.Events != nil && status.ReleasesSeats() && res.Status == status {
		go func(r model.Reservation) {
			_ = h.Events.ReservationCancelled(context.Background(), queue.ReservationCancelledEvent{
				ReservationID:  r.ID,
				Reference:      r.Reference,
				DepartureID:    r.DepartureID,
				Status:         string(r.Status),
				PassengerCount: r.PassengerCount,
				SeatsReleased:  true,
				Actor:          model.ActorAdmin,
				CancelledAt:    time.Now().UTC().Format(time.RFC3339),
			})
		}(*res)
	}

	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Timeline handles GET /api/reservations/:id/timeline. Admins may read
// any reservation's trail; a customer only their own.
func (h *AdminReservationHandler) Timeline(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := canViewReservation(c, res); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	events, err := h.TimelineRepo.ListByReservation(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// ReviewDocument handles PUT /api/passengers/:id/document. Document
// review is orthogonal to the reservation lifecycle.
func (h *AdminReservationHandler) ReviewDocument(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid passenger id"})
	}
	var req struct {
		DocumentStatus string `json:"document_status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	status, ok := model.ParseDocumentStatus(strings.TrimSpace(req.DocumentStatus))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown document status"})
	}
	ctx := c.Request().Context()
	reservationID, err := h.Passengers.UpdateDocumentStatus(ctx, id, status)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "passenger not found"})
	}
	// The review is not a state transition, so the audit line is appended
	// outside any transaction.
	_ = h.TimelineRepo.Create(ctx, &model.TimelineEvent{
		ReservationID: reservationID,
		EventType:     model.EventDocumentReviewed,
		Description:   fmt.Sprintf("passenger %d document %s", id, status),
		Actor:         model.ActorAdmin,
	})
	return c.JSON(http.StatusOK, echo.Map{"document_status": status})
}
