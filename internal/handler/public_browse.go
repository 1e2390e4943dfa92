// This file defines the public catalog routes. Unauthenticated users can
// browse active tours and departures; internal counters and audit fields
// are filtered from responses, except seat availability which the booking
// UI needs for its "only N seats left" messaging.
package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/model"
	"github.com/rutasur/tour-reservation/internal/repository"
)

// PublicHandler aggregates repositories for unauthenticated browsing.
type PublicHandler struct {
	Tours      *repository.TourRepo
	Departures *repository.DepartureRepo
}

func NewPublicHandler(tours *repository.TourRepo, departures *repository.DepartureRepo) *PublicHandler {
	if tours == nil || departures == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Tours: tours, Departures: departures}
}

// PublicTour is a tour exposed through the public API.
type PublicTour struct {
	ID             uint64  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Location       string  `json:"location"`
	BasePriceCents uint32  `json:"base_price_cents"`
	DurationDays   uint32  `json:"duration_days"`
	ImageURL       *string `json:"image_url,omitempty"`
	IsFeatured     bool    `json:"is_featured"`
}

// PublicDeparture is a departure exposed through the public API, with
// availability instead of raw counters.
type PublicDeparture struct {
	ID                  uint64     `json:"id"`
	TourID              uint64     `json:"tour_id"`
	DepartureDate       time.Time  `json:"departure_date"`
	ReturnDate          *time.Time `json:"return_date,omitempty"`
	PriceCents          uint32     `json:"price_cents"`
	SeatsAvailable      uint32     `json:"seats_available"`
	PaymentDeadlineDays uint32     `json:"payment_deadline_days"`
}

// ListTours handles GET /api/tours. Responses are cached by the Redis
// middleware, so this stays a cheap read.
func (h *PublicHandler) ListTours(c echo.Context) error {
	tours, err := h.Tours.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicTour, 0, len(tours))
	for i := range tours {
		t := &tours[i]
		out = append(out, PublicTour{
			ID:             t.ID,
			Title:          t.Title,
			Description:    t.Description,
			Location:       t.Location,
			BasePriceCents: t.BasePriceCents,
			DurationDays:   t.DurationDays,
			ImageURL:       t.ImageURL,
			IsFeatured:     t.IsFeatured,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"tours": out})
}

// GetTour handles GET /api/tours/:id.
func (h *PublicHandler) GetTour(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tour id"})
	}
	ctx := c.Request().Context()
	t, err := h.Tours.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrTourNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !t.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
	}
	out := echo.Map{"tour": PublicTour{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Location:       t.Location,
		BasePriceCents: t.BasePriceCents,
		DurationDays:   t.DurationDays,
		ImageURL:       t.ImageURL,
		IsFeatured:     t.IsFeatured,
	}}
	// Convenience for the detail page: the soonest bookable departure.
	if next, err := h.Departures.NextDeparture(ctx, t.ID, time.Now().UTC()); err == nil {
		out["next_departure"] = PublicDeparture{
			ID:                  next.ID,
			TourID:              next.TourID,
			DepartureDate:       next.DepartureDate,
			ReturnDate:          next.ReturnDate,
			PriceCents:          next.PriceCents,
			SeatsAvailable:      next.SeatsAvailable(),
			PaymentDeadlineDays: next.PaymentDeadlineDays,
		}
	}
	return c.JSON(http.StatusOK, out)
}

// ListDepartures handles GET /api/departures, the cross-tour departure
// board. The repository already filters to active future rows.
func (h *PublicHandler) ListDepartures(c echo.Context) error {
	deps, err := h.Departures.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicDeparture, 0, len(deps))
	for i := range deps {
		d := &deps[i]
		out = append(out, PublicDeparture{
			ID:                  d.ID,
			TourID:              d.TourID,
			DepartureDate:       d.DepartureDate,
			ReturnDate:          d.ReturnDate,
			PriceCents:          d.PriceCents,
			SeatsAvailable:      d.SeatsAvailable(),
			PaymentDeadlineDays: d.PaymentDeadlineDays,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"departures": out})
}

// ListTourDepartures handles GET /api/tours/:id/departures, returning
// only active future departures.
func (h *PublicHandler) ListTourDepartures(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tour id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Tours.GetByID(ctx, id); err != nil {
		if err == repository.ErrTourNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	deps, err := h.Departures.ListByTour(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	now := time.Now().UTC()
	out := make([]PublicDeparture, 0, len(deps))
	for i := range deps {
		d := &deps[i]
		if d.Status != model.DepartureActive || !d.DepartureDate.After(now) {
			continue
		}
		out = append(out, PublicDeparture{
			ID:                  d.ID,
			TourID:              d.TourID,
			DepartureDate:       d.DepartureDate,
			ReturnDate:          d.ReturnDate,
			PriceCents:          d.PriceCents,
			SeatsAvailable:      d.SeatsAvailable(),
			PaymentDeadlineDays: d.PaymentDeadlineDays,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"departures": out})
}

// GetDeparture handles GET /api/departures/:id, the availability check
// the booking form polls before submitting.
func (h *PublicHandler) GetDeparture(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid departure id"})
	}
	d, err := h.Departures.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrDepartureNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "departure not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, PublicDeparture{
		ID:                  d.ID,
		TourID:              d.TourID,
		DepartureDate:       d.DepartureDate,
		ReturnDate:          d.ReturnDate,
		PriceCents:          d.PriceCents,
		SeatsAvailable:      d.SeatsAvailable(),
		PaymentDeadlineDays: d.PaymentDeadlineDays,
	})
}
