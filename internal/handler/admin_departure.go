package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/model"
	"github.com/rutasur/tour-reservation/internal/repository"
)

// AdminDepartureHandler manages departures and their seat inventory
// configuration.
type AdminDepartureHandler struct {
	Tours      *repository.TourRepo
	Departures *repository.DepartureRepo
}

func NewAdminDepartureHandler(tours *repository.TourRepo, departures *repository.DepartureRepo) *AdminDepartureHandler {
	if tours == nil || departures == nil {
		panic("nil repository passed to NewAdminDepartureHandler")
	}
	return &AdminDepartureHandler{Tours: tours, Departures: departures}
}

type departureReq struct {
	TourID              uint64  `json:"tour_id"`
	DepartureDate       string  `json:"departure_date"` // RFC 3339
	ReturnDate          *string `json:"return_date"`
	TotalSeats          uint32  `json:"total_seats"`
	PriceCents          uint32  `json:"price_cents"`
	PaymentDeadlineDays uint32  `json:"payment_deadline_days"`
	Status              string  `json:"status"`
}

func (req *departureReq) toModel() (*model.Departure, string) {
	dep := &model.Departure{
		TourID:              req.TourID,
		TotalSeats:          req.TotalSeats,
		PriceCents:          req.PriceCents,
		PaymentDeadlineDays: req.PaymentDeadlineDays,
	}
	date, err := time.Parse(time.RFC3339, req.DepartureDate)
	if err != nil {
		return nil, "invalid departure_date"
	}
	dep.DepartureDate = date.UTC()
	if req.ReturnDate != nil && *req.ReturnDate != "" {
		ret, err := time.Parse(time.RFC3339, *req.ReturnDate)
		if err != nil {
			return nil, "invalid return_date"
		}
		r := ret.UTC()
		if r.Before(dep.DepartureDate) {
			return nil, "return_date is before departure_date"
		}
		dep.ReturnDate = &r
	}
	if req.Status != "" {
		switch s := model.DepartureStatus(strings.TrimSpace(req.Status)); s {
		case model.DepartureActive, model.DepartureInactive, model.DepartureCancelled:
			dep.Status = s
		default:
			return nil, "unknown departure status"
		}
	}
	return dep, ""
}

// Create handles POST /api/departures. The date must be in the
// future and the capacity positive.
func (h *AdminDepartureHandler) Create(c echo.Context) error {
	var req departureReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	dep, msg := req.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if dep.TourID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tour_id is required"})
	}
	if dep.TotalSeats == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_seats must be positive"})
	}
	if !dep.DepartureDate.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_date must be in the future"})
	}

	ctx := c.Request().Context()
	if _, err := h.Tours.GetByID(ctx, dep.TourID); err != nil {
		if err == repository.ErrTourNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Departures.Create(ctx, dep); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create departure failed"})
	}
	return c.JSON(http.StatusCreated, dep)
}

// Update handles PUT /api/departures/:id. A changed date must lie
// in the future and capacity may only shrink down to the reserved count;
// the repository enforces the capacity rule in the same statement as the
// write so concurrent bookings cannot invalidate it.
func (h *AdminDepartureHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid departure id"})
	}
	var req departureReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	cur, err := h.Departures.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrDepartureNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "departure not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	dep, msg := req.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	dep.ID = id
	dep.TourID = cur.TourID // tour binding is immutable
	if dep.Status == "" {
		dep.Status = cur.Status
	}
	if dep.TotalSeats == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_seats must be positive"})
	}
	if !dep.DepartureDate.Equal(cur.DepartureDate) && !dep.DepartureDate.After(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_date must be in the future"})
	}

	if err := h.Departures.Update(ctx, dep); err != nil {
		switch err {
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "total_seats below reserved seats"})
		case repository.ErrDepartureNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "departure not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update departure failed"})
	}
	fresh, err := h.Departures.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, fresh)
}

// Delete handles DELETE /api/departures/:id. Blocked while any
// seats are reserved.
func (h *AdminDepartureHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid departure id"})
	}
	if err := h.Departures.Delete(c.Request().Context(), id); err != nil {
		switch err {
		case repository.ErrDepartureNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "departure not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "departure has reserved seats"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete departure failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /api/admin/departures?tour_id=N.
func (h *AdminDepartureHandler) List(c echo.Context) error {
	tourID, ok := queryID(c, "tour_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tour_id is required"})
	}
	list, err := h.Departures.ListByTour(c.Request().Context(), tourID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"departures": list})
}
