package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/model"
	"github.com/rutasur/tour-reservation/internal/repository"
)

// AdminTourHandler manages the tour catalog.
type AdminTourHandler struct {
	Tours      *repository.TourRepo
	Departures *repository.DepartureRepo
}

func NewAdminTourHandler(tours *repository.TourRepo, departures *repository.DepartureRepo) *AdminTourHandler {
	if tours == nil || departures == nil {
		panic("nil repository passed to NewAdminTourHandler")
	}
	return &AdminTourHandler{Tours: tours, Departures: departures}
}

type tourReq struct {
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	Location             string  `json:"location"`
	BasePriceCents       uint32  `json:"base_price_cents"`
	DurationDays         uint32  `json:"duration_days"`
	MaxPassengers        uint32  `json:"max_passengers"`
	MinDepositPercentage *uint32 `json:"min_deposit_percentage"`
	ImageURL             *string `json:"image_url"`
	IsFeatured           bool    `json:"is_featured"`
	IsActive             bool    `json:"is_active"`
}

func (req *tourReq) validate() string {
	if strings.TrimSpace(req.Title) == "" {
		return "title is required"
	}
	if req.MaxPassengers == 0 {
		return "max_passengers must be positive"
	}
	if req.MinDepositPercentage != nil && *req.MinDepositPercentage > 100 {
		return "min_deposit_percentage must be 0-100"
	}
	return ""
}

func (req *tourReq) toModel() *model.Tour {
	return &model.Tour{
		Title:                strings.TrimSpace(req.Title),
		Description:          req.Description,
		Location:             strings.TrimSpace(req.Location),
		BasePriceCents:       req.BasePriceCents,
		DurationDays:         req.DurationDays,
		MaxPassengers:        req.MaxPassengers,
		MinDepositPercentage: req.MinDepositPercentage,
		ImageURL:             req.ImageURL,
		IsFeatured:           req.IsFeatured,
		IsActive:             req.IsActive,
	}
}

// Create handles POST /api/tours.
func (h *AdminTourHandler) Create(c echo.Context) error {
	var req tourReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	tour := req.toModel()
	if err := h.Tours.Create(c.Request().Context(), tour); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create tour failed"})
	}
	return c.JSON(http.StatusCreated, tour)
}

// Update handles PUT /api/tours/:id.
func (h *AdminTourHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tour id"})
	}
	var req tourReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()
	if _, err := h.Tours.GetByID(ctx, id); err != nil {
		if err == repository.ErrTourNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	tour := req.toModel()
	tour.ID = id
	if err := h.Tours.Update(ctx, tour); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update tour failed"})
	}
	fresh, err := h.Tours.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, fresh)
}

// Delete handles DELETE /api/tours/:id. A tour is never deleted
// while any of its departures has reservations.
func (h *AdminTourHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tour id"})
	}
	ctx := c.Request().Context()
	has, err := h.Departures.HasReservations(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if has {
		return c.JSON(http.StatusConflict, echo.Map{"error": "tour has departures with reservations"})
	}
	if err := h.Tours.Delete(ctx, id); err != nil {
		if err == repository.ErrTourNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete tour failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /api/admin/tours, including inactive ones.
func (h *AdminTourHandler) List(c echo.Context) error {
	list, err := h.Tours.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tours": list})
}
