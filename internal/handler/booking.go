package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/config"
	"github.com/rutasur/tour-reservation/internal/model"
	"github.com/rutasur/tour-reservation/internal/queue"
	"github.com/rutasur/tour-reservation/internal/repository"
	queue_publisher "github.com/rutasur/tour-reservation/internal/service"
)

// BookingHandler serves the public booking flow: creating a reservation
// against a departure and looking it up by its public reference.
type BookingHandler struct {
	Cfg          config.Config
	Tours        *repository.TourRepo
	Departures   *repository.DepartureRepo
	Reservations *repository.ReservationRepo
	Passengers   *repository.PassengerRepo
	Events       *queue_publisher.Publisher // nil disables event publishing
}

func NewBookingHandler(cfg config.Config, tours *repository.TourRepo, departures *repository.DepartureRepo,
	reservations *repository.ReservationRepo, passengers *repository.PassengerRepo,
	events *queue_publisher.Publisher) *BookingHandler {
	if tours == nil || departures == nil || reservations == nil || passengers == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Cfg: cfg, Tours: tours, Departures: departures,
		Reservations: reservations, Passengers: passengers, Events: events}
}

type passengerReq struct {
	FullName       string `json:"full_name"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	BirthDate      string `json:"birth_date"` // YYYY-MM-DD, optional
}

type createReservationReq struct {
	DepartureID   uint64         `json:"departure_id"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	CustomerPhone string         `json:"customer_phone"`
	Passengers    []passengerReq `json:"passengers"`
}

type reservationResp struct {
	ID               uint64     `json:"id"`
	Reference        string     `json:"reference"`
	DepartureID      uint64     `json:"departure_id"`
	CustomerName     string     `json:"customer_name"`
	CustomerEmail    string     `json:"customer_email"`
	PassengerCount   uint32     `json:"passenger_count"`
	TotalPriceCents  uint32     `json:"total_price_cents"`
	Status           string     `json:"status"`
	PaymentStatus    string     `json:"payment_status"`
	PaymentDueDate   *time.Time `json:"payment_due_date,omitempty"`
	AutoCancelAt     *time.Time `json:"auto_cancel_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toReservationResp(res *model.Reservation) reservationResp {
	return reservationResp{
		ID:              res.ID,
		Reference:       res.Reference,
		DepartureID:     res.DepartureID,
		CustomerName:    res.CustomerName,
		CustomerEmail:   res.CustomerEmail,
		PassengerCount:  res.PassengerCount,
		TotalPriceCents: res.TotalPriceCents,
		Status:          string(res.Status),
		PaymentStatus:   string(res.PaymentStatus),
		PaymentDueDate:  res.PaymentDueDate,
		AutoCancelAt:    res.AutoCancelAt,
		CreatedAt:       res.CreatedAt,
	}
}

// Create handles POST /api/reservations. Anonymous bookings are allowed;
// when a valid bearer token is present the reservation is linked to the
// user so payment reminders can reach them.
//
// The availability check here is only a pre-check for a friendly error
// message. The authoritative capacity enforcement happens inside
// CreateAtomic, where a concurrent booking makes the conditional seat
// update fail with ErrInsufficientCapacity.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	if req.DepartureID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_id is required"})
	}
	if req.CustomerName == "" || req.CustomerEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_name and customer_email are required"})
	}
	if len(req.Passengers) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one passenger is required"})
	}

	passengers := make([]model.Passenger, 0, len(req.Passengers))
	for i, p := range req.Passengers {
		name := strings.TrimSpace(p.FullName)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("passenger %d: full_name is required", i+1)})
		}
		mp := model.Passenger{
			FullName:       name,
			DocumentType:   strings.TrimSpace(p.DocumentType),
			DocumentNumber: strings.TrimSpace(p.DocumentNumber),
			DocumentStatus: model.DocumentPending,
		}
		if p.BirthDate != "" {
			bd, err := time.Parse("2006-01-02", p.BirthDate)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("passenger %d: invalid birth_date", i+1)})
			}
			mp.BirthDate = &bd
		}
		passengers = append(passengers, mp)
	}
	count := uint32(len(passengers))

	ctx := c.Request().Context()
	dep, err := h.Departures.GetByID(ctx, req.DepartureID)
	if err != nil {
		if err == repository.ErrDepartureNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "departure not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if dep.Status != model.DepartureActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "departure is not open for booking"})
	}
	if !dep.DepartureDate.After(time.Now().UTC()) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "departure date has passed"})
	}
	if avail := dep.SeatsAvailable(); avail < count {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":           fmt.Sprintf("only %d seats left", avail),
			"seats_available": avail,
		})
	}

	due := dep.PaymentDueDate()
	cancelAt := model.ComputeAutoCancelAt(due, h.Cfg.AutoCancelGrace)
	res := &model.Reservation{
		Reference:       uuid.NewString(),
		DepartureID:     dep.ID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		PassengerCount:  count,
		TotalPriceCents: dep.PriceCents * count,
		Status:          model.StatusPending,
		PaymentStatus:   model.PaymentPending,
		PaymentDueDate:  &due,
		AutoCancelAt:    &cancelAt,
	}
	if uid, ok := bearerSubject(c, h.Cfg.JWTSecret); ok && uid != 0 {
		res.UserID = &uid
	}

	if err := h.Reservations.CreateAtomic(ctx, res, passengers); err != nil {
		if err == repository.ErrInsufficientCapacity {
			// Seats vanished between the pre-check and the write.
			fresh, ferr := h.Departures.GetByID(ctx, dep.ID)
			avail := uint32(0)
			if ferr == nil {
				avail = fresh.SeatsAvailable()
			}
			return c.JSON(http.StatusConflict, echo.Map{
				"error":           fmt.Sprintf("only %d seats left", avail),
				"seats_available": avail,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create reservation failed"})
	}

	go h.publishBooked(dep, res)

	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// publishBooked emits the booked event after commit. Failures are logged
// by the publisher and never affect the booking response.
func (h *BookingHandler) publishBooked(dep *model.Departure, res *model.Reservation) {
	if h.Events == nil {
		return
	}
	title := ""
	if tour, err := h.Tours.GetByID(context.Background(), dep.TourID); err == nil {
		title = tour.Title
	}
	_ = h.Events.ReservationBooked(context.Background(), queue.ReservationBookedEvent{
		ReservationID:   res.ID,
		Reference:       res.Reference,
		DepartureID:     dep.ID,
		TourTitle:       title,
		DepartureDate:   dep.DepartureDate.Format(time.RFC3339),
		CustomerName:    res.CustomerName,
		CustomerEmail:   res.CustomerEmail,
		PassengerCount:  res.PassengerCount,
		TotalPriceCents: res.TotalPriceCents,
		BookedAt:        time.Now().UTC().Format(time.RFC3339),
	})
}

// GetByReference handles GET /api/reservations/:id, where the path value
// is the reservation's public reference. The reference is an unguessable
// code, so the lookup itself is the authorization.
func (h *BookingHandler) GetByReference(c echo.Context) error {
	ref := strings.TrimSpace(c.Param("id"))
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reference is required"})
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByReference(ctx, ref)
	if err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	passengers, err := h.Passengers.ListByReservation(ctx, res.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	type passengerPart struct {
		FullName       string `json:"full_name"`
		DocumentStatus string `json:"document_status"`
	}
	parts := make([]passengerPart, 0, len(passengers))
	for _, p := range passengers {
		parts = append(parts, passengerPart{FullName: p.FullName, DocumentStatus: string(p.DocumentStatus)})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation": toReservationResp(res),
		"passengers":  parts,
	})
}
