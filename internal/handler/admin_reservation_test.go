package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutasur/tour-reservation/internal/model"
	"github.com/rutasur/tour-reservation/internal/repository"
)

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// Request validation happens before any repository access, so these run
// against a zero handler.
func TestTimelineRejectsBadReservationID(t *testing.T) {
	h := &AdminReservationHandler{}
	c, rec := newTestContext(http.MethodGet, "/api/reservations/abc/timeline", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	require.NoError(t, h.Timeline(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	h := &AdminReservationHandler{}
	c, rec := newTestContext(http.MethodPut, "/api/reservations/1/status", `{"status":"bogus"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCanViewReservation(t *testing.T) {
	owner := uint64(7)
	res := &model.Reservation{ID: 1, UserID: &owner}

	c, _ := newTestContext(http.MethodGet, "/", "")
	c.Set("role", "ADMIN")
	assert.NoError(t, canViewReservation(c, res))

	c, _ = newTestContext(http.MethodGet, "/", "")
	c.Set("role", "CUSTOMER")
	c.Set("user_id", float64(7)) // numeric claims arrive as float64
	assert.NoError(t, canViewReservation(c, res))

	c, _ = newTestContext(http.MethodGet, "/", "")
	c.Set("role", "CUSTOMER")
	c.Set("user_id", float64(8))
	assert.ErrorIs(t, canViewReservation(c, res), repository.ErrForbidden)

	// Anonymous bookings have no owner; only admins may read them.
	c, _ = newTestContext(http.MethodGet, "/", "")
	c.Set("role", "CUSTOMER")
	c.Set("user_id", float64(7))
	assert.ErrorIs(t, canViewReservation(c, &model.Reservation{ID: 2}), repository.ErrForbidden)
}
