package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rutasur/tour-reservation/internal/model"
	"github.com/rutasur/tour-reservation/internal/repository"
)

// AdminReminderRuleHandler manages the payment reminder tiers evaluated
// by the scheduler.
type AdminReminderRuleHandler struct {
	Rules *repository.ReminderRuleRepo
}

func NewAdminReminderRuleHandler(rules *repository.ReminderRuleRepo) *AdminReminderRuleHandler {
	if rules == nil {
		panic("nil repository passed to NewAdminReminderRuleHandler")
	}
	return &AdminReminderRuleHandler{Rules: rules}
}

type reminderRuleReq struct {
	DaysBeforeDeadline int    `json:"days_before_deadline"`
	SendTime           string `json:"send_time"` // "HH:MM"
	TemplateType       string `json:"template_type"`
	Enabled            *bool  `json:"enabled"`
}

func (req *reminderRuleReq) toModel() (*model.ReminderRule, string) {
	if req.DaysBeforeDeadline < 0 {
		return nil, "days_before_deadline must not be negative"
	}
	sendTime := strings.TrimSpace(req.SendTime)
	if _, err := model.ParseSendTime(sendTime); err != nil {
		return nil, "send_time must be HH:MM"
	}
	rule := &model.ReminderRule{
		DaysBeforeDeadline: req.DaysBeforeDeadline,
		SendTime:           sendTime,
		TemplateType:       strings.TrimSpace(req.TemplateType),
		Enabled:            true,
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	return rule, ""
}

// Create handles POST /api/reminder-rules.
func (h *AdminReminderRuleHandler) Create(c echo.Context) error {
	var req reminderRuleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rule, msg := req.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if err := h.Rules.Create(c.Request().Context(), rule); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create rule failed"})
	}
	return c.JSON(http.StatusCreated, rule)
}

// Update handles PUT /api/reminder-rules/:id.
func (h *AdminReminderRuleHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rule id"})
	}
	var req reminderRuleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rule, msg := req.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	rule.ID = id
	if err := h.Rules.Update(c.Request().Context(), rule); err != nil {
		if err == repository.ErrRuleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update rule failed"})
	}
	return c.JSON(http.StatusOK, rule)
}

// Delete handles DELETE /api/reminder-rules/:id.
func (h *AdminReminderRuleHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rule id"})
	}
	if err := h.Rules.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrRuleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete rule failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /api/reminder-rules.
func (h *AdminReminderRuleHandler) List(c echo.Context) error {
	rules, err := h.Rules.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"rules": rules})
}
