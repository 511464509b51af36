package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/bitflow/ledger-backend/internal/service"
)

// SubscriptionHandler handles recurring-charge detection requests
type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// DetectSubscriptions handles GET /api/v1/subscriptions/detect
func (h *SubscriptionHandler) DetectSubscriptions(c echo.Context) error {
	lookback := service.DefaultLookback
	if v := c.QueryParam("lookbackDays"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			return NewValidationError(c, "Invalid lookbackDays", []ValidationError{
				{Field: "lookbackDays", Message: "Must be a positive number of days"},
			})
		}
		lookback = time.Duration(days) * 24 * time.Hour
	}

	candidates, err := h.subscriptionService.Detect(c.Request().Context(), time.Now().Add(-lookback))
	if err != nil {
		log.Error().Err(err).Msg("Failed to detect subscriptions")
		return NewInternalError(c, "Failed to detect subscriptions")
	}
	return c.JSON(http.StatusOK, candidates)
}
