package analytics

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler serves analytics to the admin.
type Handler struct {
	store *Store
}

// NewHandler creates a new analytics handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// StatsResponse is the JSON response for the stats endpoint.
type StatsResponse struct {
	Stats      *Stats `json:"stats"`
	PeriodDays int    `json:"period_days"`
}

// GetStats returns analytics statistics as JSON.
func (h *Handler) GetStats(c echo.Context) error {
	days := parsePeriod(c.QueryParam("period"))
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	stats, err := h.store.GetStats(c.Request().Context(), from, to.Add(time.Second))
	if err != nil {
		c.Logger().Errorf("analytics: get stats: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, StatsResponse{Stats: stats, PeriodDays: days})
}

// parsePeriod maps the period query parameter to a number of days.
func parsePeriod(period string) int {
	switch period {
	case "today":
		return 1
	case "month":
		return 30
	case "year":
		return 365
	default:
		return 7
	}
}

// RegisterRoutes registers the admin endpoints on g, which the caller
// protects with its own auth middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/api/stats", h.GetStats)
}
