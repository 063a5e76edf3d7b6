package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"microloan-ledger/internal/adapter/mirror"
	"microloan-ledger/internal/domain/user"
)

// EventReader reads back what the ledger mirror recorded.
type EventReader interface {
	Events(ctx context.Context, eventType string) ([]mirror.Event, error)
}

type Handler struct{ events EventReader }

func NewHandler(events EventReader) *Handler { return &Handler{events: events} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// LedgerEvents lists mirrored events, optionally filtered by ?type=. Admin only.
func (h *Handler) LedgerEvents(c echo.Context) error {
	if _, ok := requireRole(c, user.RoleAdmin); !ok {
		return forbidden(c)
	}
	if h.events == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "ledger mirror not configured", Code: "not_found"})
	}
	evs, err := h.events.Events(c.Request().Context(), c.QueryParam("type"))
	if err != nil {
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "ledger mirror unavailable", Code: "mirror"})
	}
	return c.JSON(http.StatusOK, evs)
}
