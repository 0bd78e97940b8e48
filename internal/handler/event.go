package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/minimal-calendar/internal/ics"
	"github.com/iliyamo/minimal-calendar/internal/middleware"
	"github.com/iliyamo/minimal-calendar/internal/model"
	"github.com/iliyamo/minimal-calendar/internal/queue"
	"github.com/iliyamo/minimal-calendar/internal/repository"
)

// EventHandler serves the row store of the authenticated user. Every
// route runs behind JWTAuth, so the owner always comes from the token
// and never from the request body.
type EventHandler struct {
	Events  EventStore
	Cache   CacheInvalidator
	Changes ChangePublisher
	Log     zerolog.Logger
}

// NewEventHandler wires the handler; cache and pub may be nil.
func NewEventHandler(events EventStore, cache CacheInvalidator, pub ChangePublisher, log zerolog.Logger) *EventHandler {
	h := &EventHandler{Events: events, Cache: cache, Changes: pub, Log: log}
	if h.Cache == nil {
		h.Cache = nopInvalidator{}
	}
	if h.Changes == nil {
		h.Changes = nopPublisher{}
	}
	return h
}

type eventsResp struct {
	Items []model.Event `json:"items"`
}

// List returns the user's events ordered by date. With ?day=YYYY-MM-DD
// only that calendar day is returned, bucketed in ?tz (default UTC).
func (h *EventHandler) List(c echo.Context) error {
	uid := middleware.UserID(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		items []model.Event
		err   error
	)
	if day := strings.TrimSpace(c.QueryParam("day")); day != "" {
		loc := time.UTC
		if tz := strings.TrimSpace(c.QueryParam("tz")); tz != "" {
			l, lerr := time.LoadLocation(tz)
			if lerr != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tz"})
			}
			loc = l
		}
		from, perr := time.ParseInLocation("2006-01-02", day, loc)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day, use YYYY-MM-DD"})
		}
		items, err = h.Events.ListByUserBetween(ctx, uid, from, from.AddDate(0, 0, 1))
	} else {
		items, err = h.Events.ListByUser(ctx, uid)
	}
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", uid).Msg("list events failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if items == nil {
		items = []model.Event{}
	}
	return c.JSON(http.StatusOK, eventsResp{Items: items})
}

// validateNewEvent trims and checks the payload, filling the default
// color.
func validateNewEvent(in *model.NewEvent) string {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = strings.ToLower(strings.TrimSpace(in.Color))
	switch {
	case in.Title == "":
		return "title is required"
	case in.Date.IsZero():
		return "date is required"
	}
	if in.Color == "" {
		in.Color = model.DefaultColor
	} else if !model.IsHexColor(in.Color) {
		return "color must look like #rrggbb"
	}
	return ""
}

// Create inserts one event for the token's user.
func (h *EventHandler) Create(c echo.Context) error {
	uid := middleware.UserID(c)
	var in model.NewEvent
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validateNewEvent(&in); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.Create(ctx, uid, in)
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", uid).Msg("create event failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	h.Cache.Invalidate(ctx, uid)

	change := queue.NewChangeEvent(queue.KindEventCreated, uid)
	change.EventID, change.Title = ev.ID, ev.Title
	change.StartsAt = ev.Date.UTC().Format(time.RFC3339)
	h.publish(ctx, change)
	return c.JSON(http.StatusCreated, ev)
}

// Delete removes one event of the token's user; other users' ids are
// reported as missing.
func (h *EventHandler) Delete(c echo.Context) error {
	uid := middleware.UserID(c)
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.DeleteByIDAndUser(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		h.Log.Error().Err(err).Str("event_id", id).Msg("delete event failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.Cache.Invalidate(ctx, uid)

	change := queue.NewChangeEvent(queue.KindEventDeleted, uid)
	change.EventID = id
	h.publish(ctx, change)
	return c.NoContent(http.StatusNoContent)
}

// ExportICS streams every event of the user as an iCalendar document.
func (h *EventHandler) ExportICS(c echo.Context) error {
	uid := middleware.UserID(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Events.ListByUser(ctx, uid)
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", uid).Msg("export events failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	var buf bytes.Buffer
	if err := ics.Export(&buf, items, "Calendário"); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="calendar.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

func (h *EventHandler) publish(ctx context.Context, ev queue.ChangeEvent) {
	if err := h.Changes.Publish(context.WithoutCancel(ctx), ev); err != nil {
		h.Log.Warn().Err(err).Str("kind", ev.Kind).Msg("change notification dropped")
	}
}
