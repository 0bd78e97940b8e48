package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/minimal-calendar/internal/model"
)

// EventRepo is the per-user row store of calendar events.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventColumns = "id,user_id,title,starts_at,description,color"

// ListByUser returns the user's events ordered by start, then id.
func (r *EventRepo) ListByUser(ctx context.Context, userID string) ([]model.Event, error) {
	return r.query(ctx,
		"SELECT "+eventColumns+" FROM events WHERE user_id=? ORDER BY starts_at, id",
		userID)
}

// ListByUserBetween returns the user's events with from <= start < to.
func (r *EventRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Event, error) {
	return r.query(ctx,
		"SELECT "+eventColumns+" FROM events WHERE user_id=? AND starts_at >= ? AND starts_at < ? ORDER BY starts_at, id",
		userID, from.UTC(), to.UTC())
}

func (r *EventRepo) query(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		var (
			ev   model.Event
			desc sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Title, &ev.Date, &desc, &ev.Color); err != nil {
			return nil, err
		}
		ev.Description = desc.String
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Create inserts in for userID under a new UUID.
func (r *EventRepo) Create(ctx context.Context, userID string, in model.NewEvent) (model.Event, error) {
	ev := in.WithID(uuid.NewString(), userID)
	ev.Date = ev.Date.UTC()
	var desc sql.NullString
	if ev.Description != "" {
		desc = sql.NullString{String: ev.Description, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO events (id, user_id, title, starts_at, description, color) VALUES (?,?,?,?,?,?)",
		ev.ID, ev.UserID, ev.Title, ev.Date, desc, ev.Color)
	if err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// DeleteByIDAndUser removes one of the user's events.
func (r *EventRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM events WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}
