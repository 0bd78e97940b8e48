package handler

import (
	"context"
	"time"

	"github.com/iliyamo/minimal-calendar/internal/model"
	"github.com/iliyamo/minimal-calendar/internal/queue"
)

// UserStore is the part of repository.UserRepo the handlers use.
type UserStore interface {
	Create(ctx context.Context, email, password string, cost int) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

// TokenStore is the part of repository.TokenRepo the handlers use.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// EventStore is the part of repository.EventRepo the handlers use.
type EventStore interface {
	ListByUser(ctx context.Context, userID string) ([]model.Event, error)
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Event, error)
	Create(ctx context.Context, userID string, in model.NewEvent) (model.Event, error)
	DeleteByIDAndUser(ctx context.Context, id, userID string) error
}

// ChangePublisher receives change notifications; *queue.Publisher
// satisfies it.
type ChangePublisher interface {
	Publish(ctx context.Context, ev queue.ChangeEvent) error
}

// CacheInvalidator drops cached reads of a user after a write;
// *middleware.UserCache satisfies it.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.ChangeEvent) error { return nil }

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, string) {}
