package model

import (
	"regexp"
	"time"
)

// DefaultColor is applied to events created without a color.
const DefaultColor = "#4f46e5"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// IsHexColor reports whether s is a #rrggbb color.
func IsHexColor(s string) bool { return hexColor.MatchString(s) }

// Event is a single dated calendar entry. It belongs either to one
// authenticated account (UserID set) or to the anonymous local
// namespace (UserID empty); the two populations are never mixed.
//
// Fields:
//  ID          – opaque identifier, unique within a collection.
//  Title       – non-empty title, validated by the form layer.
//  Date        – instant of the event (date and time of day).
//  Description – optional free text.
//  Color       – hex color such as #4f46e5.
//  UserID      – owning account for remote events.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
}

// NewEvent is the input of an add operation: an Event without id.
type NewEvent struct {
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
}

// WithID builds the stored Event, applying DefaultColor when the
// color is empty.
func (n NewEvent) WithID(id, userID string) Event {
	color := n.Color
	if color == "" {
		color = DefaultColor
	}
	return Event{
		ID:          id,
		Title:       n.Title,
		Date:        n.Date,
		Description: n.Description,
		Color:       color,
		UserID:      userID,
	}
}
