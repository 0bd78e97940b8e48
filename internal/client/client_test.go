package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/minimal-calendar/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginAndListEvents(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	date := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])
		writeJSON(w, http.StatusOK, map[string]any{
			"user":    map[string]string{"id": "u-1", "email": "ana@example.com"},
			"access":  map[string]any{"token": "acc", "expires": exp},
			"refresh": map[string]any{"token": "ref", "expires": exp},
		})
	})
	mux.HandleFunc("/v1/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer acc", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"items": []model.Event{
			{ID: "e1", Title: "Standup", Date: date, Color: "#4f46e5", UserID: "u-1"},
		}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, time.Second)
	res, err := c.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", res.User.ID)
	assert.Equal(t, "acc", res.Tokens.Access)
	assert.Equal(t, "ref", res.Tokens.Refresh)
	assert.True(t, exp.Equal(res.Tokens.RefreshExpires))

	events, err := c.ListEvents(context.Background(), res.Tokens.Access)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Title)
	assert.True(t, date.Equal(events[0].Date))
}

func TestRegister_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": "too_many_requests", "message": "rate limit exceeded", "retry_after": 30,
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Register(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, 30, apiErr.RetryAfter)
	assert.Equal(t, "rate limit exceeded", apiErr.Message)
	assert.Equal(t, http.StatusTooManyRequests, StatusOf(err))
}

func TestDeleteEvent_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/events/nope", r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).DeleteEvent(context.Background(), "acc", "nope")
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.EqualError(t, err, "calendar api: 404 event not found")
}

func TestCreateEvent_SendsRFC3339Date(t *testing.T) {
	date := time.Date(2024, 5, 1, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-05-01T09:00:00-03:00", body["date"])
		writeJSON(w, http.StatusCreated, model.Event{ID: "srv-1", Title: body["title"], Date: date, Color: body["color"]})
	}))
	defer srv.Close()

	got, err := New(srv.URL, time.Second).CreateEvent(context.Background(), "acc",
		model.NewEvent{Title: "Standup", Date: date, Color: "#4f46e5"})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", got.ID)
}

func TestStatusOf_NonAPIError(t *testing.T) {
	assert.Equal(t, 0, StatusOf(assert.AnError))
	assert.Equal(t, 0, StatusOf(nil))
}
