package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/minimal-calendar/internal/config"
	"github.com/iliyamo/minimal-calendar/internal/middleware"
	"github.com/iliyamo/minimal-calendar/internal/model"
	"github.com/iliyamo/minimal-calendar/internal/queue"
	"github.com/iliyamo/minimal-calendar/internal/repository"
	"github.com/iliyamo/minimal-calendar/internal/utils"
)

const testSecret = "0123456789abcdef-test"

// ----- fakes -----

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]model.User
	count int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, email, password string, cost int) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	f.count++
	u := model.User{ID: "u" + string(rune('0'+f.count)), Email: email, PasswordHash: hash, IsActive: true}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

type fakeTokens struct {
	mu     sync.Mutex
	owner  map[string]string
	revoke map[string]bool
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{owner: map[string]string{}, revoke: map[string]bool{}}
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.owner[hash]
	if !ok || f.revoke[hash] {
		return "", repository.ErrTokenInvalid
	}
	return uid, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoke[hash] = true
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, uid := range f.owner {
		if uid == userID {
			f.revoke[h] = true
		}
	}
	return nil
}

type fakeEvents struct {
	mu    sync.Mutex
	items []model.Event
	next  int
}

func (f *fakeEvents) ListByUser(_ context.Context, userID string) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Event
	for _, e := range f.items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEvents) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]model.Event, error) {
	all, _ := f.ListByUser(ctx, userID)
	var out []model.Event
	for _, e := range all {
		if !e.Date.Before(from) && e.Date.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEvents) Create(_ context.Context, userID string, in model.NewEvent) (model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	ev := in.WithID("ev"+string(rune('0'+f.next)), userID)
	f.items = append(f.items, ev)
	return ev, nil
}

func (f *fakeEvents) DeleteByIDAndUser(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.items {
		if e.ID == id && e.UserID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrEventNotFound
}

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []string
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, ev.Kind)
	return nil
}

type recordingCache struct{ users []string }

func (r *recordingCache) Invalidate(_ context.Context, userID string) { r.users = append(r.users, userID) }

// ----- harness -----

type harness struct {
	e      *echo.Echo
	users  *fakeUsers
	tokens *fakeTokens
	events *fakeEvents
	pub    *recordingPublisher
	cache  *recordingCache
}

func newHarness() *harness {
	h := &harness{
		e:      echo.New(),
		users:  newFakeUsers(),
		tokens: newFakeTokens(),
		events: &fakeEvents{},
		pub:    &recordingPublisher{},
		cache:  &recordingCache{},
	}
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 30, BcryptCost: 4}
	auth := NewAuthHandler(cfg, h.users, h.tokens, h.pub, zerolog.Nop())
	events := NewEventHandler(h.events, h.cache, h.pub, zerolog.Nop())

	g := h.e.Group("/v1/auth")
	g.POST("/register", auth.Register)
	g.POST("/login", auth.Login)
	g.POST("/refresh", auth.Refresh)
	g.POST("/logout", auth.Logout, middleware.OptionalJWT(testSecret))
	g.GET("/session", auth.Session, middleware.JWTAuth(testSecret))

	ev := h.e.Group("/v1/events", middleware.JWTAuth(testSecret))
	ev.GET("", events.List)
	ev.POST("", events.Create)
	ev.GET("/export.ics", events.ExportICS)
	ev.DELETE("/:id", events.Delete)
	return h
}

func (h *harness) do(method, path, bearer, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *harness) register(t *testing.T, email, password string) authResp {
	t.Helper()
	rec := h.do(http.MethodPost, "/v1/auth/register", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ----- auth -----

func TestRegister(t *testing.T) {
	h := newHarness()
	out := h.register(t, " Ana@Example.com ", "secret1")

	assert.Equal(t, "ana@example.com", out.User.Email)
	assert.NotEmpty(t, out.Access.Token)
	assert.NotEmpty(t, out.Refresh.Token)
	assert.True(t, out.Refresh.Expires.After(out.Access.Expires))
	assert.Equal(t, []string{queue.KindUserRegistered}, h.pub.kinds)

	rec := h.do(http.MethodPost, "/v1/auth/register", "", `{"email":"ana@example.com","password":"other12"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_Invalid(t *testing.T) {
	h := newHarness()
	for _, body := range []string{
		`{"email":"","password":"secret1"}`,
		`{"email":"nope","password":"secret1"}`,
		`{"email":"a@b.c","password":"123"}`,
	} {
		rec := h.do(http.MethodPost, "/v1/auth/register", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestRegister_PasswordTooLong(t *testing.T) {
	h := newHarness()
	long := strings.Repeat("a", utils.MaxPasswordBytes+8)
	rec := h.do(http.MethodPost, "/v1/auth/register", "", `{"email":"ana@example.com","password":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "password too long")

	edge := strings.Repeat("a", utils.MaxPasswordBytes)
	rec = h.do(http.MethodPost, "/v1/auth/register", "", `{"email":"ana@example.com","password":"`+edge+`"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestLogin(t *testing.T) {
	h := newHarness()
	h.register(t, "ana@example.com", "secret1")

	rec := h.do(http.MethodPost, "/v1/auth/login", "", `{"email":"ANA@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/v1/auth/login", "", `{"email":"ana@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")

	rec = h.do(http.MethodPost, "/v1/auth/login", "", `{"email":"bob@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_Rotates(t *testing.T) {
	h := newHarness()
	first := h.register(t, "ana@example.com", "secret1")

	rec := h.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+first.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var second authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.NotEqual(t, first.Refresh.Token, second.Refresh.Token)

	// the old token was revoked by the rotation
	rec = h.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+first.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSession(t *testing.T) {
	h := newHarness()
	out := h.register(t, "ana@example.com", "secret1")

	rec := h.do(http.MethodGet, "/v1/auth/session", out.Access.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		User model.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, out.User, body.User)

	rec = h.do(http.MethodGet, "/v1/auth/session", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	h := newHarness()
	out := h.register(t, "ana@example.com", "secret1")

	rec := h.do(http.MethodPost, "/v1/auth/logout", out.Access.Token, `{"refresh_token":"`+out.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, h.pub.kinds, queue.KindUserLoggedOut)

	rec = h.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+out.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/v1/auth/logout", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout_BearerOnlyRevokesAll(t *testing.T) {
	h := newHarness()
	out := h.register(t, "ana@example.com", "secret1")

	rec := h.do(http.MethodPost, "/v1/auth/logout", out.Access.Token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+out.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ----- events -----

func TestEvents_CreateListDelete(t *testing.T) {
	h := newHarness()
	ana := h.register(t, "ana@example.com", "secret1")
	bob := h.register(t, "bob@example.com", "secret1")

	rec := h.do(http.MethodPost, "/v1/events", ana.Access.Token,
		`{"title":"  Reunião ","date":"2024-05-10T14:30:00Z","description":"sala 2"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Reunião", created.Title)
	assert.Equal(t, model.DefaultColor, created.Color)
	assert.Equal(t, ana.User.ID, created.UserID)
	assert.Equal(t, []string{ana.User.ID}, h.cache.users)

	rec = h.do(http.MethodGet, "/v1/events", ana.Access.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list eventsResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.True(t, created.Date.Equal(list.Items[0].Date))

	// another user sees nothing and cannot delete
	rec = h.do(http.MethodGet, "/v1/events", bob.Access.Token, "")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
	rec = h.do(http.MethodDelete, "/v1/events/"+created.ID, bob.Access.Token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodDelete, "/v1/events/"+created.ID, ana.Access.Token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodDelete, "/v1/events/"+created.ID, ana.Access.Token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Contains(t, h.pub.kinds, queue.KindEventCreated)
	assert.Contains(t, h.pub.kinds, queue.KindEventDeleted)
}

func TestEvents_CreateValidation(t *testing.T) {
	h := newHarness()
	ana := h.register(t, "ana@example.com", "secret1")
	for _, body := range []string{
		`{"title":"  ","date":"2024-05-10T14:30:00Z"}`,
		`{"title":"x"}`,
		`{"title":"x","date":"2024-05-10T14:30:00Z","color":"red"}`,
		`not json`,
	} {
		rec := h.do(http.MethodPost, "/v1/events", ana.Access.Token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, h.events.items)
}

func TestEvents_ListByDay(t *testing.T) {
	h := newHarness()
	ana := h.register(t, "ana@example.com", "secret1")
	for _, d := range []string{"2024-05-10T01:00:00Z", "2024-05-10T23:00:00Z", "2024-05-11T12:00:00Z"} {
		rec := h.do(http.MethodPost, "/v1/events", ana.Access.Token, `{"title":"e","date":"`+d+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	count := func(q string) int {
		rec := h.do(http.MethodGet, "/v1/events?"+q, ana.Access.Token, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var list eventsResp
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		return len(list.Items)
	}
	assert.Equal(t, 2, count("day=2024-05-10"))
	// in São Paulo (UTC-3) the 01:00Z event falls on the 9th
	assert.Equal(t, 1, count("day=2024-05-10&tz=America/Sao_Paulo"))

	rec := h.do(http.MethodGet, "/v1/events?day=10/05/2024", ana.Access.Token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodGet, "/v1/events?day=2024-05-10&tz=Nowhere/City", ana.Access.Token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvents_RequireToken(t *testing.T) {
	h := newHarness()
	rec := h.do(http.MethodGet, "/v1/events", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEvents_ExportICS(t *testing.T) {
	h := newHarness()
	ana := h.register(t, "ana@example.com", "secret1")
	rec := h.do(http.MethodPost, "/v1/events", ana.Access.Token, `{"title":"Dentista","date":"2024-05-10T14:30:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodGet, "/v1/events/export.ics", ana.Access.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/calendar")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Dentista")
}

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health(nil))
	e.GET("/down", Health(downDB{}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return sql.ErrConnDone }
