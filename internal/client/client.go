// Package client talks to calendar-server over HTTP. It is the network
// side of the remote EventStore and of the remote session backend.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/iliyamo/minimal-calendar/internal/model"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status     int
	Message    string
	RetryAfter int // seconds, set on 429
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar api: %d %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// AuthResult is what register, login and refresh return.
type AuthResult struct {
	User   model.Identity
	Tokens model.Tokens
}

// Client wraps a resty client bound to the server base URL.
type Client struct {
	http *resty.Client
}

// New returns a Client for baseURL (e.g. http://localhost:8080).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: r}
}

// ----- wire types -----

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.Identity `json:"user"`
	Access  tokenPart      `json:"access"`
	Refresh tokenPart      `json:"refresh"`
}

func (a authResp) result() AuthResult {
	return AuthResult{
		User: a.User,
		Tokens: model.Tokens{
			Access:         a.Access.Token,
			AccessExpires:  a.Access.Expires,
			Refresh:        a.Refresh.Token,
			RefreshExpires: a.Refresh.Expires,
		},
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResp struct {
	User model.Identity `json:"user"`
}

type eventsResp struct {
	Items []model.Event `json:"items"`
}

func (c *Client) req(ctx context.Context, access string) *resty.Request {
	r := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if access != "" {
		r.SetAuthToken(access)
	}
	return r
}

func toAPIError(resp *resty.Response) error {
	e := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		e.Message = body.Error
		if body.Message != "" {
			e.Message = body.Message
		}
		e.RetryAfter = body.RetryAfter
	}
	if e.Message == "" {
		e.Message = http.StatusText(e.Status)
	}
	return e
}

// ----- session service -----

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, email, password string) (AuthResult, error) {
	return c.authCall(ctx, "/v1/auth/register", credentials{Email: email, Password: password})
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	return c.authCall(ctx, "/v1/auth/login", credentials{Email: email, Password: password})
}

// Refresh rotates the refresh token and returns a new pair.
func (c *Client) Refresh(ctx context.Context, refresh string) (AuthResult, error) {
	return c.authCall(ctx, "/v1/auth/refresh", refreshReq{RefreshToken: refresh})
}

func (c *Client) authCall(ctx context.Context, path string, body any) (AuthResult, error) {
	var out authResp
	resp, err := c.req(ctx, "").SetBody(body).SetResult(&out).Post(path)
	if err != nil {
		return AuthResult{}, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.IsError() {
		return AuthResult{}, toAPIError(resp)
	}
	return out.result(), nil
}

// Logout revokes the refresh token on the server.
func (c *Client) Logout(ctx context.Context, access, refresh string) error {
	resp, err := c.req(ctx, access).SetBody(refreshReq{RefreshToken: refresh}).Post("/v1/auth/logout")
	if err != nil {
		return fmt.Errorf("post logout: %w", err)
	}
	if resp.IsError() {
		return toAPIError(resp)
	}
	return nil
}

// Session returns the identity behind an access token.
func (c *Client) Session(ctx context.Context, access string) (model.Identity, error) {
	var out sessionResp
	resp, err := c.req(ctx, access).SetResult(&out).Get("/v1/auth/session")
	if err != nil {
		return model.Identity{}, fmt.Errorf("get session: %w", err)
	}
	if resp.IsError() {
		return model.Identity{}, toAPIError(resp)
	}
	return out.User, nil
}

// ----- row store -----

// ListEvents returns every event of the token's user.
func (c *Client) ListEvents(ctx context.Context, access string) ([]model.Event, error) {
	var out eventsResp
	resp, err := c.req(ctx, access).SetResult(&out).Get("/v1/events")
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if resp.IsError() {
		return nil, toAPIError(resp)
	}
	if out.Items == nil {
		out.Items = []model.Event{}
	}
	return out.Items, nil
}

// CreateEvent inserts one event and returns it with its server id.
func (c *Client) CreateEvent(ctx context.Context, access string, ev model.NewEvent) (model.Event, error) {
	var out model.Event
	resp, err := c.req(ctx, access).SetBody(ev).SetResult(&out).Post("/v1/events")
	if err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	if resp.IsError() {
		return model.Event{}, toAPIError(resp)
	}
	return out, nil
}

// DeleteEvent removes one event by id.
func (c *Client) DeleteEvent(ctx context.Context, access, id string) error {
	resp, err := c.req(ctx, access).SetPathParam("id", id).Delete("/v1/events/{id}")
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if resp.IsError() {
		return toAPIError(resp)
	}
	return nil
}

// ExportICS downloads the user's events as an iCalendar document.
func (c *Client) ExportICS(ctx context.Context, access string) ([]byte, error) {
	resp, err := c.req(ctx, access).SetHeader("Accept", "text/calendar").Get("/v1/events/export.ics")
	if err != nil {
		return nil, fmt.Errorf("export events: %w", err)
	}
	if resp.IsError() {
		return nil, toAPIError(resp)
	}
	return resp.Body(), nil
}
