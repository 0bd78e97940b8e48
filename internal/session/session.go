// Package session holds the authentication state of one running
// client. A Session is created explicitly and handed to whatever needs
// it; there is no process-wide current user.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iliyamo/minimal-calendar/internal/model"
)

// State of a Session.
type State int

const (
	StateAnonymous State = iota
	StatePending
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Backend errors the Session distinguishes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("email already registered")
	ErrRateLimited        = errors.New("too many attempts, try again later")
)

// Backend is the session service a Session delegates to.
type Backend interface {
	SignIn(ctx context.Context, email, password string) (*model.Identity, error)
	SignUp(ctx context.Context, email, password string) (*model.Identity, error)
	SignOut(ctx context.Context) error
	// GetSession returns the persisted identity, or nil when there is none.
	GetSession(ctx context.Context) (*model.Identity, error)
}

// Level of a user-visible notice.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Notify(level Level, title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, title, message string)

func (f NotifierFunc) Notify(level Level, title, message string) { f(level, title, message) }

// RegisterResult tells the caller how a registration went.
type RegisterResult struct {
	Success           bool
	RateLimited       bool
	AlreadyRegistered bool
}

// Session is the authentication state machine:
// anonymous -> pending (restore) -> authenticated | anonymous.
type Session struct {
	backend Backend
	notify  Notifier
	log     zerolog.Logger

	mu        sync.RWMutex
	state     State
	user      *model.Identity
	listeners map[int]func(State, *model.Identity)
	nextID    int
}

// New returns an anonymous Session. notify may be nil.
func New(backend Backend, notify Notifier, log zerolog.Logger) *Session {
	if notify == nil {
		notify = NotifierFunc(func(Level, string, string) {})
	}
	return &Session{
		backend:   backend,
		notify:    notify,
		log:       log,
		listeners: make(map[int]func(State, *model.Identity)),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns a copy of the signed-in identity, or nil.
func (s *Session) User() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated is true iff a user is set.
func (s *Session) IsAuthenticated() bool {
	return s.User() != nil
}

// Subscribe registers fn for every state change. The returned func
// removes the subscription.
func (s *Session) Subscribe(fn func(State, *model.Identity)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) transition(state State, user *model.Identity) {
	s.mu.Lock()
	s.state = state
	s.user = user
	fns := make([]func(State, *model.Identity), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	s.log.Debug().Str("state", state.String()).Msg("session state changed")
	for _, fn := range fns {
		var u *model.Identity
		if user != nil {
			cp := *user
			u = &cp
		}
		fn(state, u)
	}
}

// Restore asks the backend for an existing session. It is meant to run
// once at start; on any failure the session ends up anonymous.
func (s *Session) Restore(ctx context.Context) {
	s.transition(StatePending, nil)
	user, err := s.backend.GetSession(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("session restore failed")
		s.transition(StateAnonymous, nil)
		return
	}
	if user == nil {
		s.transition(StateAnonymous, nil)
		return
	}
	s.transition(StateAuthenticated, user)
}

// Login signs in. It never returns an error: failures are logged and
// shown through the Notifier, and the session stays as it was.
func (s *Session) Login(ctx context.Context, email, password string) bool {
	user, err := s.backend.SignIn(ctx, email, password)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("login failed")
		if errors.Is(err, ErrInvalidCredentials) {
			s.notify.Notify(LevelError, "Falha no login", "Email ou senha incorretos")
		} else {
			s.notify.Notify(LevelError, "Falha no login", err.Error())
		}
		return false
	}
	s.transition(StateAuthenticated, user)
	s.notify.Notify(LevelInfo, "Login realizado", "Bem-vindo de volta")
	return true
}

// Register creates an account and signs it in on success. Rate
// limiting and duplicate emails are reported separately so the caller
// can give specific guidance.
func (s *Session) Register(ctx context.Context, email, password string) RegisterResult {
	user, err := s.backend.SignUp(ctx, email, password)
	switch {
	case err == nil:
		s.transition(StateAuthenticated, user)
		s.notify.Notify(LevelInfo, "Conta criada", "Cadastro realizado com sucesso")
		return RegisterResult{Success: true}
	case errors.Is(err, ErrRateLimited):
		s.log.Warn().Err(err).Msg("register rate limited")
		s.notify.Notify(LevelError, "Muitas tentativas", "Aguarde alguns minutos e tente novamente")
		return RegisterResult{RateLimited: true}
	case errors.Is(err, ErrAlreadyRegistered):
		s.notify.Notify(LevelError, "Falha no cadastro", "Este email já está cadastrado")
		return RegisterResult{AlreadyRegistered: true}
	default:
		s.log.Warn().Err(err).Str("email", email).Msg("register failed")
		s.notify.Notify(LevelError, "Falha no cadastro", err.Error())
		return RegisterResult{}
	}
}

// Logout clears the user and asks the backend to drop the remote
// session. The local state is cleared even if the backend call fails.
func (s *Session) Logout(ctx context.Context) {
	if err := s.backend.SignOut(ctx); err != nil {
		s.log.Warn().Err(err).Msg("backend sign out failed")
	}
	s.transition(StateAnonymous, nil)
	s.notify.Notify(LevelInfo, "Sessão encerrada", "Você saiu da sua conta")
}
