package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/minimal-calendar/internal/calendar"
	"github.com/iliyamo/minimal-calendar/internal/client"
	"github.com/iliyamo/minimal-calendar/internal/config"
	"github.com/iliyamo/minimal-calendar/internal/datefmt"
	"github.com/iliyamo/minimal-calendar/internal/eventstore"
	"github.com/iliyamo/minimal-calendar/internal/kv"
	"github.com/iliyamo/minimal-calendar/internal/logger"
	"github.com/iliyamo/minimal-calendar/internal/model"
	"github.com/iliyamo/minimal-calendar/internal/session"
)

var errNotSignedIn = errors.New("nenhuma sessão ativa: use `calendarctl login` ou --anonymous")

// app is the state of one calendarctl run, built by setup before any
// command body runs.
type app struct {
	cfg       *config.ClientConfig
	log       zerolog.Logger
	out       io.Writer
	errOut    io.Writer
	in        io.Reader
	lr        *bufio.Reader
	anonymous bool
	locale    datefmt.Locale

	kv     kv.Store
	closer func() error
	api    *client.Client
	remote *session.RemoteBackend
	sess   *session.Session
	notify session.Notifier
}

func defaultConfigHint() string { return config.DefaultClientConfigPath() }

func (a *app) setup(cmd *cobra.Command, f rootFlags) error {
	a.out, a.errOut, a.in = cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin()

	path := f.configPath
	if path == "" {
		path = config.DefaultClientConfigPath()
	}
	cfg, err := config.LoadClient(path)
	if cfg == nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	a.cfg = cfg

	level := logger.ParseLevel(cfg.LogLevel)
	if f.verbose {
		level = zerolog.DebugLevel
	}
	a.log = logger.NewConsole("calendarctl", a.errOut).Level(level)
	if err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("could not write default config")
	}

	if f.ephemeral {
		cfg.Store = "memory"
	}
	if f.localAuth {
		cfg.Auth = "local"
	}
	a.anonymous = f.anonymous
	a.locale = datefmt.Lookup(cfg.Locale)
	a.notify = session.NotifierFunc(a.printNotice)

	if err := a.openKV(); err != nil {
		return err
	}

	if a.anonymous {
		return nil
	}
	var backend session.Backend
	if cfg.Auth == "local" {
		backend = session.NewLocalBackend(a.kv)
	} else {
		a.api = client.New(cfg.ServerURL, cfg.Timeout)
		a.remote = session.NewRemoteBackend(a.api, a.kv)
		backend = a.remote
	}
	a.sess = session.New(backend, a.notify, a.log)
	return nil
}

func (a *app) openKV() error {
	switch a.cfg.Store {
	case "memory":
		a.kv = kv.NewMemoryStore()
	case "redis":
		rdb := config.NewRedisClient(config.RedisConfig{Addr: a.cfg.RedisAddr, Password: a.cfg.RedisPassword})
		if rdb == nil {
			return fmt.Errorf("redis %s unreachable", a.cfg.RedisAddr)
		}
		a.kv = kv.NewRedisStore(rdb, a.cfg.RedisPrefix)
		a.closer = rdb.Close
	default:
		s, err := kv.OpenSQLite(a.cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open %s: %w", a.cfg.SQLitePath, err)
		}
		a.kv = s
		a.closer = s.Close
	}
	a.log.Debug().Str("store", a.cfg.Store).Str("auth", a.cfg.Auth).Msg("state opened")
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		if err := a.closer(); err != nil {
			a.log.Warn().Err(err).Msg("close state")
		}
		a.closer = nil
	}
}

func (a *app) printNotice(level session.Level, title, message string) {
	if level == session.LevelError {
		fmt.Fprintf(a.errOut, "✗ %s: %s\n", title, message)
		return
	}
	fmt.Fprintf(a.errOut, "✓ %s: %s\n", title, message)
}

// pickStore maps a settled session to the store serving it.
func (a *app) pickStore(state session.State, user *model.Identity) (eventstore.Store, error) {
	if state != session.StateAuthenticated || user == nil {
		return nil, errNotSignedIn
	}
	if a.remote != nil {
		return eventstore.Select(eventstore.ModeRemote, eventstore.Options{API: a.api, Token: a.remote.AccessToken})
	}
	return eventstore.Select(eventstore.ModeLocalAccount, eventstore.Options{KV: a.kv, Owner: user.ID, Logger: a.log})
}

// requireSession restores the session and fails when nobody is
// signed in.
func (a *app) requireSession(ctx context.Context) error {
	if a.sess == nil {
		return errors.New("comando indisponível no modo anônimo")
	}
	a.sess.Restore(ctx)
	if !a.sess.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

// store returns the event store of this run: the anonymous namespace,
// or the one of the restored session.
func (a *app) store(ctx context.Context) (eventstore.Store, error) {
	if a.anonymous {
		return eventstore.Select(eventstore.ModeAnonymous, eventstore.Options{KV: a.kv, Logger: a.log})
	}
	if err := a.requireSession(ctx); err != nil {
		return nil, err
	}
	return a.pickStore(a.sess.State(), a.sess.User())
}

// openCalendar builds the calendar and loads its events.
func (a *app) openCalendar(ctx context.Context) (*calendar.Calendar, error) {
	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	cal := calendar.New(store, a.notify, a.log, a.cfg.Location())
	if err := cal.Load(ctx); err != nil {
		return nil, err
	}
	return cal, nil
}
