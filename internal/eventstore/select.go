package eventstore

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/iliyamo/minimal-calendar/internal/client"
	"github.com/iliyamo/minimal-calendar/internal/kv"
)

// Mode names the persistence a run uses. It is chosen once when the
// session starts and does not change afterwards.
type Mode int

const (
	ModeAnonymous Mode = iota
	ModeRemote
	ModeLocalAccount
)

func (m Mode) String() string {
	switch m {
	case ModeRemote:
		return "remote"
	case ModeLocalAccount:
		return "local-account"
	default:
		return "anonymous"
	}
}

// Options carries what the variants need. Only the fields of the
// chosen mode are read.
type Options struct {
	KV     kv.Store
	API    *client.Client
	Token  TokenSource
	Owner  string
	Logger zerolog.Logger
}

// Select builds the Store for mode.
func Select(mode Mode, opts Options) (Store, error) {
	switch mode {
	case ModeRemote:
		if opts.API == nil || opts.Token == nil {
			return nil, errors.New("remote store needs an api client and a token source")
		}
		return NewRemoteStore(opts.API, opts.Token), nil
	case ModeLocalAccount:
		if opts.KV == nil || opts.Owner == "" {
			return nil, errors.New("local account store needs a kv store and an owner")
		}
		return NewOwnedLocalStore(opts.KV, opts.Owner, opts.Logger), nil
	default:
		if opts.KV == nil {
			return nil, errors.New("anonymous store needs a kv store")
		}
		return NewAnonymousStore(opts.KV, opts.Logger), nil
	}
}
