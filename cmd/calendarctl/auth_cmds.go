package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/minimal-calendar/internal/calendar"
	"github.com/iliyamo/minimal-calendar/internal/model"
	"github.com/iliyamo/minimal-calendar/internal/session"
)

type credentialFlags struct {
	email    string
	password string
}

func (c *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "account email (prompted when empty)")
	cmd.Flags().StringVar(&c.password, "password", "", "password (prompted when empty)")
}

// fill prompts for whatever the flags left empty.
func (c *credentialFlags) fill(a *app) error {
	var err error
	if strings.TrimSpace(c.email) == "" {
		if c.email, err = a.readLine("Email: "); err != nil {
			return err
		}
	}
	if c.password == "" {
		if c.password, err = a.readSecret("Senha: "); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.email) == "" || c.password == "" {
		return errors.New("email e senha são obrigatórios")
	}
	return nil
}

// followSession loads the calendar of whoever signs in during this
// command and reports how many events it holds.
func (a *app) followSession(cmd *cobra.Command) (*calendar.Calendar, func()) {
	cal := calendar.New(nil, a.notify, a.log, a.cfg.Location())
	stop := cal.Follow(cmd.Context(), a.sess, a.pickStore)
	return cal, stop
}

func (a *app) greet(cal *calendar.Calendar, user *model.Identity) {
	name := user.Email
	if name == "" {
		name = user.ID
	}
	fmt.Fprintf(a.out, "Conectado como %s (%d eventos)\n", name, len(cal.All()))
}

func newLoginCmd(a *app) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.sess == nil {
				return errors.New("login não se aplica ao modo anônimo")
			}
			if err := creds.fill(a); err != nil {
				return err
			}
			cal, stop := a.followSession(cmd)
			defer stop()
			if !a.sess.Login(cmd.Context(), creds.email, creds.password) {
				return errors.New("login falhou")
			}
			a.greet(cal, a.sess.User())
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var (
		creds   credentialFlags
		confirm string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.sess == nil {
				return errors.New("cadastro não se aplica ao modo anônimo")
			}
			promptedPassword := creds.password == ""
			if err := creds.fill(a); err != nil {
				return err
			}
			if confirm == "" && promptedPassword {
				var err error
				if confirm, err = a.readSecret("Confirme a senha: "); err != nil {
					return err
				}
			}
			if confirm != "" && confirm != creds.password {
				a.notify.Notify(session.LevelError, "Erro no cadastro", "As senhas não coincidem")
				return errors.New("as senhas não coincidem")
			}

			cal, stop := a.followSession(cmd)
			defer stop()
			res := a.sess.Register(cmd.Context(), creds.email, creds.password)
			switch {
			case res.Success:
				a.greet(cal, a.sess.User())
				return nil
			case res.RateLimited:
				return errors.New("muitas tentativas de cadastro, tente mais tarde")
			case res.AlreadyRegistered:
				return errors.New("email já cadastrado, use `calendarctl login`")
			default:
				return errors.New("cadastro falhou")
			}
		},
	}
	creds.bind(cmd)
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (prompted with the password)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.sess == nil {
				return errors.New("logout não se aplica ao modo anônimo")
			}
			a.sess.Restore(cmd.Context())
			a.sess.Logout(cmd.Context())
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.anonymous {
				fmt.Fprintln(a.out, "anônimo")
				return nil
			}
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			u := a.sess.User()
			fmt.Fprintf(a.out, "%s\t%s\n", u.ID, u.Email)
			return nil
		},
	}
}
