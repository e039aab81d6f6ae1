// Package cli is the operator terminal: cobra commands over the identity
// service and the accounting backend, with the wizards driven by prompts.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"atmricky/internal/accounting"
	"atmricky/internal/apiclient"
	"atmricky/internal/config"
	"atmricky/internal/eventbus"
	"atmricky/internal/identity"
	"atmricky/internal/notify"
	"atmricky/internal/session"
	"atmricky/internal/submission"
)

// App bundles the collaborators every command uses.
type App struct {
	Cfg        *config.Client
	API        *apiclient.Client
	Sessions   session.Store
	Users      *identity.UsersClient
	Resolver   *identity.Resolver
	Accounting *accounting.Client
	Bus        *eventbus.Bus
	// Bridge is nil when REDIS_URL is unset.
	Bridge    *eventbus.RedisBridge
	Submitter *submission.Handler

	Out    io.Writer
	prompt *Prompter
}

func NewApp(cfg *config.Client, api *apiclient.Client, sessions session.Store, bus *eventbus.Bus, notifier notify.Notifier, in io.Reader, out io.Writer) *App {
	users := identity.NewUsersClient(api, sessions)
	return &App{
		Cfg:        cfg,
		API:        api,
		Sessions:   sessions,
		Users:      users,
		Resolver:   identity.NewResolver(sessions, users),
		Accounting: accounting.New(api),
		Bus:        bus,
		Submitter:  submission.NewHandler(api, bus, notifier),
		Out:        out,
		prompt:     NewPrompter(in, out),
	}
}

func (a *App) printf(format string, args ...any) { fmt.Fprintf(a.Out, format, args...) }

// requireSession returns the logged-in operator.
func (a *App) requireSession() (*session.Session, error) {
	s, err := session.Current(a.Sessions)
	if errors.Is(err, session.ErrNoSession) {
		return nil, errors.New("no hay sesión activa: ejecuta 'atm login'")
	}
	return s, err
}

var errNotDev = errors.New("se requiere rol dev")

func (a *App) requireDev() (*session.Session, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	if !s.IsDev() {
		return nil, errNotDev
	}
	return s, nil
}

// requireServer pings the backend and offers manual retries while it is
// unreachable.
func (a *App) requireServer(ctx context.Context, cashout bool) error {
	timeout := a.Cfg.HealthTimeout()
	if cashout {
		timeout = a.Cfg.CashoutHealthTimeout()
	}
	if a.API.Ping(ctx, timeout) {
		return nil
	}
	for {
		a.printf("Servidor no disponible (%s).\n", a.API.BreakerState())
		retry, err := a.prompt.Confirm("¿Reintentar?")
		if err != nil || !retry {
			return apiclient.ErrServerUnreachable
		}
		if a.API.Retry(ctx, timeout) {
			return nil
		}
	}
}
