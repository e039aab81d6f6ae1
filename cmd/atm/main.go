package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"atmricky/internal/apiclient"
	"atmricky/internal/cli"
	"atmricky/internal/config"
	"atmricky/internal/eventbus"
	"atmricky/internal/infra"
	"atmricky/internal/notify"
	"atmricky/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	ctx, cancel := context.WithCancel(context.Background())

	// The command tree is built before flags are parsed; the app behind it is
	// assembled once --origin and --session-file are known.
	app := &cli.App{Out: os.Stdout}
	root := cli.NewRootCommand(app)

	var verbose bool
	var rdb *redis.Client
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log detallado")
	root.PersistentFlags().StringVar(&cfg.Origin, "origin", cfg.Origin, "origen del servicio de usuarios")
	root.PersistentFlags().StringVar(&cfg.SessionFile, "session-file", cfg.SessionFile, "archivo de sesión")

	cobra.OnInitialize(func() {
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		rdb = assemble(ctx, cfg, app)
	})

	err = root.ExecuteContext(ctx)
	if rdb != nil {
		_ = rdb.Close()
	}
	cancel()

	if err != nil {
		if errors.Is(err, cli.ErrCancelled) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// assemble wires the session store, the API client and the event bus into app.
// The returned redis client is nil when REDIS_URL is unset or unreachable.
func assemble(ctx context.Context, cfg *config.Client, app *cli.App) *redis.Client {
	store, err := session.NewFileStore(cfg.SessionFile)
	if err != nil {
		log.Fatal().Err(err).Msg("session store")
	}
	if err := store.Init(); err != nil {
		log.Fatal().Err(err).Str("path", cfg.SessionFile).Msg("session store")
	}

	api := apiclient.New(apiclient.Options{
		Origin:    cfg.Origin,
		ConfigURL: cfg.ConfigURL,
		Retry: apiclient.RetryPolicy{
			MaxAttempts:      cfg.RetryMaxAttempts,
			FallbackToOrigin: cfg.RetrySameOrigin,
		},
	})

	bus := eventbus.New()
	notifier := notify.Multi{notify.NewWriterNotifier(os.Stdout), notify.LogNotifier{}}
	*app = *cli.NewApp(cfg, api, store, bus, notifier, os.Stdin, os.Stdout)

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, refresh events stay in-process")
		return nil
	}
	if rdb != nil {
		bridge := eventbus.NewRedisBridge(rdb, eventbus.DefaultChannel)
		bus.SetForwarder(bridge)
		app.Bridge = bridge
	}
	return rdb
}
