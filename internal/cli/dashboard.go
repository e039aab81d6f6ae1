package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"atmricky/internal/accounting"
	"atmricky/internal/dateformat"
	"atmricky/internal/eventbus"
	"atmricky/internal/money"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func dashboardCmd(app *App) *cobra.Command {
	var watch bool
	var limit int
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Saldos de caja, puntos de venta y últimos movimientos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := app.requireServer(ctx, false); err != nil {
				return err
			}
			if err := app.renderDashboard(ctx, limit); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return app.follow(ctx, "dashboard", func(ctx context.Context, evt eventbus.MutationOccurred) {
				app.printf("\n-- cambio en %s, actualizando --\n", evt.Source)
				if err := app.renderDashboard(ctx, limit); err != nil {
					app.printf("%v\n", err)
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refrescar al recibir cambios")
	cmd.Flags().IntVar(&limit, "limit", 10, "movimientos a mostrar")
	return cmd
}

func (a *App) renderDashboard(ctx context.Context, limit int) error {
	caja, err := a.Accounting.GetCaja(ctx)
	if err != nil {
		return err
	}
	a.printf("%-18s %s\n", accounting.CajaEfectivo.Name(), caja.SaldoCaja)
	a.printf("%-18s %s\n", accounting.CajaBanco.Name(), caja.SaldoCaja2)
	a.printf("%-18s %s\n", "En locales", money.FormatCLP(caja.TotalEnLocales()))
	a.printf("%-18s %s\n", "Vendido hoy", money.FormatCLP(caja.TotalVendido()))
	for _, p := range caja.PointsOfSale() {
		a.printf("  %-16s %-8s %s\n", p.Label, p.Estado, money.FormatCLP(p.Saldo))
	}

	txs, err := a.Accounting.ListTransactions(ctx, accounting.TxFilter{Limit: limit})
	if err != nil {
		return err
	}
	a.printf("\nÚltimos movimientos\n")
	now := time.Now()
	for _, t := range txs {
		ts := t.Time()
		when := dateformat.DateTimeAbbr(ts)
		switch {
		case dateformat.IsToday(ts, now):
			when = "Hoy " + dateformat.DateTime(ts)
		case dateformat.IsYesterday(ts, now):
			when = "Ayer " + dateformat.DateTime(ts)
		}
		sign := "+"
		if t.Tipo == accounting.Egreso {
			sign = "-"
		}
		a.printf("  #%-5d %-28s %s%-12s %-16s %s\n", t.ID, when, sign, t.Monto, t.CajaID.Name(), t.Descripcion)
	}
	return nil
}

func watchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Muestra las mutaciones anunciadas por otros terminales",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.follow(cmd.Context(), "watch", func(_ context.Context, evt eventbus.MutationOccurred) {
				app.printf("%s  %s\n", dateformat.DateTime(evt.At), evt.Source)
			})
		},
	}
}

// follow subscribes h to the bus, attaches the Redis listener when
// configured and blocks until interrupted.
func (a *App) follow(ctx context.Context, name string, h eventbus.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	unsubscribe := a.Bus.Subscribe(name, h)
	defer unsubscribe()

	if a.Bridge != nil {
		if err := a.Bridge.Listen(ctx, a.Bus); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("REDIS_URL no configurado: solo se verán cambios de este proceso")
	}
	<-ctx.Done()
	return nil
}
