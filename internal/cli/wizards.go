package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"atmricky/internal/accounting"
	"atmricky/internal/money"
	"atmricky/internal/submission"
	"atmricky/internal/wizard"

	"github.com/spf13/cobra"
)

// flow is what the prompt driver needs from a concrete wizard.
type flow struct {
	engine  *wizard.Engine
	collect map[int]func(ctx context.Context) error
	summary func() []wizard.SummaryLine
	submit  func(ctx context.Context) (submission.Outcome, error)
	// amountStep is where a conflict sends the operator back to.
	amountStep int
}

// drive runs f until it succeeds, is cancelled or input ends. "<" goes back
// one step; from the first step it cancels.
func (a *App) drive(ctx context.Context, f flow) error {
	e := f.engine
	defer e.Close()
	for {
		step := e.Current()
		a.printf("\n[%d/%d] %s\n", step, e.Len(), e.Title())

		if !e.OnFinalStep() {
			if c := f.collect[step]; c != nil {
				if err := c(ctx); err != nil {
					if errors.Is(err, errBack) {
						if e.Back() {
							return ErrCancelled
						}
						continue
					}
					if errors.Is(err, ErrCancelled) {
						return err
					}
					if errors.Is(err, errNoOptions) {
						// The options depend on an earlier step.
						a.printf("%v\n", err)
						if e.Back() {
							return err
						}
						continue
					}
					a.printf("%v\n", err)
					continue
				}
			}
			if err := e.Next(); err != nil {
				var se *wizard.StepError
				if errors.As(err, &se) {
					a.printf("%v\n", se.Reason)
				} else {
					a.printf("%v\n", err)
				}
			}
			continue
		}

		for _, l := range f.summary() {
			a.printf("  %-14s %s\n", l.Label+":", l.Value)
		}
		ok, err := a.prompt.Confirm("¿Confirmar?")
		if errors.Is(err, errBack) {
			e.Back()
			continue
		}
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}

		out, err := f.submit(ctx)
		if err != nil {
			return err
		}
		switch out.Kind {
		case submission.KindSuccess:
			return nil
		case submission.KindConflict:
			a.printf("%s\n", submission.ConflictDetail(out))
			if f.amountStep > 0 {
				fix, err := a.prompt.Confirm("¿Corregir el monto?")
				if err == nil && fix {
					if err := e.Rewind(f.amountStep); err != nil {
						return err
					}
					continue
				}
			}
			return out
		default:
			retry, err := a.prompt.Confirm("¿Reintentar?")
			if err != nil || !retry {
				return out
			}
		}
	}
}

func (a *App) askAmount(label string, set func(string) error) error {
	s, err := a.prompt.Ask(label)
	if err != nil {
		return err
	}
	return set(s)
}

func transaccionNuevaCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "nueva",
		Short: "Registra un ingreso o egreso",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := app.requireSession(); err != nil {
				return err
			}
			if err := app.requireServer(ctx, false); err != nil {
				return err
			}
			cats, err := app.Accounting.ListCategories(ctx)
			if err != nil {
				return err
			}
			f := wizard.NewTransactionFlow(cats, app.Accounting, app.Submitter, app.Resolver)
			return app.drive(ctx, flow{
				engine: f.Engine,
				collect: map[int]func(context.Context) error{
					1: func(context.Context) error {
						tipos := []accounting.Tipo{accounting.Ingreso, accounting.Egreso}
						i, err := app.prompt.Choose("Tipo", []string{"Ingreso", "Egreso"})
						if err != nil {
							return err
						}
						f.SetTipo(tipos[i])
						cajas := []accounting.CajaID{accounting.CajaEfectivo, accounting.CajaBanco}
						j, err := app.prompt.Choose("Caja", []string{cajas[0].Name(), cajas[1].Name()})
						if err != nil {
							return err
						}
						f.SetCaja(cajas[j])
						return nil
					},
					2: func(context.Context) error {
						list := f.Categories()
						if len(list) == 0 {
							return fmt.Errorf("No hay categorías para %s: %w", f.Draft.Tipo, errNoOptions)
						}
						names := make([]string, len(list))
						for i, c := range list {
							names[i] = c.Nombre
						}
						i, err := app.prompt.Choose("Categoría", names)
						if err != nil {
							return err
						}
						return f.SetCategoria(list[i].ID)
					},
					3: func(context.Context) error {
						d, err := app.prompt.AskDefault("Descripción", f.Draft.Descripcion)
						if err != nil {
							return err
						}
						f.SetDescripcion(d)
						return app.askAmount("Monto", f.SetMontoText)
					},
				},
				summary:    f.Summary,
				submit:     f.Submit,
				amountStep: 3,
			})
		},
	}
}

func cashoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cashout",
		Short: "Retira efectivo de un punto de venta",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := app.requireSession(); err != nil {
				return err
			}
			if err := app.requireServer(ctx, true); err != nil {
				return err
			}
			f := wizard.NewCashoutFlow(app.Submitter, app.Resolver)
			if err := f.Load(ctx, app.Accounting); err != nil {
				return err
			}
			return app.drive(ctx, flow{
				engine: f.Engine,
				collect: map[int]func(context.Context) error{
					1: func(context.Context) error {
						i, err := app.prompt.Choose("Tipo de retiro", []string{"Retiro de caja", "Cashout"})
						if err != nil {
							return err
						}
						f.SetRetiroTipo([]string{wizard.RetiroCaja, wizard.RetiroCashout}[i])
						return nil
					},
					2: func(context.Context) error {
						points := f.Points()
						if len(points) == 0 {
							return fmt.Errorf("No hay puntos de venta disponibles: %w", errNoOptions)
						}
						labels := make([]string, len(points))
						for i, p := range points {
							labels[i] = fmt.Sprintf("%s (%s, %s)", p.Label, p.Estado, money.FormatCLP(p.Saldo))
						}
						i, err := app.prompt.Choose("Punto de venta", labels)
						if err != nil {
							return err
						}
						return f.SelectPOS(points[i].Label)
					},
					3: func(context.Context) error {
						if err := app.askAmount("Monto", f.SetAmountText); err != nil {
							return err
						}
						if w := f.AmountWarning(); w != "" {
							app.printf("Aviso: %s\n", w)
						}
						return nil
					},
					4: func(context.Context) error {
						r, err := app.prompt.AskDefault("Motivo", "RETIRO")
						if err != nil {
							return err
						}
						f.SetReason(r)
						return nil
					},
				},
				summary:    f.Summary,
				submit:     f.Submit,
				amountStep: 3,
			})
		},
	}
}

func retiroCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "retiro",
		Short: "Retira efectivo desde la cuenta bancaria",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := app.requireSession(); err != nil {
				return err
			}
			if err := app.requireServer(ctx, false); err != nil {
				return err
			}
			f := wizard.NewBankWithdrawalFlow(app.Accounting, app.Submitter, app.Resolver)
			return app.drive(ctx, flow{
				engine: f.Engine,
				collect: map[int]func(context.Context) error{
					1: func(ctx context.Context) error {
						if err := app.askAmount("Monto", f.SetMontoText); err != nil {
							return err
						}
						if w := f.BalanceWarning(ctx); w != "" {
							app.printf("Aviso: %s\n", w)
						}
						return nil
					},
				},
				summary:    f.Summary,
				submit:     f.Submit,
				amountStep: 1,
			})
		},
	}
}

func abonoCmd(app *App) *cobra.Command {
	var clienteID int64
	cmd := &cobra.Command{
		Use:   "abono",
		Short: "Registra un abono a las facturas de un cliente",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := app.requireSession(); err != nil {
				return err
			}
			if err := app.requireServer(ctx, false); err != nil {
				return err
			}
			f, err := wizard.LoadAbonoFlow(ctx, clienteID, app.Accounting, app.Accounting, app.Submitter)
			if err != nil {
				return err
			}
			if len(f.Allocator.Invoices()) == 0 {
				return errors.New("el cliente no tiene facturas con saldo pendiente")
			}
			return app.drive(ctx, flow{
				engine: f.Engine,
				collect: map[int]func(context.Context) error{
					1: func(context.Context) error {
						metodos := []string{wizard.MetodoEfectivo, wizard.MetodoTransferencia}
						i, err := app.prompt.Choose("Método de pago", metodos)
						if err != nil {
							return err
						}
						f.SetMetodo(metodos[i])
						if err := app.askAmount("Monto total", f.SetMontoTotalText); err != nil {
							return err
						}
						ref, err := app.prompt.AskDefault("Referencia (opcional)", f.Draft.Referencia)
						if err != nil {
							return err
						}
						f.SetReferencia(ref)
						return nil
					},
					2: func(ctx context.Context) error {
						path, err := app.prompt.Ask("Ruta de la imagen de soporte")
						if err != nil {
							return err
						}
						file, err := os.Open(path)
						if err != nil {
							return fmt.Errorf("no se pudo abrir %s: %w", path, err)
						}
						defer file.Close()
						if err := f.Upload(ctx, path, file); err != nil {
							return err
						}
						app.printf("Soporte subido: %s\n", f.Draft.Soporte.Path)
						return nil
					},
					3: func(context.Context) error {
						return app.collectDistribution(f.Allocator)
					},
				},
				summary:    f.Summary,
				submit:     f.Submit,
				amountStep: 1,
			})
		},
	}
	cmd.Flags().Int64Var(&clienteID, "cliente", 0, "id del cliente")
	_ = cmd.MarkFlagRequired("cliente")
	return cmd
}

func (a *App) collectDistribution(al *wizard.Allocator) error {
	invoices := al.Invoices()
	labels := make([]string, len(invoices))
	for i, inv := range invoices {
		labels[i] = fmt.Sprintf("%s pendiente %s", firstNonEmpty(inv.OP, "#"+strconv.FormatInt(inv.ID, 10)), money.FormatCOP(inv.ValorPendiente.Int64()))
	}
	mode, err := a.prompt.Choose("Distribución", []string{"Una factura", "Varias facturas"})
	if err != nil {
		return err
	}
	if mode == 0 {
		al.SetMode(wizard.Single)
		i, err := a.prompt.Choose("Factura", labels)
		if err != nil {
			return err
		}
		return al.Select(invoices[i].ID)
	}

	al.SetMode(wizard.Multi)
	for i, inv := range invoices {
		a.printf("Falta por asignar: %s\n", money.FormatCOP(al.Difference()))
		s, err := a.prompt.AskDefault(labels[i], "0")
		if err != nil {
			return err
		}
		n, err := money.ParseAmount(s)
		if err != nil {
			return err
		}
		if err := al.Set(inv.ID, n); err != nil {
			return err
		}
	}
	a.printf("Diferencia: %s\n", money.FormatCOP(al.Difference()))
	return nil
}
