package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"atmricky/internal/accounting"
	"atmricky/internal/dateformat"
	"atmricky/internal/money"

	"github.com/spf13/cobra"
)

func transaccionesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transacciones",
		Aliases: []string{"tx", "movimientos"},
		Short:   "Movimientos de caja",
	}
	cmd.AddCommand(transaccionListCmd(app), transaccionNuevaCmd(app), transaccionEditarCmd(app), transaccionEliminarCmd(app))
	return cmd
}

func transaccionListCmd(app *App) *cobra.Command {
	var f accounting.TxFilter
	var tipo string
	var caja int64
	cmd := &cobra.Command{
		Use:   "listar",
		Short: "Lista movimientos, más recientes primero",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.Tipo = accounting.Tipo(tipo)
			f.CajaID = accounting.CajaID(caja)
			txs, err := app.Accounting.ListTransactions(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				app.printf("Sin movimientos\n")
				return nil
			}
			for _, t := range txs {
				app.printf("#%-5d %-22s %-7s %12s  %-16s %-20s %s\n",
					t.ID, dateformat.DateTimeAbbr(t.Time()), t.Tipo, t.Monto, t.CajaID.Name(), t.Usuario, t.Descripcion)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.From, "desde", "", "fecha inicial YYYY-MM-DD")
	fl.StringVar(&f.To, "hasta", "", "fecha final YYYY-MM-DD")
	fl.IntVar(&f.Limit, "limit", 50, "máximo de filas")
	fl.StringVar(&tipo, "tipo", "", "INGRESO o EGRESO")
	fl.StringVar(&f.Descripcion, "descripcion", "", "texto en la descripción")
	fl.StringVar(&f.Usuario, "usuario", "", "operador")
	fl.Int64Var(&f.CategoriaID, "categoria", 0, "id de categoría")
	fl.Int64Var(&caja, "caja", 0, "1 efectivo, 2 cuenta bancaria")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id inválido: %q", s)
	}
	return id, nil
}

func (a *App) findTransaction(cmd *cobra.Command, id int64) (accounting.Transaction, error) {
	txs, err := a.Accounting.ListTransactions(cmd.Context(), accounting.TxFilter{Limit: 500})
	if err != nil {
		return accounting.Transaction{}, err
	}
	for _, t := range txs {
		if t.ID == id {
			return t, nil
		}
	}
	return accounting.Transaction{}, fmt.Errorf("transacción %d no encontrada", id)
}

func transaccionEditarCmd(app *App) *cobra.Command {
	var descripcion, monto string
	var categoria int64
	cmd := &cobra.Command{
		Use:   "editar <id>",
		Short: "Corrige descripción, monto o categoría de un movimiento",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireSession(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tx, err := app.findTransaction(cmd, id)
			if err != nil {
				return err
			}
			var patch accounting.TxPatch
			if cmd.Flags().Changed("descripcion") {
				patch.Descripcion = &descripcion
			}
			if cmd.Flags().Changed("monto") {
				n, err := money.ParseAmount(monto)
				if err != nil {
					return err
				}
				patch.Monto = &n
			}
			if cmd.Flags().Changed("categoria") {
				patch.CategoriaID = &categoria
			}
			ctx := cmd.Context()
			if err := app.Accounting.UpdateTransaction(ctx, tx, patch, app.Resolver.ResolveActorDisplayName(ctx)); err != nil {
				return err
			}
			app.Bus.PublishMutation(ctx, "transacciones")
			app.printf("Movimiento #%d actualizado\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&descripcion, "descripcion", "", "nueva descripción")
	cmd.Flags().StringVar(&monto, "monto", "", "nuevo monto")
	cmd.Flags().Int64Var(&categoria, "categoria", 0, "nueva categoría")
	return cmd
}

func transaccionEliminarCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "eliminar <id>",
		Short: "Elimina un movimiento",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireSession(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := app.prompt.Confirm(fmt.Sprintf("¿Eliminar el movimiento #%d?", id))
				if err != nil {
					return err
				}
				if !ok {
					return ErrCancelled
				}
			}
			ctx := cmd.Context()
			if err := app.Accounting.DeleteTransaction(ctx, id, app.Resolver.ResolveActorDisplayName(ctx)); err != nil {
				return err
			}
			app.Bus.PublishMutation(ctx, "transacciones")
			app.printf("Movimiento #%d eliminado\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "si", "y", false, "no pedir confirmación")
	return cmd
}

func logsCmd(app *App) *cobra.Command {
	var txID int64
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Historial de cambios por movimiento",
		RunE: func(cmd *cobra.Command, _ []string) error {
			grouped, err := app.Accounting.LogsByTransaction(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]int64, 0, len(grouped))
			for id := range grouped {
				if txID == 0 || id == txID {
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				return errors.New("sin registros")
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
			for _, id := range ids {
				app.printf("Movimiento #%d\n", id)
				for _, l := range grouped[id] {
					ts, _ := dateformat.Parse(l.Fecha)
					line := fmt.Sprintf("  %-22s %-10s %s", dateformat.DateTimeAbbr(ts), l.Accion, l.Usuario)
					if l.SaldoAntes != nil && l.SaldoDespues != nil {
						line += fmt.Sprintf("  %s → %s", l.SaldoAntes, l.SaldoDespues)
					}
					app.printf("%s\n", line)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&txID, "tx", 0, "solo este movimiento")
	return cmd
}
