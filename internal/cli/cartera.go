package cli

import (
	"fmt"

	"atmricky/internal/money"

	"github.com/spf13/cobra"
)

func carteraCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cartera",
		Short: "Facturas y abonos de clientes",
	}
	cmd.AddCommand(facturasCmd(app), facturaEliminarCmd(app), abonoCmd(app))
	return cmd
}

func facturasCmd(app *App) *cobra.Command {
	var clienteID int64
	var pendientes bool
	cmd := &cobra.Command{
		Use:   "facturas",
		Short: "Lista las facturas de un cliente",
		RunE: func(cmd *cobra.Command, _ []string) error {
			invoices, err := app.Accounting.ListClientInvoices(cmd.Context(), clienteID)
			if err != nil {
				return err
			}
			if len(invoices) > 0 && invoices[0].Cliente != nil {
				app.printf("%s %s\n", invoices[0].Cliente.Nombre, invoices[0].Cliente.Celular)
			}
			var total, pendiente int64
			for _, inv := range invoices {
				if pendientes && inv.ValorPendiente <= 0 {
					continue
				}
				total += inv.ValorTotal.Int64()
				pendiente += inv.ValorPendiente.Int64()
				app.printf("#%-5d %-10s %-10s total %12s  abonado %12s  pendiente %12s  %s\n",
					inv.ID, inv.OP, inv.Estado,
					money.FormatCOP(inv.ValorTotal.Int64()), money.FormatCOP(inv.ValorAbonado.Int64()),
					money.FormatCOP(inv.ValorPendiente.Int64()), inv.Observaciones)
			}
			app.printf("Total %s, pendiente %s\n", money.FormatCOP(total), money.FormatCOP(pendiente))
			return nil
		},
	}
	cmd.Flags().Int64Var(&clienteID, "cliente", 0, "id del cliente")
	cmd.Flags().BoolVar(&pendientes, "pendientes", false, "solo facturas con saldo")
	_ = cmd.MarkFlagRequired("cliente")
	return cmd
}

func facturaEliminarCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "eliminar-factura <id>",
		Short: "Elimina una factura",
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
				ok, err := app.prompt.Confirm(fmt.Sprintf("¿Eliminar la factura #%d?", id))
				if err != nil {
					return err
				}
				if !ok {
					return ErrCancelled
				}
			}
			if err := app.Accounting.DeleteInvoice(cmd.Context(), id); err != nil {
				return err
			}
			app.Bus.PublishMutation(cmd.Context(), "cartera")
			app.printf("Factura #%d eliminada\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "si", "y", false, "no pedir confirmación")
	return cmd
}
