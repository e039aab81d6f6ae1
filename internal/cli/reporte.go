package cli

import (
	"time"

	"atmricky/internal/report"

	"github.com/spf13/cobra"
)

func reporteCmd(app *App) *cobra.Command {
	var month, from, to, pdfDir string
	var days int
	cmd := &cobra.Command{
		Use:   "reporte",
		Short: "Resumen de ingresos y egresos del periodo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			var p report.Period
			switch {
			case from != "" || to != "":
				p = report.Period{From: from, To: to}
			case days > 0:
				p = report.LastDays(days, now)
			default:
				if month == "" {
					month = now.Format("2006-01")
				}
				var err error
				if p, err = report.Month(month); err != nil {
					return err
				}
			}
			if err := app.requireServer(cmd.Context(), false); err != nil {
				return err
			}
			s, err := report.Load(cmd.Context(), app.Accounting, p)
			if err != nil {
				return err
			}
			if err := report.WriteText(app.Out, s); err != nil {
				return err
			}
			if pdfDir != "" {
				path, err := report.RenderPDF(s, pdfDir, now)
				if err != nil {
					return err
				}
				app.printf("\nPDF: %s\n", path)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&month, "mes", "", "mes YYYY-MM (por defecto el actual)")
	fl.StringVar(&from, "desde", "", "fecha inicial YYYY-MM-DD")
	fl.StringVar(&to, "hasta", "", "fecha final YYYY-MM-DD")
	fl.IntVar(&days, "dias", 0, "últimos N días")
	fl.StringVar(&pdfDir, "pdf", "", "directorio donde guardar el PDF")
	return cmd
}
