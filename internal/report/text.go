package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"atmricky/internal/dateformat"
	"atmricky/internal/money"
)

// WriteText prints the summary as aligned columns.
func WriteText(w io.Writer, s *Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Periodo\t%s → %s\t\n", dateformat.FromYMDKey(s.Period.From), dateformat.FromYMDKey(s.Period.To))
	fmt.Fprintf(tw, "Movimientos\t%d\t\n", s.Count)
	fmt.Fprintf(tw, "Ingresos\t%s\t\n", money.FormatCLP(s.Ingresos))
	fmt.Fprintf(tw, "Egresos\t%s\t\n", money.FormatCLP(s.Egresos))
	fmt.Fprintf(tw, "Neto\t%s\t\n", money.FormatCLP(s.Neto))
	if err := tw.Flush(); err != nil {
		return err
	}

	section := func(title string, rows []CategoryRow) error {
		if len(rows) == 0 {
			return nil
		}
		fmt.Fprintf(w, "\n%s\n", title)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, r := range rows {
			fmt.Fprintf(tw, "  %s\t%s\t%s%%\t(%d)\n", r.Nombre, money.FormatCLP(r.Total), r.Pct.StringFixed(1), r.Count)
		}
		return tw.Flush()
	}
	if err := section("Ingresos por categoría", s.IngresosPorCategoria); err != nil {
		return err
	}
	if err := section("Egresos por categoría", s.EgresosPorCategoria); err != nil {
		return err
	}

	if len(s.Daily) > 0 {
		fmt.Fprintf(w, "\nPor día\n")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, d := range s.Daily {
			fmt.Fprintf(tw, "  %s\t+%s\t-%s\t%s\n", dateformat.FromYMDKey(d.Day), money.FormatCLP(d.Ingresos), money.FormatCLP(d.Egresos), money.FormatCLP(d.Neto))
		}
		return tw.Flush()
	}
	return nil
}
