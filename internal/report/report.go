// Package report builds the period summary of the Reports screen: totals,
// daily rows and the per-category breakdown.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"atmricky/internal/accounting"
	"atmricky/internal/dateformat"

	"github.com/shopspring/decimal"
)

// Period is an inclusive YYYY-MM-DD range.
type Period struct {
	From string
	To   string
}

// Month returns the period covering yyyy-mm.
func Month(yyyymm string) (Period, error) {
	t, err := time.ParseInLocation("2006-01", yyyymm, dateformat.Bogota)
	if err != nil {
		return Period{}, fmt.Errorf("report: invalid month %q: %w", yyyymm, err)
	}
	last := t.AddDate(0, 1, -1)
	return Period{From: t.Format("2006-01-02"), To: last.Format("2006-01-02")}, nil
}

// LastDays returns the period of the n days ending today.
func LastDays(n int, now time.Time) Period {
	now = now.In(dateformat.Bogota)
	return Period{From: now.AddDate(0, 0, -n).Format("2006-01-02"), To: now.Format("2006-01-02")}
}

type DayRow struct {
	Day      string
	Ingresos int64
	Egresos  int64
	Neto     int64
}

type CategoryRow struct {
	CategoriaID int64
	Nombre      string
	Total       int64
	Count       int
	Pct         decimal.Decimal
}

type Summary struct {
	Period   Period
	Ingresos int64
	Egresos  int64
	Neto     int64
	Count    int
	Daily    []DayRow
	// Per-category breakdown, largest total first.
	IngresosPorCategoria []CategoryRow
	EgresosPorCategoria  []CategoryRow
}

// Source is what Load needs from the accounting client.
type Source interface {
	ListCategories(ctx context.Context) ([]accounting.Category, error)
	ListTransactions(ctx context.Context, f accounting.TxFilter) ([]accounting.Transaction, error)
}

// Load fetches the period's transactions and categories and summarizes them.
func Load(ctx context.Context, src Source, p Period) (*Summary, error) {
	cats, err := src.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := src.ListTransactions(ctx, accounting.TxFilter{From: p.From, To: p.To})
	if err != nil {
		return nil, err
	}
	s := Build(p, txs, cats)
	return &s, nil
}

// Build summarizes txs. The tipo of each transaction is taken from its
// category; transactions of unknown categories are counted but not summed.
func Build(p Period, txs []accounting.Transaction, cats []accounting.Category) Summary {
	byID := make(map[int64]accounting.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	s := Summary{Period: p}
	days := map[string]*DayRow{}
	inc := map[int64]*CategoryRow{}
	out := map[int64]*CategoryRow{}

	for _, t := range txs {
		s.Count++
		cat, known := byID[t.CategoriaID]
		if !known {
			continue
		}
		amt := t.Monto.Int64()

		var row *DayRow
		if ts := t.Time(); !ts.IsZero() {
			key := dateformat.YMDKey(ts)
			if days[key] == nil {
				days[key] = &DayRow{Day: key}
			}
			row = days[key]
		}

		target := inc
		switch cat.Tipo {
		case accounting.Ingreso:
			s.Ingresos += amt
			if row != nil {
				row.Ingresos += amt
			}
		case accounting.Egreso:
			s.Egresos += amt
			if row != nil {
				row.Egresos += amt
			}
			target = out
		default:
			continue
		}
		cr := target[cat.ID]
		if cr == nil {
			cr = &CategoryRow{CategoriaID: cat.ID, Nombre: cat.Nombre}
			target[cat.ID] = cr
		}
		cr.Total += amt
		cr.Count++
	}
	s.Neto = s.Ingresos - s.Egresos

	for _, d := range days {
		d.Neto = d.Ingresos - d.Egresos
		s.Daily = append(s.Daily, *d)
	}
	sort.Slice(s.Daily, func(i, j int) bool { return s.Daily[i].Day < s.Daily[j].Day })

	s.IngresosPorCategoria = breakdown(inc, s.Ingresos)
	s.EgresosPorCategoria = breakdown(out, s.Egresos)
	return s
}

func breakdown(m map[int64]*CategoryRow, sum int64) []CategoryRow {
	rows := make([]CategoryRow, 0, len(m))
	for _, r := range m {
		if sum != 0 {
			r.Pct = decimal.NewFromInt(r.Total).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(sum)).Round(1)
		}
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Nombre < rows[j].Nombre
	})
	return rows
}
