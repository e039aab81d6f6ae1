package report

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"atmricky/internal/accounting"
	"atmricky/internal/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cats = []accounting.Category{
	{ID: 1, Nombre: "Ventas", Tipo: accounting.Ingreso},
	{ID: 2, Nombre: "Arriendo", Tipo: accounting.Egreso},
	{ID: 3, Nombre: "Proveedores", Tipo: accounting.Egreso},
}

var txs = []accounting.Transaction{
	{ID: 1, Fecha: "2025-09-01T15:00:00Z", Monto: money.Amount(10000), CategoriaID: 1},
	{ID: 2, Fecha: "2025-09-01T16:00:00Z", Monto: money.Amount(3000), CategoriaID: 2},
	{ID: 3, Fecha: "2025-09-02T15:00:00Z", Monto: money.Amount(1000), CategoriaID: 3},
	{ID: 4, Fecha: "2025-09-02T15:00:00Z", Monto: money.Amount(999), CategoriaID: 42},
}

func TestMonth(t *testing.T) {
	p, err := Month("2024-02")
	require.NoError(t, err)
	assert.Equal(t, Period{From: "2024-02-01", To: "2024-02-29"}, p)

	_, err = Month("febrero")
	assert.Error(t, err)
}

func TestBuild_TotalsDailyAndBreakdown(t *testing.T) {
	s := Build(Period{From: "2025-09-01", To: "2025-09-30"}, txs, cats)

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, int64(10000), s.Ingresos)
	assert.Equal(t, int64(4000), s.Egresos)
	assert.Equal(t, int64(6000), s.Neto)

	require.Len(t, s.Daily, 2)
	assert.Equal(t, DayRow{Day: "2025-09-01", Ingresos: 10000, Egresos: 3000, Neto: 7000}, s.Daily[0])
	assert.Equal(t, DayRow{Day: "2025-09-02", Egresos: 1000, Neto: -1000}, s.Daily[1])

	require.Len(t, s.EgresosPorCategoria, 2)
	assert.Equal(t, "Arriendo", s.EgresosPorCategoria[0].Nombre)
	assert.Equal(t, "75.0", s.EgresosPorCategoria[0].Pct.StringFixed(1))
	assert.Equal(t, "25.0", s.EgresosPorCategoria[1].Pct.StringFixed(1))
	require.Len(t, s.IngresosPorCategoria, 1)
	assert.Equal(t, 1, s.IngresosPorCategoria[0].Count)
}

type stubSource struct {
	filter accounting.TxFilter
}

func (s *stubSource) ListCategories(context.Context) ([]accounting.Category, error) { return cats, nil }

func (s *stubSource) ListTransactions(_ context.Context, f accounting.TxFilter) ([]accounting.Transaction, error) {
	s.filter = f
	return txs, nil
}

func TestLoad_FiltersByPeriod(t *testing.T) {
	src := &stubSource{}
	s, err := Load(context.Background(), src, Period{From: "2025-09-01", To: "2025-09-30"})
	require.NoError(t, err)
	assert.Equal(t, "2025-09-01", src.filter.From)
	assert.Equal(t, "2025-09-30", src.filter.To)
	assert.Equal(t, int64(6000), s.Neto)
}

func TestWriteText(t *testing.T) {
	s := Build(Period{From: "2025-09-01", To: "2025-09-30"}, txs, cats)
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, &s))
	out := buf.String()
	assert.Contains(t, out, "$10.000")
	assert.Contains(t, out, "Egresos por categoría")
	assert.Contains(t, out, "75.0%")
}

func TestRenderPDF(t *testing.T) {
	s := Build(Period{From: "2025-09-01", To: "2025-09-30"}, txs, cats)
	path, err := RenderPDF(&s, t.TempDir(), time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, path, "reporte_2025-09-01_2025-09-30.pdf")
}
