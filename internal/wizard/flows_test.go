package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"atmricky/internal/accounting"
	"atmricky/internal/apiclient"
	"atmricky/internal/eventbus"
	"atmricky/internal/notify"
	"atmricky/internal/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedBalance struct{ saldo *int64 }

func (f fixedBalance) PrefetchBalance(context.Context, accounting.CajaID) *int64 { return f.saldo }

type fixedActor string

func (a fixedActor) ResolveActorDisplayName(context.Context) string { return string(a) }

// stubSubmitter records requests and answers with a fixed outcome.
type stubSubmitter struct {
	out  submission.Outcome
	reqs []submission.Request
}

func (s *stubSubmitter) Submit(_ context.Context, req submission.Request) submission.Outcome {
	s.reqs = append(s.reqs, req)
	return s.out
}

func bodyJSON(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func int64p(n int64) *int64 { return &n }

var testCategories = []accounting.Category{
	{ID: 3, Nombre: "Proveedores", Tipo: accounting.Egreso},
	{ID: 4, Nombre: "Arriendo", Tipo: accounting.Egreso},
	{ID: 7, Nombre: "Ventas", Tipo: accounting.Ingreso},
}

// expenseDraft walks the transaction flow to the confirmation step with
// {EGRESO, monto 5000, categoria 3, caja 1}.
func expenseDraft(t *testing.T, f *TransactionFlow) {
	t.Helper()
	f.SetTipo(accounting.Egreso)
	f.SetCaja(accounting.CajaEfectivo)
	require.NoError(t, f.Next())
	require.NoError(t, f.SetCategoria(3))
	require.NoError(t, f.Next())
	f.SetDescripcion("  Pago proveedor  ")
	require.NoError(t, f.SetMontoText("5.000"))
	require.NoError(t, f.Next())
	require.True(t, f.OnFinalStep())
}

func TestTransactionFlow_SuccessfulExpense(t *testing.T) {
	var mu sync.Mutex
	var posted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		_ = json.Unmarshal(b, &posted)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 55}`)
	}))
	defer srv.Close()
	api := apiclient.New(apiclient.Options{Origin: srv.URL})
	api.SetAPIBase("")

	bus := eventbus.New()
	var events []string
	bus.Subscribe("movements", func(_ context.Context, evt eventbus.MutationOccurred) { events = append(events, evt.Source) })
	rec := &notify.Recorder{}

	f := NewTransactionFlow(testCategories, fixedBalance{int64p(10000)}, submission.NewHandler(api, bus, rec), fixedActor("Ana"))
	expenseDraft(t, f)

	out, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, submission.KindSuccess, out.Kind)
	assert.Equal(t, Succeeded, f.State())
	assert.Equal(t, []string{"transacciones"}, events)
	assert.Equal(t, "Se registró correctamente por $5.000 en Efectivo.", out.Message)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]any{
		"categoria_id": float64(3),
		"descripcion":  "Pago proveedor",
		"monto":        float64(5000),
		"caja_id":      float64(1),
		"usuario":      "Ana",
	}, posted)
}

func TestTransactionFlow_InsufficientFundsBlocksLocally(t *testing.T) {
	sub := &stubSubmitter{}
	f := NewTransactionFlow(testCategories, fixedBalance{int64p(3000)}, sub, fixedActor("Ana"))
	expenseDraft(t, f)

	out, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, submission.KindConflict, out.Kind)
	require.NotNil(t, out.Requested)
	require.NotNil(t, out.CurrentBalance)
	assert.Equal(t, int64(5000), *out.Requested)
	assert.Equal(t, int64(3000), *out.CurrentBalance)
	assert.Empty(t, sub.reqs, "submit endpoint must not be called")
	assert.Equal(t, Failed, f.State())

	// Fields survive; the operator lowers the amount and resubmits.
	require.NoError(t, f.Rewind(3))
	assert.Equal(t, "Pago proveedor", f.Draft.Descripcion)
	f.SetMonto(2000)
	require.NoError(t, f.Next())
	sub.out = submission.Outcome{Kind: submission.KindSuccess}
	_, err = f.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, sub.reqs, 1)
}

func TestTransactionFlow_UnknownBalanceDoesNotBlock(t *testing.T) {
	sub := &stubSubmitter{out: submission.Outcome{Kind: submission.KindSuccess}}
	f := NewTransactionFlow(testCategories, fixedBalance{}, sub, fixedActor("Ana"))
	expenseDraft(t, f)

	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, sub.reqs, 1)
	assert.Equal(t, int64(5000), sub.reqs[0].Requested)
}

func TestTransactionFlow_ChangingTipoClearsCategory(t *testing.T) {
	f := NewTransactionFlow(testCategories, nil, &stubSubmitter{}, nil)
	f.SetTipo(accounting.Egreso)
	require.NoError(t, f.SetCategoria(4))
	assert.Equal(t, []string{"Arriendo", "Proveedores"}, names(f.Categories()))

	f.SetTipo(accounting.Egreso)
	assert.Equal(t, int64(4), f.Draft.CategoriaID)

	f.SetTipo(accounting.Ingreso)
	assert.Zero(t, f.Draft.CategoriaID)
	assert.ErrorIs(t, f.SetCategoria(4), ErrCategoriaNoDisponible)
}

func TestTransactionFlow_StepMessages(t *testing.T) {
	f := NewTransactionFlow(testCategories, nil, &stubSubmitter{}, nil)
	require.NoError(t, f.Next())
	err := f.Next()
	require.ErrorIs(t, err, ErrStepIncomplete)
	assert.Contains(t, err.Error(), "Selecciona una categoría.")

	require.NoError(t, f.SetCategoria(7))
	require.NoError(t, f.Next())
	f.SetDescripcion("   ")
	f.SetMonto(100)
	err = f.Next()
	assert.Contains(t, err.Error(), "Escribe una descripción.")
	assert.Equal(t, 3, f.Current())
}

func TestTransactionFlow_FailedOutcomeKeepsDraft(t *testing.T) {
	sub := &stubSubmitter{out: submission.Outcome{Kind: submission.KindGeneric, Message: "boom"}}
	f := NewTransactionFlow(testCategories, nil, sub, nil)
	expenseDraft(t, f)

	out, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "boom", out.Message)
	assert.Equal(t, Failed, f.State())
	assert.Equal(t, int64(5000), f.Draft.Monto)
	assert.Equal(t, int64(3), f.Draft.CategoriaID)
}

func names(cats []accounting.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Nombre
	}
	return out
}

type fixedCaja struct{ caja *accounting.Caja }

func (f fixedCaja) GetCaja(context.Context) (*accounting.Caja, error) { return f.caja, nil }

func TestCashoutFlow_PayloadAndClosedPoints(t *testing.T) {
	sub := &stubSubmitter{out: submission.Outcome{Kind: submission.KindSuccess}}
	f := NewCashoutFlow(sub, fixedActor("Ana"))
	require.NoError(t, f.Load(context.Background(), fixedCaja{&accounting.Caja{Locales: map[string]accounting.Local{
		"punto_centro":     {EstadoSesion: "abierta", SaldoEnCaja: 1000},
		"punto_norte":      {EstadoSesion: "cerrada", SaldoEnCaja: 9000},
		"punto_sin_estado": {SaldoEnCaja: 500},
		"punto_vacio":      {EstadoSesion: "abierta"},
	}}}))

	assert.ErrorIs(t, f.Next(), ErrStepIncomplete)
	f.SetRetiroTipo(RetiroCaja)
	require.NoError(t, f.Next())

	assert.ErrorIs(t, f.SelectPOS("Punto Norte"), ErrPOSCerrado)
	assert.ErrorIs(t, f.SelectPOS("Punto Sur"), ErrPOSDesconocido)
	require.NoError(t, f.SelectPOS("Punto Sin Estado"))
	f.SetAmount(900)
	assert.Empty(t, f.AmountWarning())
	require.NoError(t, f.SelectPOS("Punto Vacio"))
	assert.Empty(t, f.AmountWarning())
	require.NoError(t, f.SelectPOS("Punto Centro"))
	require.NoError(t, f.Next())

	f.SetAmount(1500)
	assert.Contains(t, f.AmountWarning(), "$1.000")
	require.NoError(t, f.Next())
	require.NoError(t, f.Next())
	require.True(t, f.OnFinalStep())

	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, sub.reqs, 1)
	assert.Equal(t, "/api/odoo/cashout", sub.reqs[0].Path)
	assert.Equal(t, map[string]any{
		"amount":        float64(1500),
		"category_name": "RETIRADA",
		"pos_name":      "Punto Centro",
		"reason":        "RETIRO",
		"usuario":       "Ana",
		"categoria_id":  float64(16),
	}, bodyJSON(t, sub.reqs[0].Body))

	f2 := NewCashoutFlow(sub, nil)
	f2.SetRetiroTipo(RetiroCashout)
	assert.Zero(t, f2.Draft.CategoriaID)
}

type stubUploader struct{ err error }

func (u stubUploader) UploadSupport(_ context.Context, filename string, r io.Reader) (*accounting.Support, error) {
	if u.err != nil {
		return nil, u.err
	}
	_, _ = io.ReadAll(r)
	return &accounting.Support{Nombre: filename, Path: "/uploads/" + filename, URL: "https://x/uploads/" + filename}, nil
}

func TestAbonoFlow_StepsAndPayload(t *testing.T) {
	sub := &stubSubmitter{out: submission.Outcome{Kind: submission.KindSuccess}}
	f := NewAbonoFlow(9, invoices(), stubUploader{}, sub)

	f.SetMetodo("cheque")
	f.SetMontoTotal(8000)
	assert.ErrorIs(t, f.Next(), ErrStepIncomplete)
	f.SetMetodo("transferencia")
	f.SetReferencia(" TRX-1 ")
	require.NoError(t, f.Next())

	assert.ErrorIs(t, f.Next(), ErrStepIncomplete)
	require.NoError(t, f.Upload(context.Background(), "recibo.png", strings.NewReader("img")))
	require.NoError(t, f.Next())

	f.Allocator.SetMode(Multi)
	require.NoError(t, f.Allocator.Set(1, 3000))
	require.NoError(t, f.Allocator.Set(2, 4000))
	assert.ErrorIs(t, f.Next(), ErrStepIncomplete)
	assert.Equal(t, int64(1000), f.Allocator.Difference())
	require.NoError(t, f.Allocator.Set(2, 5000))
	require.NoError(t, f.Next())

	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, sub.reqs, 1)
	assert.Equal(t, "/api/cartera/abonos", sub.reqs[0].Path)
	assert.JSONEq(t, `{
		"cliente_id": 9,
		"metodo_pago": "TRANSFERENCIA",
		"monto_total": 8000,
		"referencia": "TRX-1",
		"distribucion": [{"factura_id": 1, "valor": 3000}, {"factura_id": 2, "valor": 5000}],
		"soporte": {"nombre": "recibo.png", "path": "/uploads/recibo.png", "url": "https://x/uploads/recibo.png"},
		"notificacion": {"enviar": false}
	}`, string(mustJSON(t, sub.reqs[0].Body)))
}

func TestAbonoFlow_FailedUploadClearsSupport(t *testing.T) {
	f := NewAbonoFlow(9, invoices(), stubUploader{err: errors.New("413")}, &stubSubmitter{})
	assert.Error(t, f.Upload(context.Background(), "a.png", strings.NewReader("x")))
	assert.Nil(t, f.Draft.Soporte)
}

func TestBankWithdrawalFlow(t *testing.T) {
	sub := &stubSubmitter{out: submission.Outcome{Kind: submission.KindSuccess}}
	f := NewBankWithdrawalFlow(fixedBalance{int64p(1000)}, sub, fixedActor("Ana"))

	assert.ErrorIs(t, f.Next(), ErrStepIncomplete)
	require.NoError(t, f.SetMontoText("2.500"))
	assert.Contains(t, f.BalanceWarning(context.Background()), "Cuenta bancaria")
	require.NoError(t, f.Next())

	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	req := sub.reqs[0]
	assert.Equal(t, "/api/cuenta/retiro", req.Path)
	assert.Equal(t, map[string]any{
		"monto":       float64(2500),
		"usuario":     "Ana",
		"Descripcion": "Retiro de efectivo desde Cuenta bancaria",
	}, bodyJSON(t, req.Body))
	assert.Equal(t, "OK: Tx 10 y 11 por $2.500.", req.SummaryFrom(json.RawMessage(`{"egreso":{"id":10},"ingreso":{"id":11}}`)))
	assert.Equal(t, "", req.SummaryFrom(json.RawMessage(`{}`)))
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
