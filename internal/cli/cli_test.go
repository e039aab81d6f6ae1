package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"atmricky/internal/apiclient"
	"atmricky/internal/config"
	"atmricky/internal/eventbus"
	"atmricky/internal/notify"
	"atmricky/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend fakes both the identity service and the accounting API.
type backend struct {
	mu         sync.Mutex
	categorias string
	posted  []map[string]any
	deleted []string
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, `{"status":"ok"}`) })
	mux.HandleFunc("/usuarios", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"username":"ana","displayName":"Ana María","role":"user"}]`)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Username, Pin string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Pin != "1234" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, "PIN incorrecto")
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"username":"ana","displayName":"Ana María","role":"user"}`)
	})
	mux.HandleFunc("/api/caja", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"saldo_caja": 10000, "saldo_caja2": 0, "locales": {}}`)
	})
	mux.HandleFunc("/api/categorias", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		body := b.categorias
		b.mu.Unlock()
		if body == "" {
			body = `[{"id":3,"nombre":"Proveedores","tipo":"EGRESO"},{"id":7,"nombre":"Ventas","tipo":"INGRESO"}]`
		}
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/api/transacciones", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			b.mu.Lock()
			b.posted = append(b.posted, body)
			b.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id": 99}`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})
	mux.HandleFunc("/api/transacciones/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.deleted = append(b.deleted, r.Method+" "+r.URL.RequestURI())
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestApp(t *testing.T, input string) (*App, *backend, *bytes.Buffer, session.Store) {
	t.Helper()
	be := &backend{}
	srv := httptest.NewServer(be.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Client{Origin: srv.URL, HealthTimeoutSec: 2, CashoutHealthTimeoutSec: 2, RetryMaxAttempts: 1}
	api := apiclient.New(apiclient.Options{Origin: srv.URL})
	store := session.NewMemoryStore()
	out := &bytes.Buffer{}
	app := NewApp(cfg, api, store, eventbus.New(), notify.NewWriterNotifier(out), strings.NewReader(input), out)
	return app, be, out, store
}

func run(t *testing.T, app *App, args ...string) error {
	t.Helper()
	root := NewRootCommand(app)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestLoginAndWhoami(t *testing.T) {
	app, _, out, store := newTestApp(t, "")

	require.NoError(t, run(t, app, "login", "-u", "ana", "--pin", "1234"))
	s, err := store.Read()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "ana", s.Username)

	require.NoError(t, run(t, app, "whoami"))
	assert.Contains(t, out.String(), "Ana María (ana) rol user")
}

func TestLogin_WrongPin(t *testing.T) {
	app, _, _, store := newTestApp(t, "")
	err := run(t, app, "login", "-u", "ana", "--pin", "0000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PIN incorrecto")
	s, _ := store.Read()
	assert.Nil(t, s)
}

func TestTransaccionNueva_ScriptedWizard(t *testing.T) {
	// tipo Egreso, caja Efectivo, categoría 1, descripción, monto, confirm.
	app, be, out, store := newTestApp(t, "2\n1\n1\nPago proveedor\n5.000\ns\n")
	require.NoError(t, store.Write(session.New("ana", "Ana María", "user", "")))

	var events []string
	app.Bus.Subscribe("test", func(_ context.Context, evt eventbus.MutationOccurred) { events = append(events, evt.Source) })

	require.NoError(t, run(t, app, "tx", "nueva"))

	be.mu.Lock()
	defer be.mu.Unlock()
	require.Len(t, be.posted, 1)
	assert.Equal(t, map[string]any{
		"categoria_id": float64(3),
		"descripcion":  "Pago proveedor",
		"monto":        float64(5000),
		"caja_id":      float64(1),
		"usuario":      "Ana María",
	}, be.posted[0])
	assert.Equal(t, []string{"transacciones"}, events)
	assert.Contains(t, out.String(), "Se registró correctamente por $5.000 en Efectivo.")
}

func TestTransaccionNueva_BackFromFirstStepCancels(t *testing.T) {
	app, be, _, store := newTestApp(t, "<\n")
	require.NoError(t, store.Write(session.New("ana", "", "user", "")))

	err := run(t, app, "tx", "nueva")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, be.posted)
}

// runWithin fails the test instead of hanging when a command never returns.
func runWithin(t *testing.T, app *App, args ...string) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- run(t, app, args...) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("atm %s did not return", strings.Join(args, " "))
		return nil
	}
}

func TestCashout_NoPointsOfSaleGoesBack(t *testing.T) {
	// Tipo de retiro, then input runs out back on step 1.
	app, _, out, store := newTestApp(t, "1\n")
	require.NoError(t, store.Write(session.New("ana", "", "user", "")))

	err := runWithin(t, app, "cashout")

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 1, strings.Count(out.String(), "No hay puntos de venta disponibles"))
	assert.Equal(t, 2, strings.Count(out.String(), "[1/5] Tipo de retiro"))
}

func TestTransaccionNueva_NoCategoriesForTipo(t *testing.T) {
	// Egreso has no categories: back to step 1, switch to Ingreso, pick Ventas.
	app, be, out, store := newTestApp(t, "2\n1\n1\n1\n1\n")
	be.mu.Lock()
	be.categorias = `[{"id":7,"nombre":"Ventas","tipo":"INGRESO"}]`
	be.mu.Unlock()
	require.NoError(t, store.Write(session.New("ana", "", "user", "")))

	err := runWithin(t, app, "tx", "nueva")

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Contains(t, out.String(), "No hay categorías para EGRESO")
	assert.Contains(t, out.String(), "1) Ventas")
	assert.Contains(t, out.String(), "[3/4] Descripción y monto")
	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Empty(t, be.posted)
}

func TestTransaccionEliminar_SendsActor(t *testing.T) {
	app, be, out, store := newTestApp(t, "")
	require.NoError(t, store.Write(session.New("ana", "", "user", "")))

	require.NoError(t, run(t, app, "tx", "eliminar", "12", "-y"))
	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Equal(t, []string{"DELETE /api/transacciones/12?usuario=Ana+Mar%C3%ADa"}, be.deleted)
	assert.Contains(t, out.String(), "Movimiento #12 eliminado")
}

func TestUsuarios_RequiresDev(t *testing.T) {
	app, _, _, store := newTestApp(t, "")
	require.NoError(t, store.Write(session.New("ana", "", "user", "")))
	assert.ErrorIs(t, run(t, app, "usuarios", "listar"), errNotDev)
}

func TestWizardCommands_RequireSession(t *testing.T) {
	app, _, _, _ := newTestApp(t, "")
	err := run(t, app, "retiro")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atm login")
}
