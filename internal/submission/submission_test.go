package submission

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"atmricky/internal/apiclient"
	"atmricky/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	mu      sync.Mutex
	sources []string
}

func (b *recordingBus) PublishMutation(_ context.Context, source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
}

func (b *recordingBus) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sources...)
}

type server struct {
	mu    sync.Mutex
	calls int
}

func (s *server) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newHandler(t *testing.T, status int, body string) (*Handler, *recordingBus, *notify.Recorder, *server) {
	t.Helper()
	s := &server{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		s.calls++
		s.mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	api := apiclient.New(apiclient.Options{Origin: srv.URL})
	api.SetAPIBase("")
	bus := &recordingBus{}
	rec := &notify.Recorder{}
	return NewHandler(api, bus, rec), bus, rec, s
}

func TestSubmit_SuccessBroadcastsAndNotifies(t *testing.T) {
	h, bus, rec, _ := newHandler(t, http.StatusCreated, `{"id": 9}`)

	out := h.Submit(context.Background(), Request{
		Source:  "transacciones",
		Path:    "/api/transacciones",
		Body:    map[string]any{"monto": 5000},
		Title:   "Transacción creada",
		Summary: "Se registró correctamente por $5.000 en Efectivo.",
	})

	assert.Equal(t, KindSuccess, out.Kind)
	assert.True(t, out.OK())
	assert.Equal(t, []string{"transacciones"}, bus.published())
	notes := rec.All()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.Success, notes[0].Level)
	assert.Equal(t, "Se registró correctamente por $5.000 en Efectivo.", notes[0].Message)
}

func TestSubmit_SummaryFromBody(t *testing.T) {
	h, _, _, _ := newHandler(t, http.StatusOK, `{"ok": true, "message": "Cashout registrado en Odoo"}`)
	out := h.Submit(context.Background(), Request{
		Path:    "/api/odoo/cashout",
		Summary: "Solicitud enviada ($1.000)",
		SummaryFrom: func(body json.RawMessage) string {
			var d struct{ Message string }
			_ = json.Unmarshal(body, &d)
			return d.Message
		},
	})
	assert.Equal(t, "Cashout registrado en Odoo", out.Message)
}

func TestSubmit_SoftRejectionDoesNotBroadcast(t *testing.T) {
	h, bus, rec, _ := newHandler(t, http.StatusOK, `{"ok": false, "message": "La sesión del POS está cerrada"}`)

	out := h.Submit(context.Background(), Request{Source: "cashout", Path: "/api/odoo/cashout"})

	assert.Equal(t, KindSoftRejection, out.Kind)
	assert.Equal(t, "La sesión del POS está cerrada", out.Message)
	assert.Empty(t, bus.published())
	require.Len(t, rec.All(), 1)
	assert.Equal(t, notify.Error, rec.All()[0].Level)
}

func TestSubmit_ConflictKeepsFiguresApart(t *testing.T) {
	h, bus, _, _ := newHandler(t, http.StatusConflict, `{"error": "saldo insuficiente", "saldo_actual": 5000, "monto_solicitado": 9000}`)

	out := h.Submit(context.Background(), Request{Source: "transacciones", Path: "/api/transacciones", Requested: 9000})

	assert.Equal(t, KindConflict, out.Kind)
	assert.Equal(t, "saldo insuficiente", out.Message)
	require.NotNil(t, out.Requested)
	require.NotNil(t, out.CurrentBalance)
	assert.Equal(t, int64(9000), *out.Requested)
	assert.Equal(t, int64(5000), *out.CurrentBalance)
	assert.Empty(t, bus.published())
	assert.Equal(t, "saldo insuficiente\n  Solicitado: $9.000\n  Saldo actual: $5.000", ConflictDetail(out))
}

func TestSubmit_NeverRetries(t *testing.T) {
	h, _, _, srv := newHandler(t, http.StatusInternalServerError, "boom")
	out := h.Submit(context.Background(), Request{Path: "/api/transacciones"})
	assert.Equal(t, KindGeneric, out.Kind)
	assert.Equal(t, "boom", out.Message)
	assert.Equal(t, 1, srv.count())
}

func TestSubmit_TransportFailureIsGeneric(t *testing.T) {
	api := apiclient.New(apiclient.Options{Origin: "http://127.0.0.1:1"})
	api.SetAPIBase("")
	bus := &recordingBus{}
	out := NewHandler(api, bus, &notify.Recorder{}).Submit(context.Background(), Request{Path: "/api/cuenta/retiro"})
	assert.Equal(t, KindGeneric, out.Kind)
	assert.NotEmpty(t, out.Message)
	assert.Empty(t, bus.published())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		requested int64
		kind      Kind
		msg       string
		req       *int64
		bal       *int64
	}{
		{name: "plain 2xx", status: 200, body: "", kind: KindSuccess},
		{name: "ok true", status: 200, body: `{"ok":true}`, kind: KindSuccess},
		{name: "ok false without message", status: 200, body: `{"ok":false}`, kind: KindSoftRejection, msg: "fallback"},
		{name: "alternate field names", status: 409, body: `{"requested":"700","currentBalance":200}`, kind: KindConflict,
			msg: "Saldo insuficiente en caja para realizar el egreso", req: ptr(700), bal: ptr(200)},
		{name: "missing figures use draft amount", status: 409, body: `{}`, requested: 5000, kind: KindConflict,
			msg: "Saldo insuficiente en caja para realizar el egreso", req: ptr(5000)},
		{name: "400 raw text", status: 400, body: "monto requerido", kind: KindConflict, msg: "monto requerido"},
		{name: "400 empty", status: 400, body: "", kind: KindConflict, msg: "Solicitud inválida"},
		{name: "500 json error", status: 500, body: `{"error":"db caída"}`, kind: KindGeneric, msg: "db caída"},
		{name: "502 empty", status: 502, body: "", kind: KindGeneric, msg: "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(tt.status, []byte(tt.body), tt.requested, "fallback")
			assert.Equal(t, tt.kind, out.Kind)
			if tt.kind != KindSuccess {
				assert.Equal(t, tt.msg, out.Message)
			}
			assert.Equal(t, tt.req, out.Requested)
			assert.Equal(t, tt.bal, out.CurrentBalance)
		})
	}
}

func ptr(n int64) *int64 { return &n }
