package accounting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"atmricky/internal/dateformat"
	"atmricky/internal/money"
)

// Transaction is one row of GET /api/transacciones.
type Transaction struct {
	ID          int64        `json:"id"`
	Fecha       string       `json:"fecha"`
	Tipo        Tipo         `json:"tipo"`
	Monto       money.Amount `json:"monto"`
	Descripcion string       `json:"descripcion"`
	CategoriaID int64        `json:"categoria_id"`
	CajaID      CajaID       `json:"caja_id"`
	Usuario     string       `json:"usuario"`
}

// Time parses Fecha; the zero time when it is unparseable.
func (t Transaction) Time() time.Time {
	ts, _ := dateformat.Parse(t.Fecha)
	return ts
}

// TxFilter maps to the query string of GET /api/transacciones. Zero values are omitted.
type TxFilter struct {
	From        string // YYYY-MM-DD
	To          string // YYYY-MM-DD
	Limit       int
	Tipo        Tipo
	Descripcion string
	Usuario     string
	CategoriaID int64
	CajaID      CajaID
}

func (f TxFilter) Query() string {
	q := url.Values{}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	if f.Tipo != "" {
		q.Set("tipo", string(f.Tipo))
	}
	if f.Descripcion != "" {
		q.Set("descripcion", f.Descripcion)
	}
	if f.Usuario != "" {
		q.Set("usuario", f.Usuario)
	}
	if f.CategoriaID > 0 {
		q.Set("categoria_id", strconv.FormatInt(f.CategoriaID, 10))
	}
	if f.CajaID > 0 {
		q.Set("caja_id", strconv.FormatInt(int64(f.CajaID), 10))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListTransactions returns rows that carry a fecha, newest first.
func (c *Client) ListTransactions(ctx context.Context, f TxFilter) ([]Transaction, error) {
	rows, err := getList[Transaction](ctx, c.api, "/api/transacciones"+f.Query(), "Error al obtener transacciones")
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, r := range rows {
		if r.Fecha != "" {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time().After(out[j].Time()) })
	return out, nil
}

// TxPatch is a partial transaction update.
type TxPatch struct {
	Descripcion *string `json:"descripcion,omitempty"`
	Monto       *int64  `json:"monto,omitempty"`
	CategoriaID *int64  `json:"categoria_id,omitempty"`
}

var (
	ErrNadaQueActualizar = errors.New("Selecciona al menos un campo a actualizar.")
	ErrMontoNoPositivo   = errors.New("El monto debe ser mayor a 0.")
	ErrCategoriaFaltante = errors.New("Selecciona una categoría.")
)

func (p TxPatch) Validate() error {
	if p.Descripcion == nil && p.Monto == nil && p.CategoriaID == nil {
		return ErrNadaQueActualizar
	}
	if p.Monto != nil && *p.Monto <= 0 {
		return ErrMontoNoPositivo
	}
	if p.CategoriaID != nil && *p.CategoriaID <= 0 {
		return ErrCategoriaFaltante
	}
	return nil
}

// UpdateTransaction sends PUT /api/transacciones/:id?usuario=&caja_id=. The
// backend requires caja_id even when the caja is not being edited.
func (c *Client) UpdateTransaction(ctx context.Context, tx Transaction, patch TxPatch, actor string) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	q := url.Values{}
	if actor != "" {
		q.Set("usuario", actor)
	}
	if tx.CajaID > 0 {
		q.Set("caja_id", strconv.FormatInt(int64(tx.CajaID), 10))
	}
	path := "/api/transacciones/" + strconv.FormatInt(tx.ID, 10)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	resp, err := c.api.SendJSON(ctx, http.MethodPut, path, patch, nil)
	if err != nil {
		return err
	}
	if resp.OK() {
		return nil
	}
	if resp.Status == http.StatusConflict || resp.Status == http.StatusBadRequest {
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(resp.Body, &body) == nil && body.Error != "" {
			return errors.New(body.Error)
		}
		if resp.Status == http.StatusConflict {
			return errors.New("Conflicto de saldo o validación")
		}
		return errors.New("Solicitud inválida")
	}
	return normalizeServerError(resp.Text(), "Error al actualizar")
}

// DeleteTransaction sends DELETE /api/transacciones/:id?usuario=.
func (c *Client) DeleteTransaction(ctx context.Context, id int64, actor string) error {
	path := "/api/transacciones/" + strconv.FormatInt(id, 10)
	if actor != "" {
		path += "?usuario=" + url.QueryEscape(actor)
	}
	resp, err := c.api.Do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return normalizeServerError(resp.Text(), "Error al eliminar")
	}
	return nil
}

// LogEntry is one audit row of GET /api/logs.
type LogEntry struct {
	TransaccionID int64         `json:"transaccion_id"`
	Fecha         string        `json:"fecha"`
	Accion        string        `json:"accion"`
	Usuario       string        `json:"usuario"`
	SaldoAntes    *money.Amount `json:"saldo_antes"`
	SaldoDespues  *money.Amount `json:"saldo_despues"`
}

// LogsByTransaction groups GET /api/logs by transaction, newest first.
func (c *Client) LogsByTransaction(ctx context.Context) (map[int64][]LogEntry, error) {
	rows, err := getList[LogEntry](ctx, c.api, "/api/logs", "Error al obtener logs")
	if err != nil {
		return nil, err
	}
	grouped := make(map[int64][]LogEntry)
	for _, l := range rows {
		grouped[l.TransaccionID] = append(grouped[l.TransaccionID], l)
	}
	for id := range grouped {
		entries := grouped[id]
		sort.SliceStable(entries, func(i, j int) bool {
			ti, _ := dateformat.Parse(entries[i].Fecha)
			tj, _ := dateformat.Parse(entries[j].Fecha)
			return ti.After(tj)
		})
	}
	return grouped, nil
}
