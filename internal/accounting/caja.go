package accounting

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"atmricky/internal/money"

	"github.com/rs/zerolog/log"
)

// CajaID selects the ledger a transaction is booked against.
type CajaID int64

const (
	CajaEfectivo CajaID = 1
	CajaBanco    CajaID = 2
)

// Name is the label shown to operators.
func (c CajaID) Name() string {
	switch c {
	case CajaEfectivo:
		return "Efectivo"
	case CajaBanco:
		return "Cuenta bancaria"
	default:
		return "Caja desconocida"
	}
}

func (c CajaID) Valid() bool { return c == CajaEfectivo || c == CajaBanco }

// Local is one point of sale inside GET /api/caja.
type Local struct {
	EstadoSesion string       `json:"estado_sesion"`
	SaldoEnCaja  money.Amount `json:"saldo_en_caja"`
	Vendido      money.Amount `json:"vendido"`
}

// Caja is the GET /api/caja payload.
type Caja struct {
	SaldoCaja    money.Amount     `json:"saldo_caja"`
	SaldoCaja2   money.Amount     `json:"saldo_caja2"`
	TotalLocales *money.Amount    `json:"total_locales"`
	Locales      map[string]Local `json:"locales"`
}

// GetCaja loads balances and points of sale.
func (c *Client) GetCaja(ctx context.Context) (*Caja, error) {
	var caja Caja
	if err := c.api.GetJSON(ctx, "/api/caja", &caja); err != nil {
		return nil, err
	}
	return &caja, nil
}

// TotalEnLocales is total_locales when the backend sends it, else the sum of
// every point's saldo_en_caja.
func (c *Caja) TotalEnLocales() int64 {
	if c.TotalLocales != nil {
		return c.TotalLocales.Int64()
	}
	var sum int64
	for _, l := range c.Locales {
		sum += l.SaldoEnCaja.Int64()
	}
	return sum
}

func (c *Caja) TotalVendido() int64 {
	var sum int64
	for _, l := range c.Locales {
		sum += l.Vendido.Int64()
	}
	return sum
}

// PointOfSale is a selectable cashout source.
type PointOfSale struct {
	Key    string
	Label  string
	Estado string
	Saldo  int64
}

// Open reports whether the POS session is known to be open.
func (p PointOfSale) Open() bool { return p.Estado == "abierta" }

// Closed points cannot be selected for a cashout. A missing or unknown
// estado is not closed.
func (p PointOfSale) Closed() bool { return p.Estado == "cerrada" }

// PointsOfSale lists the locales sorted by label. Labels title-case the key
// ("punto_centro" → "Punto Centro") and are what the cashout endpoint expects
// as pos_name.
func (c *Caja) PointsOfSale() []PointOfSale {
	out := make([]PointOfSale, 0, len(c.Locales))
	for key, l := range c.Locales {
		out = append(out, PointOfSale{
			Key:    key,
			Label:  posLabel(key),
			Estado: strings.ToLower(strings.TrimSpace(l.EstadoSesion)),
			Saldo:  l.SaldoEnCaja.Int64(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func posLabel(key string) string {
	parts := strings.Split(key, "_")
	for i, w := range parts {
		if w == "" {
			continue
		}
		r := []rune(w)
		parts[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(parts, " ")
}

// balanceKeys lists, per caja, the fields of the light balance query in
// priority order.
var balanceKeys = map[CajaID][]string{
	CajaEfectivo: {"saldo_caja", "saldo", "total", "saldo_actual"},
	CajaBanco:    {"saldo_caja2"},
}

// PrefetchBalance reads GET /api/caja?solo_caja=true and returns the selected
// caja's balance. nil means unknown: transport, status, decode and
// non-integral values all yield nil and must not block the caller.
func (c *Client) PrefetchBalance(ctx context.Context, caja CajaID) *int64 {
	keys, ok := balanceKeys[caja]
	if !ok {
		return nil
	}
	var body map[string]json.RawMessage
	if err := c.api.GetJSON(ctx, "/api/caja?solo_caja=true", &body); err != nil {
		log.Debug().Err(err).Int64("caja_id", int64(caja)).Msg("accounting: balance prefetch failed")
		return nil
	}
	for _, k := range keys {
		raw, present := body[k]
		if !present || string(raw) == "null" {
			continue
		}
		n, ok := money.FromJSON(raw)
		if !ok {
			return nil
		}
		return &n
	}
	return nil
}
