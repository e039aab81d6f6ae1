package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"atmricky/internal/accounting"
	"atmricky/internal/money"
	"atmricky/internal/submission"
)

const (
	RetiroCaja    = "caja"
	RetiroCashout = "cashout"

	// retiroCajaCategoria is the RETIRADA category booked when cash leaves
	// the main register.
	retiroCajaCategoria int64 = 16
)

type CashoutDraft struct {
	RetiroTipo  string `validate:"required,oneof=caja cashout"`
	POSName     string `validate:"required"`
	Amount      int64  `validate:"gt=0"`
	Reason      string
	CategoriaID int64
}

var cashoutMessages = map[string]string{
	"RetiroTipo": "Selecciona el tipo de retiro",
	"POSName":    "Selecciona un punto de venta",
	"Amount":     "Monto inválido",
}

var (
	ErrPOSDesconocido = errors.New("Punto de venta desconocido")
	ErrPOSCerrado     = errors.New("El punto de venta está cerrado")
)

// CashoutFlow requests a cash withdrawal from a point of sale in 5 steps:
// tipo de retiro, punto de venta, monto, motivo, confirmación.
type CashoutFlow struct {
	*Engine
	Draft CashoutDraft

	points    []accounting.PointOfSale
	submitter Submitter
	actor     ActorResolver
}

func NewCashoutFlow(submitter Submitter, actor ActorResolver) *CashoutFlow {
	f := &CashoutFlow{submitter: submitter, actor: actor}
	f.Engine = NewEngine(
		Step{Title: "Tipo de retiro", Check: func() error {
			return checkFields(f.Draft, cashoutMessages, "RetiroTipo")
		}},
		Step{Title: "Punto de venta", Check: func() error {
			if err := checkFields(f.Draft, cashoutMessages, "POSName"); err != nil {
				return err
			}
			_, err := f.openPoint(f.Draft.POSName)
			return err
		}},
		Step{Title: "Monto", Check: func() error {
			return checkFields(f.Draft, cashoutMessages, "Amount")
		}},
		Step{Title: "Motivo"},
		Step{Title: "Confirmación"},
	)
	return f
}

// Load reads the points of sale from GET /api/caja.
func (f *CashoutFlow) Load(ctx context.Context, src CajaSource) error {
	caja, err := src.GetCaja(ctx)
	if err != nil {
		return fmt.Errorf("Error cargando caja: %w", err)
	}
	f.points = caja.PointsOfSale()
	return nil
}

func (f *CashoutFlow) Points() []accounting.PointOfSale { return f.points }

func (f *CashoutFlow) SetRetiroTipo(t string) {
	f.Draft.RetiroTipo = t
	if t == RetiroCaja {
		f.Draft.CategoriaID = retiroCajaCategoria
	} else {
		f.Draft.CategoriaID = 0
	}
}

func (f *CashoutFlow) openPoint(label string) (accounting.PointOfSale, error) {
	for _, p := range f.points {
		if p.Label == label {
			if p.Closed() {
				return p, ErrPOSCerrado
			}
			return p, nil
		}
	}
	return accounting.PointOfSale{}, ErrPOSDesconocido
}

// SelectPOS picks a point by label; closed points are refused.
func (f *CashoutFlow) SelectPOS(label string) error {
	if _, err := f.openPoint(label); err != nil {
		return err
	}
	f.Draft.POSName = label
	return nil
}

func (f *CashoutFlow) SetAmount(n int64) { f.Draft.Amount = n }

func (f *CashoutFlow) SetAmountText(s string) error {
	n, err := money.ParseAmount(s)
	if err != nil {
		return err
	}
	f.Draft.Amount = n
	return nil
}

func (f *CashoutFlow) SetReason(s string) { f.Draft.Reason = strings.TrimSpace(s) }

// AmountWarning is advisory: the backend decides. Only open points with a
// positive saldo warn.
func (f *CashoutFlow) AmountWarning() string {
	p, err := f.openPoint(f.Draft.POSName)
	if err != nil || !p.Open() || p.Saldo <= 0 || f.Draft.Amount <= p.Saldo {
		return ""
	}
	return fmt.Sprintf("El monto supera el saldo en caja del punto (%s)", money.FormatCLP(p.Saldo))
}

func (f *CashoutFlow) reason() string {
	if f.Draft.Reason == "" {
		return "RETIRO"
	}
	return f.Draft.Reason
}

func (f *CashoutFlow) Summary() []SummaryLine {
	tipo := "Cashout"
	if f.Draft.RetiroTipo == RetiroCaja {
		tipo = "Retiro de caja"
	}
	return []SummaryLine{
		{Label: "Tipo", Value: tipo},
		{Label: "Punto de venta", Value: f.Draft.POSName},
		{Label: "Monto", Value: money.FormatCLP(f.Draft.Amount)},
		{Label: "Motivo", Value: f.reason()},
	}
}

type cashoutPayload struct {
	Amount       int64  `json:"amount"`
	CategoryName string `json:"category_name"`
	POSName      string `json:"pos_name"`
	Reason       string `json:"reason"`
	Usuario      string `json:"usuario"`
	CategoriaID  int64  `json:"categoria_id,omitempty"`
}

// Submit posts /api/odoo/cashout.
func (f *CashoutFlow) Submit(ctx context.Context) (submission.Outcome, error) {
	if err := f.BeginSubmit(); err != nil {
		return submission.Outcome{}, err
	}
	out := f.submitter.Submit(ctx, submission.Request{
		Source: "cashout",
		Path:   "/api/odoo/cashout",
		Body: cashoutPayload{
			Amount:       f.Draft.Amount,
			CategoryName: "RETIRADA",
			POSName:      f.Draft.POSName,
			Reason:       f.reason(),
			Usuario:      actorName(ctx, f.actor),
			CategoriaID:  f.Draft.CategoriaID,
		},
		Requested:    f.Draft.Amount,
		Title:        "Cashout enviado",
		FailureTitle: "Cashout fallido",
		Summary:      fmt.Sprintf("Solicitud enviada (%s)", money.FormatCLP(f.Draft.Amount)),
		SummaryFrom:  messageField,
		Fallback:     fmt.Sprintf("Cashout rechazado por validación (%s)", money.FormatCLP(f.Draft.Amount)),
	})
	if !f.Finish(out.OK()) {
		return out, ErrClosed
	}
	return out, nil
}

func messageField(body json.RawMessage) string {
	var d struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &d) != nil {
		return ""
	}
	return d.Message
}
