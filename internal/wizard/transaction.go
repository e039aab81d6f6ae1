package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"atmricky/internal/accounting"
	"atmricky/internal/money"
	"atmricky/internal/submission"

	"github.com/rs/zerolog/log"
)

// TransactionDraft is the body of POST /api/transacciones minus usuario.
type TransactionDraft struct {
	Tipo        accounting.Tipo   `json:"-" validate:"required,oneof=INGRESO EGRESO"`
	CajaID      accounting.CajaID `json:"caja_id" validate:"required,oneof=1 2"`
	CategoriaID int64             `json:"categoria_id" validate:"required,gt=0"`
	Descripcion string            `json:"descripcion" validate:"required"`
	Monto       int64             `json:"monto" validate:"gt=0"`
}

var transactionMessages = map[string]string{
	"Tipo":        "Selecciona el tipo de movimiento.",
	"CajaID":      "Selecciona la caja.",
	"CategoriaID": "Selecciona una categoría.",
	"Descripcion": "Escribe una descripción.",
	"Monto":       "El monto debe ser mayor a 0.",
}

var ErrCategoriaNoDisponible = errors.New("La categoría no corresponde al tipo seleccionado")

// TransactionFlow registers an ingreso or egreso in 4 steps: tipo and caja,
// categoría, descripción and monto, confirmación.
type TransactionFlow struct {
	*Engine
	Draft TransactionDraft

	categories []accounting.Category
	balance    BalancePrefetcher
	submitter  Submitter
	actor      ActorResolver
}

func NewTransactionFlow(categories []accounting.Category, balance BalancePrefetcher, submitter Submitter, actor ActorResolver) *TransactionFlow {
	f := &TransactionFlow{
		Draft:      TransactionDraft{Tipo: accounting.Ingreso, CajaID: accounting.CajaEfectivo},
		categories: categories,
		balance:    balance,
		submitter:  submitter,
		actor:      actor,
	}
	f.Engine = NewEngine(
		Step{Title: "Tipo y caja", Check: func() error {
			return checkFields(f.Draft, transactionMessages, "Tipo", "CajaID")
		}},
		Step{Title: "Categoría", Check: func() error {
			if err := checkFields(f.Draft, transactionMessages, "CategoriaID"); err != nil {
				return err
			}
			if _, ok := f.category(f.Draft.CategoriaID); !ok {
				return ErrCategoriaNoDisponible
			}
			return nil
		}},
		Step{Title: "Descripción y monto", Check: func() error {
			return checkFields(f.Draft, transactionMessages, "Descripcion", "Monto")
		}},
		Step{Title: "Confirmación"},
	)
	return f
}

// SetTipo changes the direction and drops a category of the other tipo.
func (f *TransactionFlow) SetTipo(t accounting.Tipo) {
	f.Draft.Tipo = t
	if _, ok := f.category(f.Draft.CategoriaID); !ok {
		f.Draft.CategoriaID = 0
	}
}

func (f *TransactionFlow) SetCaja(c accounting.CajaID) { f.Draft.CajaID = c }

// Categories lists the categories of the current tipo, sorted by nombre.
func (f *TransactionFlow) Categories() []accounting.Category {
	return accounting.CategoriesByTipo(f.categories, f.Draft.Tipo)
}

func (f *TransactionFlow) category(id int64) (accounting.Category, bool) {
	for _, c := range f.categories {
		if c.ID == id && c.Tipo == f.Draft.Tipo {
			return c, true
		}
	}
	return accounting.Category{}, false
}

func (f *TransactionFlow) SetCategoria(id int64) error {
	if _, ok := f.category(id); !ok {
		return ErrCategoriaNoDisponible
	}
	f.Draft.CategoriaID = id
	return nil
}

func (f *TransactionFlow) SetDescripcion(s string) { f.Draft.Descripcion = strings.TrimSpace(s) }

func (f *TransactionFlow) SetMonto(n int64) { f.Draft.Monto = n }

// SetMontoText parses operator input such as "5.000".
func (f *TransactionFlow) SetMontoText(s string) error {
	n, err := money.ParseAmount(s)
	if err != nil {
		return err
	}
	f.Draft.Monto = n
	return nil
}

// Summary is the confirmation view of the draft.
func (f *TransactionFlow) Summary() []SummaryLine {
	cat, _ := f.category(f.Draft.CategoriaID)
	return []SummaryLine{
		{Label: "Tipo", Value: string(f.Draft.Tipo)},
		{Label: "Caja", Value: f.Draft.CajaID.Name()},
		{Label: "Categoría", Value: cat.Nombre},
		{Label: "Descripción", Value: f.Draft.Descripcion},
		{Label: "Monto", Value: money.FormatCLP(f.Draft.Monto)},
	}
}

// SuccessMessage is the notification shown after the backend accepts the draft.
func (f *TransactionFlow) SuccessMessage() string {
	return fmt.Sprintf("Se registró correctamente por %s en %s.", money.FormatCLP(f.Draft.Monto), f.Draft.CajaID.Name())
}

// Submit posts the draft. An egreso above a known balance is stopped locally
// with a conflict outcome and nothing is sent; an unknown balance does not
// block.
func (f *TransactionFlow) Submit(ctx context.Context) (submission.Outcome, error) {
	if err := f.BeginSubmit(); err != nil {
		return submission.Outcome{}, err
	}

	if f.Draft.Tipo == accounting.Egreso && f.balance != nil {
		if saldo := f.balance.PrefetchBalance(ctx, f.Draft.CajaID); saldo != nil && f.Draft.Monto > *saldo {
			requested := f.Draft.Monto
			current := *saldo
			out := submission.Outcome{
				Kind:           submission.KindConflict,
				Message:        "El monto solicitado supera el saldo disponible en caja.",
				Requested:      &requested,
				CurrentBalance: &current,
			}
			if !f.Finish(false) {
				return out, ErrClosed
			}
			return out, nil
		}
	}

	body := struct {
		TransactionDraft
		Usuario string `json:"usuario"`
	}{TransactionDraft: f.Draft, Usuario: actorName(ctx, f.actor)}

	out := f.submitter.Submit(ctx, submission.Request{
		Source:       "transacciones",
		Path:         "/api/transacciones",
		Body:         body,
		Requested:    f.Draft.Monto,
		Title:        "Transacción creada",
		FailureTitle: "No se pudo crear",
		Summary:      f.SuccessMessage(),
		Fallback:     "Error al crear transacción",
	})
	if !f.Finish(out.OK()) {
		log.Debug().Str("wizard", f.ID().String()).Msg("wizard: outcome ignored after close")
		return out, ErrClosed
	}
	return out, nil
}
