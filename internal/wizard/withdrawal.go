package wizard

import (
	"context"
	"encoding/json"
	"fmt"

	"atmricky/internal/accounting"
	"atmricky/internal/money"
	"atmricky/internal/submission"
)

type WithdrawalDraft struct {
	Monto int64 `validate:"gt=0"`
}

// BankWithdrawalFlow moves cash out of the bank account in 2 steps: monto,
// confirmación.
type BankWithdrawalFlow struct {
	*Engine
	Draft WithdrawalDraft

	balance   BalancePrefetcher
	submitter Submitter
	actor     ActorResolver
}

func NewBankWithdrawalFlow(balance BalancePrefetcher, submitter Submitter, actor ActorResolver) *BankWithdrawalFlow {
	f := &BankWithdrawalFlow{balance: balance, submitter: submitter, actor: actor}
	f.Engine = NewEngine(
		Step{Title: "Monto", Check: func() error {
			return checkFields(f.Draft, map[string]string{"Monto": "Monto inválido"}, "Monto")
		}},
		Step{Title: "Confirmación"},
	)
	return f
}

func (f *BankWithdrawalFlow) SetMonto(n int64) { f.Draft.Monto = n }

func (f *BankWithdrawalFlow) SetMontoText(s string) error {
	n, err := money.ParseAmount(s)
	if err != nil {
		return err
	}
	f.Draft.Monto = n
	return nil
}

// BalanceWarning compares the amount with the prefetched bank balance. It is
// empty when the balance is unknown or sufficient.
func (f *BankWithdrawalFlow) BalanceWarning(ctx context.Context) string {
	if f.balance == nil {
		return ""
	}
	saldo := f.balance.PrefetchBalance(ctx, accounting.CajaBanco)
	if saldo == nil || f.Draft.Monto <= *saldo {
		return ""
	}
	return fmt.Sprintf("El monto supera el saldo de %s (%s)", accounting.CajaBanco.Name(), money.FormatCLP(*saldo))
}

func (f *BankWithdrawalFlow) Summary() []SummaryLine {
	return []SummaryLine{
		{Label: "Origen", Value: accounting.CajaBanco.Name()},
		{Label: "Destino", Value: accounting.CajaEfectivo.Name()},
		{Label: "Monto", Value: money.FormatCLP(f.Draft.Monto)},
	}
}

// Submit posts /api/cuenta/retiro, which books an egreso on the bank account
// and the matching ingreso in cash.
func (f *BankWithdrawalFlow) Submit(ctx context.Context) (submission.Outcome, error) {
	if err := f.BeginSubmit(); err != nil {
		return submission.Outcome{}, err
	}
	monto := f.Draft.Monto
	out := f.submitter.Submit(ctx, submission.Request{
		Source: "cuenta",
		Path:   "/api/cuenta/retiro",
		Body: map[string]any{
			"monto":       monto,
			"usuario":     actorName(ctx, f.actor),
			"Descripcion": "Retiro de efectivo desde Cuenta bancaria",
		},
		Requested:    monto,
		Title:        "Retiro realizado",
		FailureTitle: "Retiro fallido",
		Summary:      fmt.Sprintf("OK por %s.", money.FormatCLP(monto)),
		SummaryFrom: func(body json.RawMessage) string {
			var d struct {
				Egreso  *struct{ ID json.Number `json:"id"` } `json:"egreso"`
				Ingreso *struct{ ID json.Number `json:"id"` } `json:"ingreso"`
			}
			if json.Unmarshal(body, &d) != nil || d.Ingreso == nil || d.Ingreso.ID == "" {
				return ""
			}
			egreso := ""
			if d.Egreso != nil {
				egreso = d.Egreso.ID.String()
			}
			return fmt.Sprintf("OK: Tx %s y %s por %s.", egreso, d.Ingreso.ID, money.FormatCLP(monto))
		},
		Fallback: "No se pudo completar el retiro",
	})
	if !f.Finish(out.OK()) {
		return out, ErrClosed
	}
	return out, nil
}
