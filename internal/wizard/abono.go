package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"atmricky/internal/accounting"
	"atmricky/internal/money"
	"atmricky/internal/submission"
)

const (
	MetodoEfectivo      = "EFECTIVO"
	MetodoTransferencia = "TRANSFERENCIA"
)

type AbonoDraft struct {
	ClienteID  int64  `validate:"gt=0"`
	Metodo     string `validate:"required,oneof=EFECTIVO TRANSFERENCIA"`
	MontoTotal int64  `validate:"gt=0"`
	Referencia string
	Soporte    *accounting.Support
}

var abonoMessages = map[string]string{
	"ClienteID":  "Cliente requerido",
	"Metodo":     "Selecciona el método de pago",
	"MontoTotal": "El monto total debe ser mayor a 0",
}

var (
	ErrSoporteRequerido     = errors.New("Sube la imagen de soporte del abono")
	ErrDistribucionInvalida = errors.New("La distribución debe sumar exactamente el monto total")
)

// AbonoFlow applies a client payment to pending invoices in 4 steps: método
// and monto, soporte, distribución, confirmación.
type AbonoFlow struct {
	*Engine
	Draft     AbonoDraft
	Allocator *Allocator

	uploader  SupportUploader
	submitter Submitter
}

func NewAbonoFlow(clienteID int64, invoices []accounting.Invoice, uploader SupportUploader, submitter Submitter) *AbonoFlow {
	f := &AbonoFlow{
		Draft:     AbonoDraft{ClienteID: clienteID},
		Allocator: NewAllocator(invoices),
		uploader:  uploader,
		submitter: submitter,
	}
	f.Engine = NewEngine(
		Step{Title: "Método y monto", Check: func() error {
			return checkFields(f.Draft, abonoMessages, "ClienteID", "Metodo", "MontoTotal")
		}},
		Step{Title: "Soporte", Check: func() error {
			if f.Draft.Soporte == nil {
				return ErrSoporteRequerido
			}
			return nil
		}},
		Step{Title: "Distribución", Check: func() error {
			if !f.Allocator.Satisfied() {
				return ErrDistribucionInvalida
			}
			return nil
		}},
		Step{Title: "Confirmación"},
	)
	return f
}

// LoadAbonoFlow fetches the client's invoices first.
func LoadAbonoFlow(ctx context.Context, clienteID int64, src InvoiceSource, uploader SupportUploader, submitter Submitter) (*AbonoFlow, error) {
	invoices, err := src.ListClientInvoices(ctx, clienteID)
	if err != nil {
		return nil, err
	}
	return NewAbonoFlow(clienteID, invoices, uploader, submitter), nil
}

func (f *AbonoFlow) SetMetodo(m string) { f.Draft.Metodo = strings.ToUpper(strings.TrimSpace(m)) }

func (f *AbonoFlow) SetMontoTotal(n int64) {
	f.Draft.MontoTotal = n
	f.Allocator.SetTotal(n)
}

func (f *AbonoFlow) SetMontoTotalText(s string) error {
	n, err := money.ParseAmount(s)
	if err != nil {
		return err
	}
	f.SetMontoTotal(n)
	return nil
}

func (f *AbonoFlow) SetReferencia(s string) { f.Draft.Referencia = strings.TrimSpace(s) }

// Upload sends the support image; a failed upload leaves no soporte.
func (f *AbonoFlow) Upload(ctx context.Context, filename string, r io.Reader) error {
	f.Draft.Soporte = nil
	sup, err := f.uploader.UploadSupport(ctx, filename, r)
	if err != nil {
		return err
	}
	f.Draft.Soporte = sup
	return nil
}

func (f *AbonoFlow) Summary() []SummaryLine {
	lines := []SummaryLine{
		{Label: "Método", Value: f.Draft.Metodo},
		{Label: "Monto total", Value: money.FormatCOP(f.Draft.MontoTotal)},
	}
	if f.Draft.Referencia != "" {
		lines = append(lines, SummaryLine{Label: "Referencia", Value: f.Draft.Referencia})
	}
	if f.Draft.Soporte != nil {
		lines = append(lines, SummaryLine{Label: "Soporte", Value: f.Draft.Soporte.Nombre})
	}
	alloc, _ := f.Allocator.Allocate()
	for _, a := range alloc {
		lines = append(lines, SummaryLine{Label: fmt.Sprintf("Factura #%d", a.FacturaID), Value: money.FormatCOP(a.Valor)})
	}
	return lines
}

type abonoPayload struct {
	ClienteID    int64               `json:"cliente_id"`
	MetodoPago   string              `json:"metodo_pago"`
	MontoTotal   int64               `json:"monto_total"`
	Referencia   string              `json:"referencia,omitempty"`
	Distribucion []Allocation        `json:"distribucion"`
	Soporte      *accounting.Support `json:"soporte,omitempty"`
	Notificacion struct {
		Enviar bool `json:"enviar"`
	} `json:"notificacion"`
}

// Submit posts /api/cartera/abonos.
func (f *AbonoFlow) Submit(ctx context.Context) (submission.Outcome, error) {
	if err := f.BeginSubmit(); err != nil {
		return submission.Outcome{}, err
	}
	alloc, err := f.Allocator.Allocate()
	if err != nil {
		f.Finish(false)
		return submission.Outcome{}, err
	}
	out := f.submitter.Submit(ctx, submission.Request{
		Source: "abonos",
		Path:   "/api/cartera/abonos",
		Body: abonoPayload{
			ClienteID:    f.Draft.ClienteID,
			MetodoPago:   f.Draft.Metodo,
			MontoTotal:   f.Draft.MontoTotal,
			Referencia:   f.Draft.Referencia,
			Distribucion: alloc,
			Soporte:      f.Draft.Soporte,
		},
		Requested:    f.Draft.MontoTotal,
		Title:        "Abono creado",
		FailureTitle: "Error al crear el abono",
		Summary:      "Abono creado correctamente por " + money.FormatCOP(f.Draft.MontoTotal),
		Fallback:     "No se pudo crear el abono",
	})
	if !f.Finish(out.OK()) {
		return out, ErrClosed
	}
	return out, nil
}
