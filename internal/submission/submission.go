// Package submission sends wizard mutations to the accounting backend and
// classifies the outcome. A mutation is sent exactly once per Submit call;
// retrying is the user's decision.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"atmricky/internal/apiclient"
	"atmricky/internal/money"
	"atmricky/internal/notify"

	"github.com/rs/zerolog/log"
)

type Kind int

const (
	KindSuccess Kind = iota
	KindSoftRejection
	KindConflict
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindSoftRejection:
		return "soft_rejection"
	case KindConflict:
		return "conflict"
	default:
		return "generic"
	}
}

// Publisher announces confirmed mutations to other views.
type Publisher interface {
	PublishMutation(ctx context.Context, source string)
}

// Request describes one mutation.
type Request struct {
	// Source names the emitter on the mutation broadcast.
	Source string
	Method string // POST when empty
	Path   string
	Body   any
	// Requested is the draft amount; it stands in for a conflict body that
	// omits monto_solicitado.
	Requested int64
	// Title prefixes notifications ("Transacción creada", "Cashout enviado").
	Title        string
	FailureTitle string
	// Summary is the success message; SummaryFrom, when set, may derive a
	// better one from the 2xx body and returns "" to keep Summary.
	Summary     string
	SummaryFrom func(body json.RawMessage) string
	// Fallback is the message used when the server gives none.
	Fallback string
}

// Outcome is the classified result. For KindConflict the figures are kept
// apart: Requested and CurrentBalance are nil when the server did not send
// them and no draft amount was available.
type Outcome struct {
	Kind           Kind
	Status         int
	Message        string
	Requested      *int64
	CurrentBalance *int64
	Body           json.RawMessage
}

func (o Outcome) OK() bool { return o.Kind == KindSuccess }

func (o Outcome) Error() string { return o.Message }

type Handler struct {
	api      *apiclient.Client
	bus      Publisher
	notifier notify.Notifier
}

func NewHandler(api *apiclient.Client, bus Publisher, notifier notify.Notifier) *Handler {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Handler{api: api, bus: bus, notifier: notifier}
}

func (h *Handler) Submit(ctx context.Context, req Request) Outcome {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	fallback := req.Fallback
	if fallback == "" {
		fallback = "No se pudo completar la operación"
	}
	failTitle := req.FailureTitle
	if failTitle == "" {
		failTitle = "Error"
	}

	resp, err := h.api.SendJSON(ctx, method, req.Path, req.Body, nil)
	if err != nil {
		out := Outcome{Kind: KindGeneric, Message: err.Error()}
		if errors.Is(err, apiclient.ErrServerUnreachable) {
			log.Warn().Err(err).Str("path", req.Path).Msg("submission: server unreachable")
		}
		h.notifier.Notify(ctx, notify.Notification{Level: notify.Error, Title: failTitle, Message: out.Message})
		return out
	}

	out := Classify(resp.Status, resp.Body, req.Requested, fallback)
	switch out.Kind {
	case KindSuccess:
		msg := req.Summary
		if req.SummaryFrom != nil {
			if s := req.SummaryFrom(out.Body); s != "" {
				msg = s
			}
		}
		out.Message = msg
		if h.bus != nil {
			h.bus.PublishMutation(ctx, req.Source)
		}
		h.notifier.Notify(ctx, notify.Notification{Level: notify.Success, Title: req.Title, Message: msg})
	default:
		log.Info().Str("path", req.Path).Int("status", out.Status).Str("kind", out.Kind.String()).Msg("submission: rejected")
		h.notifier.Notify(ctx, notify.Notification{Level: notify.Error, Title: failTitle, Message: out.Message})
	}
	return out
}

type rejectionBody struct {
	OK              *bool           `json:"ok"`
	Error           string          `json:"error"`
	Message         string          `json:"message"`
	MontoSolicitado json.RawMessage `json:"monto_solicitado"`
	SaldoActual     json.RawMessage `json:"saldo_actual"`
	Requested       json.RawMessage `json:"requested"`
	CurrentBalance  json.RawMessage `json:"currentBalance"`
}

// Classify maps a status and body to an Outcome. It does no I/O.
func Classify(status int, body []byte, requested int64, fallback string) Outcome {
	out := Outcome{Status: status, Body: json.RawMessage(body)}
	var rb rejectionBody
	decoded := json.Unmarshal(body, &rb) == nil
	text := strings.TrimSpace(string(body))

	switch {
	case status >= 200 && status < 300:
		if decoded && rb.OK != nil && !*rb.OK {
			out.Kind = KindSoftRejection
			out.Message = firstNonEmpty(rb.Message, rb.Error, fallback)
			return out
		}
		out.Kind = KindSuccess
		return out

	case status == http.StatusConflict || status == http.StatusBadRequest:
		out.Kind = KindConflict
		if decoded {
			out.Requested = firstAmount(rb.MontoSolicitado, rb.Requested)
			out.CurrentBalance = firstAmount(rb.SaldoActual, rb.CurrentBalance)
		}
		if out.Requested == nil && requested > 0 {
			r := requested
			out.Requested = &r
		}
		switch {
		case decoded && rb.Error != "":
			out.Message = rb.Error
		case !decoded && text != "":
			out.Message = text
		case status == http.StatusConflict:
			out.Message = "Saldo insuficiente en caja para realizar el egreso"
		default:
			out.Message = "Solicitud inválida"
		}
		return out

	default:
		out.Kind = KindGeneric
		if decoded && rb.Error != "" {
			out.Message = rb.Error
		} else {
			out.Message = firstNonEmpty(text, fallback)
		}
		return out
	}
}

func firstAmount(raws ...json.RawMessage) *int64 {
	for _, raw := range raws {
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		if n, ok := money.FromJSON(raw); ok {
			return &n
		}
	}
	return nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ConflictDetail renders the two conflict figures on separate lines.
func ConflictDetail(o Outcome) string {
	var b strings.Builder
	b.WriteString(o.Message)
	if o.Requested != nil {
		b.WriteString("\n  Solicitado: " + money.FormatCLP(*o.Requested))
	}
	if o.CurrentBalance != nil {
		b.WriteString("\n  Saldo actual: " + money.FormatCLP(*o.CurrentBalance))
	}
	return b.String()
}
