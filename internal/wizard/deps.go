package wizard

import (
	"context"
	"errors"
	"io"

	"atmricky/internal/accounting"
	"atmricky/internal/submission"

	"github.com/go-playground/validator/v10"
)

// Submitter sends a mutation and classifies the result.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) submission.Outcome
}

// ActorResolver names the operator on every mutation.
type ActorResolver interface {
	ResolveActorDisplayName(ctx context.Context) string
}

type BalancePrefetcher interface {
	PrefetchBalance(ctx context.Context, caja accounting.CajaID) *int64
}

type CajaSource interface {
	GetCaja(ctx context.Context) (*accounting.Caja, error)
}

type InvoiceSource interface {
	ListClientInvoices(ctx context.Context, clientID int64) ([]accounting.Invoice, error)
}

type SupportUploader interface {
	UploadSupport(ctx context.Context, filename string, r io.Reader) (*accounting.Support, error)
}

// SummaryLine is one row of the confirmation step.
type SummaryLine struct {
	Label string
	Value string
}

var validate = validator.New()

// checkFields validates the named draft fields and reports the first failure
// with its operator message.
func checkFields(draft any, messages map[string]string, fields ...string) error {
	err := validate.StructPartial(draft, fields...)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := messages[verrs[0].Field()]; ok {
			return errors.New(msg)
		}
		return errors.New(verrs[0].Error())
	}
	return err
}

func actorName(ctx context.Context, r ActorResolver) string {
	if r == nil {
		return ""
	}
	return r.ResolveActorDisplayName(ctx)
}
