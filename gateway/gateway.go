// Package gateway adapts the payment providers to one create/query contract.
// The ledger only sees Gateway; each provider's wire format stays in its adapter.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"wedding-registry/models"
)

// ErrUnexpectedResponse marks provider replies the adapter could not interpret.
var ErrUnexpectedResponse = errors.New("unexpected provider response")

type CreateRequest struct {
	// Reference is the ledger's intent id. Adapters send it as the provider's
	// idempotency key and external reference.
	Reference   string
	Amount      int64 // minor units
	Currency    string
	Description string
	PayerName   string
	PayerEmail  string
}

// Intent is the provider's view of a freshly created payment.
type Intent struct {
	ProviderRef  string
	Status       models.IntentStatus
	QRCode       string
	QRCodeBase64 string
	RedirectURL  string
}

type Gateway interface {
	Method() models.PaymentMethod
	CreateIntent(ctx context.Context, req CreateRequest) (*Intent, error)
	// QueryStatus returns one of pending, approved, rejected or expired.
	QueryStatus(ctx context.Context, providerRef string) (models.IntentStatus, error)
}

// ProviderError is a non-2xx reply. Body is kept for logs only.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, body)
}

type Registry struct {
	gateways map[models.PaymentMethod]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[models.PaymentMethod]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Method()] = g
	}
	return r
}

func (r *Registry) Get(method models.PaymentMethod) (Gateway, bool) {
	g, ok := r.gateways[method]
	return g, ok
}

func (r *Registry) Methods() []models.PaymentMethod {
	out := make([]models.PaymentMethod, 0, len(r.gateways))
	for _, m := range []models.PaymentMethod{models.MethodPix, models.MethodCard, models.MethodInstallment} {
		if _, ok := r.gateways[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
