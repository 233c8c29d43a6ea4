package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"wedding-registry/models"

	"github.com/gojektech/heimdall/v6"
)

// CheckoutGateway sends card payments to a Stripe hosted Checkout Session.
type CheckoutGateway struct {
	client    heimdall.Doer
	baseURL   string
	secretKey string
	appURL    string
}

func NewCheckoutGateway(client heimdall.Doer, baseURL, secretKey, appURL string) *CheckoutGateway {
	return &CheckoutGateway{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		appURL:    strings.TrimRight(appURL, "/"),
	}
}

func (g *CheckoutGateway) Method() models.PaymentMethod { return models.MethodCard }

type checkoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

func (g *CheckoutGateway) CreateIntent(ctx context.Context, req CreateRequest) (*Intent, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", req.Reference)
	form.Set("success_url", g.appURL+"/gifts/success?intent="+req.Reference)
	form.Set("cancel_url", g.appURL+"/gifts/cancelled?intent="+req.Reference)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	form.Set("metadata[intent_id]", req.Reference)
	if req.PayerEmail != "" {
		form.Set("customer_email", req.PayerEmail)
	}

	headers := g.headers()
	headers["Content-Type"] = "application/x-www-form-urlencoded"
	headers["Idempotency-Key"] = req.Reference

	var session checkoutSession
	err := doJSON(ctx, g.client, http.MethodPost, g.baseURL+"/v1/checkout/sessions", headers, strings.NewReader(form.Encode()), &session)
	if err != nil {
		return nil, err
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("%w: checkout session without id or url", ErrUnexpectedResponse)
	}

	status, err := checkoutStatus(session)
	if err != nil {
		return nil, err
	}
	return &Intent{ProviderRef: session.ID, Status: status, RedirectURL: session.URL}, nil
}

func (g *CheckoutGateway) QueryStatus(ctx context.Context, providerRef string) (models.IntentStatus, error) {
	var session checkoutSession
	endpoint := g.baseURL + "/v1/checkout/sessions/" + url.PathEscape(providerRef)
	if err := doJSON(ctx, g.client, http.MethodGet, endpoint, g.headers(), nil, &session); err != nil {
		return "", err
	}
	return checkoutStatus(session)
}

func (g *CheckoutGateway) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + g.secretKey}
}

// A declined card keeps the session open for another attempt, so a session is
// never reported as rejected; it either completes or expires.
func checkoutStatus(s checkoutSession) (models.IntentStatus, error) {
	switch s.Status {
	case "open":
		return models.IntentPending, nil
	case "expired":
		return models.IntentExpired, nil
	case "complete":
		if s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required" {
			return models.IntentApproved, nil
		}
		return models.IntentPending, nil
	}
	return "", fmt.Errorf("%w: checkout status %q", ErrUnexpectedResponse, s.Status)
}
