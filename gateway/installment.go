package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"wedding-registry/models"

	"github.com/gojektech/heimdall/v6"
)

// InstallmentGateway creates a Mercado Pago checkout preference that lets the
// payer split a card payment into installments. Payments made through the
// preference are found again by external reference, so ProviderRef is the
// ledger's own reference.
type InstallmentGateway struct {
	client          heimdall.Doer
	baseURL         string
	accessToken     string
	appURL          string
	maxInstallments int
	expiry          time.Duration
}

func NewInstallmentGateway(client heimdall.Doer, baseURL, accessToken, appURL string, maxInstallments int, expiry time.Duration) *InstallmentGateway {
	return &InstallmentGateway{
		client:          client,
		baseURL:         strings.TrimRight(baseURL, "/"),
		accessToken:     accessToken,
		appURL:          strings.TrimRight(appURL, "/"),
		maxInstallments: maxInstallments,
		expiry:          expiry,
	}
}

func (g *InstallmentGateway) Method() models.PaymentMethod { return models.MethodInstallment }

type preferenceItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
}

type preferenceRequest struct {
	Items             []preferenceItem  `json:"items"`
	ExternalReference string            `json:"external_reference"`
	Payer             *mpPayer          `json:"payer,omitempty"`
	PaymentMethods    map[string]any    `json:"payment_methods"`
	BackURLs          map[string]string `json:"back_urls"`
	AutoReturn        string            `json:"auto_return"`
	Expires           bool              `json:"expires"`
	ExpirationDateTo  string            `json:"expiration_date_to,omitempty"`
}

type preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type paymentSearch struct {
	Results []mpPayment `json:"results"`
}

func (g *InstallmentGateway) CreateIntent(ctx context.Context, req CreateRequest) (*Intent, error) {
	back := g.appURL + "/gifts/%s?intent=" + req.Reference
	body := preferenceRequest{
		Items: []preferenceItem{{
			ID:         req.Reference,
			Title:      req.Description,
			Quantity:   1,
			UnitPrice:  decimalAmount(req.Amount),
			CurrencyID: strings.ToUpper(req.Currency),
		}},
		ExternalReference: req.Reference,
		PaymentMethods: map[string]any{
			"installments":           g.maxInstallments,
			"excluded_payment_types": []map[string]string{{"id": "ticket"}},
		},
		BackURLs: map[string]string{
			"success": fmt.Sprintf(back, "success"),
			"pending": fmt.Sprintf(back, "pending"),
			"failure": fmt.Sprintf(back, "cancelled"),
		},
		AutoReturn: "approved",
	}
	if req.PayerEmail != "" {
		body.Payer = &mpPayer{Email: req.PayerEmail, FirstName: req.PayerName}
	}
	if g.expiry > 0 {
		body.Expires = true
		body.ExpirationDateTo = time.Now().Add(g.expiry).Format("2006-01-02T15:04:05.000-07:00")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Authorization":     "Bearer " + g.accessToken,
		"Content-Type":      "application/json",
		"X-Idempotency-Key": req.Reference,
	}
	var pref preference
	err = doJSON(ctx, g.client, http.MethodPost, g.baseURL+"/checkout/preferences", headers, bytes.NewReader(payload), &pref)
	if err != nil {
		return nil, err
	}
	if pref.ID == "" || pref.InitPoint == "" {
		return nil, fmt.Errorf("%w: preference without id or init_point", ErrUnexpectedResponse)
	}

	return &Intent{ProviderRef: req.Reference, Status: models.IntentPending, RedirectURL: pref.InitPoint}, nil
}

// QueryStatus reports approved once any payment for the reference is approved.
// Rejected attempts leave the intent pending because the payer can retry on
// the same preference; abandoned intents are expired by the sweeper.
func (g *InstallmentGateway) QueryStatus(ctx context.Context, providerRef string) (models.IntentStatus, error) {
	q := url.Values{}
	q.Set("external_reference", providerRef)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")

	headers := map[string]string{"Authorization": "Bearer " + g.accessToken}
	var search paymentSearch
	if err := doJSON(ctx, g.client, http.MethodGet, g.baseURL+"/v1/payments/search?"+q.Encode(), headers, nil, &search); err != nil {
		return "", err
	}

	for _, p := range search.Results {
		if p.Status == "approved" {
			return models.IntentApproved, nil
		}
	}
	return models.IntentPending, nil
}
