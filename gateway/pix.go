package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"wedding-registry/models"

	"github.com/gojektech/heimdall/v6"
)

// PixGateway creates instant bank-transfer payments on Mercado Pago. Guests pay
// by scanning the returned QR code or pasting the copy-and-paste code.
type PixGateway struct {
	client        heimdall.Doer
	baseURL       string
	accessToken   string
	expiry        time.Duration
	fallbackEmail string
}

func NewPixGateway(client heimdall.Doer, baseURL, accessToken string, expiry time.Duration, fallbackEmail string) *PixGateway {
	return &PixGateway{
		client:        client,
		baseURL:       strings.TrimRight(baseURL, "/"),
		accessToken:   accessToken,
		expiry:        expiry,
		fallbackEmail: fallbackEmail,
	}
}

func (g *PixGateway) Method() models.PaymentMethod { return models.MethodPix }

type mpPayer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

type mpPaymentRequest struct {
	TransactionAmount json.Number `json:"transaction_amount"`
	Description       string      `json:"description"`
	PaymentMethodID   string      `json:"payment_method_id"`
	ExternalReference string      `json:"external_reference"`
	DateOfExpiration  string      `json:"date_of_expiration,omitempty"`
	Payer             mpPayer     `json:"payer"`
}

type mpPayment struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	StatusDetail       string `json:"status_detail"`
	ExternalReference  string `json:"external_reference"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (g *PixGateway) CreateIntent(ctx context.Context, req CreateRequest) (*Intent, error) {
	email := req.PayerEmail
	if email == "" {
		email = g.fallbackEmail
	}
	body := mpPaymentRequest{
		TransactionAmount: decimalAmount(req.Amount),
		Description:       req.Description,
		PaymentMethodID:   "pix",
		ExternalReference: req.Reference,
		Payer:             mpPayer{Email: email, FirstName: req.PayerName},
	}
	if g.expiry > 0 {
		body.DateOfExpiration = time.Now().Add(g.expiry).Format("2006-01-02T15:04:05.000-07:00")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var payment mpPayment
	err = doJSON(ctx, g.client, http.MethodPost, g.baseURL+"/v1/payments", g.headers(req.Reference), bytes.NewReader(payload), &payment)
	if err != nil {
		return nil, err
	}

	qr := payment.PointOfInteraction.TransactionData
	if payment.ID == 0 || qr.QRCode == "" {
		return nil, fmt.Errorf("%w: payment without id or qr code", ErrUnexpectedResponse)
	}
	if qr.QRCodeBase64 == "" {
		if qr.QRCodeBase64, err = renderQR(qr.QRCode); err != nil {
			return nil, err
		}
	}

	status, err := mercadoPagoStatus(payment.Status, payment.StatusDetail)
	if err != nil {
		return nil, err
	}
	return &Intent{
		ProviderRef:  strconv.FormatInt(payment.ID, 10),
		Status:       status,
		QRCode:       qr.QRCode,
		QRCodeBase64: qr.QRCodeBase64,
	}, nil
}

func (g *PixGateway) QueryStatus(ctx context.Context, providerRef string) (models.IntentStatus, error) {
	var payment mpPayment
	endpoint := g.baseURL + "/v1/payments/" + url.PathEscape(providerRef)
	if err := doJSON(ctx, g.client, http.MethodGet, endpoint, g.headers(""), nil, &payment); err != nil {
		return "", err
	}
	return mercadoPagoStatus(payment.Status, payment.StatusDetail)
}

func (g *PixGateway) headers(idempotencyKey string) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + g.accessToken,
		"Content-Type":  "application/json",
	}
	if idempotencyKey != "" {
		h["X-Idempotency-Key"] = idempotencyKey
	}
	return h
}

// mercadoPagoStatus folds Mercado Pago payment statuses into the ledger's.
func mercadoPagoStatus(status, detail string) (models.IntentStatus, error) {
	switch status {
	case "approved":
		return models.IntentApproved, nil
	case "pending", "in_process", "in_mediation", "authorized":
		return models.IntentPending, nil
	case "rejected", "refunded", "charged_back":
		return models.IntentRejected, nil
	case "cancelled":
		if detail == "expired" {
			return models.IntentExpired, nil
		}
		return models.IntentRejected, nil
	}
	return "", fmt.Errorf("%w: payment status %q", ErrUnexpectedResponse, status)
}
