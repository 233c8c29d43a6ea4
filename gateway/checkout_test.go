package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"
	"wedding-registry/models"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stripeBase = "https://stripe.test"

func newTestCheckout() *CheckoutGateway {
	return NewCheckoutGateway(NewHTTPClient(2*time.Second, 0), stripeBase, "sk_test", "https://wedding.test/")
}

func TestCheckoutCreateIntent(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, stripeBase+"/v1/checkout/sessions", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer sk_test", req.Header.Get("Authorization"))
		assert.Equal(t, "intent-9", req.Header.Get("Idempotency-Key"))
		require.NoError(t, req.ParseForm())
		assert.Equal(t, "payment", req.PostForm.Get("mode"))
		assert.Equal(t, "brl", req.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "5000", req.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "https://wedding.test/gifts/success?intent=intent-9", req.PostForm.Get("success_url"))

		return httpmock.NewJsonResponse(http.StatusOK, map[string]string{
			"id":             "cs_test_1",
			"url":            "https://checkout.stripe.test/c/pay/cs_test_1",
			"status":         "open",
			"payment_status": "unpaid",
		})
	})

	intent, err := newTestCheckout().CreateIntent(context.Background(), CreateRequest{
		Reference: "intent-9", Amount: 5000, Currency: "BRL", Description: "Espresso machine",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", intent.ProviderRef)
	assert.Equal(t, models.IntentPending, intent.Status)
	assert.Equal(t, "https://checkout.stripe.test/c/pay/cs_test_1", intent.RedirectURL)
}

func TestCheckoutQueryStatus(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	tests := map[string]struct {
		status, payment string
		want            models.IntentStatus
	}{
		"open":            {"open", "unpaid", models.IntentPending},
		"paid":            {"complete", "paid", models.IntentApproved},
		"complete unpaid": {"complete", "unpaid", models.IntentPending},
		"expired":         {"expired", "unpaid", models.IntentExpired},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			httpmock.RegisterResponder(http.MethodGet, stripeBase+"/v1/checkout/sessions/cs_1",
				httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]string{
					"id": "cs_1", "status": tc.status, "payment_status": tc.payment,
				}))

			status, err := newTestCheckout().QueryStatus(context.Background(), "cs_1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestCheckoutServerError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, stripeBase+"/v1/checkout/sessions/cs_1",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))

	_, err := newTestCheckout().QueryStatus(context.Background(), "cs_1")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusServiceUnavailable, perr.StatusCode)
}
