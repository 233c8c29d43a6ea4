package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
	"wedding-registry/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxLifecycle(t *testing.T) {
	sb := NewSandbox(models.MethodPix)
	ctx := context.Background()

	intent, err := sb.CreateIntent(ctx, CreateRequest{Reference: "ref", Amount: 100, Currency: "BRL"})
	require.NoError(t, err)
	assert.NotEmpty(t, intent.QRCode)
	assert.NotEmpty(t, intent.QRCodeBase64)

	status, err := sb.QueryStatus(ctx, intent.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, models.IntentPending, status)

	sb.SetStatus(intent.ProviderRef, models.IntentApproved)
	status, err = sb.QueryStatus(ctx, intent.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, models.IntentApproved, status)

	_, err = sb.QueryStatus(ctx, "missing")
	assert.Error(t, err)
}

func TestSandboxRedirectMethods(t *testing.T) {
	intent, err := NewSandbox(models.MethodCard).CreateIntent(context.Background(), CreateRequest{Reference: "ref"})
	require.NoError(t, err)
	assert.Contains(t, intent.RedirectURL, intent.ProviderRef)
	assert.Empty(t, intent.QRCode)
}

func TestSandboxFailuresAndDelay(t *testing.T) {
	sb := NewSandbox(models.MethodPix)
	boom := errors.New("boom")
	sb.FailCreate(boom)
	_, err := sb.CreateIntent(context.Background(), CreateRequest{Reference: "ref"})
	assert.ErrorIs(t, err, boom)

	sb.FailCreate(nil)
	sb.SetDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = sb.CreateIntent(ctx, CreateRequest{Reference: "ref"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewSandbox(models.MethodCard), NewSandbox(models.MethodPix))

	g, ok := reg.Get(models.MethodPix)
	require.True(t, ok)
	assert.Equal(t, models.MethodPix, g.Method())

	_, ok = reg.Get(models.MethodInstallment)
	assert.False(t, ok)
	assert.Equal(t, []models.PaymentMethod{models.MethodPix, models.MethodCard}, reg.Methods())
}
