package services

import (
	"context"
	"testing"
	"time"
	"wedding-registry/gateway"
	"wedding-registry/models"
	"wedding-registry/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	invitations *InvitationService
	registry    *GiftRegistry
	ledger      *ContributionLedger
	questions   *QuestionService
	gateways    *gateway.Registry
	sandboxes   map[models.PaymentMethod]*gateway.Sandbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	pins, err := NewPINGenerator(6, "ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	require.NoError(t, err)

	sandboxes := map[models.PaymentMethod]*gateway.Sandbox{
		models.MethodPix:         gateway.NewSandbox(models.MethodPix),
		models.MethodCard:        gateway.NewSandbox(models.MethodCard),
		models.MethodInstallment: gateway.NewSandbox(models.MethodInstallment),
	}
	gateways := gateway.NewRegistry(sandboxes[models.MethodPix], sandboxes[models.MethodCard], sandboxes[models.MethodInstallment])

	registry := NewGiftRegistry(db, nil)
	return &fixture{
		db:          db,
		invitations: NewInvitationService(db, pins, nil),
		registry:    registry,
		ledger: NewContributionLedger(db, registry, gateways, NewLocalLocker(), nil, LedgerConfig{
			Currency:        "BRL",
			MinContribution: 1,
			GatewayTimeout:  time.Second,
		}),
		questions: NewQuestionService(db),
		gateways:  gateways,
		sandboxes: sandboxes,
	}
}

func (f *fixture) gift(t *testing.T, value int64, paymentType models.PaymentType) *models.Gift {
	t.Helper()
	gift, err := f.registry.CreateGift(context.Background(), models.CreateGiftRequest{
		Title:       "Gift",
		Value:       value,
		PaymentType: paymentType,
	})
	require.NoError(t, err)
	return gift
}

func (f *fixture) initiate(t *testing.T, gift models.Gift, amount int64) *models.ContributionIntent {
	t.Helper()
	intent, err := f.ledger.Initiate(context.Background(), gift.ID, nil, models.InitiateContributionRequest{
		Contributor: "Ana",
		Amount:      amount,
		Method:      models.MethodPix,
	})
	require.NoError(t, err)
	return intent
}

// approve marks the intent paid at its sandbox gateway.
func (f *fixture) approve(intent *models.ContributionIntent) {
	f.sandboxes[intent.Method].SetStatus(intent.ProviderRef, models.IntentApproved)
}

func (f *fixture) reload(t *testing.T, gift *models.Gift) *models.Gift {
	t.Helper()
	fresh, err := f.registry.GetGift(context.Background(), gift.ID)
	require.NoError(t, err)
	return fresh
}
