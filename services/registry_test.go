package services

import (
	"context"
	"testing"
	"wedding-registry/apperror"
	"wedding-registry/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateGiftValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.registry.CreateGift(ctx, models.CreateGiftRequest{Title: " ", Value: 100, PaymentType: models.PaymentFull})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.registry.CreateGift(ctx, models.CreateGiftRequest{Title: "Lamp", Value: 0, PaymentType: models.PaymentFull})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.registry.CreateGift(ctx, models.CreateGiftRequest{Title: "Lamp", Value: 100, PaymentType: "some"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	gift, err := f.registry.CreateGift(ctx, models.CreateGiftRequest{Title: " Lamp ", Value: 100, PaymentType: models.PaymentFull})
	require.NoError(t, err)
	assert.Equal(t, "Lamp", gift.Title)
	assert.Zero(t, gift.AmountCollected)
}

func TestApplyFunding(t *testing.T) {
	f := newFixture(t)
	partial := f.gift(t, 100, models.PaymentPartial)
	full := f.gift(t, 300, models.PaymentFull)

	apply := func(giftID uuid.UUID, amount int64) (*models.Gift, error) {
		var gift *models.Gift
		err := f.db.Transaction(func(tx *gorm.DB) error {
			var err error
			gift, err = f.registry.ApplyFunding(tx, giftID, amount)
			return err
		})
		return gift, err
	}

	gift, err := apply(partial.ID, 60)
	require.NoError(t, err)
	assert.EqualValues(t, 60, gift.AmountCollected)
	assert.EqualValues(t, 40, gift.Remaining())

	_, err = apply(partial.ID, 41)
	assert.True(t, apperror.Is(err, apperror.KindOverfunding))

	gift, err = apply(partial.ID, 40)
	require.NoError(t, err)
	assert.True(t, gift.GoalReached())

	_, err = apply(full.ID, 100)
	assert.True(t, apperror.Is(err, apperror.KindOverfunding), "full gifts only accept their whole value")

	gift, err = apply(full.ID, 300)
	require.NoError(t, err)
	assert.EqualValues(t, 300, gift.AmountCollected)

	_, err = apply(uuid.New(), 10)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestUpdateGift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gift := f.gift(t, 1000, models.PaymentPartial)

	intent := f.initiate(t, *gift, 600)
	f.approve(intent)
	_, err := f.ledger.Reconcile(ctx, intent.ID)
	require.NoError(t, err)

	lower := int64(500)
	_, err = f.registry.UpdateGift(ctx, gift.ID, models.UpdateGiftRequest{Value: &lower})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	full := models.PaymentFull
	_, err = f.registry.UpdateGift(ctx, gift.ID, models.UpdateGiftRequest{PaymentType: &full})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	title := "Dinner for two"
	higher := int64(1500)
	updated, err := f.registry.UpdateGift(ctx, gift.ID, models.UpdateGiftRequest{Title: &title, Value: &higher})
	require.NoError(t, err)
	assert.Equal(t, "Dinner for two", updated.Title)
	assert.EqualValues(t, 1500, updated.Value)
	assert.EqualValues(t, 600, updated.AmountCollected)

	_, err = f.registry.UpdateGift(ctx, uuid.New(), models.UpdateGiftRequest{Title: &title})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestListGiftsVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hidden, err := f.registry.CreateGift(ctx, models.CreateGiftRequest{
		Title: "Blender", Value: 100, PaymentType: models.PaymentFull, DisableOnGoalReached: true,
	})
	require.NoError(t, err)
	kept, err := f.registry.CreateGift(ctx, models.CreateGiftRequest{
		Title: "Kettle", Value: 100, PaymentType: models.PaymentFull,
	})
	require.NoError(t, err)
	f.gift(t, 1000, models.PaymentPartial)

	for _, g := range []*models.Gift{hidden, kept} {
		intent, err := f.ledger.Initiate(ctx, g.ID, nil, models.InitiateContributionRequest{
			Contributor: "Ana", Amount: 100, Method: models.MethodCard,
		})
		require.NoError(t, err)
		f.approve(intent)
		_, err = f.ledger.Reconcile(ctx, intent.ID)
		require.NoError(t, err)
	}

	public, err := f.registry.ListGifts(ctx, models.GiftFilter{IncludeUnavailable: true}, false)
	require.NoError(t, err)
	assert.Len(t, public, 2)
	for _, g := range public {
		assert.NotEqual(t, hidden.ID, g.ID)
	}

	admin, err := f.registry.ListGifts(ctx, models.GiftFilter{IncludeUnavailable: true}, true)
	require.NoError(t, err)
	assert.Len(t, admin, 3)

	fullOnly, err := f.registry.ListGifts(ctx, models.GiftFilter{PaymentType: models.PaymentFull}, true)
	require.NoError(t, err)
	assert.Len(t, fullOnly, 1)
	assert.Equal(t, kept.ID, fullOnly[0].ID)

	remaining, err := f.registry.RemainingAmount(ctx, kept.ID)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestLinksAndCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gift := f.gift(t, 1000, models.PaymentPartial)

	link, err := f.registry.CreateLink(ctx, models.LinkRequest{Title: "Department store", URL: "https://store.example.com/list/42"})
	require.NoError(t, err)

	_, err = f.registry.CreateLink(ctx, models.LinkRequest{Title: "Broken", URL: "not a url"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	updated, err := f.registry.UpdateLink(ctx, link.ID, models.LinkRequest{Title: "Store", URL: "https://store.example.com/list/43"})
	require.NoError(t, err)
	assert.Equal(t, "Store", updated.Title)

	items, err := f.registry.ListCatalog(ctx, false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.CatalogGift, items[0].Kind)
	assert.Equal(t, gift.ID, items[0].Gift.ID)
	assert.Nil(t, items[0].Link)
	assert.Equal(t, models.CatalogLink, items[1].Kind)
	assert.Equal(t, link.ID, items[1].Link.ID)
	assert.Nil(t, items[1].Gift)

	require.NoError(t, f.registry.DeleteLink(ctx, link.ID))
	assert.True(t, apperror.Is(f.registry.DeleteLink(ctx, link.ID), apperror.KindNotFound))
	assert.True(t, apperror.Is(f.registry.DeleteGift(ctx, uuid.New()), apperror.KindNotFound))
}
