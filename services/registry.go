package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"wedding-registry/apperror"
	"wedding-registry/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	publicCachePrefix = "registry:public:"
	publicCacheTTL    = time.Minute
)

// GiftRegistry owns gifts and external links. The funding total of a gift is
// only moved through ApplyFunding, inside the ledger's transaction.
type GiftRegistry struct {
	db    *gorm.DB
	cache *redis.Client
}

// NewGiftRegistry accepts a nil cache; public listings then always hit the database.
func NewGiftRegistry(db *gorm.DB, cache *redis.Client) *GiftRegistry {
	return &GiftRegistry{db: db, cache: cache}
}

// ============================================================
// GIFTS
// ============================================================

func (r *GiftRegistry) CreateGift(ctx context.Context, req models.CreateGiftRequest) (*models.Gift, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, apperror.Validation("title is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	gift := models.Gift{
		Title:                req.Title,
		Description:          strings.TrimSpace(req.Description),
		ImageURL:             req.ImageURL,
		Value:                req.Value,
		PaymentType:          req.PaymentType,
		DisableOnGoalReached: req.DisableOnGoalReached,
	}
	if err := r.db.WithContext(ctx).Create(&gift).Error; err != nil {
		return nil, storeError(err, "create gift")
	}
	r.InvalidateCache(ctx)

	log.Info().Str("gift_id", gift.ID.String()).Int64("value", gift.Value).Str("payment_type", string(gift.PaymentType)).Msg("gift created")
	return &gift, nil
}

// UpdateGift never touches amount_collected. The write is conditional on the
// version read, so an approval credited in between turns into a ConflictError
// instead of being validated against a stale total.
func (r *GiftRegistry) UpdateGift(ctx context.Context, id uuid.UUID, req models.UpdateGiftRequest) (*models.Gift, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var gift models.Gift
	if err := r.db.WithContext(ctx).First(&gift, "id = ?", id).Error; err != nil {
		return nil, storeError(err, "gift")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperror.Validation("title is required")
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.DisableOnGoalReached != nil {
		updates["disable_on_goal_reached"] = *req.DisableOnGoalReached
	}

	value, paymentType := gift.Value, gift.PaymentType
	if req.Value != nil {
		value = *req.Value
	}
	if req.PaymentType != nil {
		paymentType = *req.PaymentType
	}
	if value < gift.AmountCollected {
		return nil, apperror.Validation("value cannot be lower than the amount already collected")
	}
	if paymentType == models.PaymentFull && gift.AmountCollected > 0 && value != gift.AmountCollected {
		return nil, apperror.Validation("a full-payment gift that received money must keep value equal to the amount collected")
	}
	if value != gift.Value {
		updates["goal_value"] = value
	}
	if paymentType != gift.PaymentType {
		updates["payment_type"] = paymentType
	}
	if len(updates) == 0 {
		return &gift, nil
	}
	updates["version"] = gorm.Expr("version + 1")

	res := r.db.WithContext(ctx).Model(&models.Gift{}).
		Where("id = ? AND version = ?", id, gift.Version).
		Updates(updates)
	if res.Error != nil {
		return nil, storeError(res.Error, "update gift")
	}
	if res.RowsAffected == 0 {
		return nil, apperror.Conflict("gift was modified concurrently, retry")
	}
	r.InvalidateCache(ctx)

	return r.GetGift(ctx, id)
}

// DeleteGift leaves intents in place; a later approval for them resolves to rejected.
func (r *GiftRegistry) DeleteGift(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Gift{})
	if res.Error != nil {
		return storeError(res.Error, "delete gift")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("gift")
	}
	r.InvalidateCache(ctx)

	log.Info().Str("gift_id", id.String()).Msg("gift deleted")
	return nil
}

func (r *GiftRegistry) GetGift(ctx context.Context, id uuid.UUID) (*models.Gift, error) {
	var gift models.Gift
	if err := r.db.WithContext(ctx).First(&gift, "id = ?", id).Error; err != nil {
		return nil, storeError(err, "gift")
	}
	return &gift, nil
}

// ListGifts hides gifts that stopped accepting contributions unless the caller
// is an admin asking for them.
func (r *GiftRegistry) ListGifts(ctx context.Context, filter models.GiftFilter, admin bool) ([]models.Gift, error) {
	if err := validateStruct(filter); err != nil {
		return nil, err
	}
	includeUnavailable := admin && filter.IncludeUnavailable

	cacheKey := publicCachePrefix + "gifts:" + string(filter.PaymentType)
	var gifts []models.Gift
	if !includeUnavailable && r.getCached(ctx, cacheKey, &gifts) {
		return gifts, nil
	}

	query := r.db.WithContext(ctx).Order("created_at ASC")
	if filter.PaymentType != "" {
		query = query.Where("payment_type = ?", filter.PaymentType)
	}
	if err := query.Find(&gifts).Error; err != nil {
		return nil, storeError(err, "list gifts")
	}

	if includeUnavailable {
		return gifts, nil
	}
	visible := make([]models.Gift, 0, len(gifts))
	for _, g := range gifts {
		if g.Available() {
			visible = append(visible, g)
		}
	}
	r.setCached(ctx, cacheKey, visible)
	return visible, nil
}

func (r *GiftRegistry) RemainingAmount(ctx context.Context, id uuid.UUID) (int64, error) {
	gift, err := r.GetGift(ctx, id)
	if err != nil {
		return 0, err
	}
	return gift.Remaining(), nil
}

// ApplyFunding credits amount to the gift inside tx. The guard is part of the
// UPDATE itself, so two transactions can never both pass a stale check. A full
// payment gift only accepts its whole value, once.
func (r *GiftRegistry) ApplyFunding(tx *gorm.DB, giftID uuid.UUID, amount int64) (*models.Gift, error) {
	if amount <= 0 {
		return nil, apperror.InvalidAmount("amount must be positive")
	}

	res := tx.Model(&models.Gift{}).
		Where("id = ?", giftID).
		Where("amount_collected + ? <= goal_value", amount).
		Where("(payment_type = ? OR (amount_collected = 0 AND goal_value = ?))", models.PaymentPartial, amount).
		Updates(map[string]interface{}{
			"amount_collected": gorm.Expr("amount_collected + ?", amount),
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, res.Error
	}

	var gift models.Gift
	if err := tx.First(&gift, "id = ?", giftID).Error; err != nil {
		return nil, storeError(err, "gift")
	}
	if res.RowsAffected == 0 {
		return nil, apperror.New(apperror.KindOverfunding, "amount %d exceeds the %d remaining on gift", amount, gift.Remaining())
	}
	return &gift, nil
}

// ============================================================
// EXTERNAL LINKS
// ============================================================

func (r *GiftRegistry) CreateLink(ctx context.Context, req models.LinkRequest) (*models.ExternalLink, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	link := models.ExternalLink{Title: req.Title, URL: req.URL, ImageURL: req.ImageURL}
	if err := r.db.WithContext(ctx).Create(&link).Error; err != nil {
		return nil, storeError(err, "create link")
	}
	r.InvalidateCache(ctx)
	return &link, nil
}

func (r *GiftRegistry) UpdateLink(ctx context.Context, id uuid.UUID, req models.LinkRequest) (*models.ExternalLink, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var link models.ExternalLink
	if err := r.db.WithContext(ctx).First(&link, "id = ?", id).Error; err != nil {
		return nil, storeError(err, "link")
	}
	link.Title, link.URL, link.ImageURL = req.Title, req.URL, req.ImageURL
	if err := r.db.WithContext(ctx).Save(&link).Error; err != nil {
		return nil, storeError(err, "update link")
	}
	r.InvalidateCache(ctx)
	return &link, nil
}

func (r *GiftRegistry) DeleteLink(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ExternalLink{})
	if res.Error != nil {
		return storeError(res.Error, "delete link")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("link")
	}
	r.InvalidateCache(ctx)
	return nil
}

func (r *GiftRegistry) ListLinks(ctx context.Context) ([]models.ExternalLink, error) {
	var links []models.ExternalLink
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&links).Error; err != nil {
		return nil, storeError(err, "list links")
	}
	return links, nil
}

// ListCatalog returns gifts followed by links as one tagged list.
func (r *GiftRegistry) ListCatalog(ctx context.Context, admin bool) ([]models.CatalogItem, error) {
	cacheKey := publicCachePrefix + "catalog"
	var items []models.CatalogItem
	if !admin && r.getCached(ctx, cacheKey, &items) {
		return items, nil
	}

	gifts, err := r.ListGifts(ctx, models.GiftFilter{IncludeUnavailable: admin}, admin)
	if err != nil {
		return nil, err
	}
	links, err := r.ListLinks(ctx)
	if err != nil {
		return nil, err
	}

	items = make([]models.CatalogItem, 0, len(gifts)+len(links))
	for i := range gifts {
		items = append(items, models.CatalogItem{Kind: models.CatalogGift, Gift: &gifts[i]})
	}
	for i := range links {
		items = append(items, models.CatalogItem{Kind: models.CatalogLink, Link: &links[i]})
	}

	if !admin {
		r.setCached(ctx, cacheKey, items)
	}
	return items, nil
}

// ============================================================
// PUBLIC LISTING CACHE
// ============================================================

// InvalidateCache drops every cached public listing. Called after any catalog
// write and after the ledger credits a gift.
func (r *GiftRegistry) InvalidateCache(ctx context.Context) {
	if r.cache == nil {
		return
	}
	keys := []string{
		publicCachePrefix + "catalog",
		publicCachePrefix + "gifts:",
		publicCachePrefix + "gifts:" + string(models.PaymentFull),
		publicCachePrefix + "gifts:" + string(models.PaymentPartial),
	}
	if err := r.cache.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Msg("invalidate catalog cache")
	}
}

func (r *GiftRegistry) getCached(ctx context.Context, key string, dst interface{}) bool {
	if r.cache == nil {
		return false
	}
	data, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("read catalog cache")
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (r *GiftRegistry) setCached(ctx context.Context, key string, v interface{}) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, publicCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("write catalog cache")
	}
}
