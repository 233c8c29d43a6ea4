package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"wedding-registry/apperror"
	"wedding-registry/gateway"
	"wedding-registry/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type LedgerConfig struct {
	Currency        string
	MinContribution int64
	GatewayTimeout  time.Duration
}

// ContributionLedger records payment attempts against gifts and credits each
// approved attempt to its gift at most once.
type ContributionLedger struct {
	db       *gorm.DB
	registry *GiftRegistry
	gateways *gateway.Registry
	locker   Locker
	notifier Notifier
	cfg      LedgerConfig
}

func NewContributionLedger(db *gorm.DB, registry *GiftRegistry, gateways *gateway.Registry, locker Locker, notifier Notifier, cfg LedgerConfig) *ContributionLedger {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	return &ContributionLedger{
		db:       db,
		registry: registry,
		gateways: gateways,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
	}
}

// ============================================================
// INITIATE
// ============================================================

// Initiate checks the amount against the gift, writes a provisional intent and
// asks the gateway for a payment. The remaining-amount check here is advisory;
// Reconcile repeats it under the gift lock before crediting. The intent id is
// sent as the provider's idempotency key.
func (l *ContributionLedger) Initiate(ctx context.Context, giftID uuid.UUID, invitationID *uuid.UUID, req models.InitiateContributionRequest) (*models.ContributionIntent, error) {
	req.Contributor = strings.TrimSpace(req.Contributor)
	req.Message = strings.TrimSpace(req.Message)
	if req.Contributor == "" {
		return nil, apperror.Validation("contributor is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	gw, ok := l.gateways.Get(req.Method)
	if !ok {
		return nil, apperror.Validation("payment method %q is not available", req.Method)
	}
	if req.Amount < l.cfg.MinContribution {
		return nil, apperror.InvalidAmount("amount must be at least %d", l.cfg.MinContribution)
	}

	gift, err := l.registry.GetGift(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if err := checkContribution(gift, req.Amount); err != nil {
		return nil, err
	}

	intent := models.ContributionIntent{
		GiftID:       gift.ID,
		InvitationID: invitationID,
		Method:       req.Method,
		Contributor:  req.Contributor,
		Message:      req.Message,
		Amount:       req.Amount,
		Currency:     l.cfg.Currency,
		Status:       models.IntentCreated,
	}
	if err := l.db.WithContext(ctx).Create(&intent).Error; err != nil {
		return nil, storeError(err, "create contribution")
	}

	gctx, cancel := context.WithTimeout(ctx, l.cfg.GatewayTimeout)
	defer cancel()
	created, err := gw.CreateIntent(gctx, gateway.CreateRequest{
		Reference:   intent.ID.String(),
		Amount:      intent.Amount,
		Currency:    intent.Currency,
		Description: gift.Title,
		PayerName:   intent.Contributor,
		PayerEmail:  req.Email,
	})
	if err != nil {
		gwErr := apperror.NewGateway(err)
		log.Error().Err(err).Str("correlation_id", gwErr.CorrelationID).Str("intent_id", intent.ID.String()).
			Str("gift_id", gift.ID.String()).Str("method", string(req.Method)).Msg("gateway create failed")
		l.discardProvisional(ctx, intent.ID)
		return nil, gwErr
	}

	status := models.IntentPending
	if created.Status == models.IntentRejected || created.Status == models.IntentExpired {
		status = created.Status
	}
	updates := map[string]interface{}{
		"status":         status,
		"provider_ref":   created.ProviderRef,
		"qr_code":        created.QRCode,
		"qr_code_base64": created.QRCodeBase64,
		"redirect_url":   created.RedirectURL,
	}
	res := l.db.WithContext(ctx).Model(&models.ContributionIntent{}).
		Where("id = ? AND status = ?", intent.ID, models.IntentCreated).
		Updates(updates)
	if res.Error != nil {
		// The provider payment exists but the row still says created; the sweeper expires it.
		log.Error().Err(res.Error).Str("intent_id", intent.ID.String()).Str("provider_ref", created.ProviderRef).
			Msg("store provider reference")
		return nil, storeError(res.Error, "update contribution")
	}

	log.Info().Str("intent_id", intent.ID.String()).Str("gift_id", gift.ID.String()).Int64("amount", intent.Amount).
		Str("method", string(intent.Method)).Str("provider_ref", created.ProviderRef).Msg("contribution initiated")
	return l.Get(ctx, intent.ID)
}

// checkContribution is the initiation-time check. It reads a snapshot of the gift.
func checkContribution(gift *models.Gift, amount int64) error {
	if !gift.Available() {
		return apperror.GoalExceeded("gift is no longer accepting contributions")
	}
	switch gift.PaymentType {
	case models.PaymentFull:
		if amount != gift.Value {
			return apperror.InvalidAmount("this gift must be paid in full (%d)", gift.Value)
		}
		if gift.AmountCollected > 0 {
			return apperror.GoalExceeded("gift has already been paid")
		}
	default:
		if amount > gift.Remaining() {
			return apperror.GoalExceeded("amount exceeds the %d remaining on this gift", gift.Remaining())
		}
	}
	return nil
}

// discardProvisional removes a created row after the gateway refused it. It
// runs even if the request was cancelled; a row left behind is expired later.
func (l *ContributionLedger) discardProvisional(ctx context.Context, id uuid.UUID) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := l.db.WithContext(dctx).
		Where("id = ? AND status = ?", id, models.IntentCreated).
		Delete(&models.ContributionIntent{}).Error
	if err != nil {
		log.Warn().Err(err).Str("intent_id", id.String()).Msg("discard provisional contribution")
	}
}

// ============================================================
// RECONCILE
// ============================================================

// Reconcile asks the gateway where the payment stands and moves the intent.
// It is safe to call any number of times, concurrently: settled intents are
// returned as stored, and the applied flag is flipped by a compare-and-set in
// the same transaction that credits the gift.
func (l *ContributionLedger) Reconcile(ctx context.Context, id uuid.UUID) (*models.ContributionIntent, error) {
	intent, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if intent.Applied || intent.ProviderRef == "" {
		return intent, nil
	}
	if intent.Status.Terminal() {
		if intent.Status == models.IntentExpired && intent.Reason == "" {
			return l.checkLateApproval(ctx, intent)
		}
		return intent, nil
	}

	gw, ok := l.gateways.Get(intent.Method)
	if !ok {
		return nil, apperror.NewGateway(errors.New("no gateway configured for " + string(intent.Method)))
	}

	gctx, cancel := context.WithTimeout(ctx, l.cfg.GatewayTimeout)
	defer cancel()
	status, err := gw.QueryStatus(gctx, intent.ProviderRef)
	if err != nil {
		gwErr := apperror.NewGateway(err)
		log.Warn().Err(err).Str("correlation_id", gwErr.CorrelationID).Str("intent_id", intent.ID.String()).
			Msg("gateway status query failed, intent left pending")
		return nil, gwErr
	}

	switch status {
	case models.IntentApproved:
		return l.credit(ctx, intent)
	case models.IntentRejected:
		return l.settle(ctx, intent.ID, models.IntentRejected, models.ReasonGateway)
	case models.IntentExpired:
		return l.settle(ctx, intent.ID, models.IntentExpired, "")
	default:
		return intent, nil
	}
}

// checkLateApproval looks for a payment the provider approved after the intent
// expired. Expired intents are never credited; a late approval is recorded in
// the reason and logged so the payer can be refunded by hand.
func (l *ContributionLedger) checkLateApproval(ctx context.Context, intent *models.ContributionIntent) (*models.ContributionIntent, error) {
	gw, ok := l.gateways.Get(intent.Method)
	if !ok {
		return intent, nil
	}

	gctx, cancel := context.WithTimeout(ctx, l.cfg.GatewayTimeout)
	defer cancel()
	status, err := gw.QueryStatus(gctx, intent.ProviderRef)
	if err != nil {
		log.Warn().Err(err).Str("intent_id", intent.ID.String()).Msg("gateway status query failed for expired intent")
		return intent, nil
	}
	if status != models.IntentApproved {
		return intent, nil
	}

	res := l.db.WithContext(ctx).Model(&models.ContributionIntent{}).
		Where("id = ? AND status = ? AND applied = ? AND reason = ?", intent.ID, models.IntentExpired, false, "").
		Update("reason", models.ReasonApprovedAfterExpiry)
	if res.Error != nil {
		return nil, storeError(res.Error, "update contribution")
	}
	if res.RowsAffected > 0 {
		log.Warn().Str("intent_id", intent.ID.String()).Str("gift_id", intent.GiftID.String()).
			Int64("amount", intent.Amount).Str("provider_ref", intent.ProviderRef).
			Msg("payment approved after the intent expired, needs manual refund")
	}
	return l.Get(ctx, intent.ID)
}

// credit runs the authoritative check and the funding update under the gift
// lock, in one transaction with the intent's compare-and-set.
func (l *ContributionLedger) credit(ctx context.Context, intent *models.ContributionIntent) (*models.ContributionIntent, error) {
	unlock, err := l.locker.Lock(ctx, "gift:"+intent.GiftID.String())
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConflict, err, "gift is busy, retry reconcile")
	}
	defer unlock()

	var (
		result  models.ContributionIntent
		gift    *models.Gift
		outcome string
	)
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&result, "id = ?", intent.ID).Error; err != nil {
			return err
		}
		if result.Applied || result.Status.Terminal() {
			outcome = "already settled"
			return nil
		}

		var current models.Gift
		err := tx.First(&current, "id = ?", result.GiftID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = models.ReasonGiftDeleted
			return rejectIntent(tx, &result, models.ReasonGiftDeleted)
		}
		if err != nil {
			return err
		}
		if reason := fundingBlocker(&current, result.Amount); reason != "" {
			outcome = reason
			return rejectIntent(tx, &result, reason)
		}

		gift, err = l.registry.ApplyFunding(tx, current.ID, result.Amount)
		if err != nil {
			if apperror.Is(err, apperror.KindOverfunding) {
				return apperror.Conflict("gift total changed during reconcile, retry")
			}
			return err
		}

		now := time.Now()
		res := tx.Model(&models.ContributionIntent{}).
			Where("id = ? AND applied = ?", result.ID, false).
			Updates(map[string]interface{}{
				"applied":       true,
				"status":        models.IntentApproved,
				"reason":        "",
				"reconciled_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.Conflict("contribution was reconciled concurrently, retry")
		}
		outcome = "credited"
		return tx.First(&result, "id = ?", result.ID).Error
	})
	if err != nil {
		return nil, storeError(err, "contribution")
	}

	logger := log.With().Str("intent_id", result.ID.String()).Str("gift_id", result.GiftID.String()).
		Int64("amount", result.Amount).Logger()
	switch outcome {
	case "credited":
		logger.Info().Int64("collected", gift.AmountCollected).Int64("value", gift.Value).Msg("contribution credited")
		l.registry.InvalidateCache(ctx)
		l.notifyApproved(ctx, result, *gift)
	case models.ReasonGiftDeleted:
		logger.Warn().Msg("payment approved for a deleted gift, needs manual refund")
	case models.ReasonGoalExceeded, models.ReasonMismatch:
		logger.Warn().Str("reason", outcome).Msg("payment approved but not credited, needs manual refund")
	}
	return &result, nil
}

// fundingBlocker re-validates the gift inside the crediting transaction.
func fundingBlocker(gift *models.Gift, amount int64) string {
	if gift.Remaining() < amount {
		return models.ReasonGoalExceeded
	}
	if gift.PaymentType == models.PaymentFull && (gift.AmountCollected != 0 || gift.Value != amount) {
		return models.ReasonMismatch
	}
	return ""
}

func rejectIntent(tx *gorm.DB, intent *models.ContributionIntent, reason string) error {
	res := tx.Model(&models.ContributionIntent{}).
		Where("id = ? AND applied = ?", intent.ID, false).
		Updates(map[string]interface{}{
			"status":        models.IntentRejected,
			"reason":        reason,
			"reconciled_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict("contribution was reconciled concurrently, retry")
	}
	return tx.First(intent, "id = ?", intent.ID).Error
}

// settle moves a non-terminal, unapplied intent to a terminal failure status.
func (l *ContributionLedger) settle(ctx context.Context, id uuid.UUID, status models.IntentStatus, reason string) (*models.ContributionIntent, error) {
	err := l.db.WithContext(ctx).Model(&models.ContributionIntent{}).
		Where("id = ? AND applied = ? AND status IN ?", id, false, []models.IntentStatus{models.IntentCreated, models.IntentPending}).
		Updates(map[string]interface{}{
			"status":        status,
			"reason":        reason,
			"reconciled_at": time.Now(),
		}).Error
	if err != nil {
		return nil, storeError(err, "update contribution")
	}
	log.Info().Str("intent_id", id.String()).Str("status", string(status)).Msg("contribution settled")
	return l.Get(ctx, id)
}

func (l *ContributionLedger) notifyApproved(ctx context.Context, intent models.ContributionIntent, gift models.Gift) {
	var email string
	if intent.InvitationID != nil {
		var invitation models.Invitation
		if err := l.db.WithContext(ctx).Select("email").First(&invitation, "id = ?", *intent.InvitationID).Error; err == nil {
			email = invitation.Email
		}
	}
	l.notifier.NotifyContributionApproved(ctx, intent, gift, email)
}

// ============================================================
// QUERIES
// ============================================================

func (l *ContributionLedger) Get(ctx context.Context, id uuid.UUID) (*models.ContributionIntent, error) {
	var intent models.ContributionIntent
	if err := l.db.WithContext(ctx).First(&intent, "id = ?", id).Error; err != nil {
		return nil, storeError(err, "contribution")
	}
	return &intent, nil
}

// List returns one page of intents, newest first, with the total count.
func (l *ContributionLedger) List(ctx context.Context, filter models.ContributionFilter, offset, limit int) ([]models.ContributionIntent, int64, error) {
	if err := validateStruct(filter); err != nil {
		return nil, 0, err
	}

	query := l.db.WithContext(ctx).Model(&models.ContributionIntent{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.GiftID != "" {
		query = query.Where("gift_id = ?", filter.GiftID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeError(err, "count contributions")
	}

	var intents []models.ContributionIntent
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&intents).Error; err != nil {
		return nil, 0, storeError(err, "list contributions")
	}
	return intents, total, nil
}

// Pending lists every unsettled intent that has a provider payment to query.
func (l *ContributionLedger) Pending(ctx context.Context) ([]models.ContributionIntent, error) {
	var intents []models.ContributionIntent
	err := l.db.WithContext(ctx).
		Where("applied = ? AND provider_ref <> ? AND status IN ?", false, "",
			[]models.IntentStatus{models.IntentCreated, models.IntentPending}).
		Order("created_at ASC").
		Find(&intents).Error
	if err != nil {
		return nil, storeError(err, "list pending contributions")
	}
	return intents, nil
}

// Expire moves one unsettled intent created before cutoff to expired. Callers
// must just have seen the gateway report the payment as not approved.
func (l *ContributionLedger) Expire(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error) {
	res := l.db.WithContext(ctx).Model(&models.ContributionIntent{}).
		Where("id = ? AND applied = ? AND status IN ? AND created_at < ?", id, false,
			[]models.IntentStatus{models.IntentCreated, models.IntentPending}, cutoff).
		Updates(map[string]interface{}{
			"status":        models.IntentExpired,
			"reconciled_at": time.Now(),
		})
	if res.Error != nil {
		return false, storeError(res.Error, "expire contribution")
	}
	return res.RowsAffected > 0, nil
}

// ExpireProvisional expires created rows older than cutoff that never stored a
// provider reference. Initiate logs the reference when storing it fails.
func (l *ContributionLedger) ExpireProvisional(ctx context.Context, cutoff time.Time) (int64, error) {
	res := l.db.WithContext(ctx).Model(&models.ContributionIntent{}).
		Where("applied = ? AND status = ? AND provider_ref = ? AND created_at < ?", false, models.IntentCreated, "", cutoff).
		Updates(map[string]interface{}{
			"status":        models.IntentExpired,
			"reconciled_at": time.Now(),
		})
	if res.Error != nil {
		return 0, storeError(res.Error, "expire contributions")
	}
	return res.RowsAffected, nil
}
