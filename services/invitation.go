package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"wedding-registry/apperror"
	"wedding-registry/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const maxPINAttempts = 8

// InvitationService is the invitation store: invitations, their guests and the
// RSVP confirmation transaction.
type InvitationService struct {
	db       *gorm.DB
	pins     *PINGenerator
	notifier Notifier
}

func NewInvitationService(db *gorm.DB, pins *PINGenerator, notifier Notifier) *InvitationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &InvitationService{db: db, pins: pins, notifier: notifier}
}

func (s *InvitationService) CreateInvitation(ctx context.Context, req models.CreateInvitationRequest) (*models.Invitation, error) {
	req.Identifier = strings.TrimSpace(req.Identifier)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Identifier == "" {
		return nil, apperror.Validation("identifier is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	invitation := models.Invitation{
		Identifier: req.Identifier,
		Email:      req.Email,
		Phone:      strings.TrimSpace(req.Phone),
	}
	for _, name := range req.Guests {
		if name = strings.TrimSpace(name); name != "" {
			invitation.Guests = append(invitation.Guests, models.Guest{Name: name, IsAdult: true})
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Invitation{}).Where("identifier = ?", invitation.Identifier).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperror.Validation("identifier %q is already in use", invitation.Identifier)
		}

		pin, err := s.uniquePIN(tx)
		if err != nil {
			return err
		}
		invitation.PIN = pin

		return tx.Create(&invitation).Error
	})
	if err != nil {
		return nil, storeError(err, "create invitation")
	}

	log.Info().Str("invitation_id", invitation.ID.String()).Str("identifier", invitation.Identifier).
		Int("guests", len(invitation.Guests)).Msg("invitation created")
	return &invitation, nil
}

func (s *InvitationService) uniquePIN(tx *gorm.DB) (string, error) {
	for i := 0; i < maxPINAttempts; i++ {
		pin, err := s.pins.Generate()
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.Invitation{}).Where("pin = ?", pin).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return pin, nil
		}
	}
	return "", apperror.Conflict("could not allocate a unique PIN, increase PIN_LENGTH")
}

func (s *InvitationService) ListInvitations(ctx context.Context) ([]models.InvitationSummary, error) {
	var invitations []models.Invitation
	err := s.db.WithContext(ctx).
		Preload("Guests", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Order("identifier ASC").
		Find(&invitations).Error
	if err != nil {
		return nil, storeError(err, "list invitations")
	}

	summaries := make([]models.InvitationSummary, 0, len(invitations))
	for _, inv := range invitations {
		summary := models.InvitationSummary{Invitation: inv}
		for _, g := range inv.Guests {
			switch g.Status {
			case models.RSVPConfirmed:
				summary.Confirmed++
			case models.RSVPDeclined:
				summary.Declined++
			default:
				summary.Pending++
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *InvitationService) GetInvitation(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	var invitation models.Invitation
	err := s.db.WithContext(ctx).
		Preload("Guests", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&invitation, "id = ?", id).Error
	if err != nil {
		return nil, storeError(err, "invitation")
	}
	return &invitation, nil
}

func (s *InvitationService) UpdateInvitation(ctx context.Context, id uuid.UUID, req models.UpdateInvitationRequest) (*models.Invitation, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Identifier != nil {
		identifier := strings.TrimSpace(*req.Identifier)
		if identifier == "" {
			return nil, apperror.Validation("identifier is required")
		}
		updates["identifier"] = identifier
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != "" && !validEmail(email) {
			return nil, apperror.Validation("email is invalid")
		}
		updates["email"] = email
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invitation models.Invitation
		if err := tx.First(&invitation, "id = ?", id).Error; err != nil {
			return err
		}
		if identifier, ok := updates["identifier"]; ok && identifier != invitation.Identifier {
			var count int64
			if err := tx.Model(&models.Invitation{}).Where("identifier = ? AND id <> ?", identifier, id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperror.Validation("identifier %q is already in use", identifier)
			}
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&invitation).Updates(updates).Error
	})
	if err != nil {
		return nil, storeError(err, "invitation")
	}

	return s.GetInvitation(ctx, id)
}

// UpdateContact is the guest-facing subset of UpdateInvitation.
func (s *InvitationService) UpdateContact(ctx context.Context, id uuid.UUID, req models.UpdateContactRequest) (*models.Invitation, error) {
	email := req.Email
	phone := req.Phone
	return s.UpdateInvitation(ctx, id, models.UpdateInvitationRequest{Email: &email, Phone: &phone})
}

// DeleteInvitation removes the invitation with its guests and answers.
// Contribution intents keep their invitation id for the audit trail.
func (s *InvitationService) DeleteInvitation(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invitation_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invitation_id = ?", id).Delete(&models.Guest{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Invitation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return storeError(err, "invitation")
	}

	log.Info().Str("invitation_id", id.String()).Msg("invitation deleted")
	return nil
}

func (s *InvitationService) AddGuest(ctx context.Context, inviteID uuid.UUID, req models.AddGuestRequest) (*models.Guest, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperror.Validation("name is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Invitation{}).Where("id = ?", inviteID).Count(&count).Error; err != nil {
		return nil, storeError(err, "invitation")
	}
	if count == 0 {
		return nil, apperror.NotFound("invitation")
	}

	guest := models.Guest{
		InvitationID: inviteID,
		Name:         req.Name,
		Tags:         normalizeTags(req.Tags),
		IsAdult:      req.IsAdult == nil || *req.IsAdult,
		Status:       models.RSVPPending,
	}
	if err := s.db.WithContext(ctx).Create(&guest).Error; err != nil {
		return nil, storeError(err, "create guest")
	}
	return &guest, nil
}

func (s *InvitationService) ListGuests(ctx context.Context, inviteID uuid.UUID) ([]models.Guest, error) {
	if _, err := s.GetInvitation(ctx, inviteID); err != nil {
		return nil, err
	}
	var guests []models.Guest
	if err := s.db.WithContext(ctx).Where("invitation_id = ?", inviteID).Order("created_at ASC").Find(&guests).Error; err != nil {
		return nil, storeError(err, "list guests")
	}
	return guests, nil
}

func (s *InvitationService) GetGuest(ctx context.Context, guestID uuid.UUID) (*models.Guest, error) {
	var guest models.Guest
	if err := s.db.WithContext(ctx).First(&guest, "id = ?", guestID).Error; err != nil {
		return nil, storeError(err, "guest")
	}
	return &guest, nil
}

func (s *InvitationService) UpdateGuest(ctx context.Context, guestID uuid.UUID, patch models.GuestPatch) (*models.Guest, error) {
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	var guest models.Guest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&guest, "id = ?", guestID).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return apperror.Validation("name is required")
			}
			updates["name"] = name
		}
		if patch.Tags != nil {
			updates["tags"] = normalizeTags(patch.Tags)
		}
		if patch.IsAdult != nil {
			updates["is_adult"] = *patch.IsAdult
		}
		if patch.Status != nil && applyStatus(&guest, *patch.Status, time.Now()) {
			updates["status"] = guest.Status
			updates["confirmed_at"] = guest.ConfirmedAt
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&guest).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&guest, "id = ?", guestID).Error
	})
	if err != nil {
		return nil, storeError(err, "guest")
	}
	return &guest, nil
}

func (s *InvitationService) DeleteGuest(ctx context.Context, guestID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", guestID).Delete(&models.Guest{})
	if res.Error != nil {
		return storeError(res.Error, "delete guest")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("guest")
	}
	return nil
}

// ValidatePIN exchanges a PIN for its invitation.
func (s *InvitationService) ValidatePIN(ctx context.Context, pin string) (*models.Invitation, error) {
	pin = s.pins.Normalize(pin)
	if pin == "" {
		return nil, apperror.Auth("invalid PIN")
	}

	var invitation models.Invitation
	err := s.db.WithContext(ctx).
		Preload("Guests", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&invitation, "pin = ?", pin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Auth("invalid PIN")
	}
	if err != nil {
		return nil, storeError(err, "validate pin")
	}
	return &invitation, nil
}

// ConfirmGuests applies every RSVP entry in one transaction: either all entries
// are stored or none is. Entries that repeat a guest's current status change
// nothing, so resubmitting the same form is a no-op. The result follows the
// order of entries.
func (s *InvitationService) ConfirmGuests(ctx context.Context, inviteID uuid.UUID, entries []models.ConfirmEntry) ([]models.Guest, error) {
	if len(entries) == 0 {
		return nil, apperror.Validation("at least one guest is required")
	}

	ids := make([]uuid.UUID, 0, len(entries))
	seen := make(map[uuid.UUID]bool, len(entries))
	for _, e := range entries {
		id, err := uuid.Parse(e.GuestID)
		if err != nil {
			return nil, apperror.Validation("invalid guest id %q", e.GuestID)
		}
		if !e.Status.Valid() {
			return nil, apperror.Validation("invalid status %q", e.Status)
		}
		if seen[id] {
			return nil, apperror.Validation("guest %s listed more than once", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}

	var (
		invitation models.Invitation
		result     = make([]models.Guest, 0, len(entries))
		changed    []models.Guest
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&invitation, "id = ?", inviteID).Error; err != nil {
			return err
		}

		var guests []models.Guest
		if err := tx.Where("id IN ?", ids).Find(&guests).Error; err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Guest, len(guests))
		for _, g := range guests {
			byID[g.ID] = g
		}

		// Ownership is checked for every entry before anything is written.
		for _, id := range ids {
			g, ok := byID[id]
			if !ok || g.InvitationID != inviteID {
				return apperror.Authorization("guest does not belong to this invitation")
			}
		}

		now := time.Now()
		for i, id := range ids {
			g := byID[id]
			if applyStatus(&g, entries[i].Status, now) {
				err := tx.Model(&models.Guest{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
					"status":       g.Status,
					"confirmed_at": g.ConfirmedAt,
					"updated_at":   now,
				}).Error
				if err != nil {
					return err
				}
				g.UpdatedAt = now
				changed = append(changed, g)
			}
			result = append(result, g)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "invitation")
	}

	if len(changed) > 0 {
		log.Info().Str("invitation_id", inviteID.String()).Int("changed", len(changed)).Msg("rsvp updated")
		s.notifier.NotifyRSVP(ctx, invitation, changed)
	}
	return result, nil
}

// applyStatus moves a guest to status and reports whether anything changed.
// ConfirmedAt is stamped on the first move away from pending and kept afterwards.
func applyStatus(g *models.Guest, status models.RSVPStatus, now time.Time) bool {
	if g.Status == status {
		return false
	}
	g.Status = status
	if status != models.RSVPPending && g.ConfirmedAt == nil {
		t := now
		g.ConfirmedAt = &t
	}
	return true
}

func normalizeTags(tags []string) pq.StringArray {
	out := pq.StringArray{}
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[strings.ToLower(tag)] {
			continue
		}
		seen[strings.ToLower(tag)] = true
		out = append(out, tag)
	}
	return out
}

// storeError keeps apperror kinds, maps missing rows to NotFound and wraps the rest.
func storeError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Wrap(apperror.KindInternal, err, entity+": request cancelled")
	}
	return apperror.Internal(err, entity)
}
