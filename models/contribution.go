package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IntentStatus string

const (
	IntentCreated  IntentStatus = "created"
	IntentPending  IntentStatus = "pending"
	IntentApproved IntentStatus = "approved"
	IntentRejected IntentStatus = "rejected"
	IntentExpired  IntentStatus = "expired"
)

// Terminal statuses are never left once reached.
func (s IntentStatus) Terminal() bool {
	return s == IntentApproved || s == IntentRejected || s == IntentExpired
}

type PaymentMethod string

const (
	MethodPix         PaymentMethod = "pix"
	MethodCard        PaymentMethod = "card"
	MethodInstallment PaymentMethod = "installment"
)

// Rejection reasons recorded on intents the gateway approved but the ledger refused to credit.
const (
	ReasonGoalExceeded = "goal exceeded"
	ReasonGiftDeleted  = "gift no longer exists"
	ReasonGateway      = "rejected by payment provider"
	ReasonMismatch     = "amount no longer matches gift value"

	// Set on an expired intent; it stays expired and uncredited.
	ReasonApprovedAfterExpiry = "approved after expiry"
)

// ContributionIntent is one attempted payment against a gift. Applied flips to
// true exactly once, in the same transaction that credits the gift.
type ContributionIntent struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	GiftID       uuid.UUID     `gorm:"type:uuid;index;not null" json:"gift_id"`
	InvitationID *uuid.UUID    `gorm:"type:uuid;index" json:"invitation_id,omitempty"`
	Method       PaymentMethod `gorm:"not null;size:20" json:"method"`
	ProviderRef  string        `gorm:"size:120;index" json:"provider_ref,omitempty"`
	Contributor  string        `gorm:"not null;size:150" json:"contributor"`
	Message      string        `json:"message,omitempty"`
	Amount       int64         `gorm:"not null" json:"amount"`
	Currency     string        `gorm:"size:3;not null" json:"currency"`
	Status       IntentStatus  `gorm:"not null;size:20;index;default:created" json:"status"`
	Reason       string        `gorm:"size:100" json:"reason,omitempty"`
	Applied      bool          `gorm:"not null;default:false" json:"applied"`
	QRCode       string        `json:"qr_code,omitempty"`
	QRCodeBase64 string        `json:"qr_code_base64,omitempty"`
	RedirectURL  string        `json:"redirect_url,omitempty"`
	ReconciledAt *time.Time    `json:"reconciled_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (ci *ContributionIntent) BeforeCreate(tx *gorm.DB) error {
	if ci.ID == uuid.Nil {
		ci.ID = uuid.New()
	}
	if ci.Status == "" {
		ci.Status = IntentCreated
	}
	return nil
}

// Request structs
type InitiateContributionRequest struct {
	Contributor string        `json:"contributor" binding:"required,max=150"`
	Message     string        `json:"message" binding:"max=2000"`
	Amount      int64         `json:"amount"`
	Method      PaymentMethod `json:"method" binding:"required,oneof=pix card installment"`
	Email       string        `json:"email" binding:"omitempty,email"`
}

type ContributionFilter struct {
	Status IntentStatus `form:"status" binding:"omitempty,oneof=created pending approved rejected expired"`
	GiftID string       `form:"gift_id" binding:"omitempty,uuid"`
}
