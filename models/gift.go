package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentType string

const (
	PaymentFull    PaymentType = "full"
	PaymentPartial PaymentType = "partial"
)

// Gift amounts are integer minor units (cents). AmountCollected is only
// written by the contribution ledger.
type Gift struct {
	ID                   uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Title                string      `gorm:"not null;size:200" json:"title"`
	Description          string      `json:"description,omitempty"`
	ImageURL             string      `json:"image_url,omitempty"`
	Value                int64       `gorm:"column:goal_value;not null" json:"value"`
	PaymentType          PaymentType `gorm:"not null;size:10;default:full" json:"payment_type"`
	DisableOnGoalReached bool        `gorm:"default:false" json:"disable_on_goal_reached"`
	AmountCollected      int64       `gorm:"not null;default:0" json:"amount_collected"`
	Version              int64       `gorm:"not null;default:0" json:"-"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

func (g *Gift) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

func (g *Gift) Remaining() int64 {
	if g.AmountCollected >= g.Value {
		return 0
	}
	return g.Value - g.AmountCollected
}

func (g *Gift) GoalReached() bool {
	return g.AmountCollected >= g.Value
}

// Available reports whether guests may still see and contribute to the gift.
func (g *Gift) Available() bool {
	return !(g.DisableOnGoalReached && g.GoalReached())
}

type ExternalLink struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"not null;size:200" json:"title"`
	URL       string    `gorm:"not null" json:"url"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *ExternalLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

type CatalogKind string

const (
	CatalogGift CatalogKind = "gift"
	CatalogLink CatalogKind = "link"
)

// CatalogItem carries exactly one of Gift or Link, selected by Kind.
type CatalogItem struct {
	Kind CatalogKind   `json:"kind"`
	Gift *Gift         `json:"gift,omitempty"`
	Link *ExternalLink `json:"link,omitempty"`
}

// Request structs
type CreateGiftRequest struct {
	Title                string      `json:"title" binding:"required,max=200"`
	Description          string      `json:"description"`
	ImageURL             string      `json:"image_url" binding:"omitempty,url"`
	Value                int64       `json:"value" binding:"required,gt=0"`
	PaymentType          PaymentType `json:"payment_type" binding:"required,oneof=full partial"`
	DisableOnGoalReached bool        `json:"disable_on_goal_reached"`
}

type UpdateGiftRequest struct {
	Title                *string      `json:"title" binding:"omitempty,min=1,max=200"`
	Description          *string      `json:"description"`
	ImageURL             *string      `json:"image_url" binding:"omitempty"`
	Value                *int64       `json:"value" binding:"omitempty,gt=0"`
	PaymentType          *PaymentType `json:"payment_type" binding:"omitempty,oneof=full partial"`
	DisableOnGoalReached *bool        `json:"disable_on_goal_reached"`
}

type GiftFilter struct {
	PaymentType PaymentType `form:"payment_type" binding:"omitempty,oneof=full partial"`
	// IncludeUnavailable is forced to false for guest and public callers.
	IncludeUnavailable bool `form:"include_unavailable"`
}

type LinkRequest struct {
	Title    string `json:"title" binding:"required,max=200"`
	URL      string `json:"url" binding:"required,url"`
	ImageURL string `json:"image_url" binding:"omitempty,url"`
}
