package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type RSVPStatus string

const (
	RSVPPending   RSVPStatus = "pending"
	RSVPConfirmed RSVPStatus = "confirmed"
	RSVPDeclined  RSVPStatus = "declined"
)

func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPConfirmed, RSVPDeclined:
		return true
	}
	return false
}

// Invitation is one household invite. Guests are deleted with it.
type Invitation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Identifier string    `gorm:"uniqueIndex;not null;size:150" json:"identifier"`
	Email      string    `gorm:"size:255" json:"email,omitempty"`
	Phone      string    `gorm:"size:30" json:"phone,omitempty"`
	PIN        string    `gorm:"uniqueIndex;not null;size:16" json:"pin"`
	Guests     []Guest   `gorm:"foreignKey:InvitationID;constraint:OnDelete:CASCADE" json:"guests,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

type Guest struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	InvitationID uuid.UUID      `gorm:"type:uuid;index;not null" json:"invitation_id"`
	Name         string         `gorm:"not null;size:150" json:"name"`
	Tags         pq.StringArray `gorm:"type:text[]" json:"tags"`
	IsAdult      bool           `gorm:"not null" json:"is_adult"`
	Status       RSVPStatus     `gorm:"default:pending;size:20;index" json:"status"`
	ConfirmedAt  *time.Time     `json:"confirmed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (g *Guest) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.Status == "" {
		g.Status = RSVPPending
	}
	if g.Tags == nil {
		g.Tags = pq.StringArray{}
	}
	return nil
}

// Request structs
type CreateInvitationRequest struct {
	Identifier string   `json:"identifier" binding:"required,max=150"`
	Email      string   `json:"email" binding:"omitempty,email"`
	Phone      string   `json:"phone" binding:"omitempty,max=30"`
	Guests     []string `json:"guests" binding:"omitempty,dive,required"` // names, added as adults
}

type UpdateInvitationRequest struct {
	Identifier *string `json:"identifier" binding:"omitempty,min=1,max=150"`
	Email      *string `json:"email" binding:"omitempty,max=255"`
	Phone      *string `json:"phone" binding:"omitempty,max=30"`
}

type UpdateContactRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone" binding:"omitempty,max=30"`
}

type AddGuestRequest struct {
	Name    string   `json:"name" binding:"required,max=150"`
	Tags    []string `json:"tags" binding:"omitempty,dive,required,max=50"`
	IsAdult *bool    `json:"is_adult"`
}

// GuestPatch leaves nil fields untouched.
type GuestPatch struct {
	Name    *string     `json:"name" binding:"omitempty,min=1,max=150"`
	Tags    []string    `json:"tags" binding:"omitempty,dive,required,max=50"`
	IsAdult *bool       `json:"is_adult"`
	Status  *RSVPStatus `json:"status" binding:"omitempty,oneof=pending confirmed declined"`
}

type ConfirmEntry struct {
	GuestID string     `json:"guest_id" binding:"required,uuid"`
	Status  RSVPStatus `json:"status" binding:"required,oneof=pending confirmed declined"`
}

type ConfirmGuestsRequest struct {
	Guests []ConfirmEntry `json:"guests" binding:"required,min=1,dive"`
}

type ValidatePINRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// Response structs
type InvitationSummary struct {
	Invitation
	Confirmed int `json:"confirmed"`
	Declined  int `json:"declined"`
	Pending   int `json:"pending"`
}

type SessionResponse struct {
	Token      string      `json:"token"`
	Role       string      `json:"role"`
	Invitation *Invitation `json:"invitation,omitempty"`
}
