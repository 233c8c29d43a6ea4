package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Question struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Prompt    string    `gorm:"not null" json:"prompt"`
	Required  bool      `gorm:"default:false" json:"required"`
	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// Answer is unique per (invitation, question); resubmitting overwrites the text.
type Answer struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvitationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_answer_invitation_question" json:"invitation_id"`
	QuestionID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_answer_invitation_question" json:"question_id"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type QuestionRequest struct {
	Prompt   string `json:"prompt" binding:"required,max=500"`
	Required bool   `json:"required"`
	Position int    `json:"position" binding:"gte=0"`
}

type AnswerInput struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Text       string `json:"text" binding:"max=2000"`
}

type SubmitAnswersRequest struct {
	Answers []AnswerInput `json:"answers" binding:"required,min=1,dive"`
}

// QuestionWithAnswer is what a guest session sees: the prompt plus its own answer, if any.
type QuestionWithAnswer struct {
	Question
	Answer string `json:"answer,omitempty"`
}
