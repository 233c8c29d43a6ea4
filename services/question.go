package services

import (
	"context"
	"strings"
	"wedding-registry/apperror"
	"wedding-registry/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuestionService holds the organizers' questions and each invitation's answers.
type QuestionService struct {
	db *gorm.DB
}

func NewQuestionService(db *gorm.DB) *QuestionService {
	return &QuestionService{db: db}
}

func (s *QuestionService) CreateQuestion(ctx context.Context, req models.QuestionRequest) (*models.Question, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	q := models.Question{Prompt: req.Prompt, Required: req.Required, Position: req.Position}
	if err := s.db.WithContext(ctx).Create(&q).Error; err != nil {
		return nil, storeError(err, "create question")
	}
	return &q, nil
}

func (s *QuestionService) UpdateQuestion(ctx context.Context, id uuid.UUID, req models.QuestionRequest) (*models.Question, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var q models.Question
	if err := s.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, storeError(err, "question")
	}
	q.Prompt, q.Required, q.Position = req.Prompt, req.Required, req.Position
	if err := s.db.WithContext(ctx).Save(&q).Error; err != nil {
		return nil, storeError(err, "update question")
	}
	return &q, nil
}

// DeleteQuestion drops the question together with every answer to it.
func (s *QuestionService) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	return storeError(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Question{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}), "question")
}

func (s *QuestionService) ListQuestions(ctx context.Context) ([]models.Question, error) {
	var questions []models.Question
	if err := s.db.WithContext(ctx).Order("position ASC, created_at ASC").Find(&questions).Error; err != nil {
		return nil, storeError(err, "list questions")
	}
	return questions, nil
}

// ListForInvitation returns every question with the invitation's current answer.
func (s *QuestionService) ListForInvitation(ctx context.Context, inviteID uuid.UUID) ([]models.QuestionWithAnswer, error) {
	questions, err := s.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}

	var answers []models.Answer
	if err := s.db.WithContext(ctx).Where("invitation_id = ?", inviteID).Find(&answers).Error; err != nil {
		return nil, storeError(err, "list answers")
	}
	byQuestion := make(map[uuid.UUID]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.Text
	}

	out := make([]models.QuestionWithAnswer, 0, len(questions))
	for _, q := range questions {
		out = append(out, models.QuestionWithAnswer{Question: q, Answer: byQuestion[q.ID]})
	}
	return out, nil
}

// SubmitAnswers upserts the given answers for one invitation in a single
// transaction. Questions not mentioned keep their stored answer.
func (s *QuestionService) SubmitAnswers(ctx context.Context, inviteID uuid.UUID, req models.SubmitAnswersRequest) ([]models.QuestionWithAnswer, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	answers := make([]models.Answer, 0, len(req.Answers))
	seen := make(map[uuid.UUID]bool, len(req.Answers))
	for _, in := range req.Answers {
		qid, err := uuid.Parse(in.QuestionID)
		if err != nil {
			return nil, apperror.Validation("invalid question id %q", in.QuestionID)
		}
		if seen[qid] {
			return nil, apperror.Validation("question %s answered more than once", qid)
		}
		seen[qid] = true
		answers = append(answers, models.Answer{InvitationID: inviteID, QuestionID: qid, Text: strings.TrimSpace(in.Text)})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Invitation{}).Where("id = ?", inviteID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperror.NotFound("invitation")
		}

		var questions []models.Question
		if err := tx.Where("id IN ?", keys(seen)).Find(&questions).Error; err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Question, len(questions))
		for _, q := range questions {
			byID[q.ID] = q
		}
		for _, a := range answers {
			q, ok := byID[a.QuestionID]
			if !ok {
				return apperror.NotFound("question")
			}
			if q.Required && a.Text == "" {
				return apperror.Validation("question %q requires an answer", q.Prompt)
			}
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "invitation_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
		}).Create(&answers).Error
	})
	if err != nil {
		return nil, storeError(err, "answers")
	}

	return s.ListForInvitation(ctx, inviteID)
}

func keys(m map[uuid.UUID]bool) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
