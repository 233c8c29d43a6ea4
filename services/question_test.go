package services

import (
	"context"
	"testing"
	"wedding-registry/apperror"
	"wedding-registry/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionsAndAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := createInvitation(t, f, "Family", "Alice")

	song, err := f.questions.CreateQuestion(ctx, models.QuestionRequest{Prompt: "Favourite song?", Position: 2})
	require.NoError(t, err)
	diet, err := f.questions.CreateQuestion(ctx, models.QuestionRequest{Prompt: "Dietary restrictions?", Required: true, Position: 1})
	require.NoError(t, err)

	listed, err := f.questions.ListForInvitation(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, diet.ID, listed[0].ID)
	assert.Empty(t, listed[0].Answer)

	_, err = f.questions.SubmitAnswers(ctx, inv.ID, models.SubmitAnswersRequest{
		Answers: []models.AnswerInput{{QuestionID: diet.ID.String(), Text: "  "}},
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	answered, err := f.questions.SubmitAnswers(ctx, inv.ID, models.SubmitAnswersRequest{
		Answers: []models.AnswerInput{
			{QuestionID: diet.ID.String(), Text: "Vegetarian"},
			{QuestionID: song.ID.String(), Text: "September"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Vegetarian", answered[0].Answer)
	assert.Equal(t, "September", answered[1].Answer)

	// Resubmitting overwrites only the questions mentioned.
	answered, err = f.questions.SubmitAnswers(ctx, inv.ID, models.SubmitAnswersRequest{
		Answers: []models.AnswerInput{{QuestionID: diet.ID.String(), Text: "Vegan"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Vegan", answered[0].Answer)
	assert.Equal(t, "September", answered[1].Answer)

	var count int64
	require.NoError(t, f.db.Model(&models.Answer{}).Where("invitation_id = ?", inv.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	// RSVP changes leave answers alone.
	_, err = f.invitations.ConfirmGuests(ctx, inv.ID, []models.ConfirmEntry{
		{GuestID: inv.Guests[0].ID.String(), Status: models.RSVPConfirmed},
	})
	require.NoError(t, err)
	listed, err = f.questions.ListForInvitation(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vegan", listed[0].Answer)
}

func TestSubmitAnswersErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := createInvitation(t, f, "Family")
	q, err := f.questions.CreateQuestion(ctx, models.QuestionRequest{Prompt: "Coming by car?"})
	require.NoError(t, err)

	_, err = f.questions.SubmitAnswers(ctx, uuid.New(), models.SubmitAnswersRequest{
		Answers: []models.AnswerInput{{QuestionID: q.ID.String(), Text: "yes"}},
	})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.questions.SubmitAnswers(ctx, inv.ID, models.SubmitAnswersRequest{
		Answers: []models.AnswerInput{{QuestionID: uuid.NewString(), Text: "yes"}},
	})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.questions.SubmitAnswers(ctx, inv.ID, models.SubmitAnswersRequest{})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestQuestionCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.questions.CreateQuestion(ctx, models.QuestionRequest{Prompt: " "})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	q, err := f.questions.CreateQuestion(ctx, models.QuestionRequest{Prompt: "Song?"})
	require.NoError(t, err)

	updated, err := f.questions.UpdateQuestion(ctx, q.ID, models.QuestionRequest{Prompt: "Song request?", Required: true})
	require.NoError(t, err)
	assert.Equal(t, "Song request?", updated.Prompt)
	assert.True(t, updated.Required)

	require.NoError(t, f.questions.DeleteQuestion(ctx, q.ID))
	assert.True(t, apperror.Is(f.questions.DeleteQuestion(ctx, q.ID), apperror.KindNotFound))

	all, err := f.questions.ListQuestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
