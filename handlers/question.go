package handlers

import (
	"net/http"
	"wedding-registry/models"
	"wedding-registry/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/admin/questions
func (h *Handler) ListQuestions(c *gin.Context) {
	questions, err := h.questions.ListQuestions(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", questions)
}

// POST /api/admin/questions
func (h *Handler) CreateQuestion(c *gin.Context) {
	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	question, err := h.questions.CreateQuestion(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Question created", question)
}

// PUT /api/admin/questions/:id
func (h *Handler) UpdateQuestion(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	question, err := h.questions.UpdateQuestion(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Question updated", question)
}

// DELETE /api/admin/questions/:id
func (h *Handler) DeleteQuestion(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.questions.DeleteQuestion(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Question deleted", nil)
}

// GET /api/invites/:id/questions
func (h *Handler) ListInvitationQuestions(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok || !authorizeInvitation(c, id) {
		return
	}

	questions, err := h.questions.ListForInvitation(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", questions)
}

// PUT /api/invites/:id/answers
func (h *Handler) SubmitAnswers(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok || !authorizeInvitation(c, id) {
		return
	}

	var req models.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	questions, err := h.questions.SubmitAnswers(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Answers saved", questions)
}
