package handlers

import (
	"net/http"
	"wedding-registry/apperror"
	"wedding-registry/models"
	"wedding-registry/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// POST /api/gifts/:id/contributions
func (h *Handler) InitiateContribution(c *gin.Context) {
	giftID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req models.InitiateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	session, _ := utils.GetSession(c)
	invitationID := session.InvitationID
	intent, err := h.ledger.Initiate(c.Request.Context(), giftID, &invitationID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Contribution started", intent)
}

// GET /api/contributions/:id
func (h *Handler) GetContribution(c *gin.Context) {
	intent, ok := h.ownedIntent(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", intent)
}

// POST /api/contributions/:id/reconcile
func (h *Handler) ReconcileContribution(c *gin.Context) {
	intent, ok := h.ownedIntent(c)
	if !ok {
		return
	}

	intent, err := h.ledger.Reconcile(c.Request.Context(), intent.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", intent)
}

// GET /api/admin/contributions
func (h *Handler) ListContributions(c *gin.Context) {
	var filter models.ContributionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.BindError(c, err)
		return
	}
	var page utils.PaginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		utils.BindError(c, err)
		return
	}

	intents, total, err := h.ledger.List(c.Request.Context(), filter, page.Offset(), page.Limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"items": intents,
		"total": total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

// POST /api/admin/contributions/sweep
func (h *Handler) SweepContributions(c *gin.Context) {
	result, err := h.sweeper.RunOnce(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Sweep finished", result)
}

// ownedIntent loads the intent in the path. Guests only see intents started
// from their own invitation.
func (h *Handler) ownedIntent(c *gin.Context) (*models.ContributionIntent, bool) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return nil, false
	}

	intent, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}

	if !isAdmin(c) {
		session, _ := utils.GetSession(c)
		if intent.InvitationID == nil || *intent.InvitationID != session.InvitationID || session.InvitationID == uuid.Nil {
			utils.RespondError(c, apperror.NotFound("contribution"))
			return nil, false
		}
	}
	return intent, true
}
