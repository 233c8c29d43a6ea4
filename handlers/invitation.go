package handlers

import (
	"net/http"
	"wedding-registry/models"
	"wedding-registry/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/admin/invites
func (h *Handler) ListInvitations(c *gin.Context) {
	invitations, err := h.invitations.ListInvitations(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", invitations)
}

// POST /api/admin/invites
func (h *Handler) CreateInvitation(c *gin.Context) {
	var req models.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	invitation, err := h.invitations.CreateInvitation(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Invitation created", invitation)
}

// GET /api/invites/:id
func (h *Handler) GetInvitation(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok || !authorizeInvitation(c, id) {
		return
	}

	invitation, err := h.invitations.GetInvitation(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", invitation)
}

// PUT /api/admin/invites/:id
func (h *Handler) UpdateInvitation(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	invitation, err := h.invitations.UpdateInvitation(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Invitation updated", invitation)
}

// PUT /api/invites/:id/contact
func (h *Handler) UpdateContact(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok || !authorizeInvitation(c, id) {
		return
	}

	var req models.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	invitation, err := h.invitations.UpdateContact(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Contact updated", invitation)
}

// DELETE /api/admin/invites/:id
func (h *Handler) DeleteInvitation(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.invitations.DeleteInvitation(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Invitation deleted", nil)
}

// ============================================================
// GUESTS
// ============================================================

// GET /api/invites/:id/guests
func (h *Handler) ListGuests(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok || !authorizeInvitation(c, id) {
		return
	}

	guests, err := h.invitations.ListGuests(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", guests)
}

// POST /api/invites/:id/guests
func (h *Handler) AddGuest(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok || !authorizeInvitation(c, id) {
		return
	}

	var req models.AddGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	guest, err := h.invitations.AddGuest(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Guest added", guest)
}

// PUT /api/guests/:id
func (h *Handler) UpdateGuest(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	var patch models.GuestPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.BindError(c, err)
		return
	}

	guest, err := h.invitations.GetGuest(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !authorizeInvitation(c, guest.InvitationID) {
		return
	}

	guest, err = h.invitations.UpdateGuest(c.Request.Context(), id, patch)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Guest updated", guest)
}

// DELETE /api/guests/:id
func (h *Handler) DeleteGuest(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	guest, err := h.invitations.GetGuest(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !authorizeInvitation(c, guest.InvitationID) {
		return
	}

	if err := h.invitations.DeleteGuest(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Guest removed", nil)
}

// POST /api/invites/:id/guests/confirm
func (h *Handler) ConfirmGuests(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok || !authorizeInvitation(c, id) {
		return
	}

	var req models.ConfirmGuestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	guests, err := h.invitations.ConfirmGuests(c.Request.Context(), id, req.Guests)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "RSVP saved", guests)
}
