package handlers

import (
	"net/http"
	"wedding-registry/models"
	"wedding-registry/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/gifts
func (h *Handler) ListGifts(c *gin.Context) {
	var filter models.GiftFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.BindError(c, err)
		return
	}

	gifts, err := h.registry.ListGifts(c.Request.Context(), filter, isAdmin(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gifts)
}

// GET /api/gifts/:id
func (h *Handler) GetGift(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	gift, err := h.registry.GetGift(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gift)
}

// POST /api/admin/gifts
func (h *Handler) CreateGift(c *gin.Context) {
	var req models.CreateGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	gift, err := h.registry.CreateGift(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Gift created", gift)
}

// PUT /api/admin/gifts/:id
func (h *Handler) UpdateGift(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	gift, err := h.registry.UpdateGift(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Gift updated", gift)
}

// DELETE /api/admin/gifts/:id
func (h *Handler) DeleteGift(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.registry.DeleteGift(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Gift deleted", nil)
}

// ============================================================
// LINKS & CATALOG
// ============================================================

// GET /api/links
func (h *Handler) ListLinks(c *gin.Context) {
	links, err := h.registry.ListLinks(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", links)
}

// POST /api/admin/links
func (h *Handler) CreateLink(c *gin.Context) {
	var req models.LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	link, err := h.registry.CreateLink(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Link created", link)
}

// PUT /api/admin/links/:id
func (h *Handler) UpdateLink(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req models.LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	link, err := h.registry.UpdateLink(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Link updated", link)
}

// DELETE /api/admin/links/:id
func (h *Handler) DeleteLink(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.registry.DeleteLink(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Link deleted", nil)
}

// GET /api/catalog
func (h *Handler) ListCatalog(c *gin.Context) {
	items, err := h.registry.ListCatalog(c.Request.Context(), isAdmin(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", items)
}

// GET /api/payment-methods
func (h *Handler) ListPaymentMethods(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"methods":          h.methods,
		"currency":         h.cfg.Currency,
		"min_contribution": h.cfg.MinContribution,
	})
}
