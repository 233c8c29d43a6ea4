package handlers

import (
	"net/http"
	"wedding-registry/apperror"
	"wedding-registry/models"
	"wedding-registry/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// POST /auth/pin
func (h *Handler) ExchangePIN(c *gin.Context) {
	var req models.ValidatePINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	invitation, err := h.invitations.ValidatePIN(c.Request.Context(), req.PIN)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, h.cfg.SessionTTL, utils.RoleGuest, invitation.ID)
	if err != nil {
		utils.InternalError(c, "Failed to generate token")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Welcome!", models.SessionResponse{
		Token:      token,
		Role:       string(utils.RoleGuest),
		Invitation: invitation,
	})
}

// POST /auth/admin
// Organizers signed in through the identity provider already hold an admin
// token; this is the fallback for a single shared password.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}

	if h.cfg.AdminPasswordHash == "" {
		utils.RespondError(c, apperror.Auth("admin login is disabled"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminPasswordHash), []byte(req.Password)); err != nil {
		log.Warn().Str("ip", c.ClientIP()).Msg("failed admin login")
		utils.RespondError(c, apperror.Auth("invalid password"))
		return
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, h.cfg.SessionTTL, utils.RoleAdmin, uuid.Nil)
	if err != nil {
		utils.InternalError(c, "Failed to generate token")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Logged in", models.SessionResponse{
		Token: token,
		Role:  string(utils.RoleAdmin),
	})
}
