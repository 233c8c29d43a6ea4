package handlers

import (
	"net/http"
	"wedding-registry/apperror"
	"wedding-registry/config"
	"wedding-registry/services"
	"wedding-registry/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler is the HTTP façade over the stores and the ledger.
type Handler struct {
	cfg         *config.Config
	invitations *services.InvitationService
	registry    *services.GiftRegistry
	ledger      *services.ContributionLedger
	questions   *services.QuestionService
	sweeper     *services.Sweeper
	methods     []string
}

type Deps struct {
	Invitations *services.InvitationService
	Registry    *services.GiftRegistry
	Ledger      *services.ContributionLedger
	Questions   *services.QuestionService
	Sweeper     *services.Sweeper
	Methods     []string // payment methods with a configured gateway
}

func New(cfg *config.Config, deps Deps) *Handler {
	return &Handler{
		cfg:         cfg,
		invitations: deps.Invitations,
		registry:    deps.Registry,
		ledger:      deps.Ledger,
		questions:   deps.Questions,
		sweeper:     deps.Sweeper,
		methods:     deps.Methods,
	}
}

// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.cfg.AppName,
	})
}

// authorizeInvitation lets admins through and guests only into their own invitation.
func authorizeInvitation(c *gin.Context, invitationID uuid.UUID) bool {
	session, _ := utils.GetSession(c)
	if !session.CanAccessInvitation(invitationID) {
		utils.RespondError(c, apperror.Authorization("this invitation belongs to another session"))
		return false
	}
	return true
}

func isAdmin(c *gin.Context) bool {
	session, ok := utils.GetSession(c)
	return ok && session.IsAdmin()
}
