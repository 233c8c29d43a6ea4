package handlers

import (
	"wedding-registry/middleware"

	"github.com/gin-gonic/gin"
)

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	secret := h.cfg.JWTSecret

	r.GET("/health", h.Health)

	// ==========================================
	// AUTH ROUTES (public)
	// ==========================================
	auth := r.Group("/auth")
	{
		auth.POST("/pin", h.ExchangePIN)
		auth.POST("/admin", h.AdminLogin)
	}

	// ==========================================
	// CATALOG ROUTES (public, session optional)
	// ==========================================
	public := r.Group("/api")
	public.Use(middleware.OptionalAuth(secret))
	{
		public.GET("/gifts", h.ListGifts)
		public.GET("/gifts/:id", h.GetGift)
		public.GET("/links", h.ListLinks)
		public.GET("/catalog", h.ListCatalog)
		public.GET("/payment-methods", h.ListPaymentMethods)
	}

	// ==========================================
	// API ROUTES (guest or admin session)
	// ==========================================
	api := r.Group("/api")
	api.Use(middleware.AuthRequired(secret))
	{
		// Invitation
		api.GET("/invites/:id", h.GetInvitation)
		api.PUT("/invites/:id/contact", h.UpdateContact)

		// Guests
		api.GET("/invites/:id/guests", h.ListGuests)
		api.POST("/invites/:id/guests", h.AddGuest)
		api.PUT("/guests/:id", h.UpdateGuest)
		api.DELETE("/guests/:id", h.DeleteGuest)
		api.POST("/invites/:id/guests/confirm", middleware.GuestOnly(), h.ConfirmGuests)

		// Questions
		api.GET("/invites/:id/questions", h.ListInvitationQuestions)
		api.PUT("/invites/:id/answers", h.SubmitAnswers)

		// Contributions
		api.POST("/gifts/:id/contributions", middleware.GuestOnly(), h.InitiateContribution)
		api.GET("/contributions/:id", h.GetContribution)
		api.POST("/contributions/:id/reconcile", h.ReconcileContribution)
	}

	// ==========================================
	// ADMIN ROUTES
	// ==========================================
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(secret), middleware.AdminOnly())
	{
		admin.GET("/invites", h.ListInvitations)
		admin.POST("/invites", h.CreateInvitation)
		admin.PUT("/invites/:id", h.UpdateInvitation)
		admin.DELETE("/invites/:id", h.DeleteInvitation)

		admin.POST("/gifts", h.CreateGift)
		admin.PUT("/gifts/:id", h.UpdateGift)
		admin.DELETE("/gifts/:id", h.DeleteGift)

		admin.POST("/links", h.CreateLink)
		admin.PUT("/links/:id", h.UpdateLink)
		admin.DELETE("/links/:id", h.DeleteLink)

		admin.GET("/questions", h.ListQuestions)
		admin.POST("/questions", h.CreateQuestion)
		admin.PUT("/questions/:id", h.UpdateQuestion)
		admin.DELETE("/questions/:id", h.DeleteQuestion)

		admin.GET("/contributions", h.ListContributions)
		admin.POST("/contributions/sweep", h.SweepContributions)
	}
}
