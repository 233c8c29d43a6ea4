package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// SessionClaims are shared with the external identity provider: it signs admin
// sessions with the same secret, the PIN exchange signs guest sessions.
type SessionClaims struct {
	Role         Role   `json:"role"`
	InvitationID string `json:"invitation_id,omitempty"`
	jwt.RegisteredClaims
}

// Session is what the auth middleware stores in the gin context.
type Session struct {
	Role         Role
	InvitationID uuid.UUID
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// CanAccessInvitation is true for admins and for the guest session bound to id.
func (s Session) CanAccessInvitation(id uuid.UUID) bool {
	return s.IsAdmin() || (s.Role == RoleGuest && s.InvitationID == id)
}

const sessionKey = "session"

func GenerateToken(secret string, ttl time.Duration, role Role, invitationID uuid.UUID) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if role == RoleGuest {
		claims.InvitationID = invitationID.String()
		claims.Subject = invitationID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (Session, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Session{}, err
	}

	switch claims.Role {
	case RoleAdmin:
		return Session{Role: RoleAdmin}, nil
	case RoleGuest:
		id, err := uuid.Parse(claims.InvitationID)
		if err != nil {
			return Session{}, fmt.Errorf("guest session without invitation: %w", err)
		}
		return Session{Role: RoleGuest, InvitationID: id}, nil
	default:
		return Session{}, fmt.Errorf("unknown role %q", claims.Role)
	}
}

func SetSession(c *gin.Context, s Session) {
	c.Set(sessionKey, s)
}

// GetSession returns the zero Session for anonymous requests.
func GetSession(c *gin.Context) (Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
