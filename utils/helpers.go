package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"wedding-registry/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Standard API response
type APIResponse struct {
	Success       bool        `json:"success"`
	Message       string      `json:"message,omitempty"`
	Code          string      `json:"code,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Data          interface{} `json:"data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, kind apperror.Kind, message string) {
	c.JSON(StatusFor(kind), APIResponse{
		Success: false,
		Message: message,
		Code:    string(kind),
	})
}

func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, apperror.KindValidation, message)
}

// BindError answers a request whose body or query failed to bind.
func BindError(c *gin.Context, err error) {
	RespondError(c, apperror.Binding(err))
}

func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, apperror.KindAuth, message)
}

func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, apperror.KindAuthorization, message)
}

func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, apperror.KindInternal, message)
}

// RespondError writes the envelope for any error a service returned. Internal
// errors are logged and replaced by a generic message.
func RespondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	resp := APIResponse{Success: false, Code: string(kind)}

	var appErr *apperror.Error
	if errors.As(err, &appErr) && kind != apperror.KindInternal {
		resp.Message = appErr.Message
		resp.CorrelationID = appErr.CorrelationID
	} else {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		resp.Message = "Internal server error"
	}

	c.AbortWithStatusJSON(StatusFor(kind), resp)
}

func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindInvalidAmount:
		return http.StatusUnprocessableEntity
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindAuth:
		return http.StatusUnauthorized
	case apperror.KindAuthorization:
		return http.StatusForbidden
	case apperror.KindGoalExceeded, apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Parse UUID from a path parameter
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		BadRequest(c, fmt.Sprintf("Invalid %s", strings.ReplaceAll(name, "_", " ")))
		return uuid.Nil, false
	}
	return id, true
}

// FormatMoney renders minor units as a decimal amount with the currency code.
func FormatMoney(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, minor/100, minor%100)
}

// Pagination helpers
type PaginationQuery struct {
	Page  int `form:"page,default=1" binding:"gte=1"`
	Limit int `form:"limit,default=20" binding:"gte=1,lte=100"`
}

func (p *PaginationQuery) Offset() int {
	return (p.Page - 1) * p.Limit
}
