package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/internal/response"
	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto the API's status codes. Anything
// unrecognised is logged and reported as a 500 without details.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrContactMissing):
		response.Abort(c, http.StatusBadRequest, "Email or phone is required", response.CodeInvalidInput)
	case errors.Is(err, models.ErrInvalidEmail), errors.Is(err, models.ErrInvalidPhone):
		response.Abort(c, http.StatusBadRequest, capitalize(err.Error()), response.CodeInvalidInput)
	case errors.Is(err, services.ErrInvalidOrExpired):
		response.Abort(c, http.StatusBadRequest, "Invalid or expired OTP", response.CodeInvalidOTP)
	case errors.Is(err, services.ErrValidation):
		response.Abort(c, http.StatusBadRequest, detail(err, services.ErrValidation), response.CodeInvalidInput)
	case errors.Is(err, services.ErrNotFound):
		response.Abort(c, http.StatusNotFound, detail(err, services.ErrNotFound)+" not found", response.CodeNotFound)
	case errors.Is(err, services.ErrUnauthorized):
		response.Abort(c, http.StatusUnauthorized, "Invalid or expired token", response.CodeUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		response.Abort(c, http.StatusForbidden, detail(err, services.ErrForbidden), response.CodeForbidden)
	case errors.Is(err, services.ErrConflict):
		response.Abort(c, http.StatusConflict, detail(err, services.ErrConflict)+" already exists", response.CodeConflict)
	case errors.Is(err, services.ErrRateLimited):
		response.Abort(c, http.StatusTooManyRequests, "Too many OTP requests, try again later", response.CodeRateLimit)
	default:
		logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		response.Abort(c, http.StatusInternalServerError, "Server error", response.CodeInternalError)
	}
}

func badRequest(c *gin.Context, message string) {
	response.Abort(c, http.StatusBadRequest, message, response.CodeInvalidInput)
}

// detail strips the sentinel prefix from a wrapped error.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		msg = sentinel.Error()
	}
	return capitalize(msg)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
