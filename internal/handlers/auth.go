package handlers

import (
	"net/http"
	"strings"

	"github.com/chachabrian/railparcel-backend/internal/middleware"
	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type otpRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type requestOTPFunc func(c *gin.Context, contact models.Contact) (*services.OTPIssued, error)

type verifyOTPFunc func(c *gin.Context, contact models.Contact, code string) (*services.Session, error)

func SendOTP(auth *services.AuthService, phoneRegion string) gin.HandlerFunc {
	return sendOTP(phoneRegion, func(c *gin.Context, contact models.Contact) (*services.OTPIssued, error) {
		return auth.RequestOTP(c.Request.Context(), contact)
	})
}

func AdminSendOTP(auth *services.AuthService, phoneRegion string) gin.HandlerFunc {
	return sendOTP(phoneRegion, func(c *gin.Context, contact models.Contact) (*services.OTPIssued, error) {
		return auth.RequestAdminOTP(c.Request.Context(), contact)
	})
}

func VerifyOTP(auth *services.AuthService, phoneRegion string) gin.HandlerFunc {
	return verifyOTP(phoneRegion, func(c *gin.Context, contact models.Contact, code string) (*services.Session, error) {
		return auth.VerifyOTP(c.Request.Context(), contact, code)
	})
}

func AdminVerifyOTP(auth *services.AuthService, phoneRegion string) gin.HandlerFunc {
	return verifyOTP(phoneRegion, func(c *gin.Context, contact models.Contact, code string) (*services.Session, error) {
		return auth.VerifyAdminOTP(c.Request.Context(), contact, code)
	})
}

func sendOTP(phoneRegion string, request requestOTPFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input otpRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		contact, err := models.ParseContact(input.Email, input.Phone, phoneRegion)
		if err != nil {
			respondError(c, err)
			return
		}

		issued, err := request(c, contact)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "OTP sent to " + contact.Kind.String(),
			"expiresAt": issued.ExpiresAt,
		})
	}
}

func verifyOTP(phoneRegion string, verify verifyOTPFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input verifyRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		code := strings.TrimSpace(input.OTP)
		if code == "" {
			badRequest(c, "OTP is required")
			return
		}

		contact, err := models.ParseContact(input.Email, input.Phone, phoneRegion)
		if err != nil {
			respondError(c, err)
			return
		}

		session, err := verify(c, contact, code)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "Login successful",
			"token":     session.Token,
			"expiresAt": session.ExpiresAt,
			"user":      session.User,
		})
	}
}

// Me returns the authenticated user with their station.
func Me(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.ActorFrom(c)
		profile, err := auth.CurrentUser(c.Request.Context(), actor.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}
