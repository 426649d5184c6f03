package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/nextolk/backend/internal/errors"
	"github.com/nextolk/backend/internal/otp"
	"github.com/nextolk/backend/internal/util"
)

type otpRequest struct {
	PhoneNumber string `json:"phone_number" form:"phone_number"`
	OTP         string `json:"otp" form:"otp"`
}

// RequestOTP sends a verification code to a phone number
// POST /api/request-otp/
func (h *Handlers) RequestOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBind(&req); err != nil {
		util.RespondBadRequest(c, "Phone number is required.")
		return
	}
	phone, err := otp.NormalizePhone(req.PhoneNumber)
	if err != nil {
		util.RespondValidationError(c, "phone_number", err.Error())
		return
	}
	if h.otp == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("otp"))
		return
	}

	code, err := h.otp.Request(c.Request.Context(), phone)
	if errors.Is(err, otp.ErrThrottled) {
		util.RespondWithAPIError(c, apierrors.RateLimited(err.Error()))
		return
	}
	if err != nil {
		util.RespondError(c, err, "Failed to send OTP")
		return
	}

	resp := gin.H{"message": "OTP sent successfully."}
	if h.debug {
		resp["otp"] = code
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyOTP checks a code and consumes it
// POST /api/verify-otp/
func (h *Handlers) VerifyOTP(c *gin.Context) {
	var req otpRequest
	_ = c.ShouldBind(&req)
	phone, err := otp.NormalizePhone(req.PhoneNumber)
	if err != nil || req.OTP == "" {
		util.RespondBadRequest(c, "Phone number and OTP are required.")
		return
	}
	if h.otp == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("otp"))
		return
	}

	err = h.otp.Verify(c.Request.Context(), phone, req.OTP)
	switch {
	case errors.Is(err, otp.ErrInvalidCode), errors.Is(err, otp.ErrExpired):
		util.RespondBadRequest(c, err.Error())
	case err != nil:
		util.RespondError(c, err, "Failed to verify OTP")
	default:
		c.JSON(http.StatusOK, gin.H{"message": "OTP verified successfully."})
	}
}
