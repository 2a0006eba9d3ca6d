package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/service"
)

// OtpHandler handles one-time code requests
type OtpHandler struct {
	otpService *service.OtpService
}

// NewOtpHandler creates a new otp handler
func NewOtpHandler(otpService *service.OtpService) *OtpHandler {
	return &OtpHandler{
		otpService: otpService,
	}
}

// Validate handles code verification
// @Summary Validate a one-time code
// @Description Verify a code and apply its purpose side effect
// @Tags otp
// @Accept json
// @Produce json
// @Param request body dto.OtpValidateRequest true "Validation request"
// @Success 200 {object} dto.OtpValidateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /otp/validate [post]
func (h *OtpHandler) Validate(c *gin.Context) {
	var req dto.OtpValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	purpose, err := domain.ParseOtpPurpose(req.Purpose)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: err.Error(),
		})
		return
	}
	if purpose == domain.OtpPasswordReset && req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "new_password is required for password reset",
		})
		return
	}

	valid, message, err := h.otpService.ValidateForEmail(c.Request.Context(), req.Email, req.Code, purpose, req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	status := http.StatusOK
	if !valid {
		status = http.StatusBadRequest
	}
	c.JSON(status, dto.OtpValidateResponse{
		Valid:   valid,
		Message: message,
	})
}

// Resend handles issuing a fresh code
// @Summary Resend a one-time code
// @Description Invalidate prior codes and mail a fresh one
// @Tags otp
// @Accept json
// @Produce json
// @Param request body dto.OtpResendRequest true "Resend request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /otp/resend [post]
func (h *OtpHandler) Resend(c *gin.Context) {
	var req dto.OtpResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	purpose, err := domain.ParseOtpPurpose(req.Purpose)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: err.Error(),
		})
		return
	}

	if err := h.otpService.ResendForEmail(c.Request.Context(), req.Email, purpose); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "If the account exists, a code has been sent",
	})
}
