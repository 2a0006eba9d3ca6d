package acceptance

import (
	"net/http"

	"github.com/prperemyshlev/account-service/internal/dto"
)

func (s *Suite) TestOtpValidate_WrongCode() {
	s.register("wrong-code@example.com")

	resp := s.postJSON("/api/v1/otp/validate", dto.OtpValidateRequest{
		Email:   "wrong-code@example.com",
		Code:    "000000",
		Purpose: "signup",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var validateResp dto.OtpValidateResponse
	s.decode(resp, &validateResp)
	s.False(validateResp.Valid)
	s.Equal("Invalid or already used OTP.", validateResp.Message)
}

func (s *Suite) TestOtpValidate_UnknownEmail() {
	resp := s.postJSON("/api/v1/otp/validate", dto.OtpValidateRequest{
		Email:   "nobody@example.com",
		Code:    "123456",
		Purpose: "signup",
	})
	defer resp.Body.Close()

	// An unknown account reads exactly like a wrong code
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var validateResp dto.OtpValidateResponse
	s.decode(resp, &validateResp)
	s.False(validateResp.Valid)
	s.Equal("Invalid or already used OTP.", validateResp.Message)
}

func (s *Suite) TestOtpValidate_SingleUse() {
	s.register("single-use@example.com")
	code := s.fetchOtpCode("single-use@example.com", "signup")

	req := dto.OtpValidateRequest{
		Email:   "single-use@example.com",
		Code:    code,
		Purpose: "signup",
	}

	resp1 := s.postJSON("/api/v1/otp/validate", req)
	defer resp1.Body.Close()
	s.Equal(http.StatusOK, resp1.StatusCode)

	var validateResp dto.OtpValidateResponse
	s.decode(resp1, &validateResp)
	s.True(validateResp.Valid)
	s.Equal("OTP verified successfully.", validateResp.Message)

	resp2 := s.postJSON("/api/v1/otp/validate", req)
	defer resp2.Body.Close()
	s.Equal(http.StatusBadRequest, resp2.StatusCode)
}

func (s *Suite) TestOtpResend_InvalidatesPriorCode() {
	s.register("resend@example.com")
	firstCode := s.fetchOtpCode("resend@example.com", "signup")

	resp := s.postJSON("/api/v1/otp/resend", dto.OtpResendRequest{
		Email:   "resend@example.com",
		Purpose: "signup",
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	// The first code is dead once a fresh one exists
	validateResp := s.postJSON("/api/v1/otp/validate", dto.OtpValidateRequest{
		Email:   "resend@example.com",
		Code:    firstCode,
		Purpose: "signup",
	})
	defer validateResp.Body.Close()
	s.Equal(http.StatusBadRequest, validateResp.StatusCode)

	s.verifySignup("resend@example.com")
}

func (s *Suite) TestOtpResend_UnknownEmailSilentlyAccepted() {
	resp := s.postJSON("/api/v1/otp/resend", dto.OtpResendRequest{
		Email:   "nobody@example.com",
		Purpose: "signup",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var successResp dto.SuccessResponse
	s.decode(resp, &successResp)
	s.Equal("If the account exists, a code has been sent", successResp.Message)
}

func (s *Suite) TestOtpPasswordReset() {
	email := "password-reset@example.com"
	s.registerVerified(email)

	resendResp := s.postJSON("/api/v1/otp/resend", dto.OtpResendRequest{
		Email:   email,
		Purpose: "password_reset",
	})
	defer resendResp.Body.Close()
	s.Require().Equal(http.StatusOK, resendResp.StatusCode)

	code := s.fetchOtpCode(email, "password_reset")

	validateResp := s.postJSON("/api/v1/otp/validate", dto.OtpValidateRequest{
		Email:       email,
		Code:        code,
		Purpose:     "password_reset",
		NewPassword: "NewPassword456",
	})
	defer validateResp.Body.Close()
	s.Require().Equal(http.StatusOK, validateResp.StatusCode)

	// Old password no longer works
	oldResp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    email,
		Password: testPassword,
	})
	defer oldResp.Body.Close()
	s.Equal(http.StatusUnauthorized, oldResp.StatusCode)

	// New password does
	newResp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    email,
		Password: "NewPassword456",
	})
	defer newResp.Body.Close()
	s.Equal(http.StatusOK, newResp.StatusCode)
}

func (s *Suite) TestOtpPasswordReset_RequiresNewPassword() {
	resp := s.postJSON("/api/v1/otp/validate", dto.OtpValidateRequest{
		Email:   "someone@example.com",
		Code:    "123456",
		Purpose: "password_reset",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
