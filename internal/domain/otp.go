package domain

import (
	"fmt"
	"time"
)

// OtpPurpose binds a one-time code to the flow that requested it.
type OtpPurpose string

const (
	OtpSignup               OtpPurpose = "signup"
	OtpPasswordReset        OtpPurpose = "password_reset"
	OtpResend               OtpPurpose = "resend"
	OtpAccountDelete        OtpPurpose = "account_delete"
	OtpAccountRestore       OtpPurpose = "account_restore"
	OtpAccountDeleteConfirm OtpPurpose = "account_deletion_confirmation"
)

// ParseOtpPurpose validates a purpose string coming from the API
func ParseOtpPurpose(s string) (OtpPurpose, error) {
	switch OtpPurpose(s) {
	case OtpSignup, OtpPasswordReset, OtpResend, OtpAccountDelete,
		OtpAccountRestore, OtpAccountDeleteConfirm:
		return OtpPurpose(s), nil
	}
	return "", fmt.Errorf("unknown otp purpose %q", s)
}

// EmailTemplate returns the mail template name for this OTP purpose.
func (p OtpPurpose) EmailTemplate() string {
	switch p {
	case OtpSignup:
		return "otp_signup"
	case OtpPasswordReset:
		return "otp_password_reset"
	case OtpAccountDelete:
		return "otp_account_delete"
	case OtpAccountRestore:
		return "otp_account_restore"
	case OtpAccountDeleteConfirm:
		return "otp_account_deletion_confirmation"
	default:
		return "otp_generic"
	}
}

// Otp is a one-time numeric code bound to a user and purpose
type Otp struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Code      string     `json:"-" db:"code"`
	Purpose   OtpPurpose `json:"purpose" db:"purpose"`
	IsUsed    bool       `json:"is_used" db:"is_used"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsExpired evaluates expiry against the wall clock; there is no sweep job.
func (o Otp) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}
