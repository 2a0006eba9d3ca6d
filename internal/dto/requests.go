package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email       string  `json:"email" binding:"required,email" validate:"required,email"`
	Password    string  `json:"password" binding:"required,min=8" validate:"required,min=8"`
	FullName    string  `json:"full_name" binding:"required" validate:"required"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Role        string  `json:"role" binding:"required" validate:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Password string `json:"password" binding:"required" validate:"required"`
}

// OtpValidateRequest carries a one-time code for verification.
// NewPassword is consumed by the password_reset purpose only.
type OtpValidateRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required"`
	Purpose     string `json:"purpose" binding:"required"`
	NewPassword string `json:"new_password,omitempty"`
}

// OtpResendRequest asks for a fresh one-time code
type OtpResendRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose" binding:"required"`
}

// OtpValidateResponse reports the verification outcome
type OtpValidateResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// BroadcastRequest describes a fan-out to a target population
type BroadcastRequest struct {
	Verb      string `json:"verb" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Target    string `json:"target" binding:"required"`
	SourceApp string `json:"source_app"`
	ChunkSize int    `json:"chunk_size"`
}

// UpdatePreferencesRequest is a partial notification-settings change;
// omitted fields keep their current value
type UpdatePreferencesRequest struct {
	Email *bool `json:"email"`
	SMS   *bool `json:"sms"`
	Push  *bool `json:"push"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	User        UserInfo `json:"user"`
}

// AccessTokenResponse is returned by the refresh endpoint
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// UserResponse represents a user response
type UserResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FullName    string  `json:"full_name"`
	PhoneNumber *string `json:"phone_number"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"is_active"`
	IsVerified  bool    `json:"is_verified"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	LastLoginAt *string `json:"last_login_at"`
}

// UnreadCountResponse carries the unread notification count
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// MarkAllReadResponse reports how many notifications were marked read
type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

// RetryResponse reports how many failed channels were retried
type RetryResponse struct {
	Retried int `json:"retried"`
}

// LogoutAllResponse reports how many sessions were revoked
type LogoutAllResponse struct {
	Revoked int `json:"revoked"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
