package acceptance

import (
	"net/http"

	"github.com/prperemyshlev/account-service/internal/dto"
)

func (s *Suite) TestRegister_Success() {
	user := s.register("test@example.com")

	s.NotEmpty(user.ID)
	s.Equal("test@example.com", user.Email)
	s.Equal("customer", user.Role)
	s.False(user.IsActive, "Account starts inactive until the signup code is verified")
	s.False(user.IsVerified)
	s.NotEmpty(user.CreatedAt)
}

func (s *Suite) TestRegister_CreatesSignupArtifacts() {
	user := s.register("artifacts@example.com")

	var profileKind string
	err := s.Postgres.DB.QueryRow(`SELECT kind FROM profiles WHERE user_id = $1`, user.ID).Scan(&profileKind)
	s.Require().NoError(err, "Registration should create a profile")
	s.Equal("customer", profileKind)

	var email, sms, push bool
	err = s.Postgres.DB.QueryRow(`
		SELECT email, sms, push FROM notification_preferences WHERE user_id = $1
	`, user.ID).Scan(&email, &sms, &push)
	s.Require().NoError(err, "Registration should create a preference row")
	s.True(email)
	s.False(sms)
	s.True(push)

	code := s.fetchOtpCode("artifacts@example.com", "signup")
	s.Len(code, 6)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("duplicate@example.com")

	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:    "duplicate@example.com",
		Password: testPassword,
		FullName: "Test User",
		Role:     "customer",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.decode(resp, &errResp)
	s.Equal("Conflict", errResp.Error)
}

func (s *Suite) TestRegister_InvalidEmail() {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:    "invalid-email",
		Password: testPassword,
		FullName: "Test User",
		Role:     "customer",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRegister_ShortPassword() {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:    "short@example.com",
		Password: "short",
		FullName: "Test User",
		Role:     "customer",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRegister_AdminRoleRejected() {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:    "wannabe-admin@example.com",
		Password: testPassword,
		FullName: "Test User",
		Role:     "admin",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_UnverifiedAccountRejected() {
	s.register("unverified@example.com")

	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "unverified@example.com",
		Password: testPassword,
	})
	defer resp.Body.Close()

	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *Suite) TestLogin_Success() {
	authResp, cookies := s.registerVerified("login@example.com")

	s.NotEmpty(authResp.AccessToken)
	s.Equal("Bearer", authResp.TokenType)
	s.NotZero(authResp.ExpiresIn)
	s.Equal("login@example.com", authResp.User.Email)
	s.NotEmpty(cookies, "Should have refresh token cookie")
}

func (s *Suite) TestLogin_InvalidCredentials() {
	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "nonexistent@example.com",
		Password: "wrongpassword",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.decode(resp, &errResp)
	s.Equal("Unauthorized", errResp.Error)
}

func (s *Suite) TestLogin_WrongPassword() {
	s.register("wrongpass@example.com")
	s.verifySignup("wrongpass@example.com")

	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "wrongpass@example.com",
		Password: "WrongPassword123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetMe_Success() {
	authResp, _ := s.registerVerified("getme@example.com")

	resp := s.doAuthed("GET", "/api/v1/auth/me", authResp.AccessToken, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var userResp dto.UserResponse
	s.decode(resp, &userResp)

	s.NotEmpty(userResp.ID)
	s.Equal("getme@example.com", userResp.Email)
	s.True(userResp.IsActive)
	s.True(userResp.IsVerified)
	s.NotEmpty(userResp.CreatedAt)
}

func (s *Suite) TestGetMe_NoToken() {
	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/me", nil)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetMe_InvalidToken() {
	resp := s.doAuthed("GET", "/api/v1/auth/me", "invalid-token", nil)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestRefresh_Success() {
	_, cookies := s.registerVerified("refresh@example.com")
	s.Require().NotEmpty(cookies)

	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var tokenResp dto.AccessTokenResponse
	s.decode(resp, &tokenResp)

	s.NotEmpty(tokenResp.AccessToken)
	s.Equal("Bearer", tokenResp.TokenType)
}

func (s *Suite) TestRefresh_NoCookie() {
	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogout_RevokesRefreshToken() {
	authResp, cookies := s.registerVerified("logout@example.com")
	s.Require().NotEmpty(cookies)

	logoutReq, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/logout", nil)
	logoutReq.Header.Set("Authorization", "Bearer "+authResp.AccessToken)
	for _, cookie := range cookies {
		logoutReq.AddCookie(cookie)
	}

	logoutResp, err := http.DefaultClient.Do(logoutReq)
	s.Require().NoError(err)
	defer logoutResp.Body.Close()

	s.Equal(http.StatusOK, logoutResp.StatusCode)

	var successResp dto.SuccessResponse
	s.decode(logoutResp, &successResp)
	s.Equal("Logged out successfully", successResp.Message)

	// The revoked refresh token no longer refreshes
	refreshReq, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	for _, cookie := range cookies {
		refreshReq.AddCookie(cookie)
	}
	refreshResp, err := http.DefaultClient.Do(refreshReq)
	s.Require().NoError(err)
	defer refreshResp.Body.Close()

	s.Equal(http.StatusUnauthorized, refreshResp.StatusCode)
}

func (s *Suite) TestLogoutAll_RevokesEverySession() {
	s.registerVerified("logout-all@example.com")
	authResp2, cookies2 := s.login("logout-all@example.com")

	resp := s.doAuthed("POST", "/api/v1/auth/logout-all", authResp2.AccessToken, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var logoutResp dto.LogoutAllResponse
	s.decode(resp, &logoutResp)
	s.Equal(2, logoutResp.Revoked)

	refreshReq, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	for _, cookie := range cookies2 {
		refreshReq.AddCookie(cookie)
	}
	refreshResp, err := http.DefaultClient.Do(refreshReq)
	s.Require().NoError(err)
	defer refreshResp.Body.Close()

	s.Equal(http.StatusUnauthorized, refreshResp.StatusCode)
}

func (s *Suite) TestCompleteFlow() {
	email := "complete@example.com"

	authResp, cookies := s.registerVerified(email)

	meResp := s.doAuthed("GET", "/api/v1/auth/me", authResp.AccessToken, nil)
	defer meResp.Body.Close()
	s.Equal(http.StatusOK, meResp.StatusCode)

	refreshReq, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	for _, cookie := range cookies {
		refreshReq.AddCookie(cookie)
	}
	refreshResp, err := http.DefaultClient.Do(refreshReq)
	s.Require().NoError(err)
	defer refreshResp.Body.Close()
	s.Equal(http.StatusOK, refreshResp.StatusCode)

	var tokenResp dto.AccessTokenResponse
	s.decode(refreshResp, &tokenResp)
	s.NotEmpty(tokenResp.AccessToken)

	logoutReq, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/logout", nil)
	logoutReq.Header.Set("Authorization", "Bearer "+tokenResp.AccessToken)
	for _, cookie := range cookies {
		logoutReq.AddCookie(cookie)
	}
	logoutResp, err := http.DefaultClient.Do(logoutReq)
	s.Require().NoError(err)
	defer logoutResp.Body.Close()
	s.Equal(http.StatusOK, logoutResp.StatusCode)
}
