package acceptance

import (
	"encoding/json"
	"net/http"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/service"
)

// broadcastAsAdmin fans one message out to every active verified user
func (s *Suite) broadcastAsAdmin(message string) service.BroadcastResult {
	s.createAdmin("broadcast-admin@example.com")
	adminAuth, _ := s.login("broadcast-admin@example.com")

	resp := s.doAuthed("POST", "/api/v1/notifications/broadcast", adminAuth.AccessToken, dto.BroadcastRequest{
		Verb:    "broadcast",
		Message: message,
		Target:  "all_users",
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var result service.BroadcastResult
	s.decode(resp, &result)
	return result
}

func (s *Suite) TestBroadcast_CreatesNotifications() {
	userAuth, _ := s.registerVerified("user-one@example.com")
	s.registerVerified("user-two@example.com")

	result := s.broadcastAsAdmin("Scheduled maintenance tonight")

	s.Equal(2, result.Total)
	s.Equal(2, result.Created)
	s.Zero(result.Failed)

	listResp := s.doAuthed("GET", "/api/v1/notifications", userAuth.AccessToken, nil)
	defer listResp.Body.Close()
	s.Equal(http.StatusOK, listResp.StatusCode)

	var notifications []domain.Notification
	s.Require().NoError(json.NewDecoder(listResp.Body).Decode(&notifications))
	s.Require().Len(notifications, 1)
	s.Equal("Scheduled maintenance tonight", notifications[0].Message)
	s.Equal(domain.VerbBroadcast, notifications[0].Verb)
	s.False(notifications[0].Read)

	// The admin who triggered the run is the actor
	var adminID string
	s.Require().NoError(s.Postgres.DB.QueryRow(
		`SELECT id FROM users WHERE email = 'broadcast-admin@example.com'`,
	).Scan(&adminID))
	s.Require().NotNil(notifications[0].ActorID)
	s.Equal(adminID, *notifications[0].ActorID)

	// Channel snapshot follows the default preference: email and push
	var kinds []string
	rows, err := s.Postgres.DB.Query(`
		SELECT kind FROM notification_channels WHERE notification_id = $1 ORDER BY kind
	`, notifications[0].ID)
	s.Require().NoError(err)
	defer rows.Close()
	for rows.Next() {
		var kind string
		s.Require().NoError(rows.Scan(&kind))
		kinds = append(kinds, kind)
	}
	s.Require().NoError(rows.Err())
	s.Equal([]string{"email", "push"}, kinds)
}

func (s *Suite) TestBroadcast_RequiresAdmin() {
	userAuth, _ := s.registerVerified("not-admin@example.com")

	resp := s.doAuthed("POST", "/api/v1/notifications/broadcast", userAuth.AccessToken, dto.BroadcastRequest{
		Verb:    "broadcast",
		Message: "should not happen",
		Target:  "all_users",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *Suite) TestNotifications_UnreadCountAndMarkRead() {
	userAuth, _ := s.registerVerified("reader@example.com")
	s.broadcastAsAdmin("First message")

	countResp := s.doAuthed("GET", "/api/v1/notifications/unread-count", userAuth.AccessToken, nil)
	defer countResp.Body.Close()
	s.Equal(http.StatusOK, countResp.StatusCode)

	var count dto.UnreadCountResponse
	s.decode(countResp, &count)
	s.Equal(1, count.Count)

	listResp := s.doAuthed("GET", "/api/v1/notifications", userAuth.AccessToken, nil)
	defer listResp.Body.Close()
	var notifications []domain.Notification
	s.Require().NoError(json.NewDecoder(listResp.Body).Decode(&notifications))
	s.Require().Len(notifications, 1)

	markResp := s.doAuthed("POST", "/api/v1/notifications/"+notifications[0].ID+"/mark-read", userAuth.AccessToken, nil)
	defer markResp.Body.Close()
	s.Equal(http.StatusOK, markResp.StatusCode)

	var markBody dto.SuccessResponse
	s.decode(markResp, &markBody)
	s.Equal("Notification marked as read", markBody.Message)

	// Marking again succeeds without effect
	againResp := s.doAuthed("POST", "/api/v1/notifications/"+notifications[0].ID+"/mark-read", userAuth.AccessToken, nil)
	defer againResp.Body.Close()
	s.Equal(http.StatusOK, againResp.StatusCode)

	var againBody dto.SuccessResponse
	s.decode(againResp, &againBody)
	s.Equal("Notification was already read", againBody.Message)

	countResp2 := s.doAuthed("GET", "/api/v1/notifications/unread-count", userAuth.AccessToken, nil)
	defer countResp2.Body.Close()
	s.decode(countResp2, &count)
	s.Zero(count.Count)
}

func (s *Suite) TestNotifications_MarkRead_WrongOwner() {
	s.registerVerified("owner@example.com")
	otherAuth, _ := s.registerVerified("other@example.com")
	s.broadcastAsAdmin("Owned message")

	var notificationID string
	err := s.Postgres.DB.QueryRow(`
		SELECT n.id FROM notifications n
		JOIN users u ON u.id = n.user_id
		WHERE u.email = 'owner@example.com'
	`).Scan(&notificationID)
	s.Require().NoError(err)

	resp := s.doAuthed("POST", "/api/v1/notifications/"+notificationID+"/mark-read", otherAuth.AccessToken, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestNotifications_MarkAllRead() {
	userAuth, _ := s.registerVerified("mark-all@example.com")
	s.broadcastAsAdmin("One")

	resp := s.doAuthed("POST", "/api/v1/notifications/mark-all-read", userAuth.AccessToken, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var body dto.MarkAllReadResponse
	s.decode(resp, &body)
	s.Equal(1, body.Updated)
}

func (s *Suite) TestNotifications_ListFilterByRead() {
	userAuth, _ := s.registerVerified("filter@example.com")
	s.broadcastAsAdmin("Unread message")

	unread := false
	listResp := s.doAuthed("GET", "/api/v1/notifications?read=false", userAuth.AccessToken, nil)
	defer listResp.Body.Close()
	s.Equal(http.StatusOK, listResp.StatusCode)

	var notifications []domain.Notification
	s.Require().NoError(json.NewDecoder(listResp.Body).Decode(&notifications))
	s.Len(notifications, 1)
	s.Equal(unread, notifications[0].Read)

	readResp := s.doAuthed("GET", "/api/v1/notifications?read=true", userAuth.AccessToken, nil)
	defer readResp.Body.Close()
	s.Equal(http.StatusOK, readResp.StatusCode)

	notifications = nil
	s.Require().NoError(json.NewDecoder(readResp.Body).Decode(&notifications))
	s.Empty(notifications)
}

func (s *Suite) TestNotifications_RetryWithNothingFailed() {
	userAuth, _ := s.registerVerified("retry@example.com")
	s.broadcastAsAdmin("Retryable message")

	var notificationID string
	err := s.Postgres.DB.QueryRow(`
		SELECT n.id FROM notifications n
		JOIN users u ON u.id = n.user_id
		WHERE u.email = 'retry@example.com'
	`).Scan(&notificationID)
	s.Require().NoError(err)

	resp := s.doAuthed("POST", "/api/v1/notifications/"+notificationID+"/retry", userAuth.AccessToken, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var body dto.RetryResponse
	s.decode(resp, &body)
	s.Zero(body.Retried)
}

func (s *Suite) TestNotificationSettings_GetAndUpdate() {
	userAuth, _ := s.registerVerified("settings@example.com")

	resp := s.doAuthed("GET", "/api/v1/notifications/settings", userAuth.AccessToken, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var pref domain.NotificationPreference
	s.decode(resp, &pref)
	s.True(pref.Email)
	s.False(pref.SMS)
	s.True(pref.Push)

	patchResp := s.doAuthed("PATCH", "/api/v1/notifications/settings", userAuth.AccessToken, map[string]any{
		"push": false,
	})
	defer patchResp.Body.Close()
	s.Require().Equal(http.StatusOK, patchResp.StatusCode)

	s.decode(patchResp, &pref)
	s.True(pref.Email, "untouched fields keep their value")
	s.False(pref.Push)
}

func (s *Suite) TestNotificationSettings_SMSRequiresPhone() {
	userAuth, _ := s.registerVerified("settings-sms@example.com")

	resp := s.doAuthed("PATCH", "/api/v1/notifications/settings", userAuth.AccessToken, map[string]any{
		"sms": true,
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusBadRequest, resp.StatusCode)

	var body dto.ErrorResponse
	s.decode(resp, &body)
	s.Equal("You must add a phone number to enable SMS notifications.", body.Message)
}

func (s *Suite) TestWsTicket_RequiresAuth() {
	resp, err := http.Get(s.BaseURL + "/api/v1/notifications/ws-ticket")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestWsTicket_Issued() {
	userAuth, _ := s.registerVerified("ws-user@example.com")

	resp := s.doAuthed("GET", "/api/v1/notifications/ws-ticket", userAuth.AccessToken, nil)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var body map[string]string
	s.decode(resp, &body)
	s.NotEmpty(body["ticket"])
}
