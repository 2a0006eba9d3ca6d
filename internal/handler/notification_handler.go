package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/service"
)

const defaultListLimit = 50

// NotificationHandler handles notification requests
type NotificationHandler struct {
	notifications *service.NotificationService
	broadcasts    *service.BroadcastService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *service.NotificationService, broadcasts *service.BroadcastService) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		broadcasts:    broadcasts,
	}
}

// List handles listing the current user's notifications
// @Summary List notifications
// @Description List the current user's notifications, optionally filtered by read state
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param read query bool false "Filter by read state"
// @Param limit query int false "Maximum rows returned"
// @Success 200 {array} domain.Notification
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString("user_id")

	var read *bool
	if raw, ok := c.GetQuery("read"); ok {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad request",
				Message: "read must be a boolean",
			})
			return
		}
		read = &parsed
	}

	limit := defaultListLimit
	if raw, ok := c.GetQuery("limit"); ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad request",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	notifications, err := h.notifications.ListByUser(c.Request.Context(), userID, read, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}

	c.JSON(http.StatusOK, notifications)
}

// UnreadCount handles counting unread notifications
// @Summary Count unread notifications
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UnreadCountResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := c.GetString("user_id")

	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{Count: count})
}

// Settings handles reading the current user's notification settings
// @Summary Get notification settings
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.NotificationPreference
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /notifications/settings [get]
func (h *NotificationHandler) Settings(c *gin.Context) {
	userID := c.GetString("user_id")

	pref, err := h.notifications.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "Not found",
				Message: "Notification settings not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, pref)
}

// UpdateSettings handles a partial update of the user's notification settings
// @Summary Update notification settings
// @Description Omitted fields keep their current value. Enabling SMS requires a phone number on the account.
// @Tags notifications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdatePreferencesRequest true "Settings change"
// @Success 200 {object} domain.NotificationPreference
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /notifications/settings [patch]
func (h *NotificationHandler) UpdateSettings(c *gin.Context) {
	userID := c.GetString("user_id")

	var req dto.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	pref, err := h.notifications.UpdatePreferences(c.Request.Context(), userID, service.PreferenceUpdate{
		Email: req.Email,
		SMS:   req.SMS,
		Push:  req.Push,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPhoneNumberRequired):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad request",
				Message: "You must add a phone number to enable SMS notifications.",
			})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "Not found",
				Message: "Notification settings not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "Internal server error",
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, pref)
}

// MarkRead handles marking one notification read
// @Summary Mark a notification read
// @Description Marking an already-read notification succeeds without effect
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /notifications/{id}/mark-read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("user_id")
	notificationID := c.Param("id")

	updated, err := h.notifications.MarkRead(c.Request.Context(), userID, notificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "Not found",
				Message: "Notification not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	message := "Notification marked as read"
	if !updated {
		message = "Notification was already read"
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: message})
}

// MarkAllRead handles marking every notification of the user read
// @Summary Mark all notifications read
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.MarkAllReadResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /notifications/mark-all-read [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString("user_id")

	updated, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.MarkAllReadResponse{Updated: updated})
}

// Retry handles re-dispatching a notification's failed channels
// @Summary Retry failed delivery channels
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} dto.RetryResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /notifications/{id}/retry [post]
func (h *NotificationHandler) Retry(c *gin.Context) {
	userID := c.GetString("user_id")
	notificationID := c.Param("id")

	retried, err := h.notifications.RetryFailedChannels(c.Request.Context(), userID, notificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "Not found",
				Message: "Notification not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.RetryResponse{Retried: retried})
}

// Broadcast handles fanning one message out to a target population
// @Summary Broadcast a notification
// @Description Create one notification per user in the resolved target population
// @Tags notifications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BroadcastRequest true "Broadcast request"
// @Success 200 {object} service.BroadcastResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /notifications/broadcast [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req dto.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	verb, err := domain.ParseNotificationVerb(req.Verb)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: err.Error(),
		})
		return
	}

	input := service.BroadcastInput{
		Verb:      verb,
		Message:   req.Message,
		Target:    req.Target,
		SourceApp: req.SourceApp,
		ChunkSize: req.ChunkSize,
	}
	if adminID := c.GetString("user_id"); adminID != "" {
		input.ActorID = &adminID
	}

	result, err := h.broadcasts.Send(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
