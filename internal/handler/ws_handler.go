package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/utils"
	"github.com/prperemyshlev/account-service/internal/ws"
)

const wsTicketPurpose = "ws-session"

// WsHandler upgrades clients to the live notification stream.
// Browsers cannot set an Authorization header on a websocket upgrade, so
// clients first fetch a short-lived signed ticket over the authenticated API
// and present it as a query parameter.
type WsHandler struct {
	gateway *ws.Gateway
	signer  *utils.URLSigner
}

// NewWsHandler creates a new websocket handler
func NewWsHandler(gateway *ws.Gateway, signer *utils.URLSigner) *WsHandler {
	return &WsHandler{
		gateway: gateway,
		signer:  signer,
	}
}

// Ticket issues a signed connection ticket for the current user.
// Runs behind AuthMiddleware.
func (h *WsHandler) Ticket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found in context",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket": h.signer.Sign(wsTicketPurpose, userID.(string)),
	})
}

// Stream verifies the ticket and upgrades the connection. The stream only
// ever carries the ticket owner's messages.
func (h *WsHandler) Stream(c *gin.Context) {
	ticket := c.Query("ticket")
	if ticket == "" {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Connection ticket is required",
		})
		return
	}

	userID, err := h.signer.Verify(ticket, wsTicketPurpose)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Invalid or expired connection ticket",
		})
		return
	}

	h.gateway.Serve(c.Writer, c.Request, userID)
}
