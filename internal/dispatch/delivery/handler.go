package delivery

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"pushboard-backend/internal/dispatch/domain"
	"pushboard-backend/internal/dispatch/usecase"
	pushdomain "pushboard-backend/internal/push/domain"

	"github.com/gin-gonic/gin"
)

// hopHeaders are recomputed by net/http and must not be copied verbatim.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Content-Length":    true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
}

type DispatchHandler struct {
	dispatchUsecase usecase.DispatchUsecase
}

func NewDispatchHandler(dispatchUsecase usecase.DispatchUsecase) *DispatchHandler {
	return &DispatchHandler{
		dispatchUsecase: dispatchUsecase,
	}
}

// SendNotification relays one notification to the push service and mirrors
// the push service's reply.
func (h *DispatchHandler) SendNotification(c *gin.Context) {
	var req pushdomain.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Subscription == nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscription and message are required"})
		return
	}

	ack, err := h.dispatchUsecase.Deliver(c.Request.Context(), req.Subscription, req.Message)
	if err != nil {
		var pushErr *domain.PushServiceError
		switch {
		case errors.As(err, &pushErr):
			writeReply(c, pushErr.StatusCode, pushErr.Header, pushErr.Body)
		case domain.HasCode(err, domain.CodeInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("[Dispatch] Notification failed: %v", err)
			c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}

	writeReply(c, ack.StatusCode, ack.Header, ack.Body)
}

// GetPublicKey returns the key browsers must subscribe with.
func (h *DispatchHandler) GetPublicKey(c *gin.Context) {
	publicKey := h.dispatchUsecase.PublicKey()
	if publicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "web push is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": publicKey})
}

func (h *DispatchHandler) GetDeliveries(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.dispatchUsecase.RecentDeliveries(limit)
	if err != nil {
		log.Printf("[Dispatch] Failed to load deliveries: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load deliveries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": records})
}

func writeReply(c *gin.Context, status int, header http.Header, body []byte) {
	for key, values := range header {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	c.Data(status, contentType, body)
}
