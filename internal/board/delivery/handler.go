package delivery

import (
	"log"
	"net/http"

	"pushboard-backend/internal/board/domain"
	"pushboard-backend/internal/board/usecase"
	"pushboard-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/oops"
)

type BoardHandler struct {
	boardUsecase usecase.BoardUsecase
	metrics      *metrics.Metrics
	upgrader     websocket.Upgrader
}

// NewBoardHandler creates the board handler. An empty allowedOrigins list
// accepts websocket upgrades from any origin.
func NewBoardHandler(boardUsecase usecase.BoardUsecase, m *metrics.Metrics, allowedOrigins []string) *BoardHandler {
	return &BoardHandler{
		boardUsecase: boardUsecase,
		metrics:      m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// PostMessage publishes {message, socketId} to the board.
func (h *BoardHandler) PostMessage(c *gin.Context) {
	var req domain.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.boardUsecase.Publish(c.Request.Context(), req); err != nil {
		if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() == domain.CodeInvalidMessage {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
			return
		}
		log.Printf("[Board] Publish failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message sent"})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
