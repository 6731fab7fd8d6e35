package delivery

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"pushboard-backend/internal/board/domain"
	"pushboard-backend/pkg/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ServeWS upgrades the request and streams board events to the browser.
// The first frame assigns the connection its socketId; posts carrying that
// id are not sent back to it.
func (h *BoardHandler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Board] Websocket upgrade failed: %v", err)
		return
	}

	socketID := uuid.New().String()
	sub := h.boardUsecase.Subscribe()
	h.metrics.BoardConnected(1)
	log.Printf("[Board] Client %s connected from %s", socketID, c.ClientIP())

	done := make(chan struct{})
	go h.readPump(conn, socketID, done)
	h.writePump(conn, socketID, sub, done)

	sub.Close()
	h.metrics.BoardConnected(-1)
	log.Printf("[Board] Client %s disconnected", socketID)
}

// readPump accepts posts sent over the socket and detects disconnects.
func (h *BoardHandler) readPump(conn *websocket.Conn, socketID string, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req domain.PublishRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Board] Read error from %s: %v", socketID, err)
			}
			return
		}
		req.SocketID = socketID
		if req.Normalize() == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		if err := h.boardUsecase.Publish(ctx, req); err != nil {
			log.Printf("[Board] Publish from %s failed: %v", socketID, err)
		}
		cancel()
	}
}

func (h *BoardHandler) writePump(conn *websocket.Conn, socketID string, sub *realtime.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	if err := h.writeFrame(conn, socketID, domain.Frame{Type: domain.FrameConnected, SocketID: socketID, Channel: h.boardUsecase.Channel()}); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "board closed"))
				return
			}
			if ev.SocketID != "" && ev.SocketID == socketID {
				continue
			}
			frame := domain.Frame{
				Type:    domain.FrameEvent,
				Channel: ev.Channel,
				Event:   ev.Name,
				Data:    json.RawMessage(ev.Data),
			}
			if err := h.writeFrame(conn, socketID, frame); err != nil {
				return
			}
			h.metrics.BoardMessage("delivered")
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *BoardHandler) writeFrame(conn *websocket.Conn, socketID string, frame domain.Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("[Board] Write to %s failed: %v", socketID, err)
		return err
	}
	return nil
}
