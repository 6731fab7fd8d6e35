package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	boardDelivery "pushboard-backend/internal/board/delivery"
	boardUsecase "pushboard-backend/internal/board/usecase"
	dispatchDelivery "pushboard-backend/internal/dispatch/delivery"
	dispatchUsecase "pushboard-backend/internal/dispatch/usecase"
	"pushboard-backend/pkg/config"
	"pushboard-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// shutdownTimeout bounds how long in-flight requests may finish.
const shutdownTimeout = 10 * time.Second

type Handler struct {
	dispatchHandler *dispatchDelivery.DispatchHandler
	boardHandler    *boardDelivery.BoardHandler
	metrics         *metrics.Metrics
	config          *config.Config
}

func NewHandler(dispatchUc dispatchUsecase.DispatchUsecase, boardUc boardUsecase.BoardUsecase, m *metrics.Metrics, cfg *config.Config) *Handler {
	return &Handler{
		dispatchHandler: dispatchDelivery.NewDispatchHandler(dispatchUc),
		boardHandler:    boardDelivery.NewBoardHandler(boardUc, m, cfg.Origins()),
		metrics:         m,
		config:          cfg,
	}
}

// Router builds the gin engine with middleware and routes.
func (h *Handler) Router() *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(h.config.Origins()))

	SetupRoutes(r, h.dispatchHandler, h.boardHandler, h.metrics)
	return r
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (h *Handler) Start(ctx context.Context, addr string) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// corsMiddleware echoes the request origin when it is allowed. An empty
// allow list accepts every origin.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case origin != "" && (len(set) == 0 || set[origin]):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		case origin == "" && len(set) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
