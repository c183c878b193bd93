package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hooklab-media/hooklab-backend/internal/observability"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(baseLog *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		log: baseLog.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

// GET /api/sse/stream?channels=runs,run:<run_id>
//
// The channel set is fixed for the lifetime of the stream; a client that
// wants different channels reconnects with a new query. Defaults to the
// global "runs" channel.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	channels := []string{"runs"}
	if raw := c.Query("channels"); raw != "" {
		channels = channels[:0]
		for _, ch := range strings.Split(raw, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				channels = append(channels, ch)
			}
		}
	}

	client := h.hub.NewClient()
	for _, ch := range channels {
		h.hub.Subscribe(client, ch)
	}
	h.log.Info("SSE stream open", "client_id", client.ID, "channels", channels)
	observability.Current().SSEClientConnected()

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	observability.Current().SSEClientDisconnected()
	h.hub.CloseClient(client)
	h.log.Info("SSE stream closed", "client_id", client.ID)
}
