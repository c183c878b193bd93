package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/hooklab-media/hooklab-backend/internal/coaching"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/http/response"
	"github.com/hooklab-media/hooklab-backend/internal/observability"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPongTimeout  = 60 * time.Second
)

var errMissingPatternID = errors.New("missing pattern_id query parameter")

type CoachingHandler struct {
	log      *logger.Logger
	svc      services.CoachingService
	packs    services.PackUpdaterService
	runSvc   services.RunService
	upgrader websocket.Upgrader
}

func NewCoachingHandler(baseLog *logger.Logger, svc services.CoachingService, packs services.PackUpdaterService, runSvc services.RunService) *CoachingHandler {
	return &CoachingHandler{
		log:    baseLog.With("handler", "CoachingHandler"),
		svc:    svc,
		packs:  packs,
		runSvc: runSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 16,
			WriteBufferSize: 1 << 12,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// inboundMessage is one client message on the coaching socket. Frames carry
// base64 JPEG bytes, audio carries a base64 PCM chunk.
type inboundMessage struct {
	Type     string `json:"type"` // "frame" | "audio" | "end"
	TSMillis int64  `json:"ts_ms"`
	Data     string `json:"data,omitempty"`
}

// GET /api/coach/sessions/:id/stream?pattern_id=...&user=...&mode=...
//
// Upgrades to a websocket, opens the session against the pattern's latest
// pack revision, then pumps frames in and coach lines out until the client
// sends "end" or drops.
func (h *CoachingHandler) Stream(c *gin.Context) {
	sessionID := c.Param("id")
	patternID := c.Query("pattern_id")
	if patternID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_pattern_id", errMissingPatternID)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.Warn("WS upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	session, ctrl, err := h.svc.StartSession(dbc, services.StartSessionInput{
		SessionID:  sessionID,
		UserIDHash: c.Query("user"),
		Mode:       c.Query("mode"),
		PatternID:  patternID,
	})
	if err != nil {
		h.writeClose(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}
	observability.Current().SessionOpened()
	defer observability.Current().SessionClosed()

	h.log.Info("Coaching session stream open",
		"session_id", sessionID,
		"pattern_id", patternID,
		"assignment", session.Assignment,
	)

	// Writer: coach lines out. The controller closes Lines() on shutdown.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for line := range ctrl.Lines() {
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(line); err != nil {
				h.log.Warn("WS write failed", "session_id", sessionID, "error", err)
				return
			}
		}
	}()

	cancelled := h.readLoop(conn, sessionID)

	h.endSession(c, session, cancelled)
	<-writeDone
}

// readLoop pumps inbound messages into the hub until "end", EOF, or a read
// error. Returns true when the session ended without a clean "end".
func (h *CoachingHandler) readLoop(conn *websocket.Conn, sessionID string) bool {
	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return false
			}
			h.log.Warn("WS read ended", "session_id", sessionID, "error", err)
			return true
		}
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.log.Warn("WS message unparseable", "session_id", sessionID, "error", err)
			continue
		}
		switch msg.Type {
		case "end":
			return false
		case "frame", "audio":
			payload, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				h.log.Warn("WS payload not base64", "session_id", sessionID, "error", err)
				continue
			}
			modality := "visual"
			if msg.Type == "audio" {
				modality = "audio"
			}
			h.svc.Hub().Offer(coaching.Frame{
				SessionID: sessionID,
				Modality:  modality,
				TSMillis:  msg.TSMillis,
				Payload:   payload,
			})
		default:
			h.log.Warn("WS unknown message type", "session_id", sessionID, "type", msg.Type)
		}
	}
}

// endSession closes the session and folds its per-rule stats into a pack
// revision through the run engine, so the revision carries a diff artifact
// and an idempotency key.
func (h *CoachingHandler) endSession(c *gin.Context, session *types.CoachingSession, cancelled bool) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	stats, err := h.svc.EndSession(dbc, session.SessionID, cancelled)
	if err != nil {
		h.log.Warn("EndSession failed", "session_id", session.SessionID, "error", err)
		return
	}
	if cancelled || len(stats) == 0 {
		return
	}
	_, _, err = h.runSvc.Execute(c.Request.Context(), services.AcquireInput{
		RunType:     types.RunTypeSourcePack,
		Inputs:      map[string]any{"session_id": session.SessionID, "pattern_id": session.PatternID, "op": "pack_update"},
		TriggeredBy: "coach_session_end",
	}, func(dbc dbctx.Context, run *types.Run) (map[string]any, error) {
		pack, diff, err := h.packs.UpdateFromEvidence(dbc, run, session.PatternID, stats)
		if err != nil {
			return nil, err
		}
		return map[string]any{"pack_id": pack.PackID, "revision": pack.Revision, "changes": len(diff)}, nil
	})
	if err != nil {
		h.log.Warn("Pack update from session failed", "session_id", session.SessionID, "error", err)
	}
}

type uploadOutcomeRequest struct {
	VideoURL       string  `json:"video_url" binding:"required"`
	ViewCount      int64   `json:"view_count"`
	EngagementRate float64 `json:"engagement_rate"`
}

// POST /api/coach/sessions/:id/upload
func (h *CoachingHandler) RecordUpload(c *gin.Context) {
	var req uploadOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	sessionID := c.Param("id")
	err := h.svc.RecordUpload(dbctx.Context{Ctx: c.Request.Context()}, sessionID, req.VideoURL, req.ViewCount, req.EngagementRate)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session_id": sessionID, "recorded": true})
}

func (h *CoachingHandler) writeClose(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(wsWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}
