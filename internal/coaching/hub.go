package coaching

import (
	"context"
	"sync"

	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// Hub owns one controller goroutine per active session.
type Hub struct {
	log        *logger.Logger
	sink       Sink
	evaluators []Evaluator
	cfg        Config

	mu      sync.Mutex
	active  map[string]*hubEntry
	baseCtx context.Context
	cancel  context.CancelFunc
}

type hubEntry struct {
	controller *Controller
	cancel     context.CancelFunc
	gone       chan struct{} // closed after the entry leaves the active map
}

func NewHub(log *logger.Logger, sink Sink, evaluators []Evaluator, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:        log.With("component", "coaching_hub"),
		sink:       sink,
		evaluators: evaluators,
		cfg:        cfg,
		active:     make(map[string]*hubEntry),
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Start spins up the session loop. Starting an already-active session id
// returns the existing controller, so a reconnecting websocket reattaches
// instead of double-coaching.
func (h *Hub) Start(sess SessionState) *Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	if entry, ok := h.active[sess.SessionID]; ok {
		return entry.controller
	}
	ctx, cancel := context.WithCancel(h.baseCtx)
	ctrl := NewController(h.log, sess, h.evaluators, h.sink, h.cfg)
	entry := &hubEntry{controller: ctrl, cancel: cancel, gone: make(chan struct{})}
	h.active[sess.SessionID] = entry
	go func() {
		ctrl.Run(ctx)
		h.mu.Lock()
		delete(h.active, sess.SessionID)
		h.mu.Unlock()
		close(entry.gone)
	}()
	return ctrl
}

// Get returns the live controller for a session, if any.
func (h *Hub) Get(sessionID string) (*Controller, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.active[sessionID]
	if !ok {
		return nil, false
	}
	return entry.controller, true
}

// Offer routes a frame to its session loop.
func (h *Hub) Offer(frame Frame) bool {
	ctrl, ok := h.Get(frame.SessionID)
	if !ok {
		return false
	}
	return ctrl.Offer(frame)
}

// Stop ends one session as a normal end and waits for its loop to finish
// its shutdown writes.
func (h *Hub) Stop(sessionID string) {
	h.mu.Lock()
	entry, ok := h.active[sessionID]
	h.mu.Unlock()
	if !ok {
		return
	}
	entry.controller.Stop()
	<-entry.gone
	entry.cancel()
}

// Shutdown cancels every session, for process exit. Sessions cut off here
// are recorded as cancelled, unlike a Stop.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	entries := make([]*hubEntry, 0, len(h.active))
	for _, e := range h.active {
		entries = append(entries, e)
	}
	h.mu.Unlock()
	h.cancel()
	for _, e := range entries {
		<-e.gone
	}
}

// ActiveCount reports how many sessions are live.
func (h *Hub) ActiveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active)
}
