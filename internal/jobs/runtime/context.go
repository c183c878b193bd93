// Package runtime is the execution contract between the worker pool and
// pipeline code. A Context is a capability-scoped handle for one claimed
// run: pipelines report progress, attach artifacts, and terminate through
// it, never by touching the pipeline_run row directly.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hooklab-media/hooklab-backend/internal/data/repos"
	types "github.com/hooklab-media/hooklab-backend/internal/domain"
	"github.com/hooklab-media/hooklab-backend/internal/pkg/dbctx"
	"github.com/hooklab-media/hooklab-backend/internal/services"
)

type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Run     *types.Run
	Runs    repos.RunRepo
	RunSvc  services.RunService
	Notify  services.RunNotifier
	payload map[string]any
}

// NewContext eagerly decodes the run's inputs so handlers read them via
// Payload helpers. A malformed payload yields an empty map; handlers
// validate the fields they require.
func NewContext(ctx context.Context, db *gorm.DB, run *types.Run, runs repos.RunRepo, runSvc services.RunService, notify services.RunNotifier) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Run:    run,
		Runs:   runs,
		RunSvc: runSvc,
		Notify: notify,
	}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Run == nil || len(c.Run.InputsJSON) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Run.InputsJSON, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadString(key string) (string, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func (c *Context) PayloadInt(key string) (int, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s, ok := c.PayloadString(key)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Progress heartbeats the row and pushes a non-terminal update to SSE
// subscribers. Run rows carry no stage columns; the stage lives only on
// the stream and in the final result summary.
func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil || c.Run == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if c.Runs != nil && c.Run.ID != uuid.Nil {
		if err := c.Runs.Heartbeat(dbctx.Context{Ctx: ctx}, c.Run.ID); err != nil {
			return
		}
	}
	if c.Notify != nil {
		c.Notify.RunProgress(c.Run, stage, pct, msg)
	}
}

// AddArtifact persists an artifact against the run; it fails once the run
// is no longer RUNNING.
func (c *Context) AddArtifact(in services.ArtifactInput) (*types.Artifact, error) {
	if c == nil || c.Run == nil {
		return nil, fmt.Errorf("missing run")
	}
	return c.RunSvc.AddArtifact(dbctx.Context{Ctx: c.Ctx}, c.Run, in)
}

// Succeed completes the run with a result summary and notifies.
func (c *Context) Succeed(summary map[string]any) {
	if c == nil || c.Run == nil {
		return
	}
	if err := c.RunSvc.Complete(dbctx.Context{Ctx: c.Ctx}, c.Run, summary); err != nil {
		return
	}
	if c.Notify != nil {
		c.Notify.RunCompleted(c.Run)
	}
}

// Fail terminally fails the run, recording the stage-prefixed error.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Run == nil {
		return
	}
	if ferr := c.RunSvc.Fail(dbctx.Context{Ctx: c.Ctx}, c.Run, stage, err); ferr != nil {
		return
	}
	if c.Notify != nil {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		c.Notify.RunFailed(c.Run, stage, msg)
	}
}
