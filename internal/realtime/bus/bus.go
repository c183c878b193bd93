// Package bus bridges realtime broadcasts between API processes over redis
// pub/sub, so a run progressing on one worker reaches SSE clients attached
// to another.
package bus

import (
	"context"

	"github.com/hooklab-media/hooklab-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
