// Package coaching runs the live session control loop: deterministic
// experiment assignment, rule evaluation against the pinned DirectorPack,
// intervention pacing, and outcome windows.
package coaching

import (
	"crypto/sha256"
	"encoding/binary"

	types "github.com/hooklab-media/hooklab-backend/internal/domain"
)

// Experiment split boundaries over the hashed session id.
const (
	controlFraction = 0.10
	holdoutFraction = 0.05
)

// Assign buckets a session by hashing its id onto [0, 1). The first 10% is
// control (no coaching delivered), the next 5% is coached-but-holdout
// (coached, excluded from evidence aggregation), and the rest is coached.
// The same session id always lands in the same bucket, on any process.
func Assign(sessionID string) (assignment string, holdout bool) {
	u := hashUnit(sessionID)
	switch {
	case u < controlFraction:
		return types.AssignmentControl, false
	case u < controlFraction+holdoutFraction:
		return types.AssignmentCoached, true
	default:
		return types.AssignmentCoached, false
	}
}

// hashUnit maps a string onto [0, 1) via the first eight bytes of its
// sha256 digest.
func hashUnit(s string) float64 {
	sum := sha256.Sum256([]byte(s))
	v := binary.BigEndian.Uint64(sum[:8])
	return float64(v) / float64(1<<63) / 2
}
