// Package ids mints the human-scannable secondary identifiers used alongside
// uuid primary keys: {kind}_{YYYYMMDDThhmmss}_{hash8}.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// New returns a secondary id for kind at the given time. When material is
// supplied the hash suffix is deterministic over it, so replays mint the same
// id; without material a random nonce keeps ids unique within one second.
func New(kind string, at time.Time, material ...string) string {
	var seed []byte
	if len(material) > 0 {
		seed = []byte(strings.Join(material, "\x1f"))
	} else {
		seed = make([]byte, 16)
		_, _ = rand.Read(seed)
	}
	ts := at.UTC().Format("20060102T150405")
	sum := blake2b.Sum256(append([]byte(kind+"|"+ts+"|"), seed...))
	return fmt.Sprintf("%s_%s_%s", kind, ts, hex.EncodeToString(sum[:4]))
}

// Fingerprint returns a 16-hex digest over the joined parts. Used for
// deterministic content fingerprints where a timestamp would be noise.
func Fingerprint(parts ...string) string {
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:8])
}
