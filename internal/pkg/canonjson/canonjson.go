// Package canonjson renders values as RFC 8785 (JCS) canonical JSON and
// hashes them. Idempotency keys, artifact content hashes, and pack hashes all
// go through here so that equal inputs always collapse to equal keys.
package canonjson

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	jsoncanonicalizer "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Canonicalize marshals v and transforms it to canonical form: object keys
// sorted by UTF-16 code units, numbers in shortest round-trip (ES6) notation,
// no insignificant whitespace.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonjson: marshal: %w", err)
	}
	return CanonicalizeRaw(raw)
}

// CanonicalizeRaw canonicalizes an already-encoded JSON document.
func CanonicalizeRaw(raw []byte) ([]byte, error) {
	out, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonjson: transform: %w", err)
	}
	return out, nil
}

// Hash returns the lowercase hex SHA-256 of the canonical form of v.
func Hash(v any) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// HashRaw hashes an already-encoded JSON document after canonicalization.
func HashRaw(raw []byte) (string, error) {
	b, err := CanonicalizeRaw(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
