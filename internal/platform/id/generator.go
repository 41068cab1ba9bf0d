package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// publicIDBytes sizes the random payload; 16 bytes hex-encode to the
// 32-char public_id columns used across the schema.
const publicIDBytes = 16

// Generator mints opaque public IDs for stored rows. IDs are random and
// carry no identity-key information, so regenerating one for the same
// record yields a different value; idempotence comes from keyed upserts,
// never from the ID.
type Generator interface {
	NewID() (string, error)
}

type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, publicIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
