package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// MemoryRecord is one chunk of text and its embedding within a
// Collection. Grounded on deterministic Qdrant point-ID
// convention (uuid.NewSHA1 over content) generalized to a plain hash ID.
type MemoryRecord struct {
	ID             string
	Text           string
	Embedding      []float32
	Description    string
	ExternalSource string
	CollectionID   string
	Timestamp      time.Time
}

// NewMemoryRecordID derives a stable content hash ID: hash(text‖timestamp).
func NewMemoryRecordID(text string, ts time.Time) string {
	sum := sha256.Sum256([]byte(text + "|" + fmt.Sprintf("%d", ts.UnixNano())))
	return hex.EncodeToString(sum[:])[:32]
}

// CollectionZero is the well-known identifier for an agent's durable
// memory collection (Collection).
const CollectionZero = "0"

// ScoredRecord pairs a MemoryRecord with its retrieval score.
type ScoredRecord struct {
	Record MemoryRecord
	Score  float64
}
