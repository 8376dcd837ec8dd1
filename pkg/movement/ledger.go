// Package movement keeps an append-only, hash-chained log of stock
// movements: every accepted allocation, shipment, release or manual
// adjustment lands here once the owning store has applied it.
//
// Entries are canonicalized (RFC 8785) before hashing so the chain is
// reproducible across processes regardless of marshalling quirks.
package movement

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/tallykeep/tallykeep/pkg/money"
)

// Kind categorizes a movement entry.
type Kind string

const (
	KindAllocation Kind = "ALLOCATION"
	KindShipment   Kind = "SHIPMENT"
	KindRelease    Kind = "RELEASE"
	KindAdjustment Kind = "ADJUSTMENT"
)

// Entry is one immutable stock movement. Delta is negative for stock
// leaving a bucket.
type Entry struct {
	ID          string      `json:"id"`
	Sequence    uint64      `json:"sequence"`
	Kind        Kind        `json:"kind"`
	OrderID     string      `json:"order_id,omitempty"`
	ProductID   string      `json:"product_id"`
	BucketID    string      `json:"bucket_id"`
	Delta       int64       `json:"delta"`
	UnitCost    money.Money `json:"unit_cost"`
	Actor       string      `json:"actor,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	ContentHash string      `json:"content_hash"`
	PrevHash    string      `json:"prev_hash"`
}

// Movement is the payload of an Append call.
type Movement struct {
	Kind      Kind
	OrderID   string
	ProductID string
	BucketID  string
	Delta     int64
	UnitCost  money.Money
	Actor     string
}

// Log is an append-only, hash-chained movement log.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	headHash string
	clock    func() time.Time
	newID    func() string
}

// NewLog creates an empty movement log.
func NewLog() *Log {
	return &Log{
		headHash: "genesis",
		clock:    time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// WithClock overrides the clock for testing.
func (l *Log) WithClock(clock func() time.Time) *Log {
	l.clock = clock
	return l
}

// Append records a movement and returns its sequence number.
func (l *Log) Append(m Movement) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(len(l.entries)) + 1
	entry := Entry{
		ID:        l.newID(),
		Sequence:  seq,
		Kind:      m.Kind,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		BucketID:  m.BucketID,
		Delta:     m.Delta,
		UnitCost:  m.UnitCost,
		Actor:     m.Actor,
		Timestamp: l.clock(),
		PrevHash:  l.headHash,
	}

	hash, err := contentHash(entry)
	if err != nil {
		return 0, err
	}
	entry.ContentHash = hash

	l.entries = append(l.entries, entry)
	l.headHash = hash
	return seq, nil
}

// Entries returns a copy of the full chain.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Head returns the current head hash.
func (l *Log) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.headHash
}

// Verify replays the chain and reports the first break, if any.
func (l *Log) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	prev := "genesis"
	for i, entry := range l.entries {
		if entry.PrevHash != prev {
			return fmt.Errorf("chain broken at entry %d: expected prev %s, got %s", i+1, prev, entry.PrevHash)
		}
		computed, err := contentHash(entry)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i+1, err)
		}
		if computed != entry.ContentHash {
			return fmt.Errorf("hash mismatch at entry %d", i+1)
		}
		prev = entry.ContentHash
	}
	return nil
}

// contentHash hashes the entry with its ContentHash field zeroed, over
// the RFC 8785 canonical form.
func contentHash(entry Entry) (string, error) {
	entry.ContentHash = ""
	raw, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize entry: %w", err)
	}
	h := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}
