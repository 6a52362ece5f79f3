package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Entry is one tamper-evident record of a ledger operation. Each entry's
// hash covers the previous entry's hash, so rewriting history breaks the
// chain.
type Entry struct {
	Timestamp    string `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Operation    string `json:"operation"`
	Detail       string `json:"detail"`
	Hash         string `json:"hash"`
}

// Trail is a hash-chained audit log of ledger operations.
type Trail struct {
	mu           sync.Mutex
	previousHash string
	entries      []*Entry
}

// NewTrail creates a trail anchored on a zero hash.
func NewTrail() *Trail {
	return &Trail{previousHash: strings.Repeat("0", 64)}
}

// Record appends one operation to the chain and returns the new entry.
func (t *Trail) Record(operation, detail string) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := &Entry{
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		PreviousHash: t.previousHash,
		Operation:    operation,
		Detail:       detail,
	}
	entry.Hash = hashEntry(entry)

	t.previousHash = entry.Hash
	t.entries = append(t.entries, entry)
	return entry
}

// Entries returns a snapshot of the chain in append order.
func (t *Trail) Entries() []*Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func hashEntry(e *Entry) string {
	input := fmt.Sprintf("%s|%s|%s|%s", e.PreviousHash, e.Timestamp, e.Operation, e.Detail)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Verify checks that entries form an unbroken, untampered chain.
func Verify(entries []*Entry) bool {
	for i, entry := range entries {
		if i > 0 && entry.PreviousHash != entries[i-1].Hash {
			return false
		}
		if hashEntry(entry) != entry.Hash {
			return false
		}
	}
	return true
}
