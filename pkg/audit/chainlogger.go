// Package audit provides a tamper-evident audit trail: entries are hash
// chained so any edit, deletion or reordering breaks verification.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEntry is a single audit record. Seq and PreviousHash bind it to its
// position in the chain.
type LogEntry struct {
	Seq          int64  `json:"seq"`
	Timestamp    string `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Payload      string `json:"payload"`
	Hash         string `json:"hash"`
}

// Sink persists entries as they are appended.
type Sink interface {
	Write(entry *LogEntry) error
}

// ChainLogger appends hash-chained entries. Safe for concurrent use; the
// chain order is the order Append returns.
type ChainLogger struct {
	mu           sync.Mutex
	previousHash string
	seq          int64
	sink         Sink
	logger       *slog.Logger
}

// ChainOption configures a ChainLogger.
type ChainOption func(*ChainLogger)

// WithSink persists every appended entry.
func WithSink(s Sink) ChainOption {
	return func(c *ChainLogger) { c.sink = s }
}

// WithLogger sets the logger used for sink failures.
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *ChainLogger) { c.logger = l }
}

// NewChainLogger creates a logger anchored at the zero hash.
func NewChainLogger(opts ...ChainOption) *ChainLogger {
	c := &ChainLogger{
		previousHash: strings.Repeat("0", 64),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append adds one entry to the chain and hands it to the sink. A sink
// failure is logged, never propagated: the in-memory chain stays intact
// and the caller's operation must not fail because auditing hiccupped.
func (c *ChainLogger) Append(payload string) *LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	entry := &LogEntry{
		Seq:          c.seq,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		PreviousHash: c.previousHash,
		Payload:      payload,
	}
	entry.Hash = entryHash(entry)
	c.previousHash = entry.Hash

	if c.sink != nil {
		if err := c.sink.Write(entry); err != nil {
			c.logger.Warn("audit_sink_write_failed", "seq", entry.Seq, "error", err)
		}
	}
	return entry
}

func entryHash(e *LogEntry) string {
	input := fmt.Sprintf("%d|%s|%s|%s", e.Seq, e.PreviousHash, e.Timestamp, e.Payload)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// VerifyChain reports whether the entries form an unbroken chain: hashes
// recompute, links match and sequence numbers are gapless.
func VerifyChain(entries []*LogEntry) bool {
	for i, entry := range entries {
		if i > 0 {
			prev := entries[i-1]
			if entry.PreviousHash != prev.Hash || entry.Seq != prev.Seq+1 {
				return false
			}
		}
		if entryHash(entry) != entry.Hash {
			return false
		}
	}
	return true
}
