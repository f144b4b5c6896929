package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainLogger(t *testing.T) {
	logger := NewChainLogger()

	e1 := logger.Append("converted request=r1 item=0")
	e2 := logger.Append("converted request=r1 item=1")
	e3 := logger.Append("completed request=r1")

	chain := []*LogEntry{e1, e2, e3}
	require.True(t, VerifyChain(chain))
	assert.Equal(t, int64(1), e1.Seq)
	assert.Equal(t, e1.Hash, e2.PreviousHash)

	// Tampered payload.
	original := e2.Payload
	e2.Payload = "converted request=r2 item=1"
	assert.False(t, VerifyChain(chain))
	e2.Payload = original

	// Tampered hash.
	originalHash := e2.Hash
	e2.Hash = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	assert.False(t, VerifyChain(chain))
	e2.Hash = originalHash

	// Broken link.
	e3.PreviousHash = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	assert.False(t, VerifyChain(chain))
}

func TestVerifyChainDetectsGaps(t *testing.T) {
	logger := NewChainLogger()
	e1 := logger.Append("one")
	logger.Append("two")
	e3 := logger.Append("three")

	// Dropping an entry breaks both the link and the sequence.
	assert.False(t, VerifyChain([]*LogEntry{e1, e3}))
	assert.True(t, VerifyChain(nil))
}

func TestSQLiteSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	sink, err := OpenSQLiteSink(path)
	require.NoError(t, err)
	defer sink.Close()

	logger := NewChainLogger(WithSink(sink))
	logger.Append("converted request=r1 item=0 txn=TXN-1")
	logger.Append("converted request=r1 item=1 txn=TXN-2")
	logger.Append("completed request=r1")

	entries, err := sink.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, VerifyChain(entries))

	// Editing a stored payload must break verification on re-read.
	_, err = sink.db.Exec(`UPDATE audit_log SET payload = 'completed request=r9' WHERE seq = 3`)
	require.NoError(t, err)

	entries, err = sink.Entries(context.Background())
	require.NoError(t, err)
	assert.False(t, VerifyChain(entries))
}

func TestSQLiteSinkRefusesDuplicateSeq(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	sink, err := OpenSQLiteSink(path)
	require.NoError(t, err)
	defer sink.Close()

	entry := NewChainLogger().Append("one")
	require.NoError(t, sink.Write(entry))
	require.Error(t, sink.Write(entry))
}
