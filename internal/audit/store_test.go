package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key-1234567890123456"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "audit.db"), testSigningKey)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(id, mode string, ts time.Time) *Record {
	return &Record{
		ID:         id,
		RequestID:  "req_" + id,
		Timestamp:  ts,
		Endpoint:   "anonymize",
		Mode:       mode,
		TextLen:    120,
		DurationMS: 14,
		Categories: map[string]int{"SSN": 1, "EMAIL_ADDRESS": 2},
		Compliance: []string{"hipaa"},
	}
}

func TestStoreAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("rec_1", "NORMAL", time.Now().UTC())
	require.NoError(t, store.Store(ctx, rec))
	assert.NotEmpty(t, rec.Signature, "storing signs the record")

	got, err := store.Get(ctx, "rec_1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "anonymize", got.Endpoint)
	assert.Equal(t, map[string]int{"SSN": 1, "EMAIL_ADDRESS": 2}, got.Categories)
	assert.Equal(t, rec.Signature, got.Signature)
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestVerifyStoredRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("rec_v", "DEGRADED", time.Now().UTC())
	require.NoError(t, store.Store(ctx, rec))

	valid, err := store.Verify(ctx, "rec_v")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestVerifyDetectsTampering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("rec_t", "NORMAL", time.Now().UTC())
	require.NoError(t, store.Store(ctx, rec))

	// Rewrite the stored JSON behind the signature's back.
	raw := fmt.Sprintf(`{"id":%q,"mode":"DEGRADED","signature":%q}`, rec.ID, rec.Signature)
	_, err := store.db.ExecContext(ctx, `UPDATE audit SET record_json = ? WHERE id = ?`, raw, rec.ID)
	require.NoError(t, err)

	valid, err := store.Verify(ctx, "rec_t")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestListFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Store(ctx, testRecord("rec_a", "NORMAL", base)))
	require.NoError(t, store.Store(ctx, testRecord("rec_b", "DEGRADED", base.Add(time.Hour))))
	require.NoError(t, store.Store(ctx, testRecord("rec_c", "NORMAL", base.Add(2*time.Hour))))

	all, err := store.List(ctx, "", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "rec_c", all[0].ID, "newest first")

	degraded, err := store.List(ctx, "DEGRADED", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, degraded, 1)
	assert.Equal(t, "rec_b", degraded[0].ID)

	windowed, err := store.List(ctx, "", base.Add(30*time.Minute), base.Add(90*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "rec_b", windowed[0].ID)

	limited, err := store.List(ctx, "", time.Time{}, time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestPurgeBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Store(ctx, testRecord("rec_old", "NORMAL", base)))
	require.NoError(t, store.Store(ctx, testRecord("rec_new", "NORMAL", base.Add(48*time.Hour))))

	n, err := store.PurgeBefore(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, "rec_old")
	require.Error(t, err)
	_, err = store.Get(ctx, "rec_new")
	require.NoError(t, err)
}

func TestRetentionDisabled(t *testing.T) {
	store := newTestStore(t)
	r, err := NewRetention(zerolog.Nop(), store, 0, "")
	require.NoError(t, err)
	r.Start() // no-op, must not panic
	r.Stop()
}

func TestRetentionBadSchedule(t *testing.T) {
	store := newTestStore(t)
	_, err := NewRetention(zerolog.Nop(), store, 30, "not a cron spec")
	require.Error(t, err)
}
