package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianMuchesia/MockPay-sub000/internal/pending/models"
)

// fakeClock is a settable clock shared between store and backend.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T) (*Store, *MemoryBackend, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.UnixMilli(1700000000000)}
	backend := NewMemory(WithMemoryClock(clock.Now))
	st := New(backend, WithClock(clock.Now))
	return st, backend, clock
}

func TestPutGetRoundTrip(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	review := models.Review{Rating: 5, Comment: "Great", BusinessID: "B1"}
	require.NoError(t, st.Put(ctx, review))

	env, ok, err := st.Get(ctx, models.KindReview, "B1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, review, env.Action)
}

func TestPutDropsInvalidActionSilently(t *testing.T) {
	st, backend, _ := newTestStore(t)
	ctx := context.Background()

	// Out-of-range rating fails validation; the action is dropped, not an error.
	require.NoError(t, st.Put(ctx, models.Review{Rating: 11, BusinessID: "B1"}))
	assert.Equal(t, 0, backend.Len())
}

func TestTTLBoundary(t *testing.T) {
	st, _, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.Vote{ReviewID: 42, IsHelpful: true, BusinessID: "B1"}))

	clock.Advance(DefaultTTL - time.Millisecond)
	_, ok, err := st.Get(ctx, models.KindVote, "42")
	require.NoError(t, err)
	assert.True(t, ok, "one millisecond before the TTL the envelope is live")

	clock.Advance(2 * time.Millisecond)
	_, ok, err = st.Get(ctx, models.KindVote, "42")
	require.NoError(t, err)
	assert.False(t, ok, "one millisecond past the TTL the envelope is gone")

	// The expired read physically deleted the key.
	entries, err := st.ScanAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLazyExpiryWithoutPhysicalTTL(t *testing.T) {
	st, backend, clock := newTestStore(t)
	ctx := context.Background()

	// Write the raw entry with no physical expiry; only the envelope's own
	// timestamp can age it out.
	env, err := models.Encode(models.Vote{ReviewID: 5, IsHelpful: true, BusinessID: "B1"}, clock.Now())
	require.NoError(t, err)
	raw, err := models.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, DefaultPrefix+"vote_5", string(raw), 0))

	clock.Advance(31 * time.Minute)

	_, ok, err := st.Get(ctx, models.KindVote, "5")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, backend.Len(), "the lazy check deleted the key")
}

func TestIdempotentRemove(t *testing.T) {
	st, backend, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.Flag{ReviewID: 7, Reason: "spam", BusinessID: "B2"}))
	require.NoError(t, st.Remove(ctx, models.KindFlag, "7"))
	assert.Equal(t, 0, backend.Len())
	require.NoError(t, st.Remove(ctx, models.KindFlag, "7"), "second remove is a no-op")
	assert.Equal(t, 0, backend.Len())
}

func TestIdentityOverwrite(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.Vote{ReviewID: 42, IsHelpful: false, BusinessID: "B1"}))
	require.NoError(t, st.Put(ctx, models.Vote{ReviewID: 42, IsHelpful: true, BusinessID: "B1"}))

	entries, err := st.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "same identity key replaces, never duplicates")
	assert.Equal(t, models.Vote{ReviewID: 42, IsHelpful: true, BusinessID: "B1"}, entries[0].Envelope.Action)
}

func TestScanAllOrdersByCreation(t *testing.T) {
	st, _, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.Vote{ReviewID: 42, IsHelpful: true, BusinessID: "B1"}))
	clock.Advance(time.Second)
	require.NoError(t, st.Put(ctx, models.Review{Rating: 5, Comment: "Great", BusinessID: "B1"}))
	clock.Advance(time.Second)
	require.NoError(t, st.Put(ctx, models.Flag{ReviewID: 7, Reason: "spam", BusinessID: "B2"}))

	entries, err := st.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.KindVote, entries[0].Kind)
	assert.Equal(t, models.KindReview, entries[1].Kind)
	assert.Equal(t, models.KindFlag, entries[2].Kind)
}

func TestScanAllDropsMalformedEntries(t *testing.T) {
	st, backend, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.Review{Rating: 4, Comment: "ok", BusinessID: "B1"}))
	require.NoError(t, backend.Set(ctx, DefaultPrefix+"vote_13", "corrupted{{", 0))
	require.NoError(t, backend.Set(ctx, DefaultPrefix+"mystery", "{}", 0))

	entries, err := st.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "malformed entries are dropped, the scan continues")
	assert.Equal(t, models.KindReview, entries[0].Kind)

	// Dropping also physically deleted the bad keys.
	assert.Equal(t, 1, backend.Len())
}

func TestScanAllExcludesRedirectSlot(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RememberReturnPath(ctx, "/business/B1"))
	require.NoError(t, st.Put(ctx, models.Review{Rating: 3, BusinessID: "B1"}))

	entries, err := st.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// The redirect slot survives the scan untouched.
	path, ok, err := st.TakeReturnPath(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/business/B1", path)
}

func TestClearAll(t *testing.T) {
	st, backend, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.Review{Rating: 3, BusinessID: "B1"}))
	require.NoError(t, st.Put(ctx, models.Vote{ReviewID: 1, IsHelpful: true, BusinessID: "B1"}))
	require.NoError(t, st.RememberReturnPath(ctx, "/home"))

	require.NoError(t, st.ClearAll(ctx))
	assert.Equal(t, 0, backend.Len(), "clear wipes actions and the redirect slot")
}

func TestTakeReturnPathIsOneShot(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RememberReturnPath(ctx, "/business/B9"))

	path, ok, err := st.TakeReturnPath(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/business/B9", path)

	_, ok, err = st.TakeReturnPath(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second take sees nothing")
}

func TestRememberReturnPathOverwrites(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RememberReturnPath(ctx, "/old"))
	require.NoError(t, st.RememberReturnPath(ctx, "/new"))

	path, ok, err := st.TakeReturnPath(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/new", path)
}

func TestRedirectSlotOutlivesActionTTL(t *testing.T) {
	st, _, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RememberReturnPath(ctx, "/business/B1"))
	clock.Advance(31 * time.Minute)

	path, ok, err := st.TakeReturnPath(ctx)
	require.NoError(t, err)
	require.True(t, ok, "the redirect slot has no TTL")
	assert.Equal(t, "/business/B1", path)
}

func TestExpiredEntryAbsentWithoutReplay(t *testing.T) {
	st, _, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.Flag{ReviewID: 7, Reason: "spam", BusinessID: "B2"}))

	clock.Advance(31 * time.Minute)

	_, ok, err := st.Get(ctx, models.KindFlag, "7")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := st.ScanAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
