//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ianMuchesia/MockPay-sub000/internal/pending/models"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/store"
	"github.com/ianMuchesia/MockPay-sub000/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	backend   *store.PostgresBackend
	now       time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.container = containers.NewPostgresContainer(s.T())
	s.Require().NoError(store.EnsureSchema(context.Background(), s.container.DB))
	s.backend = store.NewPostgres(s.container.DB, store.WithPostgresClock(func() time.Time { return s.now }))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.now = time.UnixMilli(1700000000000)
	s.Require().NoError(s.container.TruncateTables(context.Background(), "pending_entries"))
}

func (s *PostgresStoreSuite) newStore() *store.Store {
	return store.New(s.backend, store.WithClock(func() time.Time { return s.now }))
}

func (s *PostgresStoreSuite) TestPutGetRoundTrip() {
	ctx := context.Background()
	st := s.newStore()

	vote := models.Vote{ReviewID: 42, IsHelpful: true, BusinessID: "B1"}
	s.Require().NoError(st.Put(ctx, vote))

	env, ok, err := st.Get(ctx, models.KindVote, "42")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(vote, env.Action)
}

func (s *PostgresStoreSuite) TestLazyExpiry() {
	ctx := context.Background()
	st := s.newStore()

	s.Require().NoError(st.Put(ctx, models.Review{Rating: 5, Comment: "Great", BusinessID: "B1"}))

	s.now = s.now.Add(31 * time.Minute)
	_, ok, err := st.Get(ctx, models.KindReview, "B1")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *PostgresStoreSuite) TestKeysWithUnderscoredPrefix() {
	ctx := context.Background()

	// The default prefix contains literal underscores; LIKE must not treat
	// them as single-character wildcards.
	s.Require().NoError(s.backend.Set(ctx, "pending_action_review_B1", "{}", 0))
	s.Require().NoError(s.backend.Set(ctx, "pendingXactionXreview_B2", "{}", 0))

	keys, err := s.backend.Keys(ctx, "pending_action_")
	s.Require().NoError(err)
	s.Equal([]string{"pending_action_review_B1"}, keys)
}

func (s *PostgresStoreSuite) TestGetDelIsOneShot() {
	ctx := context.Background()
	st := s.newStore()

	s.Require().NoError(st.RememberReturnPath(ctx, "/business/B1"))

	path, ok, err := st.TakeReturnPath(ctx)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("/business/B1", path)

	_, ok, err = st.TakeReturnPath(ctx)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *PostgresStoreSuite) TestIdentityOverwrite() {
	ctx := context.Background()
	st := s.newStore()

	s.Require().NoError(st.Put(ctx, models.Flag{ReviewID: 7, Reason: "spam", BusinessID: "B2"}))
	s.Require().NoError(st.Put(ctx, models.Flag{ReviewID: 7, Reason: "offensive", BusinessID: "B2"}))

	entries, err := st.ScanAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	flag, ok := entries[0].Envelope.Action.(models.Flag)
	s.Require().True(ok)
	s.Equal("offensive", flag.Reason)
}

func (s *PostgresStoreSuite) TestSweepRemovesExpiredRows() {
	ctx := context.Background()
	st := s.newStore()

	s.Require().NoError(st.Put(ctx, models.Review{Rating: 5, Comment: "Great", BusinessID: "B1"}))
	s.Require().NoError(st.RememberReturnPath(ctx, "/business/B1"))

	s.now = s.now.Add(31 * time.Minute)
	removed, err := s.backend.Sweep(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), removed, "only the TTL-bearing row is swept")

	path, ok, err := st.TakeReturnPath(ctx)
	s.Require().NoError(err)
	s.Require().True(ok, "the redirect slot has no expiry")
	s.Equal("/business/B1", path)
}
