package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
)

func TestMemoryStorage(t *testing.T) {
	s, err := NewMemoryStorage(Config{})
	require.NoError(t, err)
	defer s.Close()

	runStorageSuite(t, s)
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	s, _ := NewMemoryStorage(Config{})
	ctx := context.Background()

	l := &models.Listing{ID: "x", Kind: models.KindJob, Title: "Line cook", Status: models.ListingStatusApproved}
	require.NoError(t, s.SaveListing(ctx, l))

	// Mutating the caller's value after save must not leak into storage.
	l.Title = "changed"
	got, err := s.GetListing(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "Line cook", got.Title)

	got.Title = "also changed"
	candidates, err := s.Candidates(ctx, models.KindJob, "", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Line cook", candidates[0].Title)
}

func TestMemoryStorage_SessionRotation(t *testing.T) {
	s, _ := NewMemoryStorage(Config{})
	ctx := context.Background()

	session := &models.Session{ID: "s-1", UserID: "u", TokenHash: "old"}
	require.NoError(t, s.SaveSession(ctx, session))

	session.TokenHash = "new"
	require.NoError(t, s.SaveSession(ctx, session))

	_, err := s.GetSessionByHash(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := s.GetSessionByHash(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
}

func TestSelectCandidates_TiesBreakByID(t *testing.T) {
	listings := []*models.Listing{
		{ID: "b", Kind: models.KindService, Status: models.ListingStatusApproved, CreatedAt: suiteBase},
		{ID: "a", Kind: models.KindService, Status: models.ListingStatusApproved, CreatedAt: suiteBase},
		{ID: "c", Kind: models.KindService, Status: models.ListingStatusRejected, CreatedAt: suiteBase},
	}

	got := selectCandidates(listings, models.KindService, "", 0)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}
