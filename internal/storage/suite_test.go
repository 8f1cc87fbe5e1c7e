package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

var suiteBase = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func suiteListings() []*models.Listing {
	return []*models.Listing{
		{
			ID: "biz-1", Kind: models.KindBusiness, Title: "Pho Saigon",
			Description: "Vietnamese noodle house", Status: models.ListingStatusApproved,
			Address: "11210 Bellaire Blvd", Phone: "713-555-0101",
			Latitude: floatPtr(29.7052), Longitude: floatPtr(-95.5674),
			CreatedAt: suiteBase,
		},
		{
			ID: "biz-2", Kind: models.KindBusiness, Title: "Banh Mi Corner",
			Description: "Sandwiches and PHO on weekends", Status: models.ListingStatusApproved,
			City: "Houston", CreatedAt: suiteBase.Add(time.Hour),
		},
		{
			ID: "biz-3", Kind: models.KindBusiness, Title: "Pho Pending",
			Status: models.ListingStatusPending, CreatedAt: suiteBase.Add(2 * time.Hour),
		},
		{
			ID: "item-1", Kind: models.KindMarketplace, Title: "Used bicycle",
			Price: floatPtr(120), Location: "Garden Grove, CA",
			Status: models.ListingStatusApproved, CreatedAt: suiteBase,
		},
	}
}

// runStorageSuite exercises the behaviour every backend must share.
func runStorageSuite(t *testing.T, s Storage) {
	ctx := context.Background()

	for _, l := range suiteListings() {
		require.NoError(t, s.SaveListing(ctx, l))
	}

	t.Run("Candidates filters by kind status and query", func(t *testing.T) {
		got, err := s.Candidates(ctx, models.KindBusiness, "pho", 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		// Newest first
		assert.Equal(t, "biz-2", got[0].ID)
		assert.Equal(t, "biz-1", got[1].ID)
	})

	t.Run("Candidates empty query matches all visible", func(t *testing.T) {
		got, err := s.Candidates(ctx, models.KindBusiness, "", 0)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("Candidates limit", func(t *testing.T) {
		got, err := s.Candidates(ctx, models.KindBusiness, "", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "biz-2", got[0].ID)
	})

	t.Run("Candidates no match", func(t *testing.T) {
		got, err := s.Candidates(ctx, models.KindJob, "", 0)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Listing round trip", func(t *testing.T) {
		got, err := s.GetListing(ctx, "biz-1")
		require.NoError(t, err)
		assert.Equal(t, "Pho Saigon", got.Title)
		require.NotNil(t, got.Latitude)
		assert.InDelta(t, 29.7052, *got.Latitude, 1e-9)
		assert.Nil(t, got.Price)
		assert.True(t, got.CreatedAt.Equal(suiteBase))

		item, err := s.GetListing(ctx, "item-1")
		require.NoError(t, err)
		require.NotNil(t, item.Price)
		assert.Equal(t, 120.0, *item.Price)
		assert.Nil(t, item.Latitude)
		assert.Equal(t, "Garden Grove, CA", item.Location)
	})

	t.Run("Listing update", func(t *testing.T) {
		l, err := s.GetListing(ctx, "biz-3")
		require.NoError(t, err)
		l.Status = models.ListingStatusApproved
		require.NoError(t, s.SaveListing(ctx, l))

		got, err := s.Candidates(ctx, models.KindBusiness, "pho", 0)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("Listing not found", func(t *testing.T) {
		_, err := s.GetListing(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Users", func(t *testing.T) {
		u := &models.User{ID: "u-1", Email: "admin@example.com", Name: "Admin", Role: models.RoleAdmin, CreatedAt: suiteBase}
		require.NoError(t, s.SaveUser(ctx, u))

		got, err := s.GetUser(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
		assert.Equal(t, "admin@example.com", got.Email)

		u.Role = models.RoleUser
		require.NoError(t, s.SaveUser(ctx, u))
		got, err = s.GetUser(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, models.RoleUser, got.Role)

		_, err = s.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Sessions", func(t *testing.T) {
		u := &models.User{ID: "u-2", Email: "member@example.com", Role: models.RoleUser, CreatedAt: suiteBase}
		require.NoError(t, s.SaveUser(ctx, u))

		session := models.NewSession("u-2", "raw-token", time.Hour)
		require.NoError(t, s.SaveSession(ctx, session))

		got, err := s.GetSessionByHash(ctx, models.HashSessionToken("raw-token"))
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, "u-2", got.UserID)
		assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Millisecond)

		_, err = s.GetSessionByHash(ctx, models.HashSessionToken("other"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}
