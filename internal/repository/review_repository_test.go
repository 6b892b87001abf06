package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/testutil"
)

func TestReviewOncePerBooking(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewReviewRepo(db)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, "Ann", "ann@example.com", model.RoleUser)
	prov := testutil.SeedUser(t, db, "Pat", "pat@example.com", model.RoleProvider)
	svc := testutil.SeedService(t, db, prov, "Deep clean", 10, 4, 3)
	b1 := testutil.SeedBooking(t, db, user, prov, svc, "completed", time.Now())
	b2 := testutil.SeedBooking(t, db, user, prov, svc, "completed", time.Now())

	comment := "spotless"
	rv := &model.Review{BookingID: b1, UserID: user, ProviderID: prov, Rating: 5, Comment: &comment}
	require.NoError(t, repo.Create(ctx, rv))
	assert.NotZero(t, rv.ID)
	require.NotNil(t, rv.Comment)
	assert.Equal(t, "spotless", *rv.Comment)

	exists, err := repo.ExistsForBooking(ctx, b1)
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.Create(ctx, &model.Review{BookingID: b1, UserID: user, ProviderID: prov, Rating: 1})
	assert.ErrorIs(t, err, ErrDuplicateReview)

	require.NoError(t, repo.Create(ctx, &model.Review{BookingID: b2, UserID: user, ProviderID: prov, Rating: 2}))

	avg, err := repo.AverageForService(ctx, svc)
	require.NoError(t, err)
	require.NotNil(t, avg.AverageRating)
	assert.InDelta(t, 3.5, *avg.AverageRating, 0.001)
	assert.Equal(t, 2, avg.TotalReviews)

	list, err := repo.ListForService(ctx, svc)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ann", list[0].UserName)

	high, err := repo.ListForProvider(ctx, prov, ProviderReviewFilter{MinRating: 4, Page: NewPage(1, 10, 10)})
	require.NoError(t, err)
	require.Len(t, high.Data, 1)
	assert.Equal(t, "Deep clean", high.Data[0].ServiceName)
	assert.Equal(t, svc, high.Data[0].ServiceID)

	empty, err := repo.AverageForService(ctx, 4242)
	require.NoError(t, err)
	assert.Nil(t, empty.AverageRating)
	assert.Zero(t, empty.TotalReviews)
}
