package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/testutil"
)

type bookingFixture struct {
	repo      *BookingRepo
	userID    uint64
	otherUser uint64
	provider  uint64
	otherProv uint64
	serviceID uint64
}

func newBookingFixture(t *testing.T) bookingFixture {
	db := testutil.NewDB(t)
	f := bookingFixture{repo: NewBookingRepo(db)}
	f.userID = testutil.SeedUser(t, db, "Alice", "alice@example.com", model.RoleUser)
	f.otherUser = testutil.SeedUser(t, db, "Bob", "bob@example.com", model.RoleUser)
	f.provider = testutil.SeedUser(t, db, "Pat Provider", "pat@example.com", model.RoleProvider)
	f.otherProv = testutil.SeedUser(t, db, "Quinn", "quinn@example.com", model.RoleProvider)
	f.serviceID = testutil.SeedService(t, db, f.provider, "Deep clean", 10, 4, 3)
	return f
}

func (f bookingFixture) pending(t *testing.T) uint64 {
	b := &model.Booking{
		UserID: f.userID, ProviderID: f.provider, ServiceID: f.serviceID,
		BookingDate: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), WorkersRequested: 2,
		EstimatedHours: 2, EstimatedPrice: 40,
	}
	require.NoError(t, f.repo.Insert(context.Background(), b))
	return b.ID
}

func TestBookingInsertReadsBackRow(t *testing.T) {
	f := newBookingFixture(t)
	b := &model.Booking{
		UserID: f.userID, ProviderID: f.provider, ServiceID: f.serviceID,
		BookingDate: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), WorkersRequested: 2,
		EstimatedHours: 2, EstimatedPrice: 40, BookingDetails: json.RawMessage(`{"rooms":3}`),
		Status: model.StatusCompleted,
	}
	require.NoError(t, f.repo.Insert(context.Background(), b))

	assert.NotZero(t, b.ID)
	assert.Equal(t, model.StatusPending, b.Status, "inserts always start pending")
	assert.Equal(t, f.provider, b.ProviderID)
	assert.JSONEq(t, `{"rooms":3}`, string(b.BookingDetails))
	assert.True(t, b.BookingDate.Equal(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))
	assert.Nil(t, b.AcceptedAt)
	assert.InDelta(t, 40.0, b.EstimatedPrice, 0.001)
}

func TestTransitionFollowsLifecycle(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	id := f.pending(t)

	b, ok, err := f.repo.Transition(ctx, id, f.provider, model.Accept)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.StatusAccepted, b.Status)
	assert.NotNil(t, b.AcceptedAt)
	assert.Nil(t, b.StartedAt)

	b, ok, err = f.repo.Transition(ctx, id, f.provider, model.Start)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.StatusInProgress, b.Status)
	assert.NotNil(t, b.StartedAt)

	b, ok, err = f.repo.Transition(ctx, id, f.provider, model.Complete)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, b.Status)
	assert.NotNil(t, b.CompletedAt)

	for _, tr := range []model.Transition{model.Accept, model.Start, model.Complete} {
		_, ok, err = f.repo.Transition(ctx, id, f.provider, tr)
		require.NoError(t, err)
		assert.False(t, ok, "%s out of completed", tr.Name)
	}
}

func TestTransitionGuards(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	t.Run("wrong provider", func(t *testing.T) {
		id := f.pending(t)
		_, ok, err := f.repo.Transition(ctx, id, f.otherProv, model.Accept)
		require.NoError(t, err)
		assert.False(t, ok)
		b, err := f.repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, b.Status)
	})
	t.Run("skipping a state", func(t *testing.T) {
		id := f.pending(t)
		_, ok, err := f.repo.Transition(ctx, id, f.provider, model.Start)
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("missing booking", func(t *testing.T) {
		_, ok, err := f.repo.Transition(ctx, 9999, f.provider, model.Accept)
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("cancel only by requester", func(t *testing.T) {
		id := f.pending(t)
		_, ok, err := f.repo.Transition(ctx, id, f.otherUser, model.Cancel)
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = f.repo.Transition(ctx, id, f.provider, model.Cancel)
		require.NoError(t, err)
		assert.False(t, ok, "provider id does not match user_id")
		b, ok, err := f.repo.Transition(ctx, id, f.userID, model.Cancel)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, model.StatusCancelled, b.Status)
	})
	t.Run("cancel after accept", func(t *testing.T) {
		id := f.pending(t)
		_, ok, err := f.repo.Transition(ctx, id, f.provider, model.Accept)
		require.NoError(t, err)
		require.True(t, ok)
		_, ok, err = f.repo.Transition(ctx, id, f.userID, model.Cancel)
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("leaving a terminal state", func(t *testing.T) {
		id := f.pending(t)
		_, ok, err := f.repo.Transition(ctx, id, f.userID, model.Cancel)
		require.NoError(t, err)
		require.True(t, ok)
		reopen := model.Transition{Name: "reopen", From: model.StatusCancelled, To: model.StatusPending, Owner: model.OwnerUser}
		_, ok, err = f.repo.Transition(ctx, id, f.userID, reopen)
		assert.Error(t, err)
		assert.False(t, ok)
		b, err := f.repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, b.Status)
	})
	t.Run("unknown owner column", func(t *testing.T) {
		_, _, err := f.repo.Transition(ctx, 1, 1, model.Transition{Name: "bad", Owner: "1=1 OR id"})
		assert.Error(t, err)
	})
}

func TestConcurrentAcceptHasOneWinner(t *testing.T) {
	f := newBookingFixture(t)
	id := f.pending(t)

	const callers = 8
	var (
		wins int32
		wg   sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := f.repo.Transition(context.Background(), id, f.provider, model.Accept)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestListForUserPagination(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.pending(t)
	}

	page, err := f.repo.ListForUser(ctx, f.userID, BookingFilter{Page: NewPage(1, 2, 20)})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, "Deep clean", page.Data[0].ServiceName)
	assert.Empty(t, page.Data[0].CustomerName)

	past, err := f.repo.ListForUser(ctx, f.userID, BookingFilter{Page: NewPage(9, 2, 20)})
	require.NoError(t, err)
	assert.NotNil(t, past.Data)
	assert.Empty(t, past.Data)
	assert.Equal(t, 5, past.TotalItems)

	other, err := f.repo.ListForUser(ctx, f.otherUser, BookingFilter{Page: NewPage(1, 20, 20)})
	require.NoError(t, err)
	assert.Zero(t, other.TotalItems)
}

func TestListFilters(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	db := f.repo.DB

	early := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	late := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	testutil.SeedBooking(t, db, f.userID, f.provider, f.serviceID, "pending", early)
	testutil.SeedBooking(t, db, f.userID, f.provider, f.serviceID, "accepted", late)
	testutil.SeedBooking(t, db, f.otherUser, f.provider, f.serviceID, "pending", late)

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	got, err := f.repo.ListForUser(ctx, f.userID, BookingFilter{From: &from, Page: NewPage(1, 20, 20)})
	require.NoError(t, err)
	require.Len(t, got.Data, 1)
	assert.Equal(t, model.StatusAccepted, got.Data[0].Status)

	got, err = f.repo.ListForUser(ctx, f.userID, BookingFilter{Status: model.StatusPending, Page: NewPage(1, 20, 20)})
	require.NoError(t, err)
	require.Len(t, got.Data, 1)
	assert.True(t, got.Data[0].BookingDate.Equal(early))

	prov, err := f.repo.ListForProvider(ctx, f.provider, BookingFilter{CustomerName: "BO", Page: NewPage(1, 20, 20)})
	require.NoError(t, err)
	require.Len(t, prov.Data, 1)
	assert.Equal(t, "Bob", prov.Data[0].CustomerName)

	all, err := f.repo.ListForProvider(ctx, f.provider, BookingFilter{Page: NewPage(1, 20, 20)})
	require.NoError(t, err)
	assert.Equal(t, 3, all.TotalItems)
	assert.True(t, all.Data[0].BookingDate.Equal(late), "newest booking date first")

	none, err := f.repo.ListForProvider(ctx, f.otherProv, BookingFilter{Page: NewPage(1, 20, 20)})
	require.NoError(t, err)
	assert.Zero(t, none.TotalItems)
}

func TestListAdminAndStats(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	db := f.repo.DB
	d := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	testutil.SeedBooking(t, db, f.userID, f.provider, f.serviceID, "pending", d)
	testutil.SeedBooking(t, db, f.userID, f.provider, f.serviceID, "completed", d)
	last := testutil.SeedBooking(t, db, f.otherUser, f.provider, f.serviceID, "completed", d)

	got, err := f.repo.ListAdmin(ctx, AdminBookingFilter{SortBy: "id", SortOrder: "desc", Page: NewPage(1, 10, 10)})
	require.NoError(t, err)
	require.Len(t, got.Data, 3)
	assert.Equal(t, last, got.Data[0].ID)
	assert.Equal(t, "Bob", got.Data[0].UserName)
	assert.Equal(t, "Pat Provider", got.Data[0].ProviderName)
	assert.Equal(t, "Deep clean", got.Data[0].ServiceName)

	injected, err := f.repo.ListAdmin(ctx, AdminBookingFilter{SortBy: "(SELECT 1)", Page: NewPage(1, 10, 10)})
	require.NoError(t, err)
	assert.Len(t, injected.Data, 3)

	done, err := f.repo.ListAdmin(ctx, AdminBookingFilter{Status: model.StatusCompleted, Page: NewPage(1, 10, 10)})
	require.NoError(t, err)
	assert.Equal(t, 2, done.TotalItems)

	st, err := f.repo.StatsForProvider(ctx, f.provider)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderStats{TotalBookings: 3, CompletedBookings: 2, PendingBookings: 1}, st)

	deleted, err := f.repo.Delete(ctx, last)
	require.NoError(t, err)
	assert.Equal(t, last, deleted.ID)
	_, err = f.repo.Delete(ctx, last)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
