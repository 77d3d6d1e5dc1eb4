package reservation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nekogravitycat/reservation-service/internal/db"
	"github.com/nekogravitycat/reservation-service/internal/pkg/timespan"
)

// setupPostgres connects to TEST_DB_DSN (a postgres:// URL), applies the
// migrations and empties the table. Tests are skipped when it is unset.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	require.NoError(t, db.RunMigrations(dsn))

	pool, err := db.NewPool(ctx, dsn, 5)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE rsvp.reservations RESTART IDENTITY")
	require.NoError(t, err)

	return pool
}

func newPostgresManager(t *testing.T) Manager {
	return NewManager(NewPgxRepository(setupPostgres(t)), zap.NewNop(), nil)
}

func mustReserve(t *testing.T, mgr Manager, r *Reservation) *Reservation {
	t.Helper()
	got, err := mgr.Reserve(context.Background(), r)
	require.NoError(t, err)
	return got
}

func TestPostgres_ReserveAssignsID(t *testing.T) {
	mgr := newPostgresManager(t)

	got := mustReserve(t, mgr, sampleReservation())
	assert.Positive(t, got.ID)
	assert.Equal(t, StatusPending, got.Status)
}

func TestPostgres_ReserveConflict(t *testing.T) {
	mgr := newPostgresManager(t)
	ctx := context.Background()

	mustReserve(t, mgr, NewPending("a", "709",
		utc("2022-12-25T00:00:00Z"), utc("2022-12-26T00:00:00Z"), ""))

	_, err := mgr.Reserve(ctx, NewPending("b", "709",
		utc("2022-12-25T12:00:00Z"), utc("2022-12-27T00:00:00Z"), ""))
	require.ErrorIs(t, err, ErrConflictReservation)

	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	require.True(t, ce.Info.Parsed(), "raw detail: %s", ce.Info.Raw)
	assert.Equal(t, "709", ce.Info.Conflict.New.ResourceID)
	assert.True(t, ce.Info.Conflict.New.Start.Equal(utc("2022-12-25T12:00:00Z")))
	assert.True(t, ce.Info.Conflict.New.End.Equal(utc("2022-12-27T00:00:00Z")))
	assert.True(t, ce.Info.Conflict.Old.Start.Equal(utc("2022-12-25T00:00:00Z")))
	assert.True(t, ce.Info.Conflict.Old.End.Equal(utc("2022-12-26T00:00:00Z")))
}

func TestPostgres_BackToBackAndOtherResource(t *testing.T) {
	mgr := newPostgresManager(t)

	mustReserve(t, mgr, NewPending("a", "room",
		utc("2022-12-25T00:00:00Z"), utc("2022-12-26T00:00:00Z"), ""))
	mustReserve(t, mgr, NewPending("b", "room",
		utc("2022-12-26T00:00:00Z"), utc("2022-12-27T00:00:00Z"), ""))
	mustReserve(t, mgr, NewPending("c", "other-room",
		utc("2022-12-25T00:00:00Z"), utc("2022-12-26T00:00:00Z"), ""))
}

func TestPostgres_ChangeStatus(t *testing.T) {
	mgr := newPostgresManager(t)
	ctx := context.Background()

	r := mustReserve(t, mgr, sampleReservation())

	confirmed, err := mgr.ChangeStatus(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, r.Range, confirmed.Range)

	_, err = mgr.ChangeStatus(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = mgr.ChangeStatus(ctx, r.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_UpdateNoteGetDelete(t *testing.T) {
	mgr := newPostgresManager(t)
	ctx := context.Background()

	r := mustReserve(t, mgr, sampleReservation())

	updated, err := mgr.UpdateNote(ctx, r.ID, "hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", updated.Note)

	got, err := mgr.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	require.NoError(t, mgr.Delete(ctx, r.ID))

	_, err = mgr.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = mgr.Delete(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = mgr.UpdateNote(ctx, r.ID, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_QueryByWindow(t *testing.T) {
	mgr := newPostgresManager(t)
	ctx := context.Background()

	r := mustReserve(t, mgr, sampleReservation())
	other := mustReserve(t, mgr, NewPending("someone-else", "Presidential-Suite",
		utc("2023-06-01T00:00:00Z"), utc("2023-06-02T00:00:00Z"), ""))

	window := timespan.New(utc("2021-11-01T07:00:00Z"), utc("2023-12-31T04:00:00Z"))

	rows, errs := collect(t, mgr.Query(ctx, Query{UserID: "yangid", Status: StatusPending, Range: window}))
	require.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.Equal(t, r.ID, rows[0].ID)

	rows, errs = collect(t, mgr.Query(ctx, Query{UserID: "yangid", Status: StatusConfirmed, Range: window}))
	require.Empty(t, errs)
	assert.Empty(t, rows)

	rows, errs = collect(t, mgr.Query(ctx, Query{Range: window, Desc: true}))
	require.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, []int64{other.ID, r.ID}, ids(rows))

	// Half-open: a window ending exactly at the start does not overlap.
	before := timespan.New(utc("2022-12-24T00:00:00Z"), utc("2022-12-25T07:00:00Z"))
	rows, errs = collect(t, mgr.Query(ctx, Query{UserID: "yangid", Range: before}))
	require.Empty(t, errs)
	assert.Empty(t, rows)
}

func TestPostgres_FilterWalk(t *testing.T) {
	mgr := newPostgresManager(t)
	ctx := context.Background()

	user := uuid.NewString()
	base := utc("2030-01-01T00:00:00Z")
	for i := 0; i < 100; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		mustReserve(t, mgr, NewPending(user, fmt.Sprintf("desk-%d", i%3), start, start.Add(time.Hour), ""))
	}

	for _, desc := range []bool{false, true} {
		t.Run(fmt.Sprintf("desc=%v", desc), func(t *testing.T) {
			seen := make(map[int64]bool)
			cursor := NoCursor
			pages := 0

			for {
				pager, page, err := mgr.Filter(ctx, Filter{UserID: user, Cursor: cursor, Desc: desc, PageSize: 10})
				require.NoError(t, err)
				pages++

				if pages == 1 {
					assert.Equal(t, NoCursor, pager.Prev)
				} else {
					assert.NotEqual(t, NoCursor, pager.Prev)
				}
				for _, r := range page {
					assert.False(t, seen[r.ID], "id %d visited twice", r.ID)
					seen[r.ID] = true
				}

				if pager.Next == NoCursor {
					break
				}
				cursor = pager.Next
				require.Less(t, pages, 20)
			}

			assert.Len(t, seen, 100)
			assert.Equal(t, 10, pages)
		})
	}
}

func TestPostgres_SubMicrosecondBounds(t *testing.T) {
	mgr := newPostgresManager(t)
	ctx := context.Background()
	base := utc("2022-12-25T00:00:00Z")

	_, err := mgr.Reserve(ctx, NewPending("a", "709", base.Add(100*time.Nanosecond), base.Add(900*time.Nanosecond), ""))
	assert.ErrorIs(t, err, ErrInvalidTime)

	created := mustReserve(t, mgr, NewPending("a", "709", base.Add(1500*time.Nanosecond), base.Add(time.Hour), ""))
	got, err := mgr.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Range, got.Range)

	_, _, err = mgr.Filter(ctx, Filter{UserID: "a"})
	assert.NoError(t, err)
}
