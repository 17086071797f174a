package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCouponApplication_ApplyFlow(t *testing.T) {
	var app CouponApplication
	assert.Equal(t, int64(0), app.Discount())

	attempt, err := app.Begin("  save10 ", now)
	require.NoError(t, err)
	assert.Equal(t, CouponPending, app.State)
	assert.Equal(t, "SAVE10", app.Code)
	assert.True(t, app.IsPending())

	require.NoError(t, app.Resolve(attempt, true, 1000, "Coupon applied", now))
	assert.Equal(t, CouponApplied, app.State)
	assert.Equal(t, int64(1000), app.Discount())
	assert.Equal(t, "SAVE10", app.AppliedCode())

	app.Remove(now)
	assert.Equal(t, CouponUnapplied, app.State)
	assert.Equal(t, int64(0), app.Discount())
	assert.Empty(t, app.AppliedCode())
}

func TestCouponApplication_DuplicateWhilePending(t *testing.T) {
	var app CouponApplication
	first, err := app.Begin("SAVE10", now)
	require.NoError(t, err)

	_, err = app.Begin("OTHER", now)
	assert.ErrorIs(t, err, ErrCouponPending)
	assert.Equal(t, "SAVE10", app.Code)
	assert.Equal(t, first, app.AttemptID)
}

func TestCouponApplication_SecondCouponRequiresRemoval(t *testing.T) {
	var app CouponApplication
	attempt, _ := app.Begin("SAVE10", now)
	require.NoError(t, app.Resolve(attempt, true, 500, "", now))

	_, err := app.Begin("SAVE20", now)
	assert.ErrorIs(t, err, ErrCouponAlreadyApplied)

	app.Remove(now)
	_, err = app.Begin("SAVE20", now)
	assert.NoError(t, err)
}

func TestCouponApplication_RejectionIsTransient(t *testing.T) {
	var app CouponApplication
	attempt, _ := app.Begin("EXPIRED", now)
	require.NoError(t, app.Resolve(attempt, false, 0, "Coupon has expired", now))
	assert.Equal(t, CouponRejected, app.State)
	assert.Equal(t, "Coupon has expired", app.Message)
	assert.Equal(t, int64(0), app.Discount())

	// A new code can be submitted straight from Rejected.
	_, err := app.Begin("SAVE10", now)
	require.NoError(t, err)
	assert.Equal(t, CouponPending, app.State)

	app.Remove(now)
	attempt, _ = app.Begin("EXPIRED", now)
	require.NoError(t, app.Resolve(attempt, false, 0, "Coupon has expired", now))
	app.Acknowledge(now)
	assert.Equal(t, CouponUnapplied, app.State)
}

func TestCouponApplication_StaleResultDiscarded(t *testing.T) {
	var app CouponApplication
	attempt, _ := app.Begin("SAVE10", now)

	// The user removed the coupon while validation was in flight.
	app.Remove(now)
	err := app.Resolve(attempt, true, 1000, "", now)
	assert.ErrorIs(t, err, ErrStaleAttempt)
	assert.Equal(t, CouponUnapplied, app.State)

	assert.ErrorIs(t, app.Fail("unknown", now), ErrStaleAttempt)
}

func TestCouponApplication_FailReturnsToUnapplied(t *testing.T) {
	var app CouponApplication
	attempt, _ := app.Begin("SAVE10", now)
	require.NoError(t, app.Fail(attempt, now))
	assert.Equal(t, CouponUnapplied, app.State)
	assert.Empty(t, app.Code)
}

func TestCouponApplication_EmptyCode(t *testing.T) {
	var app CouponApplication
	_, err := app.Begin("   ", now)
	assert.ErrorIs(t, err, ErrEmptyCouponCode)
	assert.Equal(t, CouponState(""), app.State)
}

func TestMemoryStore_RoundTripAndExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute).(*memoryStore)
	clock := now
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	app, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, CouponUnapplied, app.State)

	_, err = app.Begin("SAVE10", clock)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, 1, app))

	loaded, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, CouponPending, loaded.State)

	other, err := store.Load(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, CouponUnapplied, other.State)

	clock = clock.Add(2 * time.Minute)
	expired, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, CouponUnapplied, expired.State)

	require.NoError(t, store.Save(ctx, 1, app))
	require.NoError(t, store.Reset(ctx, 1))
	reset, _ := store.Load(ctx, 1)
	assert.Equal(t, CouponUnapplied, reset.State)
}
