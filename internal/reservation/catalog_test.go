package reservation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/model"
)

func TestCatalog_RegisterAndList(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.Register(context.Background(), RegisterResourceRequest{
		Kind: model.ResourceKindVenue, Name: "Hall", CapacityMin: 1, CapacityMax: 10,
	})
	require.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = f.catalog.Register(asUser(ownerID), RegisterResourceRequest{
		Kind: model.ResourceKindVenue, Name: "Hall", CapacityMin: 10, CapacityMax: 5,
	})
	ae, ok := apperror.As(err)
	require.True(t, ok, "expected typed error, got %v", err)
	assert.Equal(t, apperror.KindInvalidRequest, ae.Kind)
	assert.Equal(t, "capacityMax", ae.Field)

	_, err = f.catalog.Register(asUser(ownerID), RegisterResourceRequest{
		Kind: "room", Name: "Hall", CapacityMin: 1, CapacityMax: 5,
	})
	require.ErrorIs(t, err, apperror.ErrInvalidRequest)

	for _, name := range []string{"B hall", "A hall", "C hall"} {
		res, err := f.catalog.Register(asUser(ownerID), RegisterResourceRequest{
			Kind: model.ResourceKindEvent, Name: name, CapacityMin: 1, CapacityMax: 50,
		})
		require.NoError(t, err)
		assert.Equal(t, ownerID, res.OwnerID)
		assert.Equal(t, model.ResourceStatusActive, res.Status)
	}

	page, err := f.catalog.Mine(asUser(ownerID), 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "A hall", page.Items[0].Name)
	assert.True(t, page.HasNext)

	other, err := f.catalog.Mine(asUser(requesterID), 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, other.Total)
	assert.Empty(t, other.Items)
}

func TestCatalog_SetStatusBlocksNewBookings(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-01")

	_, err := f.catalog.SetStatus(asUser(requesterID), v1.ID, model.ResourceStatusInactive)
	require.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = f.catalog.SetStatus(asUser(ownerID), v1.ID, "closed")
	require.ErrorIs(t, err, apperror.ErrInvalidRequest)

	existing, err := f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "10:00", "11:00", 5))
	require.NoError(t, err)

	res, err := f.catalog.SetStatus(asUser(ownerID), v1.ID, model.ResourceStatusInactive)
	require.NoError(t, err)
	assert.Equal(t, model.ResourceStatusInactive, res.Status)

	_, err = f.engine.Create(asUser(requesterID), venueRequest(v1.ID, "2024-06-01", "2024-06-01", "12:00", "13:00", 5))
	ae, ok := apperror.As(err)
	require.True(t, ok, "expected typed error, got %v", err)
	assert.Equal(t, apperror.KindResourceUnavailable, ae.Kind)
	assert.Equal(t, string(model.ResourceStatusInactive), ae.Status)

	// Существующая бронь от статуса ресурса не зависит.
	got, err := f.query.Get(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, got.Status)
}

func TestCatalog_Schedules(t *testing.T) {
	f := newFixture(t)
	v1 := f.resource(t, model.ResourceKindVenue, "2024-06-01", "2024-06-03")

	in := PublishInput{
		StartDate:   "2024-06-10",
		EndDate:     "2024-06-12",
		StartTime:   "09:00",
		EndTime:     "11:00",
		SlotMinutes: 30,
		ExceptDates: []string{"2024-06-11"},
	}
	req, err := in.Parse()
	require.NoError(t, err)
	slots, err := f.engine.PublishAvailability(asUser(ownerID), v1.ID, req)
	require.NoError(t, err)
	assert.Len(t, slots, 8)

	schedules, err := f.catalog.Schedules(asUser(ownerID), v1.ID)
	require.NoError(t, err)
	require.Len(t, schedules, 2)

	var found bool
	for _, s := range schedules {
		rule := s.Rule.Data()
		if s.StartDate == "2024-06-10" {
			found = true
			assert.Equal(t, 30, rule.SlotMinutes)
			assert.Equal(t, []string{"2024-06-11"}, rule.Except)
		}
	}
	assert.True(t, found)

	_, err = f.catalog.Schedules(asUser(requesterID), v1.ID)
	require.ErrorIs(t, err, apperror.ErrPermissionDenied)

	bad := in
	bad.ExceptDates = []string{"11.06.2024"}
	_, err = bad.Parse()
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, "exceptDates", ae.Field)
	assert.False(t, errors.Is(err, apperror.ErrInvalidDateRange))
}
