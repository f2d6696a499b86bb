package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
	websocketdto "ride-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ride-dispatch/internal/dispatch-service/core/myerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyWritesDurablyAndPushes(t *testing.T) {
	ctx := context.Background()
	repo := newMemNotificationsRepo()
	push := newRecordPush()
	svc := NewNotificationService(testLogger(), repo, push)

	n, err := svc.Notify(ctx, 42, model.NotifyRideAccepted, "Driver on the way", "Driver 7 accepted your ride", int64Ptr(3))
	require.NoError(t, err)
	assert.NotZero(t, n.ID)
	assert.False(t, n.IsRead)

	events := push.forUser(42)
	require.Len(t, events, 1)
	assert.Equal(t, websocketdto.EventNotification, events[0].Type)

	var payload websocketdto.RideEventDto
	require.NoError(t, json.Unmarshal(events[0].Data, &payload))
	assert.Equal(t, n.ID, payload.NotificationID)
	assert.Equal(t, string(model.NotifyRideAccepted), payload.Type)
	require.NotNil(t, payload.RideID)
	assert.EqualValues(t, 3, *payload.RideID)
}

func TestNotifyDurableFailureIsAnError(t *testing.T) {
	ctx := context.Background()
	repo := newMemNotificationsRepo()
	repo.failCreate = errors.New("connection refused")
	svc := NewNotificationService(testLogger(), repo, newRecordPush())

	_, err := svc.Notify(ctx, 42, model.NotifyRideStarted, "Ride started", "on the move", nil)
	require.Error(t, err)
	assert.True(t, myerrors.IsInternal(err))
}

func TestNotifyWithoutPushTargetStillSucceeds(t *testing.T) {
	ctx := context.Background()
	repo := newMemNotificationsRepo()
	svc := NewNotificationService(testLogger(), repo, nil)

	n, err := svc.Notify(ctx, 42, model.NotifyRideCompleted, "Ride completed", "thanks for riding", nil)
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, 42)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.NotZero(t, n.ID)
}

func TestNotifyValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewNotificationService(testLogger(), newMemNotificationsRepo(), nil)

	_, err := svc.Notify(ctx, 0, model.NotifyRideAccepted, "t", "m", nil)
	assert.True(t, myerrors.IsValidation(err))

	_, err = svc.Notify(ctx, 42, "", "t", "m", nil)
	assert.True(t, myerrors.IsValidation(err))
}

func TestMarkReadOwnership(t *testing.T) {
	ctx := context.Background()
	svc := NewNotificationService(testLogger(), newMemNotificationsRepo(), nil)

	n, err := svc.Notify(ctx, 42, model.NotifyRideAccepted, "t", "m", nil)
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, n.ID, 43)
	assert.True(t, myerrors.IsForbidden(err))

	read, err := svc.MarkRead(ctx, n.ID, 42)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	// idempotent second read keeps the original timestamp
	again, err := svc.MarkRead(ctx, n.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, read.ReadAt, again.ReadAt)

	_, err = svc.MarkRead(ctx, 999, 42)
	assert.True(t, myerrors.IsNotFound(err))
}

func TestMarkAllReadZeroesUnreadCount(t *testing.T) {
	ctx := context.Background()
	svc := NewNotificationService(testLogger(), newMemNotificationsRepo(), nil)

	for i := 0; i < 5; i++ {
		_, err := svc.Notify(ctx, 42, model.NotifyRideRequested, "t", "m", nil)
		require.NoError(t, err)
	}
	_, err := svc.Notify(ctx, 43, model.NotifyRideRequested, "t", "m", nil)
	require.NoError(t, err)

	updated, err := svc.MarkAllRead(ctx, 42)
	require.NoError(t, err)
	assert.EqualValues(t, 5, updated)

	count, err := svc.UnreadCount(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, count)

	// the other user's inbox is untouched
	count, err = svc.UnreadCount(ctx, 43)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestListForUserClampsLimit(t *testing.T) {
	ctx := context.Background()
	repo := newMemNotificationsRepo()
	svc := NewNotificationService(testLogger(), repo, nil)

	for i := 0; i < 30; i++ {
		_, err := svc.Notify(ctx, 42, model.NotifyRideRequested, "t", "m", nil)
		require.NoError(t, err)
	}

	got, err := svc.ListForUser(ctx, 42, 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultNotificationLimit)

	got, err = svc.ListForUser(ctx, 42, 1000, 0)
	require.NoError(t, err)
	assert.Len(t, got, 30)

	got, err = svc.ListForUser(ctx, 42, 10, 25)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}
