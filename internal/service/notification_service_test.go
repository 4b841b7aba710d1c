package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelist.io/reelist/internal/model"
)

func TestCreateOneDeduplicates(t *testing.T) {
	db := newMemDB()
	repos := newTestRegistry(db)
	svc := NewNotificationService(repos.Notifications, nil)

	receiver := db.addUser("alice")
	actor := db.addUser("bob")

	first, err := svc.CreateOne(context.Background(), repos, receiver.ID, actor.ID, model.NotificationFollow, nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.CreateOne(context.Background(), repos, receiver.ID, actor.ID, model.NotificationFollow, nil)
	require.NoError(t, err)
	assert.Nil(t, second, "duplicate tuple produces no new notification")
	assert.Len(t, db.notifications, 1)
}

func TestCreateOneDistinguishesRatingReference(t *testing.T) {
	db := newMemDB()
	repos := newTestRegistry(db)
	svc := NewNotificationService(repos.Notifications, nil)

	receiver := db.addUser("alice")
	actor := db.addUser("bob")
	ratingA, _ := uuid.NewV7()
	ratingB, _ := uuid.NewV7()

	_, err := svc.CreateOne(context.Background(), repos, receiver.ID, actor.ID, model.NotificationRatingAction, &ratingA)
	require.NoError(t, err)
	n, err := svc.CreateOne(context.Background(), repos, receiver.ID, actor.ID, model.NotificationRatingAction, &ratingB)
	require.NoError(t, err)
	require.NotNil(t, n, "different rating reference is a different tuple")
	assert.Len(t, db.notifications, 2)
}

func TestCreateOneRejectsUnknownCategory(t *testing.T) {
	db := newMemDB()
	repos := newTestRegistry(db)
	svc := NewNotificationService(repos.Notifications, nil)

	receiver := db.addUser("alice")
	actor := db.addUser("bob")

	_, err := svc.CreateOne(context.Background(), repos, receiver.ID, actor.ID, model.NotificationCategory(9), nil)
	assert.Error(t, err)
}

func TestRetract(t *testing.T) {
	db := newMemDB()
	repos := newTestRegistry(db)
	svc := NewNotificationService(repos.Notifications, nil)

	receiver := db.addUser("alice")
	actor := db.addUser("bob")

	_, err := svc.CreateOne(context.Background(), repos, receiver.ID, actor.ID, model.NotificationFollow, nil)
	require.NoError(t, err)

	removed, err := svc.Retract(context.Background(), repos, receiver.ID, actor.ID, model.NotificationFollow, nil)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, db.notifications)

	removed, err = svc.Retract(context.Background(), repos, receiver.ID, actor.ID, model.NotificationFollow, nil)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	db := newMemDB()
	repos := newTestRegistry(db)
	svc := NewNotificationService(repos.Notifications, nil)

	receiver := db.addUser("alice")
	actorB := db.addUser("bob")
	actorC := db.addUser("carol")

	first, err := svc.CreateOne(context.Background(), repos, receiver.ID, actorB.ID, model.NotificationFollow, nil)
	require.NoError(t, err)
	_, err = svc.CreateOne(context.Background(), repos, receiver.ID, actorC.ID, model.NotificationFollow, nil)
	require.NoError(t, err)

	count, err := svc.UnreadCount(context.Background(), receiver.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, svc.MarkRead(context.Background(), receiver.ID, first.ID))
	count, err = svc.UnreadCount(context.Background(), receiver.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, svc.MarkAllRead(context.Background(), receiver.ID))
	count, err = svc.UnreadCount(context.Background(), receiver.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListFiltersByCategory(t *testing.T) {
	db := newMemDB()
	repos := newTestRegistry(db)
	svc := NewNotificationService(repos.Notifications, nil)

	receiver := db.addUser("alice")
	actor := db.addUser("bob")
	ratingID, _ := uuid.NewV7()

	_, err := svc.CreateOne(context.Background(), repos, receiver.ID, actor.ID, model.NotificationFollow, nil)
	require.NoError(t, err)
	_, err = svc.CreateOne(context.Background(), repos, receiver.ID, actor.ID, model.NotificationRatingAction, &ratingID)
	require.NoError(t, err)

	all, total, err := svc.List(context.Background(), receiver.ID, nil, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	category := model.NotificationFollow
	follows, total, err := svc.List(context.Background(), receiver.ID, &category, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, follows, 1)
	assert.Equal(t, model.NotificationFollow, follows[0].Category)
}
