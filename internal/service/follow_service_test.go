package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
)

type followFixture struct {
	db    *memDB
	repos *repository.Registry
	svc   FollowService
}

func newFollowFixture() *followFixture {
	db := newMemDB()
	repos := newTestRegistry(db)
	tx := &memTx{repos: repos}
	notifications := NewNotificationService(repos.Notifications, nil)

	return &followFixture{
		db:    db,
		repos: repos,
		svc:   NewFollowService(tx, repos, notifications),
	}
}

func TestFollowCreatesEdgeAndCounters(t *testing.T) {
	f := newFollowFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")

	followed, err := f.svc.Follow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, followed)

	assert.Equal(t, 1, f.db.users[alice.ID].FollowingsCount)
	assert.Equal(t, 1, f.db.users[bob.ID].FollowersCount)
	assert.Zero(t, f.db.users[alice.ID].FollowersCount)
	assert.Zero(t, f.db.users[bob.ID].FollowingsCount)

	require.Len(t, f.db.notifications, 1)
	for _, n := range f.db.notifications {
		assert.Equal(t, bob.ID, n.ReceiverID)
		assert.Equal(t, alice.ID, n.ActorID)
		assert.Equal(t, model.NotificationFollow, n.Category)
		assert.Nil(t, n.RatingID)
	}
	checkCounterInvariants(t, f.db)
}

func TestFollowDuplicateIsNoOp(t *testing.T) {
	f := newFollowFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")

	followed, err := f.svc.Follow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, followed)

	followed, err = f.svc.Follow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, followed)

	assert.Equal(t, 1, f.db.users[alice.ID].FollowingsCount)
	assert.Equal(t, 1, f.db.users[bob.ID].FollowersCount)
	assert.Len(t, f.db.follows, 1)
	assert.Len(t, f.db.notifications, 1)
}

func TestFollowSelfRejected(t *testing.T) {
	f := newFollowFixture()
	alice := f.db.addUser("alice")

	followed, err := f.svc.Follow(context.Background(), alice.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, followed)
	assert.Empty(t, f.db.follows)
	assert.Zero(t, f.db.users[alice.ID].FollowersCount)
	assert.Zero(t, f.db.users[alice.ID].FollowingsCount)
}

func TestMutualFollowIsTwoEdges(t *testing.T) {
	f := newFollowFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")

	_, err := f.svc.Follow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = f.svc.Follow(context.Background(), bob.ID, alice.ID)
	require.NoError(t, err)

	assert.Len(t, f.db.follows, 2)
	assert.Equal(t, 1, f.db.users[alice.ID].FollowersCount)
	assert.Equal(t, 1, f.db.users[alice.ID].FollowingsCount)
	assert.Equal(t, 1, f.db.users[bob.ID].FollowersCount)
	assert.Equal(t, 1, f.db.users[bob.ID].FollowingsCount)
	checkCounterInvariants(t, f.db)
}

func TestUnfollowRemovesEdgeAndNotification(t *testing.T) {
	f := newFollowFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")

	_, err := f.svc.Follow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	unfollowed, err := f.svc.Unfollow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, unfollowed)

	assert.Empty(t, f.db.follows)
	assert.Empty(t, f.db.notifications)
	assert.Zero(t, f.db.users[alice.ID].FollowingsCount)
	assert.Zero(t, f.db.users[bob.ID].FollowersCount)
	checkCounterInvariants(t, f.db)

	unfollowed, err = f.svc.Unfollow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, unfollowed)
}

func TestFollowAgainAfterUnfollowNotifiesAgain(t *testing.T) {
	f := newFollowFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")

	_, err := f.svc.Follow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = f.svc.Unfollow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	followed, err := f.svc.Follow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, followed)
	assert.Len(t, f.db.notifications, 1)
	checkCounterInvariants(t, f.db)
}

func TestIsFollowing(t *testing.T) {
	f := newFollowFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")

	following, err := f.svc.IsFollowing(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	_, err = f.svc.Follow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	following, err = f.svc.IsFollowing(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	// The reverse direction is independent.
	following, err = f.svc.IsFollowing(context.Background(), bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, following)

	// Self is never following.
	following, err = f.svc.IsFollowing(context.Background(), alice.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestListFollowersAndFollowings(t *testing.T) {
	f := newFollowFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	carol := f.db.addUser("carol")

	_, err := f.svc.Follow(context.Background(), bob.ID, alice.ID)
	require.NoError(t, err)
	_, err = f.svc.Follow(context.Background(), carol.ID, alice.ID)
	require.NoError(t, err)
	_, err = f.svc.Follow(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	followers, total, err := f.svc.ListFollowers(context.Background(), alice.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	names := make([]string, 0, len(followers))
	for _, u := range followers {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"bob", "carol"}, names)

	followings, total, err := f.svc.ListFollowings(context.Background(), alice.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, followings, 1)
	assert.Equal(t, "bob", followings[0].Username)
}
