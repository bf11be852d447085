package security

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnershipTable_Order(t *testing.T) {
	table := NewOwnershipTable(seededStore().oracles())
	assert.Equal(t, []string{"users", "group-chats", "messages", "participants", "leaderboard"}, table.Resources())
}

func TestOwnershipTable_IsOwner(t *testing.T) {
	s := seededStore()
	table := NewOwnershipTable(s.oracles())
	ctx := context.Background()

	tests := []struct {
		path  string
		user  uint64
		owned bool
	}{
		{"/api/users/1", 1, true},
		{"/api/users/1/group-chats", 1, true},
		{"/api/users/1", 2, false},
		{"/api/group-chats/5", 1, true},
		{"/api/group-chats/5/participants", 1, true},
		{"/api/group-chats/5/quizzes/7", 1, true},
		{"/api/group-chats/5", 2, false},
		{"/api/group-chats/6", 2, true},
		{"/api/messages/21", 1, true},
		{"/api/messages/21", 2, false},
		{"/api/participants/11/name", 1, true},
		{"/api/participants/11", 2, false},
		{"/api/leaderboard/31", 1, true},
		{"/api/leaderboard/31", 2, false},
		// no route
		{"/api/group-chats", 1, false},
		{"/api/users/abc", 1, false},
		{"/api/quizzes/7", 1, false},
		{"/api/users/1/", 1, false},
	}
	for _, tt := range tests {
		owned, err := table.IsOwner(ctx, tt.path, tt.user)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.owned, owned, "%s as user %d", tt.path, tt.user)
	}
}

func TestOwnershipTable_MissingResource(t *testing.T) {
	table := NewOwnershipTable(seededStore().oracles())

	owned, err := table.IsOwner(context.Background(), "/api/messages/404", 1)
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.False(t, owned)

	owned, err = table.IsOwner(context.Background(), "/api/messages/99999999999999999999999", 1)
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.False(t, owned)
}

func TestOwnershipTable_OracleFailure(t *testing.T) {
	boom := errors.New("db down")
	o := seededStore().oracles()
	o.Messages = OracleFunc(func(context.Context, uint64, uint64) (bool, error) { return true, boom })

	owned, err := NewOwnershipTable(o).IsOwner(context.Background(), "/api/messages/21", 1)
	assert.ErrorIs(t, err, boom)
	assert.False(t, owned)
}

func TestOwnership_FollowsChatNotParticipant(t *testing.T) {
	s := seededStore()
	table := NewOwnershipTable(s.oracles())
	ctx := context.Background()

	p := s.participants[11]
	p.Name = "Someone Else"
	s.participants[11] = p

	owned, err := table.IsOwner(ctx, "/api/messages/21", 1)
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = table.IsOwner(ctx, "/api/messages/21", 2)
	require.NoError(t, err)
	assert.False(t, owned)
}
