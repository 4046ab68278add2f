package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRegistry(t *testing.T) {
	t.Run("register and lookup", func(t *testing.T) {
		registry := NewActivityRegistry()
		userID := uuid.New()
		client := newFakeClient(userID)

		assert.Nil(t, registry.ClientFor(userID))
		assert.True(t, registry.Register(userID, client))
		assert.Equal(t, client, registry.ClientFor(userID))
	})

	t.Run("second claim is rejected", func(t *testing.T) {
		registry := NewActivityRegistry()
		userID := uuid.New()
		first := newFakeClient(userID)
		second := newFakeClient(userID)

		require.True(t, registry.Register(userID, first))
		assert.False(t, registry.Register(userID, second))
		assert.Equal(t, first, registry.ClientFor(userID))
	})

	t.Run("unregister releases the claim", func(t *testing.T) {
		registry := NewActivityRegistry()
		userID := uuid.New()

		require.True(t, registry.Register(userID, newFakeClient(userID)))
		assert.True(t, registry.Unregister(userID))
		assert.False(t, registry.Unregister(userID))
		assert.Nil(t, registry.ClientFor(userID))
	})

	t.Run("disconnect releases the claim", func(t *testing.T) {
		registry := NewActivityRegistry()
		userID := uuid.New()
		client := newFakeClient(userID)

		require.True(t, registry.Register(userID, client))
		client.disconnect()

		assert.Eventually(t, func() bool {
			return registry.ClientFor(userID) == nil
		}, time.Second, time.Millisecond)
	})

	t.Run("stale disconnect keeps a newer claim", func(t *testing.T) {
		registry := NewActivityRegistry()
		userID := uuid.New()
		old := newFakeClient(userID)
		replacement := newFakeClient(userID)

		require.True(t, registry.Register(userID, old))
		require.True(t, registry.Unregister(userID))
		require.True(t, registry.Register(userID, replacement))

		// The old connection closing must not release the new claim.
		old.disconnect()
		assert.Never(t, func() bool {
			return registry.ClientFor(userID) != replacement
		}, 50*time.Millisecond, 5*time.Millisecond)
	})
}

func TestActivityRegistryRegisterAll(t *testing.T) {
	t.Run("claims every user or none", func(t *testing.T) {
		registry := NewActivityRegistry()
		u1, u2 := uuid.New(), uuid.New()
		entries := []ClientEntry{
			{UserID: u1, Client: newFakeClient(u1)},
			{UserID: u2, Client: newFakeClient(u2)},
		}

		ok, conflicting := registry.RegisterAll(entries)
		assert.True(t, ok)
		assert.Empty(t, conflicting)
		assert.NotNil(t, registry.ClientFor(u1))
		assert.NotNil(t, registry.ClientFor(u2))
	})

	t.Run("reports conflicts without claiming", func(t *testing.T) {
		registry := NewActivityRegistry()
		u1, u2 := uuid.New(), uuid.New()
		require.True(t, registry.Register(u2, newFakeClient(u2)))

		ok, conflicting := registry.RegisterAll([]ClientEntry{
			{UserID: u1, Client: newFakeClient(u1)},
			{UserID: u2, Client: newFakeClient(u2)},
		})

		assert.False(t, ok)
		assert.Equal(t, []uuid.UUID{u2}, conflicting)
		assert.Nil(t, registry.ClientFor(u1))
	})
}
