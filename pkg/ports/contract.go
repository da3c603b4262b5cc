package ports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEpisodeStoreContract runs a suite of tests to verify that an EpisodeStore implementation
// adheres to the defined interface contract.
func RunEpisodeStoreContract(t *testing.T, store EpisodeStore) {
	ctx := context.Background()
	conversationID := "contract-episode-" + time.Now().Format("20060102150405")

	newEpisode := func(id string) *domain.Episode {
		now := time.Now().UTC().Truncate(time.Second)
		return &domain.Episode{
			ConversationID: id,
			InitialQuery:   "去北京",
			Presence:       domain.Presence{Destination: true},
			Followups:      []string{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		ep := newEpisode(conversationID)
		ep.Followups = append(ep.Followups, "5天")

		err := store.Save(ctx, conversationID, ep)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, conversationID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, ep.InitialQuery, loaded.InitialQuery)
		assert.Equal(t, ep.Presence, loaded.Presence)
		assert.Equal(t, []string{"5天"}, loaded.Followups)
		assert.True(t, ep.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		ep := newEpisode(conversationID)
		ep.InitialQuery = "去上海"
		require.NoError(t, store.Save(ctx, conversationID, ep))

		loaded, err := store.Load(ctx, conversationID)
		require.NoError(t, err)
		assert.Equal(t, "去上海", loaded.InitialQuery)
		assert.Empty(t, loaded.Followups)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+conversationID)
		assert.ErrorIs(t, err, domain.ErrEpisodeNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, conversationID, newEpisode(conversationID)))

		err := store.Delete(ctx, conversationID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, conversationID)
		assert.ErrorIs(t, err, domain.ErrEpisodeNotFound, "Load after Delete should return ErrEpisodeNotFound")

		assert.NoError(t, store.Delete(ctx, conversationID), "Deleting twice should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := conversationID + "-1"
		id2 := conversationID + "-2"
		require.NoError(t, store.Save(ctx, id1, newEpisode(id1)))
		require.NoError(t, store.Save(ctx, id2, newEpisode(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	conversationID := "contract-state-" + time.Now().Format("20060102150405.000000")
	userID := int64(42)
	query := "上海 4 天，预算 6000"
	revision := "rev-1"
	itinerary := json.RawMessage(`{"revision_id":"rev-1","trip_profile":{"destination_city":"上海"}}`)
	profile := json.RawMessage(`{"destination_city":"上海"}`)

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+conversationID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("Upsert Creates", func(t *testing.T) {
		state, err := store.Upsert(ctx, conversationID, domain.StateUpdate{
			UserID:        &userID,
			LastUserQuery: &query,
		})
		require.NoError(t, err)
		assert.Equal(t, conversationID, state.ConversationID)
		require.NotNil(t, state.LastUserQuery)
		assert.Equal(t, query, *state.LastUserQuery)
		assert.False(t, state.HasItinerary())
	})

	t.Run("Upsert Keeps Unset Fields", func(t *testing.T) {
		_, err := store.Upsert(ctx, conversationID, domain.StateUpdate{
			CurrentRevisionID: &revision,
			TripProfile:       profile,
			CurrentItinerary:  itinerary,
		})
		require.NoError(t, err)

		state, err := store.Get(ctx, conversationID)
		require.NoError(t, err)
		require.NotNil(t, state.UserID)
		assert.Equal(t, userID, *state.UserID)
		require.NotNil(t, state.LastUserQuery)
		assert.Equal(t, query, *state.LastUserQuery)
		require.NotNil(t, state.CurrentRevisionID)
		assert.Equal(t, revision, *state.CurrentRevisionID)
		assert.JSONEq(t, string(itinerary), string(state.CurrentItinerary))
		assert.JSONEq(t, string(profile), string(state.TripProfile))
		assert.True(t, state.HasItinerary())
	})

	t.Run("Reset Keeps Row", func(t *testing.T) {
		resetQuery := "重置"
		_, err := store.Reset(ctx, conversationID, nil, &resetQuery)
		require.NoError(t, err)

		state, err := store.Get(ctx, conversationID)
		require.NoError(t, err, "Reset must not delete the row")
		assert.Nil(t, state.CurrentRevisionID)
		assert.False(t, state.HasItinerary())
		require.NotNil(t, state.LastUserQuery)
		assert.Equal(t, resetQuery, *state.LastUserQuery)
		require.NotNil(t, state.UserID)
		assert.Equal(t, userID, *state.UserID)
	})

	t.Run("Reset Creates Missing Row", func(t *testing.T) {
		id := conversationID + "-fresh"
		_, err := store.Reset(ctx, id, &userID, nil)
		require.NoError(t, err)

		state, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, state.HasItinerary())
	})
}
