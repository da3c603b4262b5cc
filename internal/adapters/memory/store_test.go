package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/tripgate/internal/adapters/memory"
	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEpisodeStore_Contract(t *testing.T) {
	ports.RunEpisodeStoreContract(t, memory.NewEpisodeStore())
}

func TestMemoryStateStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, memory.NewStateStore())
}

func TestMemoryEpisodeStore_Isolation(t *testing.T) {
	store := memory.NewEpisodeStore()
	ctx := context.Background()

	ep := &domain.Episode{ConversationID: "c1", InitialQuery: "去北京", Followups: []string{"5天"}}
	require.NoError(t, store.Save(ctx, "c1", ep))

	ep.Followups[0] = "mutated"
	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"5天"}, loaded.Followups)

	loaded.Followups = append(loaded.Followups, "预算3000")
	again, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, again.Followups, 1)
}
