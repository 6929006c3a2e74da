package cache

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/researchflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCache_RoundTrip(t *testing.T) {
	_, manager := setupTestRedis(t)
	c := NewSearchCache(manager, time.Hour)
	ctx := context.Background()

	f := types.NewFragment(types.FragmentWeb, "grid storage", "battery prices fell", "https://a.io")
	f.VectorScore = &types.Score{Kind: types.ScoreVector, Value: 0.42}
	require.NoError(t, c.SetFragments(ctx, "search:web:grid storage:5", []types.Fragment{f}))

	got, ok, err := c.GetFragments(ctx, "search:web:grid storage:5")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, f.ID, got[0].ID)
	assert.Equal(t, f.Content, got[0].Content)
	assert.Equal(t, f.Source, got[0].Source)
	require.NotNil(t, got[0].VectorScore)
	assert.InDelta(t, 0.42, got[0].VectorScore.Value, 1e-9)
}

func TestSearchCache_Miss(t *testing.T) {
	_, manager := setupTestRedis(t)
	got, ok, err := NewSearchCache(manager, 0).GetFragments(context.Background(), "nothing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSearchCache_EmptyResultIsAHit(t *testing.T) {
	_, manager := setupTestRedis(t)
	c := NewSearchCache(manager, 0)
	ctx := context.Background()

	require.NoError(t, c.SetFragments(ctx, "empty", nil))
	got, ok, err := c.GetFragments(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSearchCache_Expiry(t *testing.T) {
	mr, manager := setupTestRedis(t)
	c := NewSearchCache(manager, time.Second)
	ctx := context.Background()

	require.NoError(t, c.SetFragments(ctx, "k", []types.Fragment{types.NewFragment(types.FragmentFile, "q", "c", "s")}))
	mr.FastForward(2 * time.Second)

	_, ok, err := c.GetFragments(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchCache_Corrupt(t *testing.T) {
	mr, manager := setupTestRedis(t)
	require.NoError(t, mr.Set("researchflow:bad", "{"))

	_, ok, err := NewSearchCache(manager, 0).GetFragments(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}
