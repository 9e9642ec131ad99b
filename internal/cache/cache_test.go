package cache

import (
	"testing"

	"github.com/dekarrin/vorth/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func Test_LookupEffect_MissReturnsFalse(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.LookupEffect("nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_StoreEffect_ThenLookupEffect_RoundTrips(t *testing.T) {
	s := openTestStore(t)

	eff := types.StackEffect{
		Inputs:  []types.Type{types.Int(), types.Int()},
		Outputs: []types.Type{types.Int()},
	}
	require.NoError(t, s.StoreEffect("abc123", eff))

	got, ok, err := s.LookupEffect("abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, eff, got)
}

func Test_StoreEffect_Overwrites(t *testing.T) {
	s := openTestStore(t)

	first := types.StackEffect{Inputs: []types.Type{types.Int()}}
	second := types.StackEffect{Inputs: []types.Type{types.Bool()}}

	require.NoError(t, s.StoreEffect("key", first))
	require.NoError(t, s.StoreEffect("key", second))

	got, ok, err := s.LookupEffect("key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func Test_RecordFusionHit_AccumulatesAndOrders(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordFusionHit(1, 2, 100))
	require.NoError(t, s.RecordFusionHit(1, 2, 100))
	require.NoError(t, s.RecordFusionHit(3, 4, 200))

	top, err := s.TopFusionPatterns(10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, [3]int{1, 2, 100}, top[0], "most-hit pattern should sort first")
}
