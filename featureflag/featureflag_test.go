package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureFlag(t *testing.T) {
	f := New([]string{"disable_split_pass", " DISABLE_MERGE_PASS ", ""})

	t.Run("names are normalized", func(t *testing.T) {
		require.True(t, f.IsSet(FlagDisableSplitPass))
		require.True(t, f.IsSet(FlagDisableMergePass))
		require.False(t, f.IsSet(FlagDisableMeshGeneration))
		require.Equal(t, []string{
			string(FlagDisableMergePass),
			string(FlagDisableSplitPass),
		}, f.List())
	})

	t.Run("run if enabled", func(t *testing.T) {
		var split bool
		f.IfSet(FlagDisableSplitPass, func() {
			split = true
		})
		require.True(t, split)

		var mesh bool
		f.IfSet(FlagDisableMeshGeneration, func() {
			mesh = true
		})
		require.False(t, mesh)
	})

	t.Run("run if disabled", func(t *testing.T) {
		var split bool
		f.IfNotSet(FlagDisableSplitPass, func() {
			split = true
		})
		require.False(t, split)

		var mesh bool
		f.IfNotSet(FlagDisableMeshGeneration, func() {
			mesh = true
		})
		require.True(t, mesh)
	})

	t.Run("empty", func(t *testing.T) {
		require.Empty(t, New(nil).List())
	})
}
