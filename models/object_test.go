package models

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestObjectPoolAcquire(t *testing.T) {
	t.Run("creates objects when empty", func(t *testing.T) {
		pool := NewObjectPool(t.Name(), 0)
		parent := Transform{Position: mgl32.Vec3{1, 2, 3}}

		a, err := pool.Acquire(parent)
		require.NoError(t, err)
		b, err := pool.Acquire(parent)
		require.NoError(t, err)

		require.NotEqual(t, a.ID, b.ID)
		require.True(t, a.Active)
		require.Equal(t, parent, a.Parent)
		require.Equal(t, PoolStats{Active: 2, Free: 0, Created: 2}, pool.Stats())
	})

	t.Run("reuses released objects with cleared geometry", func(t *testing.T) {
		pool := NewObjectPool(t.Name(), 0)

		a, err := pool.Acquire(Transform{})
		require.NoError(t, err)
		a.Mesh.Set([]mgl32.Vec3{{1, 1, 1}}, []uint32{0, 0, 0})

		pool.Release(a)
		require.False(t, a.Active)
		require.Equal(t, PoolStats{Active: 0, Free: 1, Created: 1}, pool.Stats())

		b, err := pool.Acquire(Transform{})
		require.NoError(t, err)
		require.Same(t, a, b)
		require.True(t, b.Mesh.Empty())
		require.Equal(t, PoolStats{Active: 1, Free: 0, Created: 1}, pool.Stats())
	})

	t.Run("capacity", func(t *testing.T) {
		pool := NewObjectPool(t.Name(), 1)

		a, err := pool.Acquire(Transform{})
		require.NoError(t, err)

		_, err = pool.Acquire(Transform{})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypePoolExhausted))

		pool.Release(a)
		_, err = pool.Acquire(Transform{})
		require.NoError(t, err)
	})
}

func TestObjectPoolRelease(t *testing.T) {
	pool := NewObjectPool(t.Name(), 0)

	t.Run("nil is a no-op", func(t *testing.T) {
		pool.Release(nil)
		require.Equal(t, PoolStats{}, pool.Stats())
	})

	t.Run("double release is a no-op", func(t *testing.T) {
		a, err := pool.Acquire(Transform{})
		require.NoError(t, err)

		pool.Release(a)
		pool.Release(a)
		require.Equal(t, PoolStats{Active: 0, Free: 1, Created: 1}, pool.Stats())
	})
}
