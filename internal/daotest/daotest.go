// Package daotest holds the behavioural checks every dao.Store in this
// module must pass. Backend tests call Run with a factory for fresh stores.
package daotest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jbweber/homelab/dao"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Factory opens a fresh, empty store. Every call must return an independent
// store.
type Factory[T any] func() (dao.Store[T], error)

// Run checks the store contract against stores built by newStore, drawing
// entity values from gen.
func Run[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	t.Run("AbsentIdentifiers", func(t *testing.T) { testAbsentIdentifiers(t, newStore) })
	t.Run("AddThenGet", func(t *testing.T) { testAddThenGet(t, newStore, gen) })
	t.Run("DeleteRemoves", func(t *testing.T) { testDeleteRemoves(t, newStore, gen) })
	t.Run("UpdateReplacesOnlyTarget", func(t *testing.T) { testUpdateReplacesOnlyTarget(t, newStore, gen) })
	t.Run("GetAllMatchesGetMap", func(t *testing.T) { testGetAllMatchesGetMap(t, newStore, gen) })
	t.Run("MissingIdentifierMutations", func(t *testing.T) { testMissingIdentifierMutations(t, newStore, gen) })
	t.Run("AddAll", func(t *testing.T) { testAddAll(t, newStore, gen) })
	t.Run("IdentifiersNotReused", func(t *testing.T) { testIdentifiersNotReused(t, newStore, gen) })
	t.Run("ConcurrentAdds", func(t *testing.T) { testConcurrentAdds(t, newStore, gen) })
	t.Run("SoftOperations", func(t *testing.T) { testSoftOperations(t, newStore, gen) })
	t.Run("ClosePolicy", func(t *testing.T) { testClosePolicy(t, newStore, gen) })
}

// Scenario runs the Alice and Bob walkthrough against a fresh string store.
func Scenario(t *testing.T, newStore Factory[string]) {
	ctx := context.Background()
	store := open(t, newStore)
	defer store.Close()

	alice, err := store.Add(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, int32(1), alice)

	bob, err := store.Add(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, int32(2), bob)

	require.NoError(t, store.Delete(ctx, alice))

	exists, err := store.Exists(ctx, alice)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = store.Exists(ctx, bob)
	require.NoError(t, err)
	assert.True(t, exists)

	value, ok, err := store.Get(ctx, bob)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Bob", value)
}

// RawStrings checks that strings which are not valid UTF-8 come back byte
// for byte, through Add, AddAll, Update and GetMap.
func RawStrings(t *testing.T, newStore Factory[string]) {
	ctx := context.Background()
	store := open(t, newStore)
	defer store.Close()

	raw := []string{"a\xffb", "\xc3\x28", "\x00\xfe\xff", ""}

	id, err := store.Add(ctx, raw[0])
	require.NoError(t, err)
	value, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, raw[0], value)

	require.NoError(t, store.Update(ctx, id, raw[1]))
	value, _, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, raw[1], value)

	require.NoError(t, store.AddAll(ctx, raw[2:]))
	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{raw[1], raw[2], raw[3]}, all)

	rapid.Check(t, func(rt *rapid.T) {
		b := rapid.SliceOf(rapid.Byte()).Draw(rt, "bytes")
		id, err := store.Add(ctx, string(b))
		require.NoError(rt, err)
		got, ok, err := store.Get(ctx, id)
		require.NoError(rt, err)
		require.True(rt, ok)
		assert.Equal(rt, string(b), got)
	})
}

type testingT interface {
	require.TestingT
	Helper()
}

func open[T any](t testingT, newStore Factory[T]) dao.Store[T] {
	t.Helper()
	store, err := newStore()
	require.NoError(t, err)
	return store
}

func testAbsentIdentifiers[T any](t *testing.T, newStore Factory[T]) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := open(rt, newStore)
		defer store.Close()

		id := rapid.Int32().Draw(rt, "id")

		exists, err := store.Exists(ctx, id)
		require.NoError(rt, err)
		assert.False(rt, exists)

		_, ok, err := store.Get(ctx, id)
		require.NoError(rt, err)
		assert.False(rt, ok)

		_, ok, err = store.GetMapping(ctx, id)
		require.NoError(rt, err)
		assert.False(rt, ok)
	})
}

func testAddThenGet[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := open(rt, newStore)
		defer store.Close()

		value := gen.Draw(rt, "value")

		id, err := store.Add(ctx, value)
		require.NoError(rt, err)

		exists, err := store.Exists(ctx, id)
		require.NoError(rt, err)
		assert.True(rt, exists)

		got, ok, err := store.Get(ctx, id)
		require.NoError(rt, err)
		require.True(rt, ok)
		assert.Equal(rt, value, got)

		m, ok, err := store.GetMapping(ctx, id)
		require.NoError(rt, err)
		require.True(rt, ok)
		assert.Equal(rt, id, m.ID)
		assert.Equal(rt, value, m.Value)
	})
}

func testDeleteRemoves[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := open(rt, newStore)
		defer store.Close()

		id, err := store.Add(ctx, gen.Draw(rt, "value"))
		require.NoError(rt, err)

		require.NoError(rt, store.Delete(ctx, id))

		exists, err := store.Exists(ctx, id)
		require.NoError(rt, err)
		assert.False(rt, exists)

		_, ok, err := store.Get(ctx, id)
		require.NoError(rt, err)
		assert.False(rt, ok)
	})
}

func testUpdateReplacesOnlyTarget[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := open(rt, newStore)
		defer store.Close()

		values := rapid.SliceOfN(gen, 1, 8).Draw(rt, "values")
		ids := make([]int32, 0, len(values))
		for _, v := range values {
			id, err := store.Add(ctx, v)
			require.NoError(rt, err)
			ids = append(ids, id)
		}

		before, err := store.GetMap(ctx)
		require.NoError(rt, err)

		target := rapid.SampledFrom(ids).Draw(rt, "target")
		replacement := gen.Draw(rt, "replacement")
		require.NoError(rt, store.Update(ctx, target, replacement))

		got, ok, err := store.Get(ctx, target)
		require.NoError(rt, err)
		require.True(rt, ok)
		assert.Equal(rt, replacement, got)

		after, err := store.GetMap(ctx)
		require.NoError(rt, err)
		require.Len(rt, after, len(before))
		for id, v := range before {
			if id == target {
				continue
			}
			assert.Equal(rt, v, after[id], "mapping %d changed", id)
		}
	})
}

func testGetAllMatchesGetMap[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := open(rt, newStore)
		defer store.Close()

		values := rapid.SliceOfN(gen, 0, 10).Draw(rt, "values")
		var ids []int32
		for _, v := range values {
			id, err := store.Add(ctx, v)
			require.NoError(rt, err)
			ids = append(ids, id)
		}

		deleted := 0
		for _, id := range ids {
			if rapid.Bool().Draw(rt, "delete") {
				require.NoError(rt, store.Delete(ctx, id))
				deleted++
			}
		}

		all, err := store.GetAll(ctx)
		require.NoError(rt, err)

		m, err := store.GetMap(ctx)
		require.NoError(rt, err)

		mapped := make([]T, 0, len(m))
		for _, v := range m {
			mapped = append(mapped, v)
		}

		assert.Len(rt, all, len(values)-deleted)
		assert.Len(rt, m, len(values)-deleted)
		assert.ElementsMatch(rt, all, mapped)
	})
}

func testMissingIdentifierMutations[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	ctx := context.Background()
	store := open(t, newStore)
	defer store.Close()

	value := gen.Example(0)

	err := store.Update(ctx, 424242, value)
	require.Error(t, err)
	assert.True(t, dao.IsAccessError(err))
	assert.ErrorIs(t, err, dao.ErrNotFound)

	err = store.Delete(ctx, 424242)
	require.Error(t, err)
	assert.True(t, dao.IsAccessError(err))
	assert.ErrorIs(t, err, dao.ErrNotFound)

	id, err := store.Add(ctx, value)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, id))

	err = store.Delete(ctx, id)
	assert.ErrorIs(t, err, dao.ErrNotFound)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testAddAll[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := open(rt, newStore)
		defer store.Close()

		values := rapid.SliceOfN(gen, 0, 10).Draw(rt, "values")
		require.NoError(rt, store.AddAll(ctx, values))

		all, err := store.GetAll(ctx)
		require.NoError(rt, err)
		assert.ElementsMatch(rt, values, all)
	})

	ctx := context.Background()
	store := open(t, newStore)
	defer store.Close()

	require.NoError(t, store.AddAll(ctx, nil))
	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testIdentifiersNotReused[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	ctx := context.Background()
	store := open(t, newStore)
	defer store.Close()

	seen := make(map[int32]bool)
	for i := 0; i < 5; i++ {
		id, err := store.Add(ctx, gen.Example(i))
		require.NoError(t, err)
		assert.False(t, seen[id], "identifier %d handed out twice", id)
		seen[id] = true
		require.NoError(t, store.Delete(ctx, id))
	}
}

func testConcurrentAdds[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	ctx := context.Background()
	store := open(t, newStore)
	defer store.Close()

	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := make(map[int32]bool)
	errs := make(chan error, workers*perWorker)

	values := make([]T, workers*perWorker)
	for i := range values {
		values[i] = gen.Example(i)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := store.Add(ctx, values[w*perWorker+i])
				if err != nil {
					errs <- err
					continue
				}
				mu.Lock()
				if ids[id] {
					errs <- errors.New("duplicate identifier")
				}
				ids[id] = true
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, ids, workers*perWorker)

	m, err := store.GetMap(ctx)
	require.NoError(t, err)
	assert.Len(t, m, workers*perWorker)
}

func testSoftOperations[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	ctx := context.Background()
	d := dao.New(open(t, newStore))
	defer d.Close()

	value := gen.Example(0)

	assert.False(t, d.UpdateValue(ctx, 777, value))
	assert.False(t, d.DeleteValue(ctx, 777))
	assert.True(t, d.AddValue(ctx, value))

	m, err := d.GetMap(ctx)
	require.NoError(t, err)
	require.Len(t, m, 1)

	var id int32
	for k := range m {
		id = k
	}
	assert.True(t, d.UpdateValue(ctx, id, gen.Example(1)))
	assert.True(t, d.DeleteValue(ctx, id))
	assert.False(t, d.DeleteValue(ctx, id))
}

// testClosePolicy checks the policy shared by every store in this module:
// Close is idempotent and every later operation fails with dao.ErrClosed.
func testClosePolicy[T any](t *testing.T, newStore Factory[T], gen *rapid.Generator[T]) {
	ctx := context.Background()
	store := open(t, newStore)
	value := gen.Example(0)

	id, err := store.Add(ctx, value)
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	closed := func(op string, err error) {
		t.Helper()
		require.Error(t, err, op)
		assert.True(t, dao.IsAccessError(err), op)
		assert.ErrorIs(t, err, dao.ErrClosed, op)
	}

	_, err = store.Exists(ctx, id)
	closed("exists", err)
	_, _, err = store.Get(ctx, id)
	closed("get", err)
	_, _, err = store.GetMapping(ctx, id)
	closed("get mapping", err)
	_, err = store.GetAll(ctx)
	closed("get all", err)
	_, err = store.GetMap(ctx)
	closed("get map", err)
	closed("update", store.Update(ctx, id, value))
	_, err = store.Add(ctx, value)
	closed("add", err)
	closed("add all", store.AddAll(ctx, []T{value}))
	closed("delete", store.Delete(ctx, id))

	d := dao.New(store)
	assert.False(t, d.UpdateValue(ctx, id, value))
	assert.False(t, d.AddValue(ctx, value))
	assert.False(t, d.DeleteValue(ctx, id))
}
