package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorman-auth/doorman/storage/model"
)

// testUsersStore exercises the behaviour shared by all model.UsersStore
// implementations. The store must be empty.
func testUsersStore(t *testing.T, store model.UsersStore) {
	t.Helper()

	n, err := store.Count()
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = store.FindByUsername("alice")
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))

	alice := model.UserRecord{
		Username:       "alice",
		HashedPassword: "$2b$12$abcdefghijklmnopqrstuu",
	}
	require.NoError(t, store.InsertIfAbsent(alice))

	got, err := store.FindByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.Username, got.Username)
	assert.Equal(t, alice.HashedPassword, got.HashedPassword)

	err = store.InsertIfAbsent(
		model.UserRecord{
			Username:       "alice",
			HashedPassword: "other",
		},
	)
	require.Error(t, err)
	assert.True(t, model.IsAlreadyExists(err))

	got, err = store.FindByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.HashedPassword, got.HashedPassword)

	// usernames are case sensitive
	_, err = store.FindByUsername("Alice")
	assert.True(t, model.IsNotFound(err))

	require.NoError(t, store.InsertIfAbsent(model.UserRecord{Username: "bob", HashedPassword: "h"}))
	n, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	names, err := Usernames(store)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)

	t.Run(
		"concurrent InsertIfAbsent", func(t *testing.T) {
			const workers = 8
			var wg sync.WaitGroup
			results := make(chan error, workers)
			for i := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results <- store.InsertIfAbsent(
						model.UserRecord{
							Username:       "carol",
							HashedPassword: fmt.Sprintf("h%d", i),
						},
					)
				}()
			}
			wg.Wait()
			close(results)

			var ok int
			for err := range results {
				if err == nil {
					ok++
					continue
				}
				assert.True(t, model.IsAlreadyExists(err), "unexpected error: %v", err)
			}
			assert.Equal(t, 1, ok)

			n, err := store.Count()
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)
		},
	)
}
