package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorman-auth/doorman/storage/model"
)

func TestJSONFileStorage(t *testing.T) {
	store, err := NewJSONFileStorage(filepath.Join(t.TempDir(), "db", "users.json"))
	require.NoError(t, err)
	testUsersStore(t, store)
}

func TestNewJSONFileStorage_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db", "users.json")
	store, err := NewJSONFileStorage(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_default":{}}`, string(data))
}

func TestJSONFileStorage_ExistingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	doc := `{"_default": {
		"1": {"username": "alice", "hashed_password": "first"},
		"3": {"username": "bob", "hashed_password": "bob"},
		"2": {"username": "alice", "hashed_password": "second"}
	}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	store, err := NewJSONFileStorage(path)
	require.NoError(t, err)

	u, err := store.FindByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "first", u.HashedPassword)

	users, err := store.List()
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "second", users[1].HashedPassword)
	assert.Equal(t, "bob", users[2].Username)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, store.InsertIfAbsent(model.UserRecord{Username: "carol", HashedPassword: "c"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var written map[string]map[string]map[string]string
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(
		t, map[string]string{
			"username":        "carol",
			"hashed_password": "c",
		}, written["_default"]["4"],
	)
}

func TestJSONFileStorage_InsertAllowsDuplicates(t *testing.T) {
	store, err := NewJSONFileStorage(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	require.NoError(t, store.Insert(model.UserRecord{Username: "alice", HashedPassword: "a"}))
	require.NoError(t, store.Insert(model.UserRecord{Username: "alice", HashedPassword: "b"}))

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	u, err := store.FindByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "a", u.HashedPassword)
}

func TestJSONFileStorage_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	store, err := NewJSONFileStorage(path)
	require.NoError(t, err)

	_, err = store.FindByUsername("alice")
	assert.True(t, model.IsNotFound(err))
	require.NoError(t, store.InsertIfAbsent(model.UserRecord{Username: "alice", HashedPassword: "a"}))

	u, err := store.FindByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "a", u.HashedPassword)
}

func TestJSONFileStorage_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"_default": [`), 0o600))

	store, err := NewJSONFileStorage(path)
	require.NoError(t, err)

	_, err = store.FindByUsername("alice")
	require.Error(t, err)
	assert.False(t, model.IsNotFound(err))
}

func TestLoadUsersStore(t *testing.T) {
	dir := t.TempDir()
	store, err := LoadUsersStore(Config{DataDir: dir})
	require.NoError(t, err)
	defer store.Close()
	require.IsType(t, &JSONFileStorage{}, store)
	assert.Equal(t, filepath.Join(dir, DefaultUsersFile), store.(*JSONFileStorage).Path())

	_, err = LoadUsersStore(Config{Backend: "nosql"})
	assert.Error(t, err)
}
