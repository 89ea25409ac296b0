package storage

import (
	"os"
	"testing"
)

func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}
}

// TestSQLiteUsersStore runs the users store checks against a SQLite database
func TestSQLiteUsersStore(t *testing.T) {
	skipUnlessIntegration(t)

	store, err := NewGormUsersStorage(
		Config{
			Driver:  DriverSQLite,
			DataDir: t.TempDir(),
		},
	)
	if err != nil {
		t.Fatalf("Failed to create SQLite users store: %v", err)
	}
	defer store.Close()

	testUsersStore(t, store)
}

// TestMySQLUsersStore runs the users store checks against a MySQL database
func TestMySQLUsersStore(t *testing.T) {
	skipUnlessIntegration(t)

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("Skipping MySQL test. Set MYSQL_DSN environment variable")
	}

	store, err := NewGormUsersStorage(
		Config{
			Driver: DriverMySQL,
			DSN:    dsn,
		},
	)
	if err != nil {
		t.Fatalf("Failed to create MySQL users store: %v", err)
	}
	defer store.Close()
	if err = store.db.Exec("DELETE FROM users").Error; err != nil {
		t.Fatalf("Failed to clear users table: %v", err)
	}

	testUsersStore(t, store)
}

// TestPostgresUsersStore runs the users store checks against a PostgreSQL database
func TestPostgresUsersStore(t *testing.T) {
	skipUnlessIntegration(t)

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping PostgreSQL test. Set POSTGRES_DSN environment variable")
	}

	store, err := NewGormUsersStorage(
		Config{
			Driver: DriverPostgres,
			DSN:    dsn,
		},
	)
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL users store: %v", err)
	}
	defer store.Close()
	if err = store.db.Exec("DELETE FROM users").Error; err != nil {
		t.Fatalf("Failed to clear users table: %v", err)
	}

	testUsersStore(t, store)
}

// TestRedisUsersStore runs the users store checks against a redis server
func TestRedisUsersStore(t *testing.T) {
	skipUnlessIntegration(t)

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping redis test. Set REDIS_ADDR environment variable")
	}

	store, err := NewRedisUsersStorage(
		RedisConf{
			Addr:      addr,
			KeyPrefix: "doorman-test:",
		},
	)
	if err != nil {
		t.Fatalf("Failed to create redis users store: %v", err)
	}
	defer store.Close()
	if err = store.client.Del(t.Context(), store.key).Err(); err != nil {
		t.Fatalf("Failed to clear users hash: %v", err)
	}

	testUsersStore(t, store)
}
