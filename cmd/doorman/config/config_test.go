package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/structs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorman-auth/doorman/credentials"
	"github.com/doorman-auth/doorman/storage"
)

func TestParse_Defaults(t *testing.T) {
	c, err := parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 8000, c.Server.Port)
	assert.Equal(t, storage.BackendJSON, c.Storage.Backend)
	assert.Equal(t, "db", c.Storage.DataDir)
	assert.Equal(t, "users.json", c.Storage.File)
	assert.Equal(t, credentials.AlgorithmBcrypt, c.Hashing.Algorithm)
	assert.Equal(t, credentials.DefaultBcryptCost, c.Hashing.BcryptCost)
	assert.Equal(t, "INFO", c.Logging.Internal.Level)
	assert.Empty(t, c.Templates.Dir)
}

func TestParse_Overrides(t *testing.T) {
	data := []byte(`
server:
  port: 9090
  timeouts:
    read: 5s
storage:
  backend: gorm
  driver: postgres
  host: db.example.org
  password: secret
hashing:
  algorithm: argon2id
  argon2id:
    time: 2
logging:
  internal:
    level: debug
`)
	c, err := parse(data)
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 5*time.Second, c.Server.Timeouts.Read.Duration())
	assert.Equal(t, storage.BackendGorm, c.Storage.Backend)
	assert.Equal(
		t, "host=db.example.org user=doorman password=secret dbname=doorman port=5432", c.Storage.DSN,
	)
	assert.Equal(t, credentials.AlgorithmArgon2id, c.Hashing.Algorithm)
	assert.Equal(t, uint32(2), c.Hashing.Argon2id.Time)
	// not overridden values keep their defaults
	assert.Equal(t, credentials.DefaultArgon2idParams().MemoryKiB, c.Hashing.Argon2id.MemoryKiB)
	assert.Equal(t, "debug", c.Logging.Internal.Level)

	sc := c.Storage.StorageConfig()
	assert.Equal(t, storage.DriverPostgres, sc.Driver)
	assert.Equal(t, c.Storage.DSN, sc.DSN)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"yaml":          "server: [",
		"port":          "server:\n  port: 70000",
		"backend":       "storage:\n  backend: nosql",
		"driver":        "storage:\n  backend: gorm\n  driver: oracle",
		"redis":         "storage:\n  backend: redis",
		"data_dir":      "storage:\n  data_dir: ''",
		"algorithm":     "hashing:\n  algorithm: md5",
		"bcrypt cost":   "hashing:\n  bcrypt_cost: 99",
		"tls":           "server:\n  tls:\n    enabled: true",
		"templates dir": "templates:\n  dir: /does/not/exist",
		"logging dir":   "logging:\n  access:\n    dir: /does/not/exist",
	}
	for name, data := range tests {
		t.Run(
			name, func(t *testing.T) {
				_, err := parse([]byte(data))
				assert.Error(t, err)
			},
		)
	}
}

func TestUnknownKeys(t *testing.T) {
	raw := map[string]any{
		"server": map[string]any{
			"port": 1,
			"prot": 2,
			"tls": map[string]any{
				"enabled": false,
				"cret":    "x",
			},
		},
		"storage": map[string]any{
			"backend": "json",
			"host":    "inlined",
		},
		"logging": map[string]any{
			"internal": map[string]any{
				"dir":   "inlined",
				"level": "INFO",
			},
		},
		"federation": map[string]any{},
	}
	c := defaultConfig()
	unknown := unknownKeys(raw, structs.New(&c).Fields(), "")
	assert.Equal(t, []string{"federation", "server.prot", "server.tls.cret"}, unknown)
}

func TestLoad(t *testing.T) {
	defer func() { conf = nil }()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8123\n"), 0o600))

	require.NoError(t, Load(path))
	assert.Equal(t, 8123, Get().Server.Port)

	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestLoad_EnvVar(t *testing.T) {
	defer func() { conf = nil }()

	path := filepath.Join(t.TempDir(), "doorman.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8124\n"), 0o600))
	t.Setenv(EnvVar, path)

	require.NoError(t, Load(""))
	assert.Equal(t, 8124, Get().Server.Port)
}

func TestGet_BeforeLoad(t *testing.T) {
	conf = nil
	assert.Equal(t, 8000, Get().Server.Port)
}

func TestStorageConf_Validate(t *testing.T) {
	for _, backend := range supportedBackends {
		t.Run(
			string(backend), func(t *testing.T) {
				c := defaultStorageConf
				c.Backend = backend
				c.Redis.Addr = "localhost:6379"
				assert.NoError(t, c.validate())
			},
		)
	}
	for _, driver := range storage.SupportedDrivers {
		t.Run(
			"gorm "+string(driver), func(t *testing.T) {
				c := defaultStorageConf
				c.Backend = storage.BackendGorm
				c.Driver = driver
				assert.NoError(t, c.validate())
			},
		)
	}

	c := defaultStorageConf
	c.Backend = storage.BackendGorm
	c.Driver = "oracle"
	assert.Error(t, c.validate())

	c = defaultStorageConf
	c.Backend = "nosql"
	assert.Error(t, c.validate())
}
