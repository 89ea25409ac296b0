package config

import (
	"slices"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/doorman-auth/doorman/storage"
	"github.com/doorman-auth/doorman/storage/model"
)

type storageConf struct {
	Backend         storage.BackendType `yaml:"backend"`
	Driver          storage.DriverType  `yaml:"driver"`
	DataDir         string              `yaml:"data_dir"`
	File            string              `yaml:"file"`
	DSN             string              `yaml:"dsn"`
	storage.DSNConf `yaml:",inline"`
	Debug           bool              `yaml:"debug"`
	Redis           storage.RedisConf `yaml:"redis"`
}

var supportedBackends = []storage.BackendType{
	storage.BackendJSON,
	storage.BackendGorm,
	storage.BackendBadger,
	storage.BackendRedis,
}

func (c *storageConf) validate() error {
	if !slices.Contains(supportedBackends, c.Backend) {
		return errors.Errorf("unsupported backend '%s'", c.Backend)
	}
	switch c.Backend {
	case storage.BackendJSON, storage.BackendBadger:
		if c.DataDir == "" {
			return errors.New("data_dir must be specified")
		}
	case storage.BackendGorm:
		if !slices.Contains(storage.SupportedDrivers, c.Driver) {
			return errors.Errorf("unsupported driver '%s'", c.Driver)
		}
		if c.Driver == storage.DriverSQLite {
			if c.DataDir == "" && c.DSN == "" {
				return errors.New("data_dir must be specified")
			}
			return nil
		}
		if c.DSN == "" {
			var err error
			c.DSN, err = storage.DSN(c.Driver, c.DSNConf)
			return err
		}
	case storage.BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr must be specified")
		}
	}
	return nil
}

var defaultStorageConf = storageConf{
	Backend: storage.BackendJSON,
	Driver:  storage.DriverSQLite,
	DataDir: storage.DefaultDataDir,
	File:    storage.DefaultUsersFile,
	DSNConf: storage.DSNConf{
		User: "doorman",
		Host: "localhost",
		DB:   "doorman",
	},
}

// StorageConfig converts the storage section into a storage.Config
func (c storageConf) StorageConfig() storage.Config {
	return storage.Config{
		Backend: c.Backend,
		DataDir: c.DataDir,
		File:    c.File,
		Driver:  c.Driver,
		DSN:     c.DSN,
		Debug:   c.Debug,
		Redis:   c.Redis,
	}
}

// LoadUsersStore opens the users store for the passed storage section
func LoadUsersStore(c storageConf) (model.UsersStore, error) {
	store, err := storage.LoadUsersStore(c.StorageConfig())
	if err != nil {
		return nil, err
	}
	log.WithField("backend", c.Backend).Info("Loaded users store")
	return store, nil
}
