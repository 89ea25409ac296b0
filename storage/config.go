package storage

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doorman-auth/doorman/storage/model"
)

// BackendType selects the UsersStore implementation
type BackendType string

const (
	// BackendJSON stores users in a single JSON document file
	BackendJSON BackendType = "json"
	// BackendGorm stores users in a SQL database through GORM
	BackendGorm BackendType = "gorm"
	// BackendBadger stores users in an embedded badger database
	BackendBadger BackendType = "badger"
	// BackendRedis stores users in a redis hash
	BackendRedis BackendType = "redis"
)

// DriverType represents the type of database driver
type DriverType string

const (
	// DriverSQLite is the SQLite driver
	DriverSQLite DriverType = "sqlite"
	// DriverMySQL is the MySQL driver
	DriverMySQL DriverType = "mysql"
	// DriverPostgres is the PostgreSQL driver
	DriverPostgres DriverType = "postgres"
)

// SupportedDrivers lists the DriverTypes usable with BackendGorm
var SupportedDrivers = []DriverType{
	DriverSQLite,
	DriverMySQL,
	DriverPostgres,
}

// DefaultDataDir and DefaultUsersFile locate the JSON users document
const (
	DefaultDataDir   = "db"
	DefaultUsersFile = "users.json"
)

// DSN creates and returns a dsn connection string for the passed DriverType and DSNConf
func DSN(driver DriverType, conf DSNConf) (string, error) {
	switch driver {
	case DriverSQLite:
		return "", errors.Errorf("driver %s does not use dsn", driver)
	case DriverMySQL:
		if conf.Port == 0 {
			conf.Port = 3306
		}
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True", conf.User, conf.Password, conf.Host, conf.Port,
			conf.DB,
		), nil
	case DriverPostgres:
		if conf.Port == 0 {
			conf.Port = 5432
		}
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d",
			conf.Host, conf.User, conf.Password, conf.DB, conf.Port,
		), nil
	default:
		return "", errors.Errorf("unsupported driver '%s'", driver)
	}
}

// DSNConf provides configuration options for database connection strings.
// It contains common connection parameters used across different database drivers
// including MySQL and PostgreSQL.
type DSNConf struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"db"`
}

// RedisConf holds the connection options of the redis backend
type RedisConf struct {
	Addr      string `yaml:"addr"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Config represents the storage configuration
type Config struct {
	// Backend selects the store implementation; defaults to BackendJSON
	Backend BackendType
	// DataDir is the directory for file based backends (json, badger, sqlite)
	DataDir string
	// File is the name of the JSON users document inside DataDir
	File string
	// Driver is the database driver type for BackendGorm
	Driver DriverType
	// DSN is the data source name (connection string)
	// For SQLite, this is the database file path
	DSN string
	// Debug enables gorm debug logging
	Debug bool
	// Redis configures BackendRedis
	Redis RedisConf
}

// Connect establishes a gorm connection to the database based on the configuration
func Connect(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case DriverSQLite, "":
		// If DSN is not provided, use the default database file in DataDir
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.DataDir, "doorman.db")
		}
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logMode := logger.Silent
	if cfg.Debug {
		logMode = logger.Info
	}

	return gorm.Open(
		dialector, &gorm.Config{
			Logger:         logger.Default.LogMode(logMode),
			TranslateError: true,
		},
	)
}

// LoadUsersStore opens the UsersStore selected by cfg.Backend
func LoadUsersStore(cfg Config) (model.UsersStore, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	switch cfg.Backend {
	case BackendJSON, "":
		file := cfg.File
		if file == "" {
			file = DefaultUsersFile
		}
		return NewJSONFileStorage(filepath.Join(dataDir, file))
	case BackendGorm:
		cfg.DataDir = dataDir
		return NewGormUsersStorage(cfg)
	case BackendBadger:
		return NewBadgerUsersStorage(filepath.Join(dataDir, "badger"))
	case BackendRedis:
		return NewRedisUsersStorage(cfg.Redis)
	default:
		return nil, errors.Errorf("unsupported storage backend '%s'", cfg.Backend)
	}
}
