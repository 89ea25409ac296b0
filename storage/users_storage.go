package storage

import (
	"os"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/doorman-auth/doorman/storage/model"
)

// GormUsersStorage implements model.UsersStore using GORM
type GormUsersStorage struct {
	db *gorm.DB
}

// NewGormUsersStorage connects to the configured database and migrates the
// users table
func NewGormUsersStorage(cfg Config) (*GormUsersStorage, error) {
	if (cfg.Driver == DriverSQLite || cfg.Driver == "") && cfg.DSN == "" && cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, errors.Wrap(err, "could not create storage directory")
		}
	}
	db, err := Connect(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return NewGormUsersStorageFromDB(db)
}

// NewGormUsersStorageFromDB wraps an existing gorm connection
func NewGormUsersStorageFromDB(db *gorm.DB) (*GormUsersStorage, error) {
	if err := db.AutoMigrate(&model.UserRecord{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return &GormUsersStorage{db: db}, nil
}

// Count returns the number of users present in the store
func (s *GormUsersStorage) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&model.UserRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// List returns all users ordered by id
func (s *GormUsersStorage) List() ([]model.UserRecord, error) {
	var users []model.UserRecord
	if err := s.db.Model(&model.UserRecord{}).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FindByUsername returns a user by username
func (s *GormUsersStorage) FindByUsername(username string) (*model.UserRecord, error) {
	var u model.UserRecord
	if err := s.db.Where("username = ?", username).Order("id").First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundErrorFmt("user not found: %s", username)
		}
		return nil, err
	}
	return &u, nil
}

// Insert creates a user; the unique index on username rejects duplicates
func (s *GormUsersStorage) Insert(record model.UserRecord) error {
	record.ID = 0
	return s.create(s.db, record)
}

func (*GormUsersStorage) create(tx *gorm.DB, record model.UserRecord) error {
	if err := tx.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.AlreadyExistsErrorFmt("user already exists: %s", record.Username)
		}
		return err
	}
	return nil
}

// InsertIfAbsent creates a user if the username is not taken
func (s *GormUsersStorage) InsertIfAbsent(record model.UserRecord) error {
	record.ID = 0
	return s.db.Transaction(
		func(tx *gorm.DB) error {
			var existing int64
			if err := tx.Model(&model.UserRecord{}).Where(
				"username = ?", record.Username,
			).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return model.AlreadyExistsErrorFmt("user already exists: %s", record.Username)
			}
			return s.create(tx, record)
		},
	)
}

// Close closes the underlying database connection
func (s *GormUsersStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
