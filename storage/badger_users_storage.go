package storage

import (
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/doorman-auth/doorman/storage/model"
)

const badgerUsersPrefix = "users:"

// BadgerUsersStorage implements model.UsersStore on an embedded badger
// database. Each user is stored under "users:<username>" as msgpack.
type BadgerUsersStorage struct {
	db     *badger.DB
	path   string
	stop   chan struct{}
	closer sync.Once
}

// NewBadgerUsersStorage opens (or creates) a badger database at path
func NewBadgerUsersStorage(path string) (*BadgerUsersStorage, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, errors.Wrap(err, "could not create badger directory")
	}
	return openBadger(badger.DefaultOptions(path).WithLogger(log.StandardLogger()))
}

func openBadger(opts badger.Options) (*BadgerUsersStorage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "could not open badger database")
	}
	s := &BadgerUsersStorage{
		db:   db,
		path: opts.Dir,
		stop: make(chan struct{}),
	}
	if !opts.InMemory {
		go s.gc()
	}
	return s, nil
}

func (s *BadgerUsersStorage) gc() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			for s.db.RunValueLogGC(0.7) == nil {
			}
		}
	}
}

func badgerUserKey(username string) []byte {
	return []byte(badgerUsersPrefix + username)
}

// FindByUsername returns a user by username
func (s *BadgerUsersStorage) FindByUsername(username string) (*model.UserRecord, error) {
	var u model.UserRecord
	err := s.db.View(
		func(txn *badger.Txn) error {
			item, err := txn.Get(badgerUserKey(username))
			if err != nil {
				return err
			}
			return item.Value(
				func(val []byte) error {
					return msgpack.Unmarshal(val, &u)
				},
			)
		},
	)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, model.NotFoundErrorFmt("user not found: %s", username)
		}
		return nil, errors.WithStack(err)
	}
	return &u, nil
}

// Insert stores a user. Keys are unique per username, so a second user
// with the same name is rejected just like InsertIfAbsent does.
func (s *BadgerUsersStorage) Insert(record model.UserRecord) error {
	return s.InsertIfAbsent(record)
}

// InsertIfAbsent stores a user if the username is not taken. The lookup
// and the write share one transaction; a concurrent writer makes the
// commit fail with badger.ErrConflict, which is reported as a duplicate.
func (s *BadgerUsersStorage) InsertIfAbsent(record model.UserRecord) error {
	data, err := msgpack.Marshal(record)
	if err != nil {
		return errors.WithStack(err)
	}
	key := badgerUserKey(record.Username)
	err = s.db.Update(
		func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				return model.AlreadyExistsErrorFmt("user already exists: %s", record.Username)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			return txn.Set(key, data)
		},
	)
	if errors.Is(err, badger.ErrConflict) {
		return model.AlreadyExistsErrorFmt("user already exists: %s", record.Username)
	}
	return err
}

func (s *BadgerUsersStorage) iterate(do func(u model.UserRecord)) error {
	return s.db.View(
		func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			prefix := []byte(badgerUsersPrefix)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var u model.UserRecord
				if err := it.Item().Value(
					func(v []byte) error {
						return msgpack.Unmarshal(v, &u)
					},
				); err != nil {
					return err
				}
				do(u)
			}
			return nil
		},
	)
}

// List returns all users ordered by username
func (s *BadgerUsersStorage) List() ([]model.UserRecord, error) {
	var users []model.UserRecord
	err := s.iterate(
		func(u model.UserRecord) {
			users = append(users, u)
		},
	)
	return users, errors.WithStack(err)
}

// Count returns the number of stored users
func (s *BadgerUsersStorage) Count() (int64, error) {
	var n int64
	err := s.iterate(func(model.UserRecord) { n++ })
	return n, errors.WithStack(err)
}

// Close stops the value log GC and closes the database
func (s *BadgerUsersStorage) Close() (err error) {
	s.closer.Do(
		func() {
			close(s.stop)
			err = s.db.Close()
		},
	)
	return
}
