package storage

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/doorman-auth/doorman/storage/model"
)

// RedisUsersStorage implements model.UsersStore on a single redis hash
// that maps usernames to msgpack encoded records.
type RedisUsersStorage struct {
	client redis.UniversalClient
	key    string
}

// NewRedisUsersStorage connects to redis and pings the server
func NewRedisUsersStorage(conf RedisConf) (*RedisUsersStorage, error) {
	addr := conf.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(
		&redis.Options{
			Addr:     addr,
			Username: conf.Username,
			Password: conf.Password,
			DB:       conf.DB,
		},
	)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "could not connect to redis")
	}
	return NewRedisUsersStorageFromClient(client, conf.KeyPrefix), nil
}

// NewRedisUsersStorageFromClient uses an existing redis client
func NewRedisUsersStorageFromClient(client redis.UniversalClient, keyPrefix string) *RedisUsersStorage {
	return &RedisUsersStorage{
		client: client,
		key:    keyPrefix + "users",
	}
}

// FindByUsername returns a user by username
func (s *RedisUsersStorage) FindByUsername(username string) (*model.UserRecord, error) {
	data, err := s.client.HGet(context.Background(), s.key, username).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.NotFoundErrorFmt("user not found: %s", username)
		}
		return nil, errors.WithStack(err)
	}
	var u model.UserRecord
	if err = msgpack.Unmarshal(data, &u); err != nil {
		return nil, errors.WithStack(err)
	}
	return &u, nil
}

// Insert stores a user; the hash field is unique per username
func (s *RedisUsersStorage) Insert(record model.UserRecord) error {
	return s.InsertIfAbsent(record)
}

// InsertIfAbsent stores a user with HSETNX
func (s *RedisUsersStorage) InsertIfAbsent(record model.UserRecord) error {
	data, err := msgpack.Marshal(record)
	if err != nil {
		return errors.WithStack(err)
	}
	ok, err := s.client.HSetNX(context.Background(), s.key, record.Username, data).Result()
	if err != nil {
		return errors.WithStack(err)
	}
	if !ok {
		return model.AlreadyExistsErrorFmt("user already exists: %s", record.Username)
	}
	return nil
}

// List returns all stored users
func (s *RedisUsersStorage) List() ([]model.UserRecord, error) {
	all, err := s.client.HGetAll(context.Background(), s.key).Result()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	users := make([]model.UserRecord, 0, len(all))
	for _, v := range all {
		var u model.UserRecord
		if err = msgpack.Unmarshal([]byte(v), &u); err != nil {
			return nil, errors.WithStack(err)
		}
		users = append(users, u)
	}
	sortByUsername(users)
	return users, nil
}

// Count returns the number of stored users
func (s *RedisUsersStorage) Count() (int64, error) {
	n, err := s.client.HLen(context.Background(), s.key).Result()
	return n, errors.WithStack(err)
}

// Close closes the redis client
func (s *RedisUsersStorage) Close() error {
	return s.client.Close()
}
