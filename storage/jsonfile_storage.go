package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/doorman-auth/doorman/storage/model"
)

// defaultTable is the table name used for user documents; it is the default
// table of TinyDB files, so existing user files can be used as they are
const defaultTable = "_default"

// jsonDocument is the on-disk layout: table name -> document id -> document
type jsonDocument map[string]map[string]json.RawMessage

type jsonRecord struct {
	id     int
	record model.UserRecord
}

// JSONFileStorage is a model.UsersStore that keeps all users in a single JSON
// file. The file is read on every operation and rewritten on every insert.
type JSONFileStorage struct {
	path  string
	table string
	mutex sync.RWMutex
}

// NewJSONFileStorage creates a JSONFileStorage at the given path; the parent
// directory and an empty document are created if they do not exist
func NewJSONFileStorage(path string) (*JSONFileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "could not create storage directory")
	}
	s := &JSONFileStorage{
		path:  path,
		table: defaultTable,
	}
	if !fileutils.FileExists(path) {
		if err := s.writeUnlocked(jsonDocument{s.table: {}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the path of the backing file
func (s *JSONFileStorage) Path() string {
	return s.path
}

func (s *JSONFileStorage) readUnlocked() (jsonDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return jsonDocument{}, nil
		}
		return nil, errors.WithStack(err)
	}
	doc := jsonDocument{}
	if len(data) == 0 {
		return doc, nil
	}
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "could not parse '%s'", s.path)
	}
	return doc, nil
}

func (s *JSONFileStorage) writeUnlocked(doc jsonDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.WithStack(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.json")
	if err != nil {
		return errors.WithStack(err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WithStack(err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmpName, s.path))
}

// records returns the user documents ordered by document id
func (s *JSONFileStorage) records(doc jsonDocument) ([]jsonRecord, error) {
	table := doc[s.table]
	out := make([]jsonRecord, 0, len(table))
	for k, raw := range table {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Errorf("invalid document id '%s' in '%s'", k, s.path)
		}
		var r model.UserRecord
		if err = json.Unmarshal(raw, &r); err != nil {
			return nil, errors.Wrapf(err, "invalid document %d in '%s'", id, s.path)
		}
		out = append(out, jsonRecord{id: id, record: r})
	}
	slices.SortFunc(
		out, func(a, b jsonRecord) int {
			return a.id - b.id
		},
	)
	return out, nil
}

func (s *JSONFileStorage) insertUnlocked(doc jsonDocument, records []jsonRecord, record model.UserRecord) error {
	next := 1
	if len(records) > 0 {
		next = records[len(records)-1].id + 1
	}
	data, err := json.Marshal(record)
	if err != nil {
		return errors.WithStack(err)
	}
	table, ok := doc[s.table]
	if !ok || table == nil {
		table = make(map[string]json.RawMessage)
		doc[s.table] = table
	}
	table[strconv.Itoa(next)] = data
	return s.writeUnlocked(doc)
}

func (s *JSONFileStorage) load() (jsonDocument, []jsonRecord, error) {
	doc, err := s.readUnlocked()
	if err != nil {
		return nil, nil, err
	}
	records, err := s.records(doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, records, nil
}

// FindByUsername implements the model.UsersStore interface.
// If several documents share the username the one with the lowest id is
// returned.
func (s *JSONFileStorage) FindByUsername(username string) (*model.UserRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, records, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.record.Username == username {
			u := r.record
			return &u, nil
		}
	}
	return nil, model.NotFoundErrorFmt("user not found: %s", username)
}

// Insert implements the model.UsersStore interface; it does not check for
// duplicates
func (s *JSONFileStorage) Insert(record model.UserRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	doc, records, err := s.load()
	if err != nil {
		return err
	}
	return s.insertUnlocked(doc, records, record)
}

// InsertIfAbsent implements the model.UsersStore interface
func (s *JSONFileStorage) InsertIfAbsent(record model.UserRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	doc, records, err := s.load()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.record.Username == record.Username {
			return model.AlreadyExistsErrorFmt("user already exists: %s", record.Username)
		}
	}
	return s.insertUnlocked(doc, records, record)
}

// List implements the model.UsersStore interface
func (s *JSONFileStorage) List() ([]model.UserRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, records, err := s.load()
	if err != nil {
		return nil, err
	}
	users := make([]model.UserRecord, len(records))
	for i, r := range records {
		users[i] = r.record
	}
	return users, nil
}

// Count implements the model.UsersStore interface
func (s *JSONFileStorage) Count() (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	doc, err := s.readUnlocked()
	if err != nil {
		return 0, err
	}
	return int64(len(doc[s.table])), nil
}

// Close implements the model.UsersStore interface
func (*JSONFileStorage) Close() error {
	return nil
}
