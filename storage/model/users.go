package model

// UserRecord is a registered user.
// Only Username and HashedPassword are part of the stored document; ID is a
// surrogate key for relational backends and never serialized.
type UserRecord struct {
	ID uint `gorm:"primaryKey" json:"-" msgpack:"-"`

	// Username is the logical unique key of a record
	Username string `gorm:"uniqueIndex;size:255;not null" json:"username" msgpack:"username"`
	// HashedPassword is the opaque output of the credential hasher, including
	// salt and cost parameters
	HashedPassword string `gorm:"not null" json:"hashed_password" msgpack:"hashed_password"`
}

// TableName sets the table name used by GORM
func (UserRecord) TableName() string {
	return "users"
}

// UsersStore abstracts persistence of UserRecords.
// Implementations must be safe for concurrent use.
type UsersStore interface {
	// FindByUsername returns the first record with the given username or a
	// NotFoundError
	FindByUsername(username string) (*UserRecord, error)
	// Insert stores a record. Callers are responsible for checking that the
	// username is not taken; backends with a native unique key return an
	// AlreadyExistsError on duplicates.
	Insert(record UserRecord) error
	// InsertIfAbsent atomically stores the record if no record with the same
	// username exists, otherwise it returns an AlreadyExistsError
	InsertIfAbsent(record UserRecord) error
	// List returns all records in insertion order where the backend has one
	List() ([]UserRecord, error)
	// Count returns the number of stored records
	Count() (int64, error)
	// Close releases resources held by the store
	Close() error
}
