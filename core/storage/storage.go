package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	lstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("key not found")

// Keys of the persisted local state.
const (
	KeyCurrentUser = "currentUser"
	KeyTheme       = "theme"
)

// StateBackend abstracts the persistent key-value store for local state.
type StateBackend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Storage is a LevelDB-backed StateBackend. Values are sealed with
// AES-256-GCM when a data encryption key is configured.
type Storage struct {
	db  *leveldb.DB
	dek []byte
}

// NewStorage opens (or creates) a LevelDB database at path.
// dek may be nil to store values in clear.
func NewStorage(path string, dek []byte) (*Storage, error) {
	if err := checkDEK(dek); err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(path, nil)
	if lerrors.IsCorrupted(err) {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &Storage{db: db, dek: dek}, nil
}

// NewMemStorage opens a LevelDB database held entirely in memory.
func NewMemStorage(dek []byte) (*Storage, error) {
	if err := checkDEK(dek); err != nil {
		return nil, err
	}
	db, err := leveldb.Open(lstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open memory leveldb: %w", err)
	}
	return &Storage{db: db, dek: dek}, nil
}

// Get retrieves a value by key.
func (s *Storage) Get(key string) ([]byte, error) {
	raw, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.dek == nil {
		return raw, nil
	}
	return Decrypt(s.dek, raw)
}

// Put stores a key-value pair.
func (s *Storage) Put(key string, value []byte) error {
	if s.dek != nil {
		enc, err := Encrypt(s.dek, value)
		if err != nil {
			return err
		}
		value = enc
	}
	return s.db.Put([]byte(key), value, nil)
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *Storage) Delete(key string) error {
	return s.db.Delete([]byte(key), nil)
}

// Has reports whether key is present.
func (s *Storage) Has(key string) (bool, error) {
	return s.db.Has([]byte(key), nil)
}

func (s *Storage) Close() error {
	return s.db.Close()
}
