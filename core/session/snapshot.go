package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"medmarket/core/storage"
)

// ErrCorruptSnapshot is returned by Open when the persisted session cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt session snapshot")

// loadSnapshot reads the persisted session. A missing key yields nil, nil.
func loadSnapshot(db storage.StateBackend) (*User, error) {
	data, err := db.Get(storage.KeyCurrentUser)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session snapshot: %w", err)
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &u, nil
}

// saveSnapshot persists u, or removes the snapshot when u is nil.
func saveSnapshot(db storage.StateBackend, u *User) error {
	if u == nil {
		if err := db.Delete(storage.KeyCurrentUser); err != nil {
			return fmt.Errorf("delete session snapshot: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	if err := db.Put(storage.KeyCurrentUser, data); err != nil {
		return fmt.Errorf("write session snapshot: %w", err)
	}
	return nil
}

// ClearSnapshot removes a persisted session without opening a Store.
// The node uses it to recover from ErrCorruptSnapshot.
func ClearSnapshot(db storage.StateBackend) error {
	return saveSnapshot(db, nil)
}
