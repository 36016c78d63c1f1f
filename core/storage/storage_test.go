package storage

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDEK() []byte {
	return bytes.Repeat([]byte{7}, 32)
}

func TestStoragePutGetDelete(t *testing.T) {
	s, err := NewMemStorage(nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(KeyTheme)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(KeyTheme, []byte("dark")))
	v, err := s.Get(KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", string(v))

	require.NoError(t, s.Delete(KeyTheme))
	require.NoError(t, s.Delete(KeyTheme))
	ok, err := s.Has(KeyTheme)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorageEncryptsAtRest(t *testing.T) {
	s, err := NewMemStorage(testDEK())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(KeyCurrentUser, []byte(`{"id":"1"}`)))
	raw, err := s.db.Get([]byte(KeyCurrentUser), nil)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"id"`)

	v, err := s.Get(KeyCurrentUser)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(v))
}

func TestStorageFileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leveldb")
	s, err := NewStorage(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = NewStorage(path, nil)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}

func TestParseDEK(t *testing.T) {
	dek, err := ParseDEK("")
	require.NoError(t, err)
	assert.Nil(t, dek)

	dek, err = ParseDEK(base64.StdEncoding.EncodeToString(testDEK()))
	require.NoError(t, err)
	assert.Len(t, dek, 32)

	_, err = ParseDEK(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)

	_, err = ParseDEK("!!!")
	assert.Error(t, err)
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	_, err := Decrypt(testDEK(), []byte{1, 2})
	assert.Error(t, err)
}
