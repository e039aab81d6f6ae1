package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")

	s1, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Init())

	got, err := s1.Read()
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s1.Write(New("ricky", "Ricky", "dev", "tok")))

	s2, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s2.Init())
	got, err = s2.Read()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ricky", got.Username)
	assert.Equal(t, "Ricky", got.DisplayName)
	assert.True(t, got.IsDev())
	assert.NotZero(t, got.TS)

	require.NoError(t, s2.Clear())
	s3, _ := NewFileStore(path)
	require.NoError(t, s3.Init())
	got, err = s3.Read()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreKeepsForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	require.NoError(t, s.Write(New("a", "A", "user", "")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"theme"`)
	assert.Contains(t, string(b), SlotKey)
}

func TestFileStoreCorruptFileIsLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Init())

	_, err = Current(s)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("  ")
	assert.Error(t, err)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Write(Session{Username: "a"}))

	got, _ := m.Read()
	got.Username = "mutated"

	again, _ := m.Read()
	assert.Equal(t, "a", again.Username)

	require.NoError(t, m.Clear())
	_, err := Current(m)
	assert.ErrorIs(t, err, ErrNoSession)
}
