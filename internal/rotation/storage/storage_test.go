package storage

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndList(t *testing.T) {
	fs := NewFileStorage(t.TempDir())
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, fs.Save(&PendingDeletion{
		User:          "deploy-bot",
		AccessKeyID:   "AKIAOLD",
		Profile:       "default",
		DeactivatedAt: now,
		DeleteAfter:   now.Add(7 * 24 * time.Hour),
	}))

	pending, err := fs.List()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "deploy-bot", pending[0].User)
	assert.Equal(t, "AKIAOLD", pending[0].AccessKeyID)
	assert.True(t, pending[0].DeleteAfter.Equal(now.Add(7*24*time.Hour)))
}

func TestSaveReplacesRecordForSameKey(t *testing.T) {
	fs := NewFileStorage(t.TempDir())
	now := time.Now()

	require.NoError(t, fs.Save(&PendingDeletion{AccessKeyID: "AKIAOLD", DeleteAfter: now.Add(time.Hour)}))
	require.NoError(t, fs.Save(&PendingDeletion{AccessKeyID: "AKIAOLD", DeleteAfter: now.Add(2 * time.Hour)}))

	pending, err := fs.List()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].DeleteAfter.After(now.Add(90*time.Minute)))
}

func TestListSortsByDeleteAfter(t *testing.T) {
	fs := NewFileStorage(t.TempDir())
	now := time.Now()

	require.NoError(t, fs.Save(&PendingDeletion{AccessKeyID: "AKIAB", DeleteAfter: now.Add(2 * time.Hour)}))
	require.NoError(t, fs.Save(&PendingDeletion{AccessKeyID: "AKIAA", DeleteAfter: now.Add(1 * time.Hour)}))
	require.NoError(t, fs.Save(&PendingDeletion{AccessKeyID: "AKIAC", DeleteAfter: now.Add(3 * time.Hour)}))

	pending, err := fs.List()
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "AKIAA", pending[0].AccessKeyID)
	assert.Equal(t, "AKIAB", pending[1].AccessKeyID)
	assert.Equal(t, "AKIAC", pending[2].AccessKeyID)
}

func TestListEmptyDirectory(t *testing.T) {
	fs := NewFileStorage(t.TempDir() + "/never-created")

	pending, err := fs.List()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRemove(t *testing.T) {
	fs := NewFileStorage(t.TempDir())

	require.NoError(t, fs.Save(&PendingDeletion{AccessKeyID: "AKIAOLD", DeleteAfter: time.Now()}))
	require.NoError(t, fs.Remove("AKIAOLD"))

	pending, err := fs.List()
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Removing again is idempotent.
	assert.NoError(t, fs.Remove("AKIAOLD"))
}

func TestDefaultStateDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BANG_STATE_DIR", dir)
	assert.Equal(t, dir, DefaultStateDir())
}

func TestRecordFilePermissions(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStorage(dir)
	require.NoError(t, fs.Save(&PendingDeletion{AccessKeyID: "AKIAOLD", DeleteAfter: time.Now()}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
