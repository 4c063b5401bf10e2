// Package storage persists the deletion schedule for deactivated access
// keys. IAM reports when a key was created but not when it was deactivated,
// so the rotator records the deactivation time locally; a later `bang purge`
// run reads these records to decide which keys are past their grace period.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// PendingDeletion schedules one deactivated key for future deletion.
type PendingDeletion struct {
	User          string    `json:"user"`
	AccessKeyID   string    `json:"access_key_id"`
	Profile       string    `json:"profile,omitempty"`
	DeactivatedAt time.Time `json:"deactivated_at"`
	DeleteAfter   time.Time `json:"delete_after"`
}

// FileStorage keeps one JSON file per scheduled key under a state directory.
type FileStorage struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileStorage creates storage rooted at baseDir.
func NewFileStorage(baseDir string) *FileStorage {
	return &FileStorage{baseDir: baseDir}
}

// DefaultStateDir returns where pending deletions are recorded.
func DefaultStateDir() string {
	if testDir := os.Getenv("BANG_STATE_DIR"); testDir != "" {
		return testDir
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "bang", "pending")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "bang", "pending")
	}

	return filepath.Join(os.TempDir(), "bang", "pending")
}

// Save records a pending deletion, replacing any earlier record for the
// same access key.
func (fs *FileStorage) Save(pending *PendingDeletion) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if pending.AccessKeyID == "" {
		return fmt.Errorf("pending deletion requires an access key id")
	}

	if err := os.MkdirAll(fs.baseDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pending deletion: %w", err)
	}

	filename := filepath.Join(fs.baseDir, sanitizeFilename(pending.AccessKeyID)+".json")
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write pending deletion: %w", err)
	}
	return nil
}

// List returns all recorded pending deletions, oldest delete-after first.
func (fs *FileStorage) List() ([]PendingDeletion, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var pending []PendingDeletion
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.baseDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		var p PendingDeletion
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		pending = append(pending, p)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].DeleteAfter.Before(pending[j].DeleteAfter)
	})
	return pending, nil
}

// Remove drops the record for an access key. Removing a key that has no
// record is not an error.
func (fs *FileStorage) Remove(accessKeyID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	filename := filepath.Join(fs.baseDir, sanitizeFilename(accessKeyID)+".json")
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pending deletion: %w", err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func sanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}
