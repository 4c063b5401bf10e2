// Package credentials reads and writes the AWS shared credentials file
// (~/.aws/credentials). Profiles other than the one being rotated are left
// untouched, including comments, so the file can be shared with other tools.
package credentials

import (
	"bytes"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	dserrors "github.com/systmms/bang/internal/errors"
)

const (
	accessKeyIDKey     = "aws_access_key_id"
	secretAccessKeyKey = "aws_secret_access_key"
)

// Store provides profile-level access to a shared credentials file.
type Store struct {
	path string
}

// NewStore creates a store for the credentials file at path. The file does
// not need to exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the credentials file location.
func (s *Store) Path() string {
	return s.path
}

// Profile holds the key pair currently installed for a named profile.
type Profile struct {
	Name            string
	AccessKeyID     string
	SecretAccessKey string
}

// Lookup returns the profile's current key pair. The second return value is
// false when the profile or file does not exist.
func (s *Store) Lookup(name string) (Profile, bool, error) {
	file, err := s.load()
	if err != nil {
		return Profile{}, false, err
	}

	section, err := file.GetSection(name)
	if err != nil {
		return Profile{}, false, nil
	}

	keyID := section.Key(accessKeyIDKey).String()
	if keyID == "" {
		return Profile{}, false, nil
	}
	return Profile{
		Name:            name,
		AccessKeyID:     keyID,
		SecretAccessKey: section.Key(secretAccessKeyKey).String(),
	}, true, nil
}

// SetProfile installs a key pair under the named profile, creating the file
// or the section as needed. All other sections survive the write.
func (s *Store) SetProfile(name, accessKeyID, secretAccessKey string) error {
	file, err := s.load()
	if err != nil {
		return err
	}

	section := file.Section(name)
	section.Key(accessKeyIDKey).SetValue(accessKeyID)
	section.Key(secretAccessKeyKey).SetValue(secretAccessKey)

	return s.save(file)
}

func (s *Store) load() (*ini.File, error) {
	file, err := ini.LooseLoad(s.path)
	if err != nil {
		return nil, dserrors.LocalIOError("read", s.path, err)
	}
	return file, nil
}

// save writes the whole file back with owner-only permissions. The write
// goes through a sibling temp file and rename so a crash mid-write cannot
// leave a truncated credentials file behind.
func (s *Store) save(file *ini.File) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return dserrors.LocalIOError("create directory for", s.path, err)
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return dserrors.LocalIOError("serialize", s.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return dserrors.LocalIOError("write", s.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return dserrors.LocalIOError("write", s.path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return dserrors.LocalIOError("set permissions on", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return dserrors.LocalIOError("write", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return dserrors.LocalIOError("replace", s.path, err)
	}
	return nil
}
