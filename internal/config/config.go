package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/systmms/bang/internal/logging"
)

// Default values applied when neither flags, the config file, nor the
// environment provide a setting.
const (
	DefaultProfile          = "default"
	DefaultGracePeriodDays  = 7
	DefaultPropagationDelay = 10 * time.Second
)

// Config carries everything a command needs, resolved once at startup.
// Commands receive it explicitly instead of reading ambient state so tests
// can construct one from scratch.
type Config struct {
	// Path is the optional bang.yaml defaults file.
	Path string

	Profile         string
	CredentialsFile string
	User            string

	// GracePeriodDays < 0 means "not set"; zero is a meaningful value
	// (delete the old key immediately).
	GracePeriodDays  int
	PropagationDelay time.Duration

	Logger  *logging.Logger
	Debug   bool
	NoColor bool
}

// fileDefaults is the on-disk shape of the optional defaults file.
type fileDefaults struct {
	Profile          string `yaml:"profile"`
	CredentialsFile  string `yaml:"credentials_file"`
	User             string `yaml:"user"`
	GracePeriodDays  *int   `yaml:"grace_period"`
	PropagationDelay string `yaml:"propagation_delay"`
}

// Load fills unset fields from the defaults file, the environment, and the
// built-in defaults, in that order. Fields already set (by flags) win.
func (c *Config) Load() error {
	if c.Path != "" {
		if err := c.applyFile(c.Path); err != nil {
			return err
		}
	}

	if c.Profile == "" {
		c.Profile = os.Getenv("AWS_PROFILE")
	}
	if c.Profile == "" {
		c.Profile = DefaultProfile
	}

	if c.CredentialsFile == "" {
		c.CredentialsFile = os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	}
	if c.CredentialsFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		c.CredentialsFile = filepath.Join(home, ".aws", "credentials")
	}
	expanded, err := ExpandPath(c.CredentialsFile)
	if err != nil {
		return err
	}
	c.CredentialsFile = expanded

	if c.GracePeriodDays < 0 {
		c.GracePeriodDays = DefaultGracePeriodDays
	}
	if c.PropagationDelay == 0 {
		c.PropagationDelay = DefaultPropagationDelay
	}
	return nil
}

// applyFile merges defaults from a bang.yaml file. A missing file is not an
// error unless the path was set explicitly to something other than the
// conventional name.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && filepath.Base(path) == "bang.yaml" {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var defaults fileDefaults
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if c.Profile == "" {
		c.Profile = defaults.Profile
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = defaults.CredentialsFile
	}
	if c.User == "" {
		c.User = defaults.User
	}
	if c.GracePeriodDays < 0 && defaults.GracePeriodDays != nil && *defaults.GracePeriodDays >= 0 {
		c.GracePeriodDays = *defaults.GracePeriodDays
	}
	if c.PropagationDelay == 0 && defaults.PropagationDelay != "" {
		d, err := time.ParseDuration(defaults.PropagationDelay)
		if err != nil {
			return fmt.Errorf("invalid propagation_delay in %s: %w", path, err)
		}
		c.PropagationDelay = d
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand %s: %w", path, err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
