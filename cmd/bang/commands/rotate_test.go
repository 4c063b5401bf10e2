package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/bang/internal/config"
	"github.com/systmms/bang/internal/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		GracePeriodDays: -1,
		Logger:          logging.NewWithWriter(&bytes.Buffer{}, false, true),
	}
}

func TestRotateRejectsNegativeGracePeriod(t *testing.T) {
	cmd := NewRotateCommand(testConfig())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--grace-period", "-3"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid grace period")
}

func TestRotateRejectsNegativePropagationDelay(t *testing.T) {
	cmd := NewRotateCommand(testConfig())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--propagation-delay", "-5s"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "propagation delay")
}

func TestRotateFlagDefaults(t *testing.T) {
	cmd := NewRotateCommand(testConfig())

	gracePeriod, err := cmd.Flags().GetInt("grace-period")
	require.NoError(t, err)
	assert.Equal(t, 7, gracePeriod)

	force, err := cmd.Flags().GetBool("force")
	require.NoError(t, err)
	assert.False(t, force)

	profile, err := cmd.Flags().GetString("profile")
	require.NoError(t, err)
	assert.Empty(t, profile, "profile falls back to env/defaults file when unset")
}

func TestCommandsAreRegistered(t *testing.T) {
	cfg := testConfig()
	for _, cmd := range []struct {
		name string
		use  string
	}{
		{"rotate", NewRotateCommand(cfg).Use},
		{"purge", NewPurgeCommand(cfg).Use},
		{"status", NewStatusCommand(cfg).Use},
	} {
		assert.Equal(t, cmd.name, cmd.use)
	}
}

func TestPurgeFlags(t *testing.T) {
	cmd := NewPurgeCommand(testConfig())

	for _, flag := range []string{"user", "all", "dry-run"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "90d", formatAge(90*24*time.Hour))
	assert.Equal(t, "5h", formatAge(5*time.Hour))
	assert.Equal(t, "30m", formatAge(30*time.Minute))
}
