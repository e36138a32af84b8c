package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, VersionPlain, cfg.UI.Version)
	assert.Equal(t, defaultSessionTTL, cfg.SessionTTL())
	assert.Equal(t, defaultInvitationTTL, cfg.InvitationTTL())
	assert.True(t, cfg.AllowEmailChange())
	assert.True(t, cfg.AllowDeleteTeam())
	assert.Contains(t, cfg.Features.BlockedEmailDomains, "gmail.com")
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saaskit.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr = ":9090"
db_path = "/var/lib/saaskit.db"

[ui]
version = "MUI"

[auth]
session_ttl = "2h"

[features]
allow_email_change = false
delete_team = false
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "/var/lib/saaskit.db", cfg.DBPath)
	assert.Equal(t, VersionMUI, cfg.UI.Version)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL())
	assert.False(t, cfg.AllowEmailChange())
	assert.False(t, cfg.AllowDeleteTeam())
	assert.True(t, cfg.AllowAPIKeys())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saaskit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ui:
  version: plain
features:
  disable_non_business_email: true
  blocked_email_domains: [example.org]
invitations:
  ttl: 48h
rate_limit:
  login_per_minute: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Features.DisableNonBusinessEmail)
	assert.Equal(t, []string{"example.org"}, cfg.Features.BlockedEmailDomains)
	assert.Equal(t, 48*time.Hour, cfg.InvitationTTL())
	assert.Equal(t, 5, cfg.RateLimit.LoginPerMinute)
}

func TestLoadRejectsUnknownSkin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saaskit.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\nversion = \"bootstrap\"\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saaskit.toml")
	require.NoError(t, os.WriteFile(path, []byte("[auth]\nsession_ttl = \"soon\"\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
