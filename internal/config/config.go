package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	VersionPlain = "plain"
	VersionMUI   = "mui"
)

const (
	defaultAddr              = ":8080"
	defaultRPCSocket         = "/tmp/saaskit.sock"
	defaultDBPath            = "saaskit.db"
	defaultSessionTTL        = 12 * time.Hour
	defaultInvitationTTL     = 7 * 24 * time.Hour
	defaultBootstrapEmail    = "admin@saaskit.local"
	defaultBootstrapPassword = "admin12345"
	defaultLoginPerMinute    = 20
)

var defaultBlockedEmailDomains = []string{
	"gmail.com", "googlemail.com", "yahoo.com", "hotmail.com", "outlook.com",
	"live.com", "aol.com", "icloud.com", "mail.com", "protonmail.com", "gmx.com",
}

// Config is the server configuration. Zero values are replaced by defaults in Load.
type Config struct {
	Addr      string `toml:"addr" yaml:"addr"`
	RPCSocket string `toml:"rpc_socket" yaml:"rpc_socket"`
	DBPath    string `toml:"db_path" yaml:"db_path"`
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`

	UI          UI          `toml:"ui" yaml:"ui"`
	Auth        Auth        `toml:"auth" yaml:"auth"`
	Features    Features    `toml:"features" yaml:"features"`
	Invitations Invitations `toml:"invitations" yaml:"invitations"`
	RateLimit   RateLimit   `toml:"rate_limit" yaml:"rate_limit"`
}

type UI struct {
	// Version selects the skin: "plain" or "mui".
	Version string `toml:"version" yaml:"version"`
}

type Auth struct {
	SessionTTL        string `toml:"session_ttl" yaml:"session_ttl"`
	BootstrapEmail    string `toml:"bootstrap_email" yaml:"bootstrap_email"`
	BootstrapPassword string `toml:"bootstrap_password" yaml:"bootstrap_password"`
}

type Features struct {
	AllowEmailChange        *bool    `toml:"allow_email_change" yaml:"allow_email_change"`
	DisableNonBusinessEmail bool     `toml:"disable_non_business_email" yaml:"disable_non_business_email"`
	BlockedEmailDomains     []string `toml:"blocked_email_domains" yaml:"blocked_email_domains"`
	DeleteTeam              *bool    `toml:"delete_team" yaml:"delete_team"`
	APIKeys                 *bool    `toml:"api_keys" yaml:"api_keys"`
}

type Invitations struct {
	TTL string `toml:"ttl" yaml:"ttl"`
}

type RateLimit struct {
	LoginPerMinute int `toml:"login_per_minute" yaml:"login_per_minute"`
}

func Default() Config {
	cfg := Config{}
	if err := cfg.normalize(); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads a .toml, .yaml or .yml file and fills in defaults. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml", "":
		return toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func (c *Config) normalize() error {
	c.Addr = defaultString(c.Addr, defaultAddr)
	c.RPCSocket = defaultString(c.RPCSocket, defaultRPCSocket)
	c.DBPath = defaultString(c.DBPath, defaultDBPath)
	c.LogLevel = defaultString(c.LogLevel, "info")
	c.LogFormat = defaultString(c.LogFormat, "text")

	c.UI.Version = strings.ToLower(strings.TrimSpace(c.UI.Version))
	switch c.UI.Version {
	case "":
		c.UI.Version = VersionPlain
	case VersionPlain, VersionMUI:
	default:
		return fmt.Errorf("ui.version must be %q or %q, got %q", VersionPlain, VersionMUI, c.UI.Version)
	}

	c.Auth.BootstrapEmail = defaultString(c.Auth.BootstrapEmail, defaultBootstrapEmail)
	c.Auth.BootstrapPassword = defaultString(c.Auth.BootstrapPassword, defaultBootstrapPassword)
	if _, err := parseDuration(c.Auth.SessionTTL, defaultSessionTTL); err != nil {
		return fmt.Errorf("auth.session_ttl: %w", err)
	}
	if _, err := parseDuration(c.Invitations.TTL, defaultInvitationTTL); err != nil {
		return fmt.Errorf("invitations.ttl: %w", err)
	}

	if c.Features.AllowEmailChange == nil {
		c.Features.AllowEmailChange = boolPtr(true)
	}
	if c.Features.DeleteTeam == nil {
		c.Features.DeleteTeam = boolPtr(true)
	}
	if c.Features.APIKeys == nil {
		c.Features.APIKeys = boolPtr(true)
	}
	if len(c.Features.BlockedEmailDomains) == 0 {
		c.Features.BlockedEmailDomains = append([]string(nil), defaultBlockedEmailDomains...)
	}
	if c.RateLimit.LoginPerMinute <= 0 {
		c.RateLimit.LoginPerMinute = defaultLoginPerMinute
	}
	return nil
}

func (c Config) SessionTTL() time.Duration {
	d, _ := parseDuration(c.Auth.SessionTTL, defaultSessionTTL)
	return d
}

func (c Config) InvitationTTL() time.Duration {
	d, _ := parseDuration(c.Invitations.TTL, defaultInvitationTTL)
	return d
}

func (c Config) AllowEmailChange() bool { return c.Features.AllowEmailChange == nil || *c.Features.AllowEmailChange }
func (c Config) AllowDeleteTeam() bool  { return c.Features.DeleteTeam == nil || *c.Features.DeleteTeam }
func (c Config) AllowAPIKeys() bool     { return c.Features.APIKeys == nil || *c.Features.APIKeys }

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}
	return strings.TrimSpace(input)
}

func boolPtr(v bool) *bool { return &v }
