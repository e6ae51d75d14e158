// ABOUTME: Import tool configuration with XDG paths and ~ expansion.
// ABOUTME: CLI flags override anything set here.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/hkimport/internal/importer"
	"github.com/harperreed/hkimport/internal/storage"
)

// Config stores hkimport configuration.
type Config struct {
	// DataDir is the root directory for data storage; health.db lives
	// here. Supports ~ expansion. Defaults to ~/.local/share/hkimport.
	DataDir string `json:"data_dir,omitempty"`

	// Timezone is the reference zone all export timestamps are
	// normalized into. Fixed per deployment; changing it between
	// imports breaks dedup of previously imported rows.
	Timezone string `json:"timezone,omitempty"`

	// CutoffDays drops dated entities older than this many days.
	CutoffDays int `json:"cutoff_days,omitempty"`

	// BatchSize and TransactionSize tune the store writer.
	BatchSize       int `json:"batch_size,omitempty"`
	TransactionSize int `json:"transaction_size,omitempty"`
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetDBPath returns the database path inside the data directory.
func (c *Config) GetDBPath() string {
	return filepath.Join(c.GetDataDir(), "health.db")
}

// GetTimezone resolves the reference time zone.
func (c *Config) GetTimezone() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = importer.DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// GetCutoff returns the configured cutoff duration.
func (c *Config) GetCutoff() time.Duration {
	if c.CutoffDays <= 0 {
		return importer.DefaultCutoff
	}
	return time.Duration(c.CutoffDays) * 24 * time.Hour
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "hkimport", "config.json")
}

// Load reads config from disk.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
