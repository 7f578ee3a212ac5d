package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database   DatabaseConfig
	Validation ValidationConfig
	Search     SearchConfig
	Log        LogConfig
	UI         UIConfig
	Keys       []KeyBinding
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path   string
	Locale string
}

// ValidationConfig controls input checks.
type ValidationConfig struct {
	// StrictUpdate applies the name format rule on update as well as insert.
	StrictUpdate bool `mapstructure:"strict_update"`
}

type SearchConfig struct {
	MaxDistance int `mapstructure:"max_distance"`
}

// LogConfig holds log settings. Logs go to a file because the terminal
// belongs to the UI.
type LogConfig struct {
	Level  string
	Format string
	Path   string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	MessageTTL time.Duration `mapstructure:"message_ttl"`
}

// KeyBinding replaces the keys bound to one action of one screen scope.
type KeyBinding struct {
	Scope  string
	Action string
	Keys   []string
}

// Load reads configuration from file and env. Env var overrides use prefix CONTACTS_.
func Load() (Config, error) {
	v := viper.New()
	home := os.Getenv("HOME")

	v.SetDefault("database.path", filepath.Join(home, ".local", "share", "contacts", "contacts.db"))
	v.SetDefault("database.locale", "und")
	v.SetDefault("validation.strict_update", true)
	v.SetDefault("search.max_distance", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "contacts", "contacts.log"))
	v.SetDefault("ui.message_ttl", 3800*time.Millisecond)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("CONTACTS_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "contacts"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CONTACTS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// a missing default file is fine; an explicit one must exist
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values viper cannot.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("config: database.path is empty")
	}
	if c.Search.MaxDistance < 0 {
		return fmt.Errorf("config: search.max_distance must be >= 0, got %d", c.Search.MaxDistance)
	}
	if c.UI.MessageTTL < 0 {
		return fmt.Errorf("config: ui.message_ttl must be >= 0, got %s", c.UI.MessageTTL)
	}
	return nil
}
