package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted for tests.
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	JWTSecret      string   `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTLHours  int      `mapstructure:"token_ttl_hours" yaml:"token_ttl_hours"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// Password may be left empty, in which case it is looked up in the
	// system keyring under the "smtp-password" key.
	Password string `mapstructure:"password" yaml:"password"`

	// From is the envelope sender. Defaults to Username when empty.
	From string `mapstructure:"from" yaml:"from"`

	// TLS selects implicit TLS (usually port 465). When false, STARTTLS is used.
	TLS bool `mapstructure:"tls" yaml:"tls"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Enabled reports whether enough is configured to attempt delivery.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port != ""
}

// Sender returns the address used in MAIL FROM and the From header.
func (c SMTPConfig) Sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

// ReminderConfig controls the deadline reminder sweep. Non-positive
// values are passed through; the scheduler replaces them with its defaults.
type ReminderConfig struct {
	IntervalSec    int `mapstructure:"interval_sec" yaml:"interval_sec"`
	WindowHours    int `mapstructure:"window_hours" yaml:"window_hours"`
	ItemTimeoutSec int `mapstructure:"item_timeout_sec" yaml:"item_timeout_sec"`
	Concurrency    int `mapstructure:"concurrency" yaml:"concurrency"`
}

// Interval is the time between two sweeps.
func (c ReminderConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// Window is how far ahead of now a deadline must fall to be reminded.
func (c ReminderConfig) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}

// ItemTimeout bounds the work done for a single task within a sweep.
func (c ReminderConfig) ItemTimeout() time.Duration {
	return time.Duration(c.ItemTimeoutSec) * time.Second
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	SMTP     SMTPConfig     `mapstructure:"smtp" yaml:"smtp"`
	Reminder ReminderConfig `mapstructure:"reminder" yaml:"reminder"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskd/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskd", "config.yaml")
}

// DefaultDatabasePath returns ~/.config/taskd/taskd.db.
func DefaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "taskd.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl_hours", 24*7)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.tls", false)
	v.SetDefault("smtp.timeout_sec", 30)

	v.SetDefault("reminder.interval_sec", 6*60*60)
	v.SetDefault("reminder.window_hours", 24)
	v.SetDefault("reminder.item_timeout_sec", 30)
	v.SetDefault("reminder.concurrency", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// DefaultConfig returns the configuration used when no file or
// environment override is present.
func DefaultConfig() *AppConfig {
	v := viper.New()
	setDefaults(v)

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("unmarshalling defaults: %v", err))
	}
	return cfg
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file is not an error: defaults apply. Every key can be
// overridden from the environment as TASKD_<SECTION>_<KEY>, for example
// TASKD_SMTP_HOST.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("server", cfg.Server)
	v.Set("smtp", cfg.SMTP)
	v.Set("reminder", cfg.Reminder)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
