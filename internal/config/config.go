package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all Sightline configuration.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Limits        LimitsConfig        `toml:"limits"`
	Lookup        LookupConfig        `toml:"lookup"`
	Storage       StorageConfig       `toml:"storage"`
	Admin         AdminConfig         `toml:"admin"`
	Logging       LoggingConfig       `toml:"logging"`
	Observability ObservabilityConfig `toml:"observability"`
}

type ServerConfig struct {
	ListenAddress           string `toml:"listen_address"`
	ManagementListenAddress string `toml:"management_listen_address"`
}

type LimitsConfig struct {
	MaxRequests      int   `toml:"max_requests"`
	WindowSeconds    int   `toml:"window_seconds"`
	MaxBodySizeBytes int64 `toml:"max_body_size_bytes"`
}

type LookupConfig struct {
	TTLHours        int       `toml:"ttl_hours"`
	TimeoutSeconds  int       `toml:"timeout_seconds"`
	Workers         int       `toml:"workers"`
	QueueSize       int       `toml:"queue_size"`
	PrimaryURL      string    `toml:"primary_url"`
	WhoisURL        string    `toml:"whois_url"`
	SecondaryURL    string    `toml:"secondary_url"`
	GeoIPDBPath     string    `toml:"geoip_db_path"`
	ASNDBPath       string    `toml:"asn_db_path"`
	DNS             DNSConfig `toml:"dns"`
}

type DNSConfig struct {
	Enabled  bool `toml:"enabled"`
	CacheTTL int  `toml:"cache_ttl_seconds"`
	MaxQPS   int  `toml:"max_qps"`
}

type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"`
}

type AdminConfig struct {
	Token string `toml:"token"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool `toml:"metrics_enabled"`
}

// Load reads config from path (TOML) and applies environment overrides
// (secrets). A missing file yields defaults only when path is "".
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if _, err := toml.Decode(string(data), &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	c.setDefaults()
	c.applyEnv()
	return &c, c.validate()
}

func (c *Config) setDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Limits.MaxRequests == 0 {
		c.Limits.MaxRequests = 100
	}
	if c.Limits.WindowSeconds == 0 {
		c.Limits.WindowSeconds = 60
	}
	if c.Limits.MaxBodySizeBytes == 0 {
		c.Limits.MaxBodySizeBytes = 64 * 1024
	}
	if c.Lookup.TTLHours == 0 {
		c.Lookup.TTLHours = 24
	}
	if c.Lookup.TimeoutSeconds == 0 {
		c.Lookup.TimeoutSeconds = 5
	}
	if c.Lookup.Workers == 0 {
		c.Lookup.Workers = 4
	}
	if c.Lookup.QueueSize == 0 {
		c.Lookup.QueueSize = 256
	}
	if c.Lookup.PrimaryURL == "" {
		c.Lookup.PrimaryURL = "https://api.ipapi.is"
	}
	if c.Lookup.WhoisURL == "" {
		c.Lookup.WhoisURL = "http://ipwhois.app/json"
	}
	if c.Lookup.SecondaryURL == "" {
		c.Lookup.SecondaryURL = "http://ip-api.com/json"
	}
	if c.Lookup.DNS.CacheTTL == 0 {
		c.Lookup.DNS.CacheTTL = 300
	}
	if c.Lookup.DNS.MaxQPS == 0 {
		c.Lookup.DNS.MaxQPS = 10
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "sightline.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

func (c *Config) applyEnv() {
	// Admin token is a secret; env wins over the config file.
	if t := os.Getenv("SIGHTLINE_ADMIN_TOKEN"); t != "" {
		c.Admin.Token = t
	}
}

func (c *Config) validate() error {
	if c.Limits.MaxRequests < 0 {
		return fmt.Errorf("limits: max_requests must not be negative")
	}
	if c.Limits.WindowSeconds < 0 {
		return fmt.Errorf("limits: window_seconds must not be negative")
	}
	if c.Lookup.GeoIPDBPath != "" {
		if _, err := os.Stat(c.Lookup.GeoIPDBPath); err != nil {
			return fmt.Errorf("lookup: geoip_db_path %q not readable: %w", c.Lookup.GeoIPDBPath, err)
		}
	}
	if c.Lookup.ASNDBPath != "" {
		if _, err := os.Stat(c.Lookup.ASNDBPath); err != nil {
			return fmt.Errorf("lookup: asn_db_path %q not readable: %w", c.Lookup.ASNDBPath, err)
		}
	}
	return nil
}

// TTL returns the lookup cache TTL as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Lookup.TTLHours) * time.Hour
}

// Window returns the rate guard window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.Limits.WindowSeconds) * time.Second
}

// LookupTimeout returns the per-provider call timeout.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Lookup.TimeoutSeconds) * time.Second
}
