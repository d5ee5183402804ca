// File: backend/internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

const (
	DefaultTimeoutSeconds          = 20
	DefaultMaxRedirects            = 5
	DefaultDNSTimeoutSeconds       = 10
	DefaultRateLimitQPS            = 5.0
	DefaultRateLimitBurst          = 3
	DefaultSystemAPIKeyPlaceholder = "SET_A_REAL_KEY_IN_CONFIG_OR_ENV_f3a9c1e7b2d84a06"
)

// ServerConfig holds the API server settings.
type ServerConfig struct {
	Port   string `json:"port"`
	APIKey string `json:"apiKey"`
}

type LoggingConfig struct {
	Level string `json:"level"`
}

// RDAPValidatorConfig holds the per-run validation settings: what to query,
// how patiently, over which address family, and under which profile.
type RDAPValidatorConfig struct {
	TargetURI             string  `json:"targetUri"`
	TimeoutSeconds        int     `json:"timeoutSeconds"`
	MaxRedirects          int     `json:"maxRedirects"`
	NetworkProtocol       string  `json:"networkProtocol"`            // "ipv4" or "ipv6"
	LocalBindAddress      string  `json:"localBindAddress,omitempty"` // empty means let the OS choose
	UseRdapProfileFeb2024 bool    `json:"useRdapProfileFeb2024"`
	QueryType             string  `json:"queryType,omitempty"` // "lookup" or "nameserver-search"; detected from the URI when empty
	GtldRegistry          bool    `json:"gtldRegistry"`
	GtldRegistrar         bool    `json:"gtldRegistrar"`
	RateLimitQPS          float64 `json:"rateLimitQps,omitempty"`
	RateLimitBurst        int     `json:"rateLimitBurst,omitempty"`
}

// Timeout returns the configured per-exchange timeout as a duration.
func (c *RDAPValidatorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DNSResolverConfig holds the resolver settings for the address adapter.
type DNSResolverConfig struct {
	Resolvers           []string `json:"resolvers"` // host:port
	UseSystemResolvers  bool     `json:"useSystemResolvers"`
	QueryTimeoutSeconds int      `json:"queryTimeoutSeconds"`
}

func (c *DNSResolverConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

type AppConfig struct {
	Server         ServerConfig        `json:"server"`
	Validator      RDAPValidatorConfig `json:"validator"`
	DNS            DNSResolverConfig   `json:"dns"`
	Logging        LoggingConfig       `json:"logging"`
	loadedFromPath string
}

func (ac *AppConfig) GetLoadedFromPath() string { return ac.loadedFromPath }

// DefaultConfig returns the configuration used when no config file exists yet.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:   "8080",
			APIKey: DefaultSystemAPIKeyPlaceholder,
		},
		Validator: RDAPValidatorConfig{
			TimeoutSeconds:  DefaultTimeoutSeconds,
			MaxRedirects:    DefaultMaxRedirects,
			NetworkProtocol: "ipv4",
			RateLimitQPS:    DefaultRateLimitQPS,
			RateLimitBurst:  DefaultRateLimitBurst,
		},
		DNS: DNSResolverConfig{
			Resolvers:           []string{"1.1.1.1:53", "8.8.8.8:53"},
			UseSystemResolvers:  true,
			QueryTimeoutSeconds: DefaultDNSTimeoutSeconds,
		},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

// Normalize fills in defaults for unset or invalid numeric fields.
func (ac *AppConfig) Normalize() {
	if ac.Validator.TimeoutSeconds <= 0 {
		ac.Validator.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if ac.Validator.MaxRedirects <= 0 {
		ac.Validator.MaxRedirects = DefaultMaxRedirects
	}
	if ac.Validator.NetworkProtocol == "" {
		ac.Validator.NetworkProtocol = "ipv4"
	}
	if ac.Validator.RateLimitQPS <= 0 {
		ac.Validator.RateLimitQPS = DefaultRateLimitQPS
	}
	if ac.Validator.RateLimitBurst <= 0 {
		ac.Validator.RateLimitBurst = DefaultRateLimitBurst
	}
	if ac.DNS.QueryTimeoutSeconds <= 0 {
		ac.DNS.QueryTimeoutSeconds = DefaultDNSTimeoutSeconds
	}
}

// Load reads the main configuration file. A missing file is not an error: the
// defaults are used and saved so the operator has something to edit.
func Load(mainConfigPath string) (*AppConfig, error) {
	if mainConfigPath == "" {
		mainConfigPath = "config.json"
		log.Printf("Config: Main config path empty, using default: %s", mainConfigPath)
	}
	log.Printf("Config: Attempting to load main config from: %s", mainConfigPath)

	appConfig := DefaultConfig()
	var originalLoadError error

	data, err := os.ReadFile(mainConfigPath)
	if err != nil {
		originalLoadError = err
		if os.IsNotExist(err) {
			log.Printf("Config: Main config file '%s' not found. Using defaults and attempting to save.", mainConfigPath)
			appConfig.loadedFromPath = mainConfigPath
			if saveErr := Save(appConfig, mainConfigPath); saveErr != nil {
				log.Printf("Config: Failed to save default config file '%s': %v", mainConfigPath, saveErr)
			} else {
				log.Printf("Config: Saved default config to '%s'", mainConfigPath)
			}
		} else {
			log.Printf("Config: Error reading main config '%s': %v. Using defaults.", mainConfigPath, err)
		}
	} else {
		if errUnmarshal := json.Unmarshal(data, appConfig); errUnmarshal != nil {
			log.Printf("Config: Error unmarshalling main config '%s': %v. Using defaults for unparsed fields.", mainConfigPath, errUnmarshal)
			originalLoadError = errUnmarshal
		}
	}

	appConfig.loadedFromPath = mainConfigPath
	appConfig.Normalize()
	return appConfig, originalLoadError
}

// Save writes the configuration back to disk.
func Save(cfg *AppConfig, filePath string) error {
	if filePath == "" {
		return fmt.Errorf("cannot save config, file path is empty")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal app config to JSON: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write app config to file '%s': %w", filePath, err)
	}
	log.Printf("Config: Successfully saved main configuration to '%s'", filePath)
	return nil
}
