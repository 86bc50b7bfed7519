package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the gateway service.
// All configuration is loaded from YAML and can be overridden by environment
// variables.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Hub       HubConfig       `yaml:"hub"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GatewayConfig contains the local bridging behaviour settings.
type GatewayConfig struct {
	// Name is the gateway's display name in the host registry.
	Name string `yaml:"name"`

	// Locale selects the default room-name table ("en", "zh").
	Locale string `yaml:"locale"`

	// ExportDeviceGroups exposes hub device groups as devices.
	ExportDeviceGroups bool `yaml:"export_device_groups"`

	// ExportScenes exposes hub scenes as switch entities.
	ExportScenes bool `yaml:"export_scenes"`
}

// HubConfig identifies the hub this gateway bridges.
type HubConfig struct {
	// DeviceID is the hub's own device id (e.g. "box-12-34-56-78-90-ab").
	DeviceID string `yaml:"device_id"`

	// Host and Port are the hub's last known network location. Discovery
	// updates them at runtime; they seed the first connect.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MQTTConfig contains MQTT broker connection settings for the outbound
// event bus.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// DiscoveryConfig contains mDNS hub discovery settings.
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interval is the rebrowse interval in seconds.
	Interval int `yaml:"interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TERNCY_SECTION_KEY
// For example: TERNCY_HUB_HOST, TERNCY_MQTT_PASSWORD
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Name:               "Terncy Gateway",
			Locale:             "en",
			ExportDeviceGroups: true,
			ExportScenes:       false,
		},
		Hub: HubConfig{
			Port: 443,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "terncy-gateway",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Discovery: DiscoveryConfig{
			Enabled:  true,
			Interval: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TERNCY_GATEWAY_NAME"); v != "" {
		cfg.Gateway.Name = v
	}
	if v := os.Getenv("TERNCY_GATEWAY_LOCALE"); v != "" {
		cfg.Gateway.Locale = v
	}

	if v := os.Getenv("TERNCY_HUB_DEVICE_ID"); v != "" {
		cfg.Hub.DeviceID = v
	}
	if v := os.Getenv("TERNCY_HUB_HOST"); v != "" {
		cfg.Hub.Host = v
	}
	if v := os.Getenv("TERNCY_HUB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Hub.Port = port
		}
	}

	if v := os.Getenv("TERNCY_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TERNCY_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TERNCY_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("TERNCY_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("TERNCY_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Hub.DeviceID == "" {
		errs = append(errs, "hub.device_id is required")
	} else if !strings.HasPrefix(c.Hub.DeviceID, "box-") {
		errs = append(errs, `hub.device_id must start with "box-"`)
	}
	if c.Hub.Port < 1 || c.Hub.Port > 65535 {
		errs = append(errs, "hub.port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Discovery.Interval < 1 {
		errs = append(errs, "discovery.interval must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetDiscoveryInterval returns the mDNS rebrowse interval as a Duration.
func (c *Config) GetDiscoveryInterval() time.Duration {
	return time.Duration(c.Discovery.Interval) * time.Second
}
