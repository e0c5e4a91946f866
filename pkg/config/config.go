package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the simulator.
// The values are read by viper from a config file or environment variable.
type Config struct {
	// Device Identity
	DeviceFlag      string `mapstructure:"DEVICE_FLAG"`
	DeviceSerial    string `mapstructure:"DEVICE_SERIAL"`
	DeviceBrand     string `mapstructure:"DEVICE_BRAND"`
	DeviceModel     string `mapstructure:"DEVICE_MODEL"`
	ProtocolVersion string `mapstructure:"PROTOCOL_VERSION"`
	Firmware        string `mapstructure:"FIRMWARE"`

	// MQTT Broker
	BrokerURL     string `mapstructure:"MQTT_BROKER_URL"`
	MQTTUsername  string `mapstructure:"MQTT_USERNAME"`
	MQTTPassword  string `mapstructure:"MQTT_PASSWORD"`
	MQTTKeepAlive int    `mapstructure:"MQTT_KEEPALIVE"`
	MQTTQoS       int    `mapstructure:"MQTT_QOS"`

	// Topics
	TopicToServer   string `mapstructure:"TOPIC_TO_SERVER"`
	TopicFromServer string `mapstructure:"TOPIC_FROM_SERVER"`

	// Wire format: "framed" (#<len>$<json>) or "attribute" (bare JSON
	// with routing metadata in MQTT v5 user properties)
	WireFormat string `mapstructure:"WIRE_FORMAT"`

	// Heartbeat
	HeartbeatIntervalSeconds int `mapstructure:"HEARTBEAT_INTERVAL_SECONDS"`

	// Simulated hardware latency
	ReadDelayMs   int `mapstructure:"READ_DELAY_MS"`
	NotifyDelayMs int `mapstructure:"NOTIFY_DELAY_MS"`

	// Control API
	APIAddress string `mapstructure:"API_ADDRESS"`
}

// HeartbeatInterval returns the heartbeat period as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSeconds) * time.Second
}

// ReadDelay returns the simulated meter-read latency.
func (c *Config) ReadDelay() time.Duration {
	return time.Duration(c.ReadDelayMs) * time.Millisecond
}

// NotifyDelay returns the simulated latency before fire-and-forget
// notifications.
func (c *Config) NotifyDelay() time.Duration {
	return time.Duration(c.NotifyDelayMs) * time.Millisecond
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// 1. Set Defaults
	v.SetDefault("DEVICE_FLAG", "XYZ")
	v.SetDefault("DEVICE_SERIAL", "0123456789ABCDE")
	v.SetDefault("DEVICE_BRAND", "SimulatorBrand")
	v.SetDefault("DEVICE_MODEL", "SimV1.0")
	v.SetDefault("PROTOCOL_VERSION", "1.0.0")
	v.SetDefault("FIRMWARE", "1.01")
	v.SetDefault("MQTT_BROKER_URL", "mqtt://localhost:1883")
	v.SetDefault("MQTT_KEEPALIVE", 60)
	v.SetDefault("MQTT_QOS", 1)
	v.SetDefault("TOPIC_TO_SERVER", "mass/device/to_server")
	v.SetDefault("TOPIC_FROM_SERVER", "mass/server/to_device")
	v.SetDefault("WIRE_FORMAT", "framed")
	v.SetDefault("HEARTBEAT_INTERVAL_SECONDS", 60)
	v.SetDefault("READ_DELAY_MS", 500)
	v.SetDefault("NOTIFY_DELAY_MS", 200)
	v.SetDefault("API_ADDRESS", ":8000")

	// 2. Read app.yaml if exists
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// 3. Allow Viper to read Environment Variables (highest priority)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
