// Package config loads the settings that configure a broker process:
// local broker identity, tenant limits, and the sync protocol's timing
// parameters.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dxlfabric/brokerd/pkg/log"
)

// Config is the complete settings for a broker process.
type Config struct {
	Broker   BrokerConfig   `yaml:"broker"`
	Tenant   TenantConfig   `yaml:"tenant"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Listen   ListenConfig   `yaml:"listen"`
	Log      LogConfig      `yaml:"log"`
}

// BrokerConfig carries the local broker's identity and advertised fields.
type BrokerConfig struct {
	ID                 string `yaml:"id"`
	Hostname           string `yaml:"hostname"`
	Port               int    `yaml:"port"`
	WSPort             int    `yaml:"wsPort"`
	Version            string `yaml:"version"`
	PolicyHostname     string `yaml:"policyHostname"`
	PolicyIP           string `yaml:"policyIp"`
	PolicyPort         int    `yaml:"policyPort"`
	TopicRoutingEnabled bool  `yaml:"topicRoutingEnabled"`
	TTLMinutes         uint32 `yaml:"ttlMinutes"`
}

// TenantConfig carries per-tenant resource limits; 0 means unlimited.
type TenantConfig struct {
	ConnectionLimit         int    `yaml:"connectionLimit"`
	ServiceLimit            int    `yaml:"serviceLimit"`
	SubscriptionLimit       int    `yaml:"subscriptionLimit"`
	ByteLimit               uint32 `yaml:"byteLimit"`
}

// ProtocolConfig carries the sync protocol's timing parameters.
type ProtocolConfig struct {
	CoalesceWindow   time.Duration `yaml:"coalesceWindow"`
	SweepInterval    time.Duration `yaml:"sweepInterval"`
	TopicsBatchBytes int           `yaml:"topicsBatchBytes"`
}

// ListenConfig is the address the metrics/health HTTP surface binds to.
type ListenConfig struct {
	MetricsAddr string `yaml:"metricsAddr"`
}

// LogConfig mirrors pkg/log.Config for file-based configuration.
type LogConfig struct {
	Level      log.Level `yaml:"level"`
	JSONOutput bool      `yaml:"jsonOutput"`
}

// Default returns a config with sane defaults, matching the original
// broker's fallback values where known.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Port:       8883,
			WSPort:     8080,
			TTLMinutes: 10,
		},
		Tenant: TenantConfig{},
		Protocol: ProtocolConfig{
			CoalesceWindow:   time.Second,
			SweepInterval:    60 * time.Second,
			TopicsBatchBytes: 64 * 1024,
		},
		Listen: ListenConfig{
			MetricsAddr: "127.0.0.1:9090",
		},
		Log: LogConfig{
			Level: log.InfoLevel,
		},
	}
}

// Load reads a YAML config file, overlaying it onto the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Broker.ID == "" {
		return nil, fmt.Errorf("config %s: broker.id is required", path)
	}

	return cfg, nil
}
