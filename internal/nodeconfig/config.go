// Package nodeconfig loads a node's YAML configuration file, the
// direct generalization of the teacher's internal/node/config.go:
// network/listen settings, static bootstrap peers, a data directory,
// mining parameters, and logging.
package nodeconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/quantcoin/quantcoind/internal/nodeerrors"
)

// DefaultPort is the standard QuantCoin listen port (§6).
const DefaultPort = 65345

// Config holds everything a quantcoind process needs at startup.
type Config struct {
	Network NetworkConfig `yaml:"network"`
	Storage StorageConfig `yaml:"storage"`
	Mining  MiningConfig  `yaml:"mining"`
	Logging LoggingConfig `yaml:"logging"`
}

// NetworkConfig controls the TCP listener and static peer list. There
// is no dynamic bootstrap/discovery protocol (§1 Non-goals), so
// BootstrapPeers is just a fixed list dialed once at startup.
type NetworkConfig struct {
	ListenPort     int      `yaml:"listen_port"`
	BootstrapPeers []string `yaml:"bootstrap_peers"`
}

// StorageConfig names the data directory. No package in this
// repository reads it: internal/store is in-memory, and
// internal/walletstore and internal/pubstore work on byte slices.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// MiningConfig enables and parameterizes the optional miner.
type MiningConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Wallet        string  `yaml:"wallet"`
	MinTxCount    int     `yaml:"min_tx_count"`
	MinCommission float64 `yaml:"min_commission"`
}

// LoggingConfig mirrors internal/logging.Config's YAML-facing fields.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns sensible defaults for a node that neither
// mines nor carries bootstrap peers.
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			ListenPort:     DefaultPort,
			BootstrapPeers: []string{},
		},
		Storage: StorageConfig{
			DataDir: "~/.quantcoin",
		},
		Mining: MiningConfig{
			Enabled:       false,
			MinTxCount:    1,
			MinCommission: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses path, falling back to defaults for any field
// the file doesn't set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nodeerrors.IOError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nodeerrors.ConfigError(fmt.Sprintf("failed to parse config file %s: %v", path, err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate mirrors the teacher's nil/zero construction checks.
func (c *Config) Validate() error {
	if c.Network.ListenPort <= 0 || c.Network.ListenPort > 65535 {
		return nodeerrors.ConfigError(fmt.Sprintf("listen_port out of range: %d", c.Network.ListenPort))
	}
	if c.Mining.Enabled {
		if c.Mining.Wallet == "" {
			return nodeerrors.ConfigError("mining.wallet is required when mining.enabled is true")
		}
		if c.Mining.MinTxCount < 0 {
			return nodeerrors.ConfigError("mining.min_tx_count must not be negative")
		}
		if c.Mining.MinCommission < 0 {
			return nodeerrors.ConfigError("mining.min_commission must not be negative")
		}
	}
	return nil
}

// Save writes cfg to path as YAML, creating its parent directory if
// needed, matching the teacher's Save behavior.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nodeerrors.IOError("failed to create config directory", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return nodeerrors.IOError("failed to marshal config", err)
	}
	header := []byte("# QuantCoin node configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nodeerrors.IOError("failed to write config file", err)
	}
	return nil
}
