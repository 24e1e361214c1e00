package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config captures the runtime configuration for the staking daemon.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`
	OwnerAddress  string `toml:"OwnerAddress"`

	AuthEnabled  bool   `toml:"AuthEnabled"`
	AuthSecret   string `toml:"AuthSecret"`
	AuthIssuer   string `toml:"AuthIssuer"`
	AuthAudience string `toml:"AuthAudience"`

	QueryRatePerMinute float64 `toml:"QueryRatePerMinute"`
	QueryRateBurst     int     `toml:"QueryRateBurst"`
	TxRatePerMinute    float64 `toml:"TxRatePerMinute"`
	TxRateBurst        int     `toml:"TxRateBurst"`
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress:      ":8545",
		DataDir:            "./flexstake-data",
		Environment:        "dev",
		QueryRatePerMinute: 600,
		QueryRateBurst:     30,
		TxRatePerMinute:    120,
		TxRateBurst:        10,
	}
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for structurally invalid values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress must be set")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must be set")
	}
	if owner := strings.TrimSpace(c.OwnerAddress); owner != "" && !common.IsHexAddress(owner) {
		return fmt.Errorf("config: OwnerAddress %q is not a valid address", c.OwnerAddress)
	}
	if c.AuthEnabled && strings.TrimSpace(c.AuthSecret) == "" {
		return fmt.Errorf("config: AuthSecret must be set when AuthEnabled is true")
	}
	return nil
}

// Owner returns the configured owner address.
func (c *Config) Owner() ([20]byte, bool) {
	owner := strings.TrimSpace(c.OwnerAddress)
	if owner == "" || !common.IsHexAddress(owner) {
		return [20]byte{}, false
	}
	return common.HexToAddress(owner), true
}
