package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ssoonwee/bonafide/pkg/config/netmode"
	"github.com/ssoonwee/bonafide/pkg/encoding/fixedn"
	"github.com/ssoonwee/bonafide/pkg/storage"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is the default path to the config directory.
	DefaultConfigPath = "./config"
	// DefaultDialTimeout is the default RPC connection timeout.
	DefaultDialTimeout = 10 * time.Second
	// DefaultLogMaxSize is the default log file size in megabytes.
	DefaultLogMaxSize = 100
)

// Version is the version of the client, set at build time.
var Version string

// Config is the top level struct representing the config for the client.
type Config struct {
	Chain                    ChainConfiguration       `yaml:"Chain"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// Load attempts to load the config from the given path for the given
// network.
func Load(path string, net netmode.ChainID) (Config, error) {
	configPath := filepath.Join(path, fmt.Sprintf("bonafide.%s.yml", net))
	return LoadFile(configPath)
}

// LoadFile loads config from the provided path, unset values are filled
// with defaults and the result is validated.
func LoadFile(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config '%s' doesn't exist", configPath)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	config := Config{
		Chain: ChainConfiguration{
			Decimals:    fixedn.EtherDecimals,
			DialTimeout: DefaultDialTimeout,
		},
		ApplicationConfiguration: ApplicationConfiguration{
			LogMaxSize: DefaultLogMaxSize,
		},
	}
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	err = decoder.Decode(&config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	ch := c.Chain
	if !common.IsHexAddress(ch.Contract) {
		return fmt.Errorf("invalid contract address %q", ch.Contract)
	}
	if ch.ContractAddress() == (common.Address{}) {
		return errors.New("zero contract address")
	}
	if ch.Decimals < 0 || ch.Decimals > fixedn.MaxPrecision {
		return fmt.Errorf("decimals should be in [0, %d] range, got %d", fixedn.MaxPrecision, ch.Decimals)
	}
	if ch.DialTimeout < 0 {
		return fmt.Errorf("negative DialTimeout: %s", ch.DialTimeout)
	}
	if ch.Waiter.PollInterval < 0 {
		return fmt.Errorf("negative Waiter.PollInterval: %s", ch.Waiter.PollInterval)
	}
	if ch.Waiter.RetryCount < 0 {
		return fmt.Errorf("negative Waiter.RetryCount: %d", ch.Waiter.RetryCount)
	}

	a := c.ApplicationConfiguration
	switch a.DBConfiguration.Type {
	case "", storage.InMemoryDB:
	case storage.BoltDB:
		if a.DBConfiguration.BoltDBOptions.FilePath == "" {
			return errors.New("empty BoltDBOptions.FilePath")
		}
	case storage.LevelDB:
		if a.DBConfiguration.LevelDBOptions.DataDirectoryPath == "" {
			return errors.New("empty LevelDBOptions.DataDirectoryPath")
		}
	default:
		return fmt.Errorf("unknown DB type %q", a.DBConfiguration.Type)
	}
	if a.LogMaxSize < 0 || a.LogMaxBackups < 0 || a.LogMaxAge < 0 {
		return errors.New("negative log rotation parameters")
	}
	if a.Metadata.Timeout < 0 {
		return fmt.Errorf("negative Metadata.Timeout: %s", a.Metadata.Timeout)
	}
	if a.Metadata.MaxSize < 0 || a.Metadata.CacheSize < 0 {
		return errors.New("negative metadata limits")
	}
	return nil
}
