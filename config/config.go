package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	TransportTCP   = "tcp"
	TransportVsock = "vsock"
)

// ServerConfig configures the decision server.
type ServerConfig struct {
	Transport        string        `mapstructure:"transport"`
	Address          string        `mapstructure:"address"` // tcp listen address
	Port             uint32        `mapstructure:"port"`    // vsock port
	MaxWorkers       int           `mapstructure:"max_workers"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	LibraryFile      string        `mapstructure:"library_file"`
	SigningKeyFile   string        `mapstructure:"signing_key_file"`
	Debug            bool          `mapstructure:"debug"`
}

const (
	DefaultTransport        = TransportTCP
	DefaultAddress          = "127.0.0.1:5000"
	DefaultPort             = 5000
	DefaultMaxWorkers       = 8
	DefaultBatchConcurrency = 4
	DefaultReadTimeout      = 30 * time.Second

	envPrefix = "LOTBID"
)

// DefaultServerConfig returns the configuration used when nothing is set.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Transport:        DefaultTransport,
		Address:          DefaultAddress,
		Port:             DefaultPort,
		MaxWorkers:       DefaultMaxWorkers,
		BatchConcurrency: DefaultBatchConcurrency,
		ReadTimeout:      DefaultReadTimeout,
	}
}

// LoadServerConfig reads path (YAML, JSON or TOML by extension) over the defaults.
// An empty path uses defaults only. LOTBID_* environment variables override both.
func LoadServerConfig(path string) (*ServerConfig, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"transport":         DefaultTransport,
		"address":           DefaultAddress,
		"port":              DefaultPort,
		"max_workers":       DefaultMaxWorkers,
		"batch_concurrency": DefaultBatchConcurrency,
		"read_timeout":      DefaultReadTimeout,
		"library_file":      "",
		"signing_key_file":  "",
		"debug":             false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read server config: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode server config: %w", err)
	}

	return &cfg, validateServerConfig(&cfg)
}

func validateServerConfig(cfg *ServerConfig) error {
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	switch cfg.Transport {
	case TransportTCP:
		if cfg.Address == "" {
			return errors.New("address is required for tcp transport")
		}
	case TransportVsock:
		if cfg.Port == 0 {
			return errors.New("port is required for vsock transport")
		}
	default:
		return fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	if cfg.MaxWorkers <= 0 {
		return errors.New("invalid max_workers")
	}
	if cfg.BatchConcurrency <= 0 {
		return errors.New("invalid batch_concurrency")
	}
	if cfg.ReadTimeout < 0 {
		return errors.New("invalid read_timeout")
	}
	return nil
}
