package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.Nil(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	cfg, err := LoadServerConfig("")
	assert.Nil(t, err)
	check.Equal(t, *DefaultServerConfig(), *cfg)
}

func TestLoadServerConfig_File(t *testing.T) {
	path := writeFile(t, "server.yaml", `
transport: vsock
port: 7000
max_workers: 16
batch_concurrency: 2
read_timeout: 5s
library_file: /etc/lotbid/library.yaml
debug: true
`)

	cfg, err := LoadServerConfig(path)
	assert.Nil(t, err)
	check.Equal(t, TransportVsock, cfg.Transport)
	check.Equal(t, uint32(7000), cfg.Port)
	check.Equal(t, 16, cfg.MaxWorkers)
	check.Equal(t, 2, cfg.BatchConcurrency)
	check.Equal(t, 5*time.Second, cfg.ReadTimeout)
	check.Equal(t, "/etc/lotbid/library.yaml", cfg.LibraryFile)
	check.True(t, cfg.Debug)

	// Keys the file leaves out keep their defaults.
	check.Equal(t, DefaultAddress, cfg.Address)
}

func TestLoadServerConfig_EnvOverrides(t *testing.T) {
	path := writeFile(t, "server.yaml", "max_workers: 16\n")
	t.Setenv("LOTBID_MAX_WORKERS", "3")
	t.Setenv("LOTBID_ADDRESS", "0.0.0.0:6000")

	cfg, err := LoadServerConfig(path)
	assert.Nil(t, err)
	check.Equal(t, 3, cfg.MaxWorkers)
	check.Equal(t, "0.0.0.0:6000", cfg.Address)
}

func TestLoadServerConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown transport", "transport: carrier-pigeon\n"},
		{"zero workers", "max_workers: 0\n"},
		{"negative batch concurrency", "batch_concurrency: -1\n"},
		{"empty tcp address", "address: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadServerConfig(writeFile(t, "server.yaml", tt.content))
			check.Error(t, err)
		})
	}
}

func TestLoadServerConfig_MissingFile(t *testing.T) {
	_, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	check.Error(t, err)
}
