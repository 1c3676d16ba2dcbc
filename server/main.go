package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cloudx-io/lotbid/audit"
	"github.com/cloudx-io/lotbid/config"
)

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	return cfg.Build()
}

func run(configPath string) error {
	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	library := config.DefaultLibrary()
	if cfg.LibraryFile != "" {
		library, err = config.LoadLibrary(cfg.LibraryFile)
		if err != nil {
			return fmt.Errorf("load library: %w", err)
		}
	}
	logger.Info("library loaded",
		zap.String("file", cfg.LibraryFile),
		zap.Strings("sources", library.Sources()),
		zap.Int("profiles", len(library.Profiles)),
	)

	signer, err := audit.LoadSigner(cfg.SigningKeyFile)
	if err != nil {
		return fmt.Errorf("load signing key: %w", err)
	}
	if cfg.SigningKeyFile == "" {
		logger.Warn("no signing_key_file configured, signing with an ephemeral key", zap.String("key_id", signer.KeyID()))
	} else {
		logger.Info("signing key loaded", zap.String("key_id", signer.KeyID()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewDealServer(cfg, library, signer, logger).Start(ctx)
}

func main() {
	configPath := flag.String("config", "", "Path to server config file (YAML, JSON or TOML)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
