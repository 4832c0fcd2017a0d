package commands

import (
	"fmt"

	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/config"
)

// InitLogger initializes the logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
