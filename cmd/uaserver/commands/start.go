package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/bootstrap"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/config"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/engine"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/lifecycle"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/snapshot"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server",
	Long: `Start the server in the foreground with the specified configuration.

Without a configuration file the built-in defaults are used. The endpoint
port and hostname can be overridden with the ua_port and ua_ip environment
variables.

Examples:
  # Start with defaults or the default config location
  uaserver start

  # Start with custom config file
  uaserver start --config /etc/uaserver/config.yaml

  # Start with environment variable overrides
  ua_port=4841 UASERVER_LOGGING_LEVEL=DEBUG uaserver start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return fmt.Errorf("configuration file not found: %s (create it with: uaserver init --config %s)", configFile, configFile)
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Sample Server %s starting", Version)
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Configuration loaded from: %s", getConfigSource(configFile))

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		if err := metricsResult.Server.Start(ctx); err != nil {
			return err
		}
	} else {
		logger.Info("Metrics collection disabled")
	}

	as, err := config.CreateAddressSpace(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := as.Close(); err != nil {
			logger.Error("Failed to close address space: %v", err)
		}
	}()

	engineCfg := cfg.Engine.Config
	stampBuildInfo(&engineCfg.BuildInfo)

	srv := engine.New(as, engineCfg)
	adapters, err := config.CreateAdapters(cfg, metricsResult.ServiceMetrics)
	if err != nil {
		return err
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return fmt.Errorf("failed to add %s adapter: %w", a.Protocol(), err)
		}
	}

	var exitCode int
	controller := lifecycle.New(cfg.Shutdown, lifecycle.Options{
		Engine:  srv,
		Prepare: prepare(as, cfg),
		Metrics: metricsResult.LifecycleMetrics,
		Exit:    func(code int) { exitCode = code },
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	controller.Run(ctx, sigChan)

	if exitCode != lifecycle.ExitOK {
		return fmt.Errorf("server exited with code %d", exitCode)
	}
	return nil
}

// prepare returns the startup step run before the endpoints open: the
// bootstrap, followed by the optional snapshot export.
func prepare(as *addrspace.AddressSpace, cfg *config.Config) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if _, err := bootstrap.Run(ctx, as, cfg.Bootstrap); err != nil {
			return err
		}

		if !cfg.Snapshot.Enabled {
			return nil
		}

		sink, err := config.CreateSnapshotSink(ctx, &cfg.Snapshot)
		if err != nil {
			logger.Warn("Snapshot skipped: %v", err)
			return nil
		}
		if _, err := snapshot.Export(ctx, as, sink); err != nil {
			logger.Warn("Snapshot failed: %v", err)
		}
		return nil
	}
}

// stampBuildInfo fills the build fields the configuration leaves to the binary.
func stampBuildInfo(info *engine.BuildInfo) {
	if info.SoftwareVersion == "" {
		info.SoftwareVersion = Version
	}
	if info.BuildDate.IsZero() {
		if t, err := time.Parse(time.RFC3339, Date); err == nil {
			info.BuildDate = t
		} else {
			info.BuildDate = time.Now()
		}
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.ConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
