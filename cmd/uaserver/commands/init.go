package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample uaserver configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/uaserver/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  uaserver init

  # Initialize with custom path
  uaserver init --config /etc/uaserver/config.yaml

  # Force overwrite existing config
  uaserver init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Edit the configuration file to customize your setup")
	fmt.Fprintln(out, "  2. Start the server with: uaserver start")
	fmt.Fprintf(out, "  3. Or specify custom config: uaserver start --config %s\n", configPath)

	return nil
}
