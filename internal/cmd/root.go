package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/YaroslavSolovev/AKOS-Laba2/internal/cmd/config"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "filepong",
	Short: "Ping/pong exchange over a shared mailbox file",
	Long: `filepong runs a client and a server that talk exclusively through one
shared text file. The client writes a ping request and polls for the reply;
the server polls for requests, answers them with pong, and reports invalid
requests back to the client as ERROR: notices.

Start the server in one terminal and the client in another, pointing both at
the same --mailbox file.`,
	SilenceUsage: true,
}

// configReadErr holds the failure to read a config file found or named during
// initialization. Commands surface it when they load the configuration.
var configReadErr error

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is ./filepong.yaml, then $HOME/.config/filepong/config.yaml)")
	flags.StringP("mailbox", "m", "", "shared mailbox file (default is shared_communication.txt)")
	flags.Bool("raw", false, "use raw framing: bare ping/pong payloads without tags")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-file", "", "write JSON logs to this file instead of stderr")

	configcmd.Register(rootCmd)
}

// bindFlags connects flags to their configuration keys. It runs on every
// initialization so that a viper reset does not lose the bindings.
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("mailbox.path", flags.Lookup("mailbox"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.file", flags.Lookup("log-file"))
	_ = viper.BindPFlag("server.max_requests", serverCmd.Flags().Lookup("max-requests"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()
	bindFlags()

	viper.SetEnvPrefix(config.EnvPrefix)
	// Replace dots with underscores for nested keys in env vars
	// e.g., FILEPONG_CLIENT_MAX_RETRIES for client.max_retries
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configReadErr = nil
	cfgFile := viper.GetString("config")
	if cfgFile == "" {
		cfgFile = findConfigFile(afero.NewOsFs())
	}
	if cfgFile == "" {
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		configReadErr = fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}
}

// findConfigFile returns the first existing config file: the local
// filepong.yaml, then the user config file.
func findConfigFile(fs afero.Fs) string {
	for _, candidate := range []string{config.LocalConfigFile, config.ConfigFile()} {
		if ok, err := afero.Exists(fs, candidate); err == nil && ok {
			return candidate
		}
	}
	return ""
}

// loadConfig returns the validated configuration with command-line overrides
// applied that have no direct configuration key.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if configReadErr != nil {
		return nil, configReadErr
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if flag := cmd.Flags().Lookup("raw"); flag != nil && flag.Changed {
		raw, _ := cmd.Flags().GetBool("raw")
		cfg.Protocol.StrictFraming = !raw
	}
	return cfg, nil
}
