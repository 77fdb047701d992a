// Package config provides CLI commands for inspecting and creating the
// filepong configuration file.
package config

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/YaroslavSolovev/AKOS-Laba2/internal/config"
)

// fs is the filesystem config init writes to. Tests replace it.
var fs = afero.NewOsFs()

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create filepong configuration",
	Long: `View or create filepong configuration.

Without arguments, displays the effective configuration: defaults, overlaid
with the config file, FILEPONG_* environment variables and flags.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration as YAML",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file paths",
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with the default values",
	Long: `Create a config file with every option set to its default value.

By default the file is written to ~/.config/filepong/config.yaml (or
$XDG_CONFIG_HOME/filepong/config.yaml). With --local it is written to
./filepong.yaml, which takes precedence when filepong runs in this directory.`,
	RunE: runConfigInit,
}

var (
	initLocal bool // Write ./filepong.yaml instead of the user config
	initForce bool // Overwrite an existing file
)

func init() {
	configInitCmd.Flags().BoolVar(&initLocal, "local", false, "write ./filepong.yaml instead of the user config file")
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}

// Register adds the config command tree to parent.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "# config file: %s\n", used)
	} else {
		fmt.Fprintln(out, "# config file: (none - using defaults)")
	}

	data, err := marshal(cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "user:  %s\n", appconfig.ConfigFile())
	fmt.Fprintf(out, "local: %s\n", appconfig.LocalConfigFile)
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "in use: %s\n", used)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	target := appconfig.ConfigFile()
	if initLocal {
		target = appconfig.LocalConfigFile
	}

	exists, err := afero.Exists(fs, target)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", target, err)
	}
	if exists && !initForce {
		return fmt.Errorf("config file already exists at %s\nUse --force to overwrite it", target)
	}

	data, err := marshal(appconfig.Default())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# filepong configuration\n")
	buf.WriteString("# Every key can be overridden with FILEPONG_<SECTION>_<KEY>,\n")
	buf.WriteString("# e.g. FILEPONG_CLIENT_MAX_RETRIES=5.\n\n")
	buf.Write(data)

	if dir := filepath.Dir(target); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := afero.WriteFile(fs, target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", target)
	return nil
}

func marshal(cfg *appconfig.Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return buf.Bytes(), nil
}
