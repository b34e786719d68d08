// Package config wires viper for the application settings and reads and
// writes wipe profiles.
package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wfstui/internal/dirs"
)

// EnvPrefix is prepended to every environment override, e.g. WFSTUI_WFS_PATH.
const EnvPrefix = "WFSTUI"

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: any errors are returned for optional handling by caller.
func Init(root *cobra.Command) error {
	// Ensure base directories exist
	_ = dirs.EnsureAll()

	// Setup config search path
	if cfgDir, err := dirs.ConfigDir(); err == nil {
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Bind root persistent flags to Viper keys
	pf := root.PersistentFlags()
	_ = viper.BindPFlag("wfs_path", pf.Lookup("wfs-path"))
	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("log_file", pf.Lookup("log-file"))
	_ = viper.BindPFlag("no_ui", pf.Lookup("no-ui"))

	// Read config file if present (ignore not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}
