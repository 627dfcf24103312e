package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nielsole/ppe_tile/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var optConfigFile string

var rootCmd = &cobra.Command{
	Use:   "ppe_tile",
	Short: "Render PPE measurements onto map tiles",
	Long: `ppe_tile stores point measurements of positional error (PPE) and
renders them as colored markers on 256x256 slippy map tiles.

Every flag can also be set in the config file or through the environment,
eg. --max-zoom as PPETILE_MAX_ZOOM.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd); err != nil {
			return err
		}
		return setDefaultSlog(cmd, args)
	},
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(wordSepNormalizeFunc)
	defaults := params.DefaultServerConfig()

	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&optConfigFile, "config", "", "Config file (yaml, toml or json)")
	pFlags.String("log-level", "info", "Log level: debug, info, warn or error")
	pFlags.String("log-format", "text", "Log format: text or json")
	pFlags.String("data", defaults.DataPath, "Path to the feature database")
	pFlags.Uint32("min-zoom", defaults.MinZoom, "Lowest zoom level served")
	pFlags.Uint32("max-zoom", defaults.MaxZoom, "Highest zoom level served, all features are drawn here")
	pFlags.Float64("radius", defaults.MarkerRadius, "Marker radius in pixels")
	pFlags.Int("dedupe-size", defaults.DedupeCacheSize, "Number of recent submissions remembered to drop duplicates, 0 disables")
}

// Accept --max_zoom for --max-zoom, matching the environment variable names.
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("PPETILE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if optConfigFile != "" {
		viper.SetConfigFile(optConfigFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", optConfigFile, err)
		}
	}
	// Inherited persistent flags are merged into cmd.Flags() by now.
	return viper.BindPFlags(cmd.Flags())
}

func setDefaultSlog(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format := viper.GetString("log-format"); format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	slog.SetDefault(slog.New(handler).With("cmd", cmd.Name()))
	return nil
}

// loadConfig reads the settings shared by all commands.
func loadConfig() (*params.ServerConfig, error) {
	config := params.DefaultServerConfig()
	config.DataPath = viper.GetString("data")
	config.MinZoom = viper.GetUint32("min-zoom")
	config.MaxZoom = viper.GetUint32("max-zoom")
	config.MarkerRadius = viper.GetFloat64("radius")
	config.DedupeCacheSize = viper.GetInt("dedupe-size")
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
