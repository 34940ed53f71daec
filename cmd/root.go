package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"f1replaybot/log"
	"f1replaybot/pkg/client"
	"f1replaybot/pkg/config"
	"f1replaybot/pkg/layout"
)

const envPrefix = "F1R"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "f1replay",
	Short: "Animated lap replays from FastF1 telemetry",
	Long: `f1replay fetches per-driver lap telemetry from the FastF1 backend and
replays the drivers as moving markers on the circuit outline.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Init(config.LogFormat, config.LogLevel)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer func() { _ = log.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.f1replay.yml)")

	rootCmd.PersistentFlags().StringVar(&config.BackendURL, "backend-url",
		"http://localhost:8000",
		"Base URL of the telemetry backend")
	rootCmd.PersistentFlags().DurationVar(&config.Timeout, "timeout",
		client.DefaultTimeout,
		"Timeout for a single backend request")
	rootCmd.PersistentFlags().IntVar(&config.Width, "width",
		layout.DefaultWidth,
		"Viewport width in pixels")
	rootCmd.PersistentFlags().IntVar(&config.Height, "height",
		layout.DefaultHeight,
		"Viewport height in pixels")
	rootCmd.PersistentFlags().Float64Var(&config.Padding, "padding",
		layout.DefaultPadding,
		"Viewport padding in pixels")
	rootCmd.PersistentFlags().StringVar(&config.CachePath, "cache-path",
		"",
		"sqlite file caching backend payloads (disabled when empty)")
	rootCmd.PersistentFlags().DurationVar(&config.CacheTTL, "cache-ttl",
		0,
		"Refetch cached payloads older than this (0 keeps them forever)")
	rootCmd.PersistentFlags().StringVar(&config.LogLevel, "log-level",
		"info",
		"controls the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat, "log-format",
		"text",
		"controls the log output format (text, json)")

	// add commands here
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newCacheCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".f1replay")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
}

// Bind each cobra flag of cmd and all its subcommands to its associated
// viper configuration (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	for _, sub := range cmd.Commands() {
		bindFlags(sub, v)
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --backend-url to F1R_BACKEND_URL
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
