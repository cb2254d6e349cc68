package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/decision-ledger/internal/logging"
	"github.com/ppiankov/decision-ledger/internal/model"
)

// Version is set at build time via -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Decision Ledger - deterministic, versioned claim decisions",
	Long: `Decision Ledger evaluates insurance claims with a deterministic rule
engine and records every run, with its full trace, in an append-only ledger.

Every payout can be replayed, compared against another run, or re-run with
one assumption or interpretation changed to see exactly where and by how
much the outcome moves.

Outcomes come from rules, never from a language model.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		_, err = logging.Setup(cfg.Logging, os.Stderr)
		return err
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ledger %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.ledger/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("fixtures", "", "fixtures directory (default: data/fixtures)")
	rootCmd.PersistentFlags().String("backend", "", "ledger backend: memory, sqlite, postgres")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format: text, json, md")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("fixtures.dir", rootCmd.PersistentFlags().Lookup("fixtures"))
	_ = viper.BindPFlag("ledger.backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("ledger.sqlite_path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && verbose && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Ignoring .env: %v\n", err)
	}

	if err := registerDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering config defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.ledger")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// LEDGER_LEDGER_BACKEND overrides ledger.backend, and so on
	viper.SetEnvPrefix("LEDGER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("llm.api_key")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
