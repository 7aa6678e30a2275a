package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bokulich-lab/q2pkg/internal/render"
	"github.com/bokulich-lab/q2pkg/pkg/logging"
	"github.com/bokulich-lab/q2pkg/pkg/store"
)

var (
	cfgFile      string
	outputFormat string
	epoch        string
	dbPath       string
	logLevel     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "q2pkg",
	Short: "Build tool for QIIME 2 plugin conda recipes",
	Long: `q2pkg renders, lints, builds and tests conda-style recipes for
QIIME 2 plugins, and records build artifacts for inspection.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.q2pkg/config)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().StringVar(&epoch, "epoch", "", "QIIME 2 release epoch used for {{ qiime2_epoch }} pins (e.g. 2024.5)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "artifact database: a SQLite path or a postgres:// DSN")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".q2pkg"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	viper.BindEnv("epoch", "Q2PKG_EPOCH")
	viper.BindEnv("db", "Q2PKG_DB")

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetString("epoch") != "" && epoch == "" {
			epoch = viper.GetString("epoch")
		}
		if viper.GetString("db") != "" && dbPath == "" {
			dbPath = viper.GetString("db")
		}
	}

	if epoch == "" && viper.GetString("epoch") != "" {
		epoch = viper.GetString("epoch")
	}
	if dbPath == "" && viper.GetString("db") != "" {
		dbPath = viper.GetString("db")
	}
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// renderContext builds the template context shared by all recipe commands
func renderContext() render.Context {
	vars := map[string]string{}
	if epoch != "" {
		vars["qiime2_epoch"] = epoch
	}
	return render.Context{Vars: vars}
}

// newLogger creates the CLI logger honoring --log-level
func newLogger() *logging.Logger {
	return logging.NewLogger(logging.ParseLevel(logLevel), IsJSONOutput())
}

// openStore opens the configured artifact store. A postgres:// DSN
// selects PostgreSQL; any other non-empty value is a SQLite path; the
// default is a SQLite database under $HOME/.q2pkg.
func openStore(cmd *cobra.Command) (store.Store, error) {
	switch {
	case len(dbPath) >= 11 && dbPath[:11] == "postgres://":
		return store.NewPostgresStore(cmd.Context(), store.PostgresConfig{DSN: dbPath})
	case dbPath != "":
		return store.NewSQLiteStore(dbPath)
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to find home directory: %w", err)
		}
		dir := filepath.Join(home, ".q2pkg")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		return store.NewSQLiteStore(filepath.Join(dir, "artifacts.db"))
	}
}

// printJSON writes v as indented JSON to stdout
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
