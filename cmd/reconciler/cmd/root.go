package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reconciliation-engine/internal/config"
	"reconciliation-engine/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	appConfig *config.AppConfig
	log       logger.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Gateway transaction reconciliation engine",
	Long: `reconciler reconciles external gateway statements against internal
payout ledgers, persists the result, and reports on it.

Examples:
  reconciler reconcile --gateway equity
  reconciler reconcile --gateway equity --preview
  reconciler migrate up
  reconciler report --gateway equity --format xlsx --from 2026-01-01 --to 2026-01-31`,
	Version:           getVersionString(),
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// loadConfig reads the AppConfig once per invocation, via internal/config,
// and builds the shared logger every subcommand uses.
func loadConfig(cmd *cobra.Command, args []string) error {
	level := logger.InfoLevel
	if viper.GetBool("verbose") {
		level = logger.DebugLevel
	}
	logCfg := logger.DefaultConfig()
	logCfg.Level = level
	l, err := logger.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	log = l
	logger.SetGlobalLogger(l)

	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	appConfig = cfg
	return nil
}

// SetVersionInfo sets the version information reported by --version.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
