package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhijyotiba/Flusso-Automation/internal/config"
	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
)

var version = "0.4.0"

var (
	// Global flags
	cfgPath     string
	logLevel    string
	catalogPath string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flusso",
	Short: "Flusso - support ticket resolution engine",
	Long: `Flusso processes plumbing fixture support tickets end to end:
it extracts facts from the ticket text, runs a tool-using agent to identify
the exact product, resolves the collected evidence into one identification,
validates the ticket against category requirements and policy rules, and
drafts an enforced customer reply.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if catalogPath != "" {
			cfg.Catalog.ManifestPath = catalogPath
		}
		if err := logging.Initialize(cfg.Logging.Level, cfg.Logging.Format); err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flusso %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "flusso.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "override the catalog manifest path")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
