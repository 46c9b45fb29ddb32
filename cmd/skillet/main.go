package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/presenter"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("SKILLET")
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillet")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()

	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "fmt")
}

var rootCmd = &cobra.Command{
	Use:   "skillet",
	Short: "Skillet runs declarative multi-step skills",
	Long: `Skillet is a skill execution engine: skills are declarative YAML
workflows whose steps call tools, evaluate expressions, or invoke other
skills, with results flowing between steps through templated references.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetLogLevel(viper.GetString("log_level"))
		logger.SetLogFormat(viper.GetString("log_format"))
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func main() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt or json)")
	rootCmd.PersistentFlags().StringSlice("skill-dir", nil, "Additional skill directories (highest precedence first)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("skill_dirs", rootCmd.PersistentFlags().Lookup("skill-dir"))

	rootCmd.AddCommand(withTracing(runCmd))
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(withTracing(serveCmd))
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		presenter.Error(err, "command failed")
		os.Exit(1)
	}
}
