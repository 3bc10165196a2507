package cmd

import (
	"os"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/core/config"
	"github.com/GMOnyx/Commandlessapp-sub000/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debugFlag  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Commandless relay for Discord bots",
	Long: `Relays Discord messages and slash commands to the Commandless decision service
and executes the returned replies and commands locally.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		initLogging(debugFlag)
	},
}

func init() {
	// Load environment variables first
	utils.LoadEnvFile(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Version = config.Version

	rootCmd.PersistentFlags().StringVarP(
		&configPath,
		"config", "c",
		"",
		"path to a yaml/json/toml config file | example: --config=relay.yaml",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&debugFlag,
		"debug", "d",
		false,
		"enable debug logging | example: --debug=true",
	)
}

func initLogging(debug bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logrus.SetOutput(os.Stdout)
	if debug || os.Getenv("APP_DEBUG") == "true" {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
