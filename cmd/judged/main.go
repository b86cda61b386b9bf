package main

import (
	"errors"
	"os"

	"github.com/itstheanurag/codejudge/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	jsonLogs   bool

	conf   *config.Config
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

var rootCmd = &cobra.Command{
	Use:           "judged",
	Short:         "Sandboxed code judge for java, python and javascript submissions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		conf, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			conf.Log.Level = logLevel
		}
		if cmd.Flags().Changed("json-logs") {
			conf.Log.JSON = jsonLogs
		}
		logger, err = newLogger(conf.Log)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (defaults to $JUDGE_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit JSON logs instead of console output")
}

func newLogger(lc config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if lc.JSON {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errNotAccepted) {
			os.Exit(2)
		}
		logger.Error().Err(err).Msg("judged failed")
		os.Exit(1)
	}
}
