package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"artycleaner/internal/types"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "ARTYCLEANER"

const defaultConfigName = "artycleaner.yaml"

const logTimeFormat = "2006-01-02 15:04:05"

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "artycleaner: "+err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := purgeOptions{}
	cmd := &cobra.Command{
		Use:           "artycleaner",
		Short:         "Purge stale artifacts and Docker tags from Artifactory",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			initConfig()
			return setupLogging(os.Stdout, resolveString(cmd, opts.LogLevel, "log_level", "log_level"))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPurge(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath(), "Config file path")
	cmd.Flags().BoolVar(&opts.DryRun, "dryrun", false, "Log what would be deleted without deleting")
	cmd.Flags().StringVar(&opts.LogLevel, "log_level", string(types.LogLevelInfo), "Log level (DEBUG, INFO, WARN, ERROR, FATAL)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics_file", "", "Write a Prometheus textfile with run metrics")

	_ = viper.BindPFlag("config", cmd.Flags().Lookup("config"))
	_ = viper.BindPFlag("dryrun", cmd.Flags().Lookup("dryrun"))
	_ = viper.BindPFlag("log_level", cmd.Flags().Lookup("log_level"))
	_ = viper.BindPFlag("metrics_file", cmd.Flags().Lookup("metrics_file"))
	return cmd
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// defaultConfigPath is artycleaner.yaml next to the running executable.
func defaultConfigPath() string {
	executable, err := os.Executable()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(filepath.Dir(executable), defaultConfigName)
}

func setupLogging(out io.Writer, level string) error {
	parsed, err := types.ParseLogLevel(level)
	if err != nil {
		return err
	}
	zerolog.TimeFieldFormat = logTimeFormat
	log.Logger = zerolog.New(newConsoleWriter(out)).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(parsed.ZerologLevel())
	return nil
}

// newConsoleWriter renders "[2006-01-02 15:04:05] - LEVEL: message key=value".
func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: logTimeFormat,
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprintf("[%v] -", i)
		},
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("%v:", i))
		},
	}
}
