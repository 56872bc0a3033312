package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"artycleaner/internal/app"
)

type purgeOptions struct {
	ConfigPath  string
	DryRun      bool
	LogLevel    string
	MetricsFile string
}

var newAppService = app.NewService

func runPurge(ctx context.Context, cmd *cobra.Command, opts purgeOptions) error {
	service := newAppService()
	_, err := service.Purge(ctx, app.PurgeRequest{
		ConfigPath:  resolveString(cmd, opts.ConfigPath, "config", "config"),
		DryRun:      resolveBool(cmd, opts.DryRun, "dryrun", "dryrun"),
		MetricsFile: resolveString(cmd, opts.MetricsFile, "metrics_file", "metrics_file"),
		Overrides:   apiOverridesFromEnv(),
	})
	return err
}

// apiOverridesFromEnv reads ARTYCLEANER_API_* so credentials can stay out of
// the config file.
func apiOverridesFromEnv() app.APIOverrides {
	return app.APIOverrides{
		Endpoint: viper.GetString("api_endpoint"),
		Username: viper.GetString("api_username"),
		Password: viper.GetString("api_password"),
		APIKey:   viper.GetString("api_key"),
	}
}
