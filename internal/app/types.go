package app

import "artycleaner/internal/types"

// APIOverrides replace the matching api.* values of the config file when
// non-empty.
type APIOverrides struct {
	Endpoint string
	Username string
	Password string
	APIKey   string
}

type PurgeRequest struct {
	ConfigPath  string
	DryRun      bool
	MetricsFile string
	Overrides   APIOverrides
}

type PurgeResult struct {
	Report types.RunReport
}
