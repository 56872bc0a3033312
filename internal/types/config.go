package types

// APIConfig holds the connection settings of the artifact store.
type APIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	APIKey       string `yaml:"api_key"`
	SSLVerify    *bool  `yaml:"ssl_verify"`
	ReadTimeout  int    `yaml:"read_timeout"`
	Retries      int    `yaml:"retries"`
	RetryDelayMs int    `yaml:"retry_delay_ms"`
}

// InsecureSkipVerify is true only when ssl_verify was explicitly disabled.
func (c APIConfig) InsecureSkipVerify() bool {
	return c.SSLVerify != nil && !*c.SSLVerify
}

// RepoConfig is a repository key with its raw policy override.
type RepoConfig struct {
	Key    string
	Policy map[string]any
}

// Config is the parsed configuration file. Repos keep file order.
type Config struct {
	API      APIConfig
	Defaults map[string]any
	Repos    []RepoConfig
}
