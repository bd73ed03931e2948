package config

const (
	defaultConfigFile               = "tweetcaster.toml"
	defaultLocalPath                = "./data"
	defaultCredentialsFile          = "accounts.txt"
	defaultRequestTimeoutSeconds    = 30
	defaultMaxRetries               = 3
	defaultRateLimitBackoffSeconds  = 300
	defaultDuplicateBackoffSeconds  = 2
	defaultRetryPassIntervalSeconds = 30
	defaultGeneratorModel           = "gpt-4o-mini"
	defaultGeneratorTimeoutSeconds  = 60
	defaultServerPort               = "8080"
	defaultLogLevel                 = "info"
	defaultLogFormat                = "text"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Storage: Storage{
			LocalPath: defaultLocalPath,
		},
		Accounts: Accounts{
			CredentialsFile:       defaultCredentialsFile,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Posting: Posting{
			MaxRetries:               defaultMaxRetries,
			RateLimitBackoffSeconds:  defaultRateLimitBackoffSeconds,
			DuplicateBackoffSeconds:  defaultDuplicateBackoffSeconds,
			RetryPassIntervalSeconds: defaultRetryPassIntervalSeconds,
		},
		Generator: Generator{
			Models:         []string{defaultGeneratorModel},
			TimeoutSeconds: defaultGeneratorTimeoutSeconds,
		},
		Server: Server{
			Port: defaultServerPort,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
