package config

const (
	defaultPageSize        = 500
	defaultWorkers         = 4
	defaultQueryTimeout    = 30
	defaultDownloadTimeout = 60
	defaultConvertTimeout  = 60
)

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	return Config{
		API: API{
			TokenEnv: "MONDAY_API_TOKEN",
		},
		Run: Run{
			PageSize:               defaultPageSize,
			Workers:                defaultWorkers,
			QueryTimeoutSeconds:    defaultQueryTimeout,
			DownloadTimeoutSeconds: defaultDownloadTimeout,
			ConvertTimeoutSeconds:  defaultConvertTimeout,
		},
		Convert: Convert{
			SofficeBinary:     "soffice",
			WkhtmltopdfBinary: "wkhtmltopdf",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}
