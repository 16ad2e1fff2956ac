package config

// DefaultListenAddr is the port the payment front end expects the API on.
const DefaultListenAddr = ":7003"

// DefaultStoreFile is the store file name under the home directory.
const DefaultStoreFile = "database.txt"

// DefaultAllowedOrigins are the front-end origins allowed by CORS.
//
//nolint:gochecknoglobals // Configuration default, same pattern as DefaultListenAddr
var DefaultAllowedOrigins = []string{
	"http://localhost:7001",
	"http://127.0.0.1:7001",
	"https://airapayment.olym3.xyz",
}

// Defaults returns the default configuration.
func Defaults() *Config {
	origins := make([]string, len(DefaultAllowedOrigins))
	copy(origins, DefaultAllowedOrigins)

	return &Config{
		Version: 1,
		Home:    "~/.walletdir",
		Store: StoreConfig{
			Path:     "",
			WordList: "bip39",
		},
		Server: ServerConfig{
			ListenAddr:             DefaultListenAddr,
			ReadTimeoutSeconds:     10,
			WriteTimeoutSeconds:    10,
			ShutdownTimeoutSeconds: 15,
			MaxBodyBytes:           10 << 20, // 10 MiB
			CORS: CORSConfig{
				AllowedOrigins: origins,
			},
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 10,
				Burst:             20,
			},
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.walletdir/walletdir.log",
		},
	}
}
