package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome           = "WALLETDIR_HOME"
	EnvStorePath      = "WALLETDIR_STORE_PATH"
	EnvWordList       = "WALLETDIR_WORD_LIST"
	EnvListenAddr     = "WALLETDIR_LISTEN_ADDR"
	EnvPort           = "PORT"
	EnvAllowedOrigins = "WALLETDIR_ALLOWED_ORIGINS"
	EnvFrontendURL    = "FRONTEND_URL"
	EnvOutputFormat   = "WALLETDIR_OUTPUT_FORMAT"
	EnvVerbose        = "WALLETDIR_VERBOSE"
	EnvLogLevel       = "WALLETDIR_LOG_LEVEL"
	EnvLogFile        = "WALLETDIR_LOG_FILE"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvStorePath); v != "" {
		cfg.Store.Path = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvWordList); v != "" {
		cfg.Store.WordList = strings.ToLower(strings.TrimSpace(v))
	}

	// PORT is honored for platform deployments; an explicit listen
	// address wins over it.
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && port > 0 && port < 65536 {
			cfg.Server.ListenAddr = ":" + strconv.Itoa(port)
		}
	}

	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.Server.ListenAddr = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		cfg.Server.CORS.AllowedOrigins = SanitizeOrigins(strings.Split(v, ","))
	}

	if v := os.Getenv(EnvFrontendURL); v != "" {
		cfg.Server.CORS.AllowedOrigins = appendUnique(cfg.Server.CORS.AllowedOrigins, SanitizeURL(v))
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v, ok := os.LookupEnv(EnvLogFile); ok {
		cfg.Logging.File = strings.TrimSpace(v)
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided origins that may contain copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}

// SanitizeOrigins cleans a list of origins, dropping empty entries and
// trailing slashes.
func SanitizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		clean := strings.TrimSuffix(SanitizeURL(o), "/")
		if clean == "" {
			continue
		}
		out = appendUnique(out, clean)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
