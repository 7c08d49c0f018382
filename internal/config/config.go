// Package config loads glovebox's runtime configuration from CLI flags with
// environment-variable fallbacks.
package config

import "github.com/pkg/errors"

const (
	defaultHost            = "localhost"
	defaultPort            = "8080"
	defaultJarMemCacheSize = 100 * 1024 * 1024      // 100MiB
	defaultJarFsCacheSize  = 1 * 1024 * 1024 * 1024 // 1GiB
	defaultJarDir          = "./jars"
)

// Config holds the fully-resolved settings glovebox runs with.
type Config struct {
	Host string
	Port string

	// Maven is the upstream Maven repository base URI. Required.
	Maven string

	// JarMemCacheSize is the byte capacity of the in-memory decompressed-JAR LRU.
	JarMemCacheSize int64
	// JarFsCacheSize is the byte capacity of the on-disk raw-JAR LRU.
	JarFsCacheSize int64
	// JarDir is the root directory the on-disk LRU is allowed to write to.
	JarDir string
}

// Load resolves configuration from explicit flag overrides (non-empty/non-zero
// values win) falling back to environment variables and finally to the
// documented defaults. maven must be supplied by a flag or
// GLOVEBOX_MAVEN; it has no default.
func Load(flagHost, flagPort, flagMaven, flagJarDir string, flagJarMemCacheSize, flagJarFsCacheSize int64) (*Config, error) {
	LoadEnvOnce()

	cfg := &Config{
		Host:            firstNonEmpty(flagHost, GetEnvWithFallback("GLOVEBOX_HOST", defaultHost)),
		Port:            firstNonEmpty(flagPort, GetEnvWithFallback("GLOVEBOX_PORT", defaultPort)),
		Maven:           firstNonEmpty(flagMaven, GetEnvWithFallback("GLOVEBOX_MAVEN", "")),
		JarDir:          firstNonEmpty(flagJarDir, GetEnvWithFallback("GLOVEBOX_JAR_DIR", defaultJarDir)),
		JarMemCacheSize: firstNonZero(flagJarMemCacheSize, GetEnvInt64WithFallback("GLOVEBOX_JAR_MEM_CACHE_SIZE", defaultJarMemCacheSize)),
		JarFsCacheSize:  firstNonZero(flagJarFsCacheSize, GetEnvInt64WithFallback("GLOVEBOX_JAR_FS_CACHE_SIZE", defaultJarFsCacheSize)),
	}

	if cfg.Maven == "" {
		return nil, errors.New("maven repository base URI is required (--maven or GLOVEBOX_MAVEN)")
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
