package utils

import (
	"os"
	"strconv"
	"github.com/craftparty/craftparty-backend/internal/logger"
)

// GetEnv reads one of the server's configuration variables (POSTGRES_*,
// REDIS_ADDR, CATALOG_PATH, JWT_SECRET_KEY, ...) with a logged fallback, so
// a misconfigured deployment shows every default it is running on at boot.
func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("Environment variable found, using environment", "environment", val)
	}
	return val
}

// GetEnvAsInt is GetEnv for numeric knobs (PROGRESS_CACHE_TTL,
// SHUTDOWN_GRACE_SECONDS). Unparseable values fall back rather than abort.
func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default", "providedVal", valStr, "defaultVal", defaultVal, "error", err)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("Environment variable found, using it", "value", i)
	}
	return i
}
