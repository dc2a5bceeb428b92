package circuitbreaker

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig returns the breaker configuration for an upstream service.
// Values come from CB_<SERVICE>_* environment variables with the given fallback.
//
//	CB_LLM_FAILURE_THRESHOLD=3 CB_LLM_TIMEOUT=30s
func ServiceConfig(service string, fallback Config) Config {
	prefix := "CB_" + strings.ToUpper(strings.ReplaceAll(service, "-", "_")) + "_"
	return Config{
		MaxRequests:      getEnvUint32(prefix+"MAX_REQUESTS", fallback.MaxRequests),
		Interval:         getEnvDuration(prefix+"INTERVAL", fallback.Interval),
		Timeout:          getEnvDuration(prefix+"TIMEOUT", fallback.Timeout),
		FailureThreshold: getEnvUint32(prefix+"FAILURE_THRESHOLD", fallback.FailureThreshold),
		SuccessThreshold: getEnvUint32(prefix+"SUCCESS_THRESHOLD", fallback.SuccessThreshold),
		OnStateChange:    fallback.OnStateChange,
	}
}

// LLMConfig is the breaker configuration for the completion service.
func LLMConfig() Config {
	return ServiceConfig("llm", Config{
		MaxRequests:      2,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 4,
		SuccessThreshold: 1,
	})
}

// SearchConfig is the breaker configuration for the web search API.
func SearchConfig() Config {
	return ServiceConfig("search", Config{
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
	})
}

func getEnvUint32(key string, defaultValue uint32) uint32 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 32); err == nil {
			return uint32(parsed)
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}
