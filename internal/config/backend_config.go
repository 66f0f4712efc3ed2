package config

import "time"

// BackendConfig describes the upstream editorial REST API the console
// consumes. All calls are credentialed JSON over the base URL.
type BackendConfig interface {
	GetBackendURL() string
	GetBackendTimeout() time.Duration
	GetRedisAddr() string
	GetRedisPassword() string
}

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetBackendURL() string {
	return GetEnv("BACKEND_URL", "http://localhost:9000/")
}

func (Backend) GetBackendTimeout() time.Duration {
	return 15 * time.Second
}

func (Backend) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Backend) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}
