package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar = "PORT"
	appNameVar = "APP_NAME"
	langVar    = "LANG_CODE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Editorial Console")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetLangCode returns the active language code. Persisted session keys are
// suffixed with this code so that language contexts under the same origin do
// not collide.
func (EnvVars) GetLangCode() string {
	return GetEnv(langVar, "fr")
}

func (EnvVars) GetSupportedLangs() []string {
	langs := GetEnv("SUPPORTED_LANGS", "fr,ar,en")
	return strings.Split(langs, ",")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
