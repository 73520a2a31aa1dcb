package config

import (
	"os"
	"strings"
)

const (
	baseURLVar    = "SESSION_BASE_URL"
	appNameVar    = "APP_NAME"
	folderEnvVar  = "FOLDER"
	identifierVar = "SESSION_IDENTIFIER"
	secretVar     = "SESSION_SECRET"
	rememberVar   = "SESSION_REMEMBER"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

// GetBaseURL returns the base URL of the authentication server
// (e.g., "https://auth.example.com"). All credential endpoints are
// resolved relative to it.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Go Session Client")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetIdentifier() string {
	return GetEnv(identifierVar, "")
}

func (EnvVars) GetSecret() string {
	return GetEnv(secretVar, "")
}

func (EnvVars) GetRememberSession() bool {
	switch strings.ToLower(GetEnv(rememberVar, "true")) {
	case "false", "0", "no":
		return false
	default:
		return true
	}
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
