package config

type Config interface {
	EnvConfig
	ClientConfig
}

type EnvConfig interface {
	GetBaseURL() string
	GetAppName() string
	GetDataFolder() string
	GetIdentifier() string
	GetSecret() string
	GetRememberSession() bool
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Client
}

func New() Config {
	return mainConfig{}
}
