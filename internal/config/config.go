package config

import (
	"time"

	"github.com/spf13/viper"
)

const DefaultDatabasePath = "./datakit.db"

type (
	Config struct {
		Database
		HTTP
		ViaCEP
		Mediator
	}

	Database struct {
		Path string
	}
	HTTP struct {
		Timeout    time.Duration
		MaxRetries int
		RetryDelay time.Duration
	}
	ViaCEP struct {
		BaseURL string
	}
	Mediator struct {
		SaveErrorPolicy string // surface | log | ignore
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("http_max_retries", 3)
	v.SetDefault("http_retry_delay", "1s")
	v.SetDefault("viacep_base_url", "https://viacep.com.br")
	v.SetDefault("save_error_policy", "surface")

	return &Config{
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		HTTP: HTTP{
			Timeout:    v.GetDuration("HTTP_TIMEOUT"),
			MaxRetries: v.GetInt("HTTP_MAX_RETRIES"),
			RetryDelay: v.GetDuration("HTTP_RETRY_DELAY"),
		},
		ViaCEP: ViaCEP{
			BaseURL: v.GetString("VIACEP_BASE_URL"),
		},
		Mediator: Mediator{
			SaveErrorPolicy: v.GetString("SAVE_ERROR_POLICY"),
		},
	}
}
