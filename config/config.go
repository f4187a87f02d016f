package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// JWTConfig is injected into the token issuer and auth service at
// construction. Secrets always come from the environment, never the file.
type JWTConfig struct {
	SecretKey        string        `mapstructure:"secretKey"`
	RefreshSecretKey string        `mapstructure:"refreshSecretKey"`
	Issuer           string        `mapstructure:"issuer"`
	AccessTokenTTL   time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL  time.Duration `mapstructure:"refreshTokenTTL"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			Password string `mapstructure:"password"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Cors struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
	JWT JWTConfig `mapstructure:"jwt"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	applyEnvOverrides(&config)

	if config.JWT.SecretKey == "" || config.JWT.RefreshSecretKey == "" {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	}
	return config, nil
}

// applyEnvOverrides layers process environment values over the file config.
// The env variable names match the deployment's .env contract.
func applyEnvOverrides(cfg *Config) {
	if s := os.Getenv("ACCESS_TOKEN_SECRET"); s != "" {
		cfg.JWT.SecretKey = s
	}
	if s := os.Getenv("REFRESH_TOKEN_SECRET"); s != "" {
		cfg.JWT.RefreshSecretKey = s
	}
	if s := os.Getenv("ACCESS_TOKEN_EXPIRY"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.JWT.AccessTokenTTL = d
		}
	}
	if s := os.Getenv("REFRESH_TOKEN_EXPIRY"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.JWT.RefreshTokenTTL = d
		}
	}
	if s := os.Getenv("CORS_ORIGIN"); s != "" {
		cfg.Cors.AllowedOrigins = []string{s}
	}
	if s := os.Getenv("PORT"); s != "" {
		cfg.Server.HTTPPort = s
	}
	if s := os.Getenv("POSTGRES_PASSWORD"); s != "" {
		cfg.Repositories.Postgres.Password = s
	}
	if s := os.Getenv("POSTGRES_HOST"); s != "" {
		cfg.Repositories.Postgres.Host = s
	}
}
