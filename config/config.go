package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode         string `mapstructure:"mode"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		MetricsPort string        `mapstructure:"metricsPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	JWT     JWTConfig    `mapstructure:"jwt"`
	Cookie  CookieConfig `mapstructure:"cookie"`
	CORS    CORSConfig   `mapstructure:"cors"`
	Catalog struct {
		HypixelBaseURL string        `mapstructure:"hypixelBaseURL"`
		MojangBaseURL  string        `mapstructure:"mojangBaseURL"`
		APIKey         string        `mapstructure:"apiKey"`
		CacheTTL       time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"catalog"`
}

// JWTConfig holds the signing parameters for access tokens.
type JWTConfig struct {
	SecretKey      string        `mapstructure:"secretKey"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	AccessTokenTTL time.Duration `mapstructure:"accessTokenTTL"`
}

// CookieConfig describes the auth cookie the API sets on login.
type CookieConfig struct {
	Name   string `mapstructure:"name"`
	Domain string `mapstructure:"domain"`
	Path   string `mapstructure:"path"`
	Secure bool   `mapstructure:"secure"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Environment overrides for secrets
	_ = v.BindEnv("jwt.secretKey", "SKYVAULT_JWT_SECRET")
	_ = v.BindEnv("catalog.apiKey", "SKYVAULT_HYPIXEL_API_KEY")
	_ = v.BindEnv("repositories.postgres.password", "SKYVAULT_POSTGRES_PASSWORD")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	if config.JWT.SecretKey == "" {
		return Config{}, fmt.Errorf("jwt.secretKey is required (set SKYVAULT_JWT_SECRET)")
	}
	if config.JWT.AccessTokenTTL == 0 {
		config.JWT.AccessTokenTTL = 24 * time.Hour
	}

	return config, nil
}
