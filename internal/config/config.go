package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Storage StorageConfig `mapstructure:"storage"`
	AppHost string        `mapstructure:"host"`
}

type DBConfig struct {
	Source string `mapstructure:"source" validate:"required"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required,min=16"`
}

type StorageConfig struct {
	Driver string   `mapstructure:"driver" validate:"required,oneof=local s3"`
	Path   string   `mapstructure:"path" validate:"required_if=Driver local"`
	S3     S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Endpoint  string `mapstructure:"endpoint"`
}

func Load() (*Config, error) {
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/configs")
	viper.SetConfigName("settings")
	viper.SetConfigType("yml")

	viper.SetDefault("storage.driver", "local")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Storage.Driver == "s3" && cfg.Storage.S3.Bucket == "" {
		return nil, fmt.Errorf("invalid configuration: storage.s3.bucket is required for the s3 driver")
	}

	return &cfg, nil
}
