/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/suparena/entityservice"
	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/registry"
)

// EnvPrefix prefixes every environment variable, e.g. ENTITYSERVICE_STORAGE_DRIVER.
const EnvPrefix = "ENTITYSERVICE"

// Config holds all configuration of an entity service process.
type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServiceConfig struct {
	Name       string                `mapstructure:"name" validate:"required"`
	Version    string                `mapstructure:"version"`
	Collection string                `mapstructure:"collection"`
	SchemaFile string                `mapstructure:"schemaFile"`
	RetryDelay time.Duration         `mapstructure:"retryDelay" validate:"gt=0"`
	Settings   entityservice.Settings `mapstructure:"settings"`
}

// StorageConfig selects the adapter driver and its two construction credentials.
type StorageConfig struct {
	Driver    string            `mapstructure:"driver" validate:"required,oneof=memory dynamodb firestore postgres"`
	Primary   string            `mapstructure:"primary"`
	Secondary string            `mapstructure:"secondary"`
	Region    string            `mapstructure:"region"`
	Endpoint  string            `mapstructure:"endpoint"`
	Options   map[string]string `mapstructure:"options"`
}

// Credentials returns the registry credentials of the configured driver.
func (s StorageConfig) Credentials() registry.Credentials {
	opts := make(map[string]string, len(s.Options)+2)
	for k, v := range s.Options {
		opts[k] = v
	}
	if s.Region != "" {
		opts["region"] = s.Region
	}
	if s.Endpoint != "" {
		opts["endpoint"] = s.Endpoint
	}
	return registry.Credentials{Primary: s.Primary, Secondary: s.Secondary, Options: opts}
}

type CacheConfig struct {
	Type          string        `mapstructure:"type" validate:"oneof=none memory redis"`
	TTL           time.Duration `mapstructure:"ttl" validate:"gte=0"`
	RedisAddr     string        `mapstructure:"redisAddr" validate:"required_if=Type redis"`
	RedisPassword string        `mapstructure:"redisPassword"`
	RedisDB       int           `mapstructure:"redisDB" validate:"gte=0"`
}

type NotifyConfig struct {
	Type     string `mapstructure:"type" validate:"oneof=none local nats amqp"`
	URL      string `mapstructure:"url" validate:"required_if=Type nats,required_if=Type amqp"`
	Exchange string `mapstructure:"exchange"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	GinMode         string        `mapstructure:"ginMode" validate:"oneof=debug release test"`
	BasePath        string        `mapstructure:"basePath"`
	CORSOrigins     []string      `mapstructure:"corsOrigins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" validate:"gt=0"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "posts")
	v.SetDefault("service.version", "")
	v.SetDefault("service.collection", "")
	v.SetDefault("service.schemaFile", "")
	v.SetDefault("service.retryDelay", entityservice.DefaultRetryDelay)
	v.SetDefault("service.settings.idField", "_id")
	v.SetDefault("service.settings.pageSize", entityservice.DefaultPageSize)
	v.SetDefault("service.settings.maxPageSize", entityservice.DefaultMaxPageSize)
	v.SetDefault("service.settings.maxLimit", 0)
	v.SetDefault("service.settings.idFormat", "")

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.primary", "")
	v.SetDefault("storage.secondary", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")

	v.SetDefault("cache.type", "none")
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("cache.redisAddr", "")
	v.SetDefault("cache.redisPassword", "")
	v.SetDefault("cache.redisDB", 0)

	v.SetDefault("notify.type", "local")
	v.SetDefault("notify.url", "")
	v.SetDefault("notify.exchange", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.ginMode", "release")
	v.SetDefault("http.basePath", "")
	v.SetDefault("http.corsOrigins", []string{})
	v.SetDefault("http.shutdownTimeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration from a .env file (when present), the environment and an optional
// YAML or JSON file at path. Environment variables override the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigurationError("file", fmt.Sprintf("failed to read %s: %v", path, err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigurationError("", "failed to unmarshal config: "+err.Error())
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks cfg and reports the first violation as a ConfigurationError.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			return errors.NewConfigurationError(field, fmt.Sprintf("failed on the %q rule (%s)", fe.Tag(), fe.Param()))
		}
		return errors.NewConfigurationError(field, fmt.Sprintf("failed on the %q rule", fe.Tag()))
	}
	return errors.NewConfigurationError("", err.Error())
}

// NewLogger builds the process logger.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, errors.NewConfigurationError("log.level", err.Error())
	}
	zapCfg.Level = level
	return zapCfg.Build()
}
