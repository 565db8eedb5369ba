// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/rapidaai/live-bridge/pkg/utils"
	"github.com/spf13/viper"
)

// DefaultGeminiModel is used when GEMINI_MODEL is not set.
const DefaultGeminiModel = "gemini-2.5-flash-native-audio-preview-12-2025"

// Call store backends.
const (
	CallStoreMemory   = "memory"
	CallStoreRedis    = "redis"
	CallStorePostgres = "postgres"
	CallStoreSqlite   = "sqlite"
)

type RedisConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// TTL bounds how long a room claim survives a crashed process.
	TTL time.Duration `mapstructure:"ttl"`
}

type PostgresConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required"`
	DBName             string `mapstructure:"db_name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password"`
	MaxOpenConnection  int    `mapstructure:"max_open_connection"`
	MaxIdealConnection int    `mapstructure:"max_ideal_connection"`
	SslMode            string `mapstructure:"ssl_mode"`
}

type SqliteConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type CallStoreConfig struct {
	Type string `mapstructure:"type" validate:"required,oneof=memory redis postgres sqlite"`
	// Retention is how long the memory store keeps ended calls.
	Retention time.Duration `mapstructure:"retention"`
}

type RelayConfig struct {
	// ChannelSize bounds each event channel between a remote source and its relay.
	ChannelSize int `mapstructure:"channel_size" validate:"required,min=1"`
}

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Env      string `mapstructure:"env"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogFile  string `mapstructure:"log_file"`

	CorsAllowOrigins []string `mapstructure:"cors_allow_origins"`

	// room service
	FishjamID              string `mapstructure:"fishjam_id" validate:"required_without=FishjamURL"`
	FishjamURL             string `mapstructure:"fishjam_url"`
	FishjamManagementToken string `mapstructure:"fishjam_management_token" validate:"required"`
	FishjamRoomType        string `mapstructure:"fishjam_room_type"`

	// dialogue service
	GoogleApiKey            string `mapstructure:"google_api_key" validate:"required"`
	GeminiModel             string `mapstructure:"gemini_model" validate:"required"`
	GeminiSystemInstruction string `mapstructure:"gemini_system_instruction"`
	GeminiVoice             string `mapstructure:"gemini_voice"`

	RelayConfig     RelayConfig     `mapstructure:"relay" validate:"required"`
	CallStoreConfig CallStoreConfig `mapstructure:"call_store" validate:"required"`
	RedisConfig     *RedisConfig    `mapstructure:"redis"`
	PostgresConfig  *PostgresConfig `mapstructure:"postgres"`
	SqliteConfig    *SqliteConfig   `mapstructure:"sqlite"`

	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"required"`
	RollbackTimeout time.Duration `mapstructure:"rollback_timeout" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
		log.Printf("Reading from env varaibles.")
	}
	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "live-bridge")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("ENV", "development")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 3000)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")

	v.SetDefault("FISHJAM_ID", "")
	v.SetDefault("FISHJAM_URL", "")
	v.SetDefault("FISHJAM_MANAGEMENT_TOKEN", "")
	v.SetDefault("FISHJAM_ROOM_TYPE", "")

	v.SetDefault("GOOGLE_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", DefaultGeminiModel)
	v.SetDefault("GEMINI_SYSTEM_INSTRUCTION", "")
	v.SetDefault("GEMINI_VOICE", "")

	v.SetDefault("RELAY__CHANNEL_SIZE", 256)
	v.SetDefault("CALL_STORE__TYPE", CallStoreMemory)
	v.SetDefault("CALL_STORE__RETENTION", "1h")

	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("ROLLBACK_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
}

// setStoreDefault registers defaults for the selected call store only, so
// the unused backends stay nil and are not validated.
func setStoreDefault(v *viper.Viper) {
	switch v.GetString("CALL_STORE__TYPE") {
	case CallStoreRedis:
		v.SetDefault("REDIS__HOST", "localhost")
		v.SetDefault("REDIS__PORT", 6379)
		v.SetDefault("REDIS__PASSWORD", "")
		v.SetDefault("REDIS__DB", 0)
		v.SetDefault("REDIS__TTL", "6h")
	case CallStorePostgres:
		v.SetDefault("POSTGRES__HOST", "localhost")
		v.SetDefault("POSTGRES__PORT", 5432)
		v.SetDefault("POSTGRES__DB_NAME", "<>")
		v.SetDefault("POSTGRES__USER", "<>")
		v.SetDefault("POSTGRES__PASSWORD", "<>")
		v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
		v.SetDefault("POSTGRES__MAX_IDEAL_CONNECTION", 10)
		v.SetDefault("POSTGRES__SSL_MODE", "disable")
	case CallStoreSqlite:
		v.SetDefault("SQLITE__PATH", "live-bridge.db")
	}
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	setStoreDefault(v)

	var config AppConfig
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}

// IsProduction reports whether the service runs with production settings.
func (cfg *AppConfig) IsProduction() bool {
	return utils.FromEnvironmentStr(cfg.Env) == utils.PRODUCTION
}
