package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		// DSN selects the backend: a postgres:// URL uses the PostgreSQL
		// store, anything else is treated as a SQLite file path.
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Dispatcher struct {
		Mode    string `mapstructure:"mode"`    // "local" (in-process pool) or "asynq"
		Workers int    `mapstructure:"workers"` // pool size in local mode
	} `mapstructure:"dispatcher"`

	Worker struct {
		Concurrency int `mapstructure:"concurrency"` // asynq server concurrency
	} `mapstructure:"worker"`

	Server struct {
		Address string `mapstructure:"address"`
		Port    string `mapstructure:"port"`
	} `mapstructure:"server"`

	Upload struct {
		Dir         string `mapstructure:"dir"`
		MaxFileSize int64  `mapstructure:"max_file_size"`
	} `mapstructure:"upload"`

	Whisper struct {
		Binary         string `mapstructure:"binary"`
		ModelDir       string `mapstructure:"model_dir"`
		Model          string `mapstructure:"model"`
		ModelCacheSize int    `mapstructure:"model_cache_size"`
	} `mapstructure:"whisper"`

	OpenAI struct {
		// APIKey switches transcription to the OpenAI endpoint when set;
		// otherwise the local whisper binary is used.
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"openai"`

	FFmpeg struct {
		Binary string `mapstructure:"binary"`
	} `mapstructure:"ffmpeg"`

	Subtitle struct {
		// MaxCueChars splits over-long cues at sentence boundaries; 0 disables.
		MaxCueChars int `mapstructure:"max_cue_chars"`
	} `mapstructure:"subtitle"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	// Bind the conventional env var without requiring a prefix.
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("redis.address", "REDIS_ADDR")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars carry the configuration.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(config.Upload.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", config.Upload.Dir, err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("database.dsn", "subgen.db")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("dispatcher.mode", "local")
	viper.SetDefault("dispatcher.workers", 2)
	viper.SetDefault("worker.concurrency", 2)
	viper.SetDefault("server.address", "127.0.0.1")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("upload.dir", "./uploads")
	viper.SetDefault("upload.max_file_size", 50_000_000) // 50 MB
	viper.SetDefault("whisper.binary", "whisper-cli")
	viper.SetDefault("whisper.model_dir", "./models")
	viper.SetDefault("whisper.model", "base")
	viper.SetDefault("whisper.model_cache_size", 2)
	viper.SetDefault("ffmpeg.binary", "ffmpeg")
	viper.SetDefault("subtitle.max_cue_chars", 0)
}
