package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const DefaultTileURLTemplate = "https://mt0.google.com/vt/lyrs=s&x={x}&y={y}&z={z}"

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Cache     Cache     `envPrefix:"CACHE_"`
		Upstream  Upstream  `envPrefix:"UPSTREAM_"`
		Mosaic    Mosaic    `envPrefix:"MOSAIC_"`
	}

	HTTP struct {
		Server Server `envPrefix:"SERVER_"`
	}

	Server struct {
		Port         string        `env:"PORT" envDefault:"8080" validate:"required,numeric"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"info"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"mosaic"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	}

	Cache struct {
		Backend    string `env:"BACKEND" envDefault:"filesystem" validate:"oneof=filesystem sqlite redis memory"`
		Dir        string `env:"DIR" envDefault:"tiles" validate:"required"`
		Ext        string `env:"EXT" envDefault:"png" validate:"required,alphanum"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"tiles.db"`
		MemorySize int    `env:"MEMORY_SIZE" envDefault:"4096" validate:"gt=0"`
		Redis      Redis  `envPrefix:"REDIS_"`
	}

	Redis struct {
		Addr     string `env:"ADDR" envDefault:"localhost:6379"`
		Password string `env:"PASSWORD" envDefault:""`
		DB       int    `env:"DB" envDefault:"0"`
	}

	Upstream struct {
		URLTemplate   string        `env:"URL_TEMPLATE" envDefault:"https://mt0.google.com/vt/lyrs=s&x={x}&y={y}&z={z}" validate:"required"`
		Timeout       time.Duration `env:"TIMEOUT" envDefault:"30s"`
		UserAgent     string        `env:"USER_AGENT" envDefault:"mosaic/1.0"`
		MaxRetries    uint          `env:"MAX_RETRIES" envDefault:"3"`
		RetryInterval time.Duration `env:"RETRY_INTERVAL" envDefault:"200ms"`
	}

	Mosaic struct {
		TileSize      int    `env:"TILE_SIZE" envDefault:"256" validate:"gt=0"`
		Workers       int    `env:"WORKERS" envDefault:"8" validate:"gt=0"`
		MaxTiles      int    `env:"MAX_TILES" envDefault:"1024" validate:"gt=0"`
		FailurePolicy string `env:"FAILURE_POLICY" envDefault:"best-effort" validate:"oneof=best-effort fail-fast"`
		JPEGQuality   int    `env:"JPEG_QUALITY" envDefault:"90" validate:"gte=1,lte=100"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
