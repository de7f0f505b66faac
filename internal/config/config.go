package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig возвращается Validate для недопустимых значений.
var ErrInvalidConfig = errors.New("config: invalid")

// Config корневая структура конфигурации сервиса.
type Config struct {
	Voxel        VoxelConfig        `yaml:"voxel"`
	Elevation    ElevationConfig    `yaml:"elevation"`
	Source       SourceConfig       `yaml:"source"`
	Storage      StorageConfig      `yaml:"storage"`
	Cache        CacheConfig        `yaml:"cache"`
	Invalidation InvalidationConfig `yaml:"invalidation"`
	Server       ServerConfig       `yaml:"server"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type VoxelConfig struct {
	Size  float64 `yaml:"size"`
	Depth float64 `yaml:"depth"`
}

type ElevationConfig struct {
	PeakScalar float64 `yaml:"peak_scalar"`
	MinLevel   uint8   `yaml:"min_level"`
	Roughness  float64 `yaml:"roughness"`
	Seed       int64   `yaml:"seed"`
}

type SourceConfig struct {
	Path string `yaml:"path"`
}

type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// CacheConfig - кэш геометрии. Пустой RedisURL означает кэш в памяти.
type CacheConfig struct {
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// InvalidationConfig - рассылка инвалидаций через NATS. Пустой URL отключает рассылку.
type InvalidationConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type ServerConfig struct {
	RESTPort int `yaml:"rest_port"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"` // host:port OTLP/HTTP; пусто - OTEL_EXPORTER_OTLP_ENDPOINT или localhost:4318
	SampleRatio float64 `yaml:"sample_ratio"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
}

// Default возвращает конфигурацию со всеми значениями по умолчанию
func Default() *Config {
	return &Config{
		Voxel:     VoxelConfig{Size: 1, Depth: 0.5},
		Elevation: ElevationConfig{PeakScalar: 4, MinLevel: 1},
		Storage:   StorageConfig{Path: "data/landmasses"},
		Cache:     CacheConfig{TTL: 10 * time.Minute},
		Invalidation: InvalidationConfig{
			Subject: "hexvoxel.mesh.invalidate",
		},
		Telemetry: TelemetryConfig{ServiceName: "hexvoxel", SampleRatio: 1},
		Logging:   LoggingConfig{Dir: "logs", ConsoleLevel: "INFO"},
	}
}

// Validate проверяет значения, которые иначе всплыли бы ошибкой глубоко в ядре
func (c *Config) Validate() error {
	if !positive(c.Voxel.Size) {
		return fmt.Errorf("%w: voxel.size must be > 0, got %v", ErrInvalidConfig, c.Voxel.Size)
	}
	if !positive(c.Voxel.Depth) {
		return fmt.Errorf("%w: voxel.depth must be > 0, got %v", ErrInvalidConfig, c.Voxel.Depth)
	}
	if !nonNegative(c.Elevation.PeakScalar) {
		return fmt.Errorf("%w: elevation.peak_scalar must be >= 0", ErrInvalidConfig)
	}
	if c.Elevation.MinLevel > 1 {
		return fmt.Errorf("%w: elevation.min_level must be 0 or 1", ErrInvalidConfig)
	}
	if !nonNegative(c.Elevation.Roughness) {
		return fmt.Errorf("%w: elevation.roughness must be >= 0", ErrInvalidConfig)
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is required when storage is enabled", ErrInvalidConfig)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache.ttl must be >= 0", ErrInvalidConfig)
	}
	if c.Invalidation.NATSURL != "" && c.Invalidation.Subject == "" {
		return fmt.Errorf("%w: invalidation.subject is required with nats_url", ErrInvalidConfig)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: telemetry.sample_ratio must be within [0, 1]", ErrInvalidConfig)
	}
	if c.Server.RESTPort < 0 || c.Server.RESTPort > 65535 {
		return fmt.Errorf("%w: server.rest_port out of range", ErrInvalidConfig)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "HEXVOXEL_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берёт путь из ENV HEXVOXEL_CONFIG; без него возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("HEXVOXEL_CONFIG")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
