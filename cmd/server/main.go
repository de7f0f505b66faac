package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/hexvoxel/internal/api"
	"github.com/annel0/hexvoxel/internal/app"
	"github.com/annel0/hexvoxel/internal/cache"
	"github.com/annel0/hexvoxel/internal/config"
	"github.com/annel0/hexvoxel/internal/elevation"
	"github.com/annel0/hexvoxel/internal/landmass"
	"github.com/annel0/hexvoxel/internal/logging"
	"github.com/annel0/hexvoxel/internal/metrics"
	"github.com/annel0/hexvoxel/internal/observability"
	"github.com/annel0/hexvoxel/internal/sourcedata"
	"github.com/annel0/hexvoxel/internal/storage"
	"github.com/annel0/hexvoxel/internal/voxel"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $HEXVOXEL_CONFIG)")
	sourcePath := flag.String("source", "", "файл с исходными данными суши (перекрывает source.path)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *sourcePath != "" {
		cfg.Source.Path = *sourcePath
	}

	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	consoleLevel, err := logging.ParseLevel(cfg.Logging.ConsoleLevel)
	if err != nil {
		consoleLevel = logging.INFO
	}
	logging.Default().SetConsoleLevel(consoleLevel)
	logging.GetLoggerManager().SetConsoleLevel(consoleLevel)
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🗺️ Запуск Hexvoxel Map Server %s", api.Version)

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.Settings{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: api.Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("телеметрия: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	repo, err := openRepo(cfg.Storage)
	if err != nil {
		return err
	}
	defer repo.Close()

	nodeID := uuid.NewString()
	var invalidator *cache.NATSInvalidator
	if cfg.Invalidation.NATSURL != "" {
		invalidator, err = cache.NewNATSInvalidator(&cache.InvalidatorConfig{
			NATSURL: cfg.Invalidation.NATSURL,
			Subject: cfg.Invalidation.Subject,
		}, nodeID)
		if err != nil {
			return err
		}
		defer invalidator.Close()
	}

	meshCache, err := openCache(cfg.Cache, invalidator)
	if err != nil {
		return err
	}
	defer meshCache.Close()

	maps, err := app.NewMapService(app.Options{
		Voxel: voxel.Params{Size: cfg.Voxel.Size, Depth: cfg.Voxel.Depth},
		Elevation: elevation.Options{
			PeakScalar: cfg.Elevation.PeakScalar,
			MinLevel:   cfg.Elevation.MinLevel,
			Roughness:  cfg.Elevation.Roughness,
			Seed:       cfg.Elevation.Seed,
		},
		CacheTTL: cfg.Cache.TTL,
	}, repo, meshCache, metrics.NewCollector(nil), logging.GetLoggerManager().Component("maps"))
	if err != nil {
		return err
	}

	if err := loadMap(ctx, maps, cfg.Source.Path); err != nil {
		return err
	}

	if invalidator != nil {
		if err := invalidator.SubscribeInvalidations(ctx, maps.HandleInvalidation); err != nil {
			return err
		}
	}

	server := api.NewRestServer(api.Config{
		Port:        fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Maps:        maps,
		Logger:      logging.GetLoggerManager().Component("api"),
		ServiceName: cfg.Telemetry.ServiceName,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	logging.Info("✅ Сервис готов (node=%s)", nodeID)
	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetRESTPort())

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, останавливаемся...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("REST API: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logging.Warn("⚠️ REST API остановлен с ошибкой: %v", err)
	}
	logging.Info("👋 Сервер остановлен")
	return nil
}

func openRepo(cfg config.StorageConfig) (storage.LandmassRepo, error) {
	if !cfg.Enabled {
		logging.Warn("⚠️ Хранилище отключено: смены статуса не переживут перезапуск")
		return storage.NewMemoryLandmassRepo(), nil
	}
	return storage.NewBadgerLandmassRepo(cfg.Path)
}

func openCache(cfg config.CacheConfig, invalidator *cache.NATSInvalidator) (cache.MeshCache, error) {
	// nil-указатель в интерфейсе не равен nil, поэтому передаём явно
	var inv cache.CacheInvalidator
	if invalidator != nil {
		inv = invalidator
	}

	if cfg.RedisURL == "" {
		return cache.NewMemoryCache(inv), nil
	}
	return cache.NewRedisCache(&cache.RedisConfig{
		RedisURL:      cfg.RedisURL,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		DefaultTTL:    cfg.TTL,
	}, inv)
}

// loadMap поднимает сохранённую карту, затем, если задан источник,
// пересобирает её и возвращает сохранённые статусы.
func loadMap(ctx context.Context, maps *app.MapService, sourcePath string) error {
	restored, err := maps.Restore(ctx)
	if err != nil {
		return fmt.Errorf("восстановление карты: %w", err)
	}
	if sourcePath == "" {
		if restored == 0 {
			logging.Warn("⚠️ Карта пуста: не задан source.path и нет сохранённых данных")
		}
		return nil
	}

	statuses := make(map[string]landmass.Status, restored)
	for _, s := range maps.Summaries() {
		statuses[s.ID] = s.Status
	}

	raw, err := sourcedata.Load(sourcePath)
	if err != nil {
		return err
	}
	if err := maps.LoadSource(ctx, raw); err != nil {
		return fmt.Errorf("сборка карты из %s: %w", sourcePath, err)
	}

	for _, s := range maps.Summaries() {
		saved, ok := statuses[s.ID]
		if !ok || saved == s.Status {
			continue
		}
		if _, err := maps.SetStatus(ctx, s.ID, saved); err != nil {
			return err
		}
	}
	return nil
}
