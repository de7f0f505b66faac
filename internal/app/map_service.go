// Package app связывает сборку суши, хранилище, кеш геометрии и смену статуса.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/hexvoxel/internal/cache"
	"github.com/annel0/hexvoxel/internal/elevation"
	"github.com/annel0/hexvoxel/internal/landmass"
	"github.com/annel0/hexvoxel/internal/logging"
	"github.com/annel0/hexvoxel/internal/mesh"
	"github.com/annel0/hexvoxel/internal/metrics"
	"github.com/annel0/hexvoxel/internal/observability"
	"github.com/annel0/hexvoxel/internal/storage"
	"github.com/annel0/hexvoxel/internal/voxel"
)

// MeshKind - вид геометрии, отдаваемой рендеру
type MeshKind string

const (
	MeshLandscape MeshKind = "landscape"
	MeshPeaks     MeshKind = "peaks"
	MeshTiles     MeshKind = "tiles"
)

var ErrUnknownMeshKind = errors.New("app: unknown mesh kind")

// ParseMeshKind разбирает вид геометрии; пустая строка - landscape
func ParseMeshKind(s string) (MeshKind, error) {
	switch MeshKind(s) {
	case "", MeshLandscape:
		return MeshLandscape, nil
	case MeshPeaks, MeshTiles:
		return MeshKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMeshKind, s)
}

// Options - параметры сервиса
type Options struct {
	Voxel     voxel.Params
	Elevation elevation.Options
	CacheTTL  time.Duration
}

// MapService владеет текущей картой. Карта неизменяема и заменяется целиком
// под мьютексом; геометрия строится и кладётся в кеш под RLock, поэтому
// смена статуса не может оставить в кеше устаревшую геометрию.
type MapService struct {
	mu   sync.RWMutex
	m    *landmass.Map
	opts Options

	builder *landmass.Builder
	meshes  *mesh.Builder
	repo    storage.LandmassRepo
	cache   cache.MeshCache
	metrics *metrics.Collector
	logger  *logging.Logger
}

// NewMapService создаёт сервис с пустой картой.
// repo и cache обязательны; collector и logger могут быть nil.
func NewMapService(opts Options, repo storage.LandmassRepo, meshCache cache.MeshCache, collector *metrics.Collector, logger *logging.Logger) (*MapService, error) {
	if repo == nil || meshCache == nil {
		return nil, errors.New("app: repo and cache are required")
	}
	synth, err := elevation.NewSynthesizer(opts.Elevation)
	if err != nil {
		return nil, err
	}
	meshes, err := mesh.NewBuilder(opts.Voxel, voxel.NewFaceCache())
	if err != nil {
		return nil, err
	}
	empty, err := landmass.NewMap(nil)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &MapService{
		m:       empty,
		opts:    opts,
		builder: landmass.NewBuilder(synth),
		meshes:  meshes,
		repo:    repo,
		cache:   meshCache,
		metrics: collector,
		logger:  logger,
	}, nil
}

// LoadSource строит сушу из исходных записей, сохраняет её и заменяет карту.
// При любой ошибке текущая карта остаётся прежней.
func (s *MapService) LoadSource(ctx context.Context, raw []landmass.RawLandmass) error {
	ctx, span := observability.StartSpan(ctx, "map.load_source",
		trace.WithAttributes(attribute.Int("records", len(raw))))
	defer span.End()

	start := time.Now()
	built, err := s.builder.Build(raw)
	if err != nil {
		span.RecordError(err)
		return err
	}
	next, err := landmass.NewMap(built)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.repo.BatchSave(ctx, built); err != nil {
		span.RecordError(err)
		return fmt.Errorf("persist landmasses: %w", err)
	}
	if err := s.prune(ctx, next); err != nil {
		span.RecordError(err)
		return fmt.Errorf("prune landmasses: %w", err)
	}

	s.replace(ctx, next)
	if s.metrics != nil {
		s.metrics.MapLoaded(next.Len(), next.TileCount(), time.Since(start))
	}
	s.logger.Info("🗺️ Карта собрана: %d участков суши, %d тайлов за %s", next.Len(), next.TileCount(), time.Since(start))
	return nil
}

// prune удаляет из хранилища сушу, которой больше нет в исходниках
func (s *MapService) prune(ctx context.Context, keep *landmass.Map) error {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, lm := range stored {
		if _, err := keep.Get(lm.ID); err == nil {
			continue
		}
		if err := s.repo.Delete(ctx, lm.ID); err != nil {
			return err
		}
		s.logger.Debug("🗑️ Удалена устаревшая запись суши %s", lm.ID)
	}
	return nil
}

// Restore поднимает карту из хранилища без пересчёта рельефа.
// Возвращает число восстановленных записей.
func (s *MapService) Restore(ctx context.Context) (int, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	next, err := landmass.NewMap(stored)
	if err != nil {
		return 0, fmt.Errorf("restore: %w", err)
	}

	s.replace(ctx, next)
	if s.metrics != nil {
		s.metrics.MapLoaded(next.Len(), next.TileCount(), 0)
	}
	s.logger.Info("💾 Карта восстановлена из хранилища: %d участков суши", next.Len())
	return next.Len(), nil
}

// replace подменяет карту и сбрасывает геометрию старых и новых участков
func (s *MapService) replace(ctx context.Context, next *landmass.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := append(s.m.IDs(), next.IDs()...)
	s.m = next
	for _, id := range ids {
		s.invalidate(ctx, cache.Invalidation{LandmassID: id, Reason: cache.ReasonReload})
	}
}

// Map возвращает текущий снимок карты
func (s *MapService) Map() *landmass.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m
}

// Summaries возвращает краткие описания всей суши по возрастанию ID
func (s *MapService) Summaries() []landmass.Summary {
	m := s.Map()
	out := make([]landmass.Summary, 0, m.Len())
	for _, id := range m.IDs() {
		lm, err := m.Get(id)
		if err != nil {
			continue
		}
		out = append(out, lm.Summary())
	}
	return out
}

// Get возвращает сушу по ID
func (s *MapService) Get(id string) (landmass.Landmass, error) {
	return s.Map().Get(id)
}

// Lookup находит тайл по координатам сетки
func (s *MapService) Lookup(x, z int) (landmass.TileRef, bool) {
	return s.Map().Lookup(x, z)
}

// SetStatus меняет статус суши: новая карта, запись в хранилище, сброс геометрии.
func (s *MapService) SetStatus(ctx context.Context, id string, status landmass.Status) (landmass.Landmass, error) {
	ctx, span := observability.StartSpan(ctx, "map.set_status",
		trace.WithAttributes(attribute.String("landmass.id", id), attribute.String("status", string(status))))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.m.WithStatus(id, status)
	if err != nil {
		return landmass.Landmass{}, err
	}
	lm, err := next.Get(id)
	if err != nil {
		return landmass.Landmass{}, err
	}
	if err := s.repo.Save(ctx, lm); err != nil {
		span.RecordError(err)
		return landmass.Landmass{}, fmt.Errorf("persist %s: %w", id, err)
	}

	s.m = next
	s.invalidate(ctx, cache.Invalidation{LandmassID: id, Status: string(status), Reason: cache.ReasonStatusChange})
	if s.metrics != nil {
		s.metrics.StatusChanged(string(status))
	}
	s.logger.Info("🔁 Статус суши %s: %s", id, status)
	return lm, nil
}

// invalidate вызывается под s.mu.Lock. Ошибка кеша не отменяет смену карты:
// локальные ключи уже удалены, страдает только рассылка.
func (s *MapService) invalidate(ctx context.Context, inv cache.Invalidation) {
	if err := s.cache.Invalidate(ctx, inv); err != nil {
		s.logger.Warn("⚠️ Не удалось инвалидировать геометрию %s: %v", inv.LandmassID, err)
	}
}

// HandleInvalidation - обработчик инвалидаций от других узлов. Новый статус
// применяется к своей карте и хранилищу, затем удаляется локальная геометрия;
// дальше не рассылается.
func (s *MapService) HandleInvalidation(inv cache.Invalidation) error {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.Status != "" {
		if err := s.applyRemoteStatus(ctx, inv); err != nil {
			return err
		}
	}
	return s.cache.DeletePrefix(ctx, cache.LandmassPrefix(inv.LandmassID))
}

// applyRemoteStatus вызывается под s.mu.Lock. Неизвестная суша пропускается:
// узел мог ещё не загрузить карту.
func (s *MapService) applyRemoteStatus(ctx context.Context, inv cache.Invalidation) error {
	status, err := landmass.ParseStatus(inv.Status)
	if err != nil {
		return err
	}
	current, err := s.m.Get(inv.LandmassID)
	if err != nil {
		s.logger.Debug("Инвалидация для неизвестной суши %s пропущена", inv.LandmassID)
		return nil
	}
	if current.Status == status {
		return nil
	}

	next, err := s.m.WithStatus(inv.LandmassID, status)
	if err != nil {
		return err
	}
	lm, err := next.Get(inv.LandmassID)
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, lm); err != nil {
		return fmt.Errorf("persist %s: %w", inv.LandmassID, err)
	}
	s.m = next
	if s.metrics != nil {
		s.metrics.StatusChanged(string(status))
	}
	s.logger.Info("🔁 Статус суши %s: %s (с другого узла)", inv.LandmassID, status)
	return nil
}

// Mesh возвращает JSON геометрии суши, из кеша или построив заново
func (s *MapService) Mesh(ctx context.Context, id string, kind MeshKind) ([]byte, error) {
	ctx, span := observability.StartSpan(ctx, "map.mesh",
		trace.WithAttributes(attribute.String("landmass.id", id), attribute.String("kind", string(kind))))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	lm, err := s.m.Get(id)
	if err != nil {
		return nil, err
	}

	key := cache.MeshKey(id, string(lm.Status), string(kind))
	data, err := s.cache.Get(ctx, key)
	if err == nil {
		s.cacheHit()
		return data, nil
	}
	if !cache.IsCacheMiss(err) {
		s.logger.Warn("⚠️ Кеш геометрии недоступен: %v", err)
	}
	s.cacheMiss()

	data, err = s.buildMesh(lm, kind)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.cache.Set(ctx, key, data, s.opts.CacheTTL); err != nil {
		s.logger.Warn("⚠️ Не удалось положить геометрию %s в кеш: %v", key, err)
	}
	return data, nil
}

func (s *MapService) buildMesh(lm landmass.Landmass, kind MeshKind) ([]byte, error) {
	var payload interface{}
	switch kind {
	case MeshLandscape:
		surface, err := s.meshes.Landscape(lm)
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.FacesBuilt(string(kind), surface.Emitted, surface.Culled)
		}
		payload = surface
	case MeshPeaks:
		peaks, err := s.meshes.Peaks(lm)
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.FacesBuilt(string(kind), len(lm.Tiles)*2, 0)
		}
		payload = peaks
	case MeshTiles:
		markers, err := s.meshes.TileMarkers(lm)
		if err != nil {
			return nil, err
		}
		payload = markers
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMeshKind, kind)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s mesh of %s: %w", kind, lm.ID, err)
	}
	s.logger.Debug("🧱 Геометрия %s для %s: %d байт", kind, lm.ID, len(data))
	return data, nil
}

func (s *MapService) cacheHit() {
	if s.metrics != nil {
		s.metrics.CacheHit()
	}
}

func (s *MapService) cacheMiss() {
	if s.metrics != nil {
		s.metrics.CacheMiss()
	}
}

// Params возвращает параметры вокселя, с которыми строится геометрия
func (s *MapService) Params() voxel.Params {
	return s.opts.Voxel
}
