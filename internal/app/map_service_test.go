package app

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/hexvoxel/internal/cache"
	"github.com/annel0/hexvoxel/internal/elevation"
	"github.com/annel0/hexvoxel/internal/landmass"
	"github.com/annel0/hexvoxel/internal/logging"
	"github.com/annel0/hexvoxel/internal/metrics"
	"github.com/annel0/hexvoxel/internal/storage"
	"github.com/annel0/hexvoxel/internal/voxel"
)

type fixture struct {
	svc   *MapService
	repo  *storage.MemoryLandmassRepo
	cache *cache.MemoryCache
}

func newFixture(t *testing.T, repo *storage.MemoryLandmassRepo) fixture {
	t.Helper()
	return newFixtureWithCache(t, repo, cache.NewMemoryCache(nil))
}

// newFixtureWithCache - узел с заданным кешем; общий кеш изображает Redis кластера
func newFixtureWithCache(t *testing.T, repo *storage.MemoryLandmassRepo, c *cache.MemoryCache) fixture {
	t.Helper()
	if repo == nil {
		repo = storage.NewMemoryLandmassRepo()
	}
	svc, err := NewMapService(Options{
		Voxel:     voxel.Params{Size: 1, Depth: 0.5},
		Elevation: elevation.DefaultOptions(),
	}, repo, c, metrics.NewCollector(prometheus.NewRegistry()), logging.NewConsoleLogger(io.Discard, logging.ERROR))
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, cache: c}
}

func coord(x, z int) map[string]interface{} {
	return map[string]interface{}{"x": x, "z": z}
}

func sampleSource() []landmass.RawLandmass {
	return []landmass.RawLandmass{
		{ID: "north", Name: "Север", Positions: []interface{}{coord(0, 0), coord(1, 0), coord(0, 1), coord(1, 1)}},
		{ID: 7, Name: "Скала", Status: "explored", Positions: []interface{}{coord(10, 10)}},
	}
}

func emitted(t *testing.T, data []byte) int {
	t.Helper()
	var surface struct {
		Emitted   int       `json:"emitted"`
		Positions []float32 `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(data, &surface))
	assert.Len(t, surface.Positions, surface.Emitted*4*3)
	return surface.Emitted
}

func TestLoadSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.svc.LoadSource(ctx, sampleSource()))

	summaries := f.svc.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, "7", summaries[0].ID)
	assert.Equal(t, landmass.StatusExplored, summaries[0].Status)
	assert.Equal(t, 4, summaries[1].TileCount)

	stored, err := f.repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	ref, ok := f.svc.Lookup(1, 1)
	require.True(t, ok)
	assert.Equal(t, "north", ref.LandmassID)
}

func TestLoadSourceFailureKeepsMap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.svc.LoadSource(ctx, sampleSource()))

	err := f.svc.LoadSource(ctx, []landmass.RawLandmass{
		{ID: "bad", Positions: []interface{}{"not a number"}},
	})
	require.Error(t, err)
	assert.True(t, landmass.IsSourceError(err))
	assert.Equal(t, 2, f.svc.Map().Len())
}

func TestLoadSourcePrunesStorage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.svc.LoadSource(ctx, sampleSource()))
	require.NoError(t, f.svc.LoadSource(ctx, sampleSource()[:1]))

	stored, err := f.repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "north", stored[0].ID)
}

func TestMeshCachedAndInvalidatedOnStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.svc.LoadSource(ctx, sampleSource()))

	first, err := f.svc.Mesh(ctx, "north", MeshLandscape)
	require.NoError(t, err)
	second, err := f.svc.Mesh(ctx, "north", MeshLandscape)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), f.cache.GetMetrics().CacheHits)

	lm, err := f.svc.SetStatus(ctx, "north", landmass.StatusDisabled)
	require.NoError(t, err)
	assert.Equal(t, landmass.StatusDisabled, lm.Status)

	_, err = f.cache.Get(ctx, cache.MeshKey("north", string(landmass.StatusActive), string(MeshLandscape)))
	assert.ErrorIs(t, err, cache.ErrCacheMiss, "смена статуса сбрасывает геометрию")

	third, err := f.svc.Mesh(ctx, "north", MeshLandscape)
	require.NoError(t, err)
	assert.Equal(t, emitted(t, first)+2*4, emitted(t, third), "у отключённой суши появляется дно")

	stored, ok, err := f.repo.Load(ctx, "north")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, landmass.StatusDisabled, stored.Status)
}

func TestMeshKinds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.svc.LoadSource(ctx, sampleSource()))

	data, err := f.svc.Mesh(ctx, "north", MeshPeaks)
	require.NoError(t, err)
	var peaks struct {
		Levels  []int                      `json:"levels"`
		ByLevel map[string]json.RawMessage `json:"byLevel"`
	}
	require.NoError(t, json.Unmarshal(data, &peaks))
	assert.NotEmpty(t, peaks.Levels)
	assert.Len(t, peaks.ByLevel, len(peaks.Levels))

	data, err = f.svc.Mesh(ctx, "7", MeshTiles)
	require.NoError(t, err)
	var markers struct {
		Tiles   []uint32          `json:"tiles"`
		Anchors []json.RawMessage `json:"anchors"`
	}
	require.NoError(t, json.Unmarshal(data, &markers))
	assert.Len(t, markers.Tiles, 1)
	assert.Len(t, markers.Anchors, 1)

	_, err = f.svc.Mesh(ctx, "missing", MeshPeaks)
	assert.ErrorIs(t, err, landmass.ErrNotFound)
	_, err = f.svc.Mesh(ctx, "north", MeshKind("wireframe"))
	assert.ErrorIs(t, err, ErrUnknownMeshKind)
}

func TestSetStatusErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.svc.LoadSource(ctx, sampleSource()))

	_, err := f.svc.SetStatus(ctx, "nowhere", landmass.StatusActive)
	assert.ErrorIs(t, err, landmass.ErrNotFound)
	_, err = f.svc.SetStatus(ctx, "north", landmass.Status("flooded"))
	assert.ErrorIs(t, err, landmass.ErrInvalidStatus)

	lm, err := f.svc.Get("north")
	require.NoError(t, err)
	assert.Equal(t, landmass.StatusActive, lm.Status)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.svc.LoadSource(ctx, sampleSource()))
	_, err := f.svc.SetStatus(ctx, "7", landmass.StatusDisabled)
	require.NoError(t, err)

	restarted := newFixture(t, f.repo)
	n, err := restarted.svc.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lm, err := restarted.svc.Get("7")
	require.NoError(t, err)
	assert.Equal(t, landmass.StatusDisabled, lm.Status)

	orig, err := f.svc.Get("north")
	require.NoError(t, err)
	again, err := restarted.svc.Get("north")
	require.NoError(t, err)
	assert.Equal(t, orig.PeakLevels, again.PeakLevels, "рельеф не пересчитывается")
}

func TestHandleInvalidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.svc.LoadSource(ctx, sampleSource()))

	_, err := f.svc.Mesh(ctx, "north", MeshPeaks)
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleInvalidation(cache.Invalidation{LandmassID: "north", Reason: cache.ReasonReload}))

	_, err = f.cache.Get(ctx, cache.MeshKey("north", string(landmass.StatusActive), string(MeshPeaks)))
	assert.True(t, cache.IsCacheMiss(err))

	lm, err := f.svc.Get("north")
	require.NoError(t, err)
	assert.Equal(t, landmass.StatusActive, lm.Status, "без статуса карта не меняется")

	assert.NoError(t, f.svc.HandleInvalidation(cache.Invalidation{LandmassID: "unknown", Status: "disabled"}))
	assert.ErrorIs(t, f.svc.HandleInvalidation(cache.Invalidation{LandmassID: "north", Status: "flooded"}), landmass.ErrInvalidStatus)
}

func TestSharedCacheAcrossNodes(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewMemoryCache(nil)
	a := newFixtureWithCache(t, nil, shared)
	b := newFixtureWithCache(t, nil, shared)
	require.NoError(t, a.svc.LoadSource(ctx, sampleSource()))
	require.NoError(t, b.svc.LoadSource(ctx, sampleSource()))

	active, err := a.svc.Mesh(ctx, "north", MeshLandscape)
	require.NoError(t, err)

	_, err = a.svc.SetStatus(ctx, "north", landmass.StatusDisabled)
	require.NoError(t, err)

	// B ещё не получил уведомление и строит геометрию по старому статусу
	stale, err := b.svc.Mesh(ctx, "north", MeshLandscape)
	require.NoError(t, err)
	assert.Equal(t, emitted(t, active), emitted(t, stale))

	fresh, err := a.svc.Mesh(ctx, "north", MeshLandscape)
	require.NoError(t, err)
	assert.Equal(t, emitted(t, active)+2*4, emitted(t, fresh), "устаревшая геометрия соседа не подменяет актуальную")

	require.NoError(t, b.svc.HandleInvalidation(cache.Invalidation{
		LandmassID: "north",
		Status:     string(landmass.StatusDisabled),
		Reason:     cache.ReasonStatusChange,
	}))

	lm, err := b.svc.Get("north")
	require.NoError(t, err)
	assert.Equal(t, landmass.StatusDisabled, lm.Status)
	stored, ok, err := b.repo.Load(ctx, "north")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, landmass.StatusDisabled, stored.Status)

	synced, err := b.svc.Mesh(ctx, "north", MeshLandscape)
	require.NoError(t, err)
	assert.Equal(t, emitted(t, fresh), emitted(t, synced))
}

func TestParseMeshKind(t *testing.T) {
	kind, err := ParseMeshKind("")
	require.NoError(t, err)
	assert.Equal(t, MeshLandscape, kind)

	kind, err = ParseMeshKind("tiles")
	require.NoError(t, err)
	assert.Equal(t, MeshTiles, kind)

	_, err = ParseMeshKind("lod2")
	assert.ErrorIs(t, err, ErrUnknownMeshKind)
}

func TestNewMapServiceValidates(t *testing.T) {
	_, err := NewMapService(Options{Elevation: elevation.DefaultOptions()}, storage.NewMemoryLandmassRepo(), cache.NewMemoryCache(nil), nil, nil)
	assert.ErrorIs(t, err, voxel.ErrInvalidParams)

	_, err = NewMapService(Options{}, nil, nil, nil, nil)
	assert.Error(t, err)
}
