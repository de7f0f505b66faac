// Package metrics собирает Prometheus-метрики карты: сборка суши, геометрия, кеш.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hexvoxel"

// Collector - доменные метрики сервиса.
//
// Метрики:
// * hexvoxel_landmasses / hexvoxel_tiles - gauge, размер загруженной карты
// * hexvoxel_build_duration_seconds - histogram сборки карты из исходников
// * hexvoxel_mesh_faces_total{kind,result} - counter граней (emitted/culled)
// * hexvoxel_mesh_cache_total{result} - counter обращений к кешу геометрии (hit/miss)
// * hexvoxel_status_changes_total{status} - counter смен статуса
type Collector struct {
	landmasses    prometheus.Gauge
	tiles         prometheus.Gauge
	buildDuration prometheus.Histogram
	faces         *prometheus.CounterVec
	cache         *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
}

// NewCollector создаёт метрики и регистрирует их в reg (nil - дефолтный регистр).
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		landmasses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "landmasses",
			Help:      "Количество загруженных участков суши.",
		}),
		tiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tiles",
			Help:      "Общее число тайлов на карте.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Длительность сборки карты из исходных данных.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		faces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mesh_faces_total",
			Help:      "Грани, выведенные или отсечённые построителем геометрии.",
		}, []string{"kind", "result"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mesh_cache_total",
			Help:      "Обращения к кешу геометрии.",
		}, []string{"result"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Смены статуса суши.",
		}, []string{"status"}),
	}

	reg.MustRegister(c.landmasses, c.tiles, c.buildDuration, c.faces, c.cache, c.statusChanges)
	return c
}

// MapLoaded фиксирует размер карты после сборки
func (c *Collector) MapLoaded(landmasses, tiles int, took time.Duration) {
	c.landmasses.Set(float64(landmasses))
	c.tiles.Set(float64(tiles))
	c.buildDuration.Observe(took.Seconds())
}

// FacesBuilt учитывает грани одного построения
func (c *Collector) FacesBuilt(kind string, emitted, culled int) {
	c.faces.WithLabelValues(kind, "emitted").Add(float64(emitted))
	if culled > 0 {
		c.faces.WithLabelValues(kind, "culled").Add(float64(culled))
	}
}

// CacheHit / CacheMiss учитывают обращения к кешу геометрии
func (c *Collector) CacheHit() {
	c.cache.WithLabelValues("hit").Inc()
}

func (c *Collector) CacheMiss() {
	c.cache.WithLabelValues("miss").Inc()
}

// StatusChanged учитывает смену статуса
func (c *Collector) StatusChanged(status string) {
	c.statusChanges.WithLabelValues(status).Inc()
}
