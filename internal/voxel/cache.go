package voxel

import "sync"

type faceKey struct {
	size   float64
	depth  float64
	filter Filter
}

// FaceCache хранит построенные таблицы граней по ключу (size, depth, filter).
// Таблица строится один раз; возвращаемые срезы общие и только для чтения.
type FaceCache struct {
	mu     sync.RWMutex
	tables map[faceKey][]Face
}

// NewFaceCache создаёт пустой кеш
func NewFaceCache() *FaceCache {
	return &FaceCache{tables: make(map[faceKey][]Face)}
}

// Get возвращает таблицу граней для параметров вокселя
func (c *FaceCache) Get(p Params, filter Filter) []Face {
	key := faceKey{size: p.Size, depth: p.Depth, filter: filter}

	c.mu.RLock()
	faces, ok := c.tables[key]
	c.mu.RUnlock()
	if ok {
		return faces
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if faces, ok := c.tables[key]; ok {
		return faces
	}
	faces = Faces(p.Size, p.Depth, filter)
	c.tables[key] = faces
	return faces
}

// Len возвращает количество построенных таблиц
func (c *FaceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
