package mesh

import (
	"fmt"
	"sort"

	"github.com/annel0/hexvoxel/internal/hexgrid"
	"github.com/annel0/hexvoxel/internal/landmass"
	"github.com/annel0/hexvoxel/internal/vec"
	"github.com/annel0/hexvoxel/internal/voxel"
)

// FaceRef описывает выведенную грань: чья она и в какую позицию смотрит.
type FaceRef struct {
	Tile     hexgrid.Coord `json:"tile"`
	Layer    int           `json:"layer"`
	Side     voxel.Side    `json:"side"`
	Neighbor vec.Vec3      `json:"neighbor"`
}

// Surface - стены рельефа одной суши
type Surface struct {
	Buffers
	Faces   []FaceRef `json:"-"`
	Emitted int       `json:"emitted"`
	Culled  int       `json:"culled"`
}

// PeakSet - шапки вершин, сгруппированные по уровню (один материал на уровень)
type PeakSet struct {
	Levels  landmass.Levels    `json:"levels"`
	ByLevel map[uint8]*Buffers `json:"byLevel"`
}

// Markers - общая геометрия маркера и позиции экземпляров по тайлам
type Markers struct {
	Geometry Buffers          `json:"geometry"`
	Tiles    []hexgrid.TileID `json:"tiles"`
	Anchors  []vec.Vec3Float  `json:"anchors"`
}

// Builder строит геометрию. Таблицы граней берёт из общего FaceCache.
type Builder struct {
	params voxel.Params
	faces  *voxel.FaceCache
}

// NewBuilder создаёт построитель; nil cache заменяется новым
func NewBuilder(params voxel.Params, cache *voxel.FaceCache) (*Builder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if cache == nil {
		cache = voxel.NewFaceCache()
	}
	return &Builder{params: params, faces: cache}, nil
}

// Params возвращает параметры вокселя
func (b *Builder) Params() voxel.Params {
	return b.params
}

// Landscape строит стены: слои 0..level каждой колонки, без верхних граней
// (их рисуют шапки), без нижних (кроме отключённой суши) и без граней,
// закрытых соседней колонкой.
func (b *Builder) Landscape(lm landmass.Landmass) (*Surface, error) {
	set, err := lm.TileSet()
	if err != nil {
		return nil, fmt.Errorf("landscape %s: %w", lm.ID, err)
	}
	faces := b.faces.Get(b.params, voxel.FilterAll)
	drawBottom := lm.Status == landmass.StatusDisabled

	surface := &Surface{}
	for i, tile := range lm.Tiles {
		c := hexgrid.Decode(tile)
		for y := 0; y <= int(lm.PeakLevels[i]); y++ {
			for _, f := range faces {
				if f.IsTop() || (f.IsBottom() && !drawBottom) {
					continue
				}
				neighbor := hexgrid.NeighborPosition(c.X, y, c.Z, f.Dir, f.Skewed())
				if set.IsNeighbor(neighbor) {
					surface.Culled++
					continue
				}

				surface.AppendFace(b.params, f, vec.Vec3{X: c.X, Y: y, Z: c.Z})
				surface.Faces = append(surface.Faces, FaceRef{Tile: c, Layer: y, Side: f.Side, Neighbor: neighbor})
				surface.Emitted++
			}
		}
	}
	return surface, nil
}

// Peaks строит верхние грани на уровне каждой колонки
func (b *Builder) Peaks(lm landmass.Landmass) (*PeakSet, error) {
	if err := lm.Validate(); err != nil {
		return nil, err
	}
	top := b.faces.Get(b.params, voxel.FilterTop)

	set := &PeakSet{ByLevel: make(map[uint8]*Buffers)}
	for i, tile := range lm.Tiles {
		c := hexgrid.Decode(tile)
		level := lm.PeakLevels[i]

		buf, ok := set.ByLevel[level]
		if !ok {
			buf = &Buffers{}
			set.ByLevel[level] = buf
			set.Levels = append(set.Levels, level)
		}
		for _, f := range top {
			buf.AppendFace(b.params, f, vec.Vec3{X: c.X, Y: int(level), Z: c.Z})
		}
	}
	sort.Slice(set.Levels, func(i, j int) bool { return set.Levels[i] < set.Levels[j] })
	return set, nil
}

// TileMarkers строит одну геометрию маркера в начале координат
// и якорь для каждого тайла на высоте его вершины.
func (b *Builder) TileMarkers(lm landmass.Landmass) (*Markers, error) {
	if err := lm.Validate(); err != nil {
		return nil, err
	}

	m := &Markers{
		Tiles:   make([]hexgrid.TileID, len(lm.Tiles)),
		Anchors: make([]vec.Vec3Float, len(lm.Tiles)),
	}
	for _, f := range b.faces.Get(b.params, voxel.FilterTop) {
		m.Geometry.AppendFace(b.params, f, vec.Vec3{})
	}
	copy(m.Tiles, lm.Tiles)
	for i, tile := range lm.Tiles {
		c := hexgrid.Decode(tile)
		m.Anchors[i] = b.params.Anchor(vec.Vec3{X: c.X, Y: int(lm.PeakLevels[i]), Z: c.Z})
	}
	return m, nil
}
