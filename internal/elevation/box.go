package elevation

import (
	"errors"
	"fmt"

	"github.com/annel0/hexvoxel/internal/hexgrid"
	"github.com/annel0/hexvoxel/internal/vec"
)

// ErrEmptyTiles - для пустого набора тайлов рамка не определена.
var ErrEmptyTiles = errors.New("elevation: no tiles")

// Box - ограничивающая рамка суши в координатах сетки (границы включительно).
type Box struct {
	MinX int `json:"minX"`
	MaxX int `json:"maxX"`
	MinZ int `json:"minZ"`
	MaxZ int `json:"maxZ"`
}

// BoxAround создаёт рамку из одной точки
func BoxAround(c hexgrid.Coord) Box {
	return Box{MinX: c.X, MaxX: c.X, MinZ: c.Z, MaxZ: c.Z}
}

// Extend расширяет рамку до точки
func (b Box) Extend(c hexgrid.Coord) Box {
	b.MinX = min(b.MinX, c.X)
	b.MaxX = max(b.MaxX, c.X)
	b.MinZ = min(b.MinZ, c.Z)
	b.MaxZ = max(b.MaxZ, c.Z)
	return b
}

// BoxOf сворачивает min/max по декодированным координатам тайлов
func BoxOf(tiles []hexgrid.TileID) (Box, error) {
	if len(tiles) == 0 {
		return Box{}, ErrEmptyTiles
	}
	box := BoxAround(hexgrid.Decode(tiles[0]))
	for _, id := range tiles[1:] {
		box = box.Extend(hexgrid.Decode(id))
	}
	return box, nil
}

// Contains проверяет, что точка внутри рамки
func (b Box) Contains(c hexgrid.Coord) bool {
	return c.X >= b.MinX && c.X <= b.MaxX && c.Z >= b.MinZ && c.Z <= b.MaxZ
}

// Width - протяжённость по X
func (b Box) Width() float64 {
	return axisDistance(b.MinX, b.MaxX)
}

// Height - протяжённость по Z
func (b Box) Height() float64 {
	return axisDistance(b.MinZ, b.MaxZ)
}

// Center возвращает геометрический центр рамки
func (b Box) Center() vec.Vec2Float {
	return vec.Vec2Float{X: float64(b.MinX+b.MaxX) / 2, Z: float64(b.MinZ+b.MaxZ) / 2}
}

func (b Box) String() string {
	return fmt.Sprintf("x[%d..%d] z[%d..%d]", b.MinX, b.MaxX, b.MinZ, b.MaxZ)
}

func axisDistance(from, to int) float64 {
	return vec.Vec2Float{X: float64(from)}.DistanceTo(vec.Vec2Float{X: float64(to)})
}
