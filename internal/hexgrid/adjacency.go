package hexgrid

import (
	"github.com/annel0/hexvoxel/internal/vec"
)

// IsNeighbor сообщает, занята ли позиция pos вокселем соседней колонки:
// тайл (pos.X, pos.Z) существует и 0 <= pos.Y <= его уровень.
// Грань, смотрящая в такую позицию, внутренняя и не выводится.
func (s *TileSet) IsNeighbor(pos vec.Vec3) bool {
	if pos.Y < 0 || !InRange(pos.X) || !InRange(pos.Z) {
		return false
	}
	level, ok := s.Level(pack(pos.X, pos.Z))
	if !ok {
		return false
	}
	return pos.Y <= int(level)
}

// IsNeighbor - разовая проверка по параллельным массивам.
// Для множества запросов используйте TileSet.
func IsNeighbor(tiles []TileID, levels []uint8, pos vec.Vec3) (bool, error) {
	set, err := NewTileSet(tiles, levels)
	if err != nil {
		return false, err
	}
	return set.IsNeighbor(pos), nil
}

// NeighborPosition сдвигает позицию вокселя (x, y, z) на направление грани dir.
// Для диагональных боковых граней (skewed) смещение по Z зависит от чётности колонки.
func NeighborPosition(x, y, z int, dir [3]int, skewed bool) vec.Vec3 {
	nz := z + dir[2]
	if skewed {
		nz += abs(x) % 2
	}
	return vec.Vec3{X: x + dir[0], Y: y + dir[1], Z: nz}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
