package hexgrid

import (
	"errors"
	"fmt"
)

var (
	// ErrLevelsMismatch - массивы тайлов и уровней разной длины.
	ErrLevelsMismatch = errors.New("hexgrid: tiles and levels length mismatch")
	// ErrDuplicateTile - один и тот же тайл встречается дважды.
	ErrDuplicateTile = errors.New("hexgrid: duplicate tile")
)

// TileSet индексирует параллельные массивы тайлов и уровней высоты
// для проверки существования тайла за O(1).
// После создания не изменяется, поэтому безопасен для конкурентного чтения.
type TileSet struct {
	index  map[TileID]int
	levels []uint8
}

// NewTileSet строит индекс. Массивы должны быть одной длины и без повторов.
func NewTileSet(tiles []TileID, levels []uint8) (*TileSet, error) {
	if len(tiles) != len(levels) {
		return nil, fmt.Errorf("%w: %d tiles, %d levels", ErrLevelsMismatch, len(tiles), len(levels))
	}

	index := make(map[TileID]int, len(tiles))
	for i, id := range tiles {
		if prev, exists := index[id]; exists {
			return nil, fmt.Errorf("%w: %s at %d and %d", ErrDuplicateTile, id, prev, i)
		}
		index[id] = i
	}

	own := make([]uint8, len(levels))
	copy(own, levels)

	return &TileSet{index: index, levels: own}, nil
}

// Len возвращает количество тайлов
func (s *TileSet) Len() int {
	return len(s.levels)
}

// IndexOf возвращает позицию тайла в исходных массивах
func (s *TileSet) IndexOf(id TileID) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Contains проверяет наличие тайла
func (s *TileSet) Contains(id TileID) bool {
	_, ok := s.index[id]
	return ok
}

// Level возвращает уровень высоты тайла
func (s *TileSet) Level(id TileID) (uint8, bool) {
	i, ok := s.index[id]
	if !ok {
		return 0, false
	}
	return s.levels[i], true
}
