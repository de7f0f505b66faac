package landmass

import (
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/hexvoxel/internal/hexgrid"
)

// ErrTileConflict - тайл принадлежит сразу двум участкам суши.
var ErrTileConflict = errors.New("landmass: tile belongs to several landmasses")

// TileRef указывает тайл на карте: какой суше он принадлежит и на какой высоте.
type TileRef struct {
	TileID     hexgrid.TileID `json:"tileId"`
	Coord      hexgrid.Coord  `json:"coord"`
	LandmassID string         `json:"landmassId"`
	Index      int            `json:"index"`
	Level      uint8          `json:"level"`
}

// Map - неизменяемая карта: список суши и индексы по id и по тайлу.
// Изменение статуса создаёт новую карту (WithStatus).
type Map struct {
	landmasses []Landmass
	byID       map[string]int
	byTile     map[hexgrid.TileID]TileRef
}

// NewMap индексирует собранную сушу
func NewMap(landmasses []Landmass) (*Map, error) {
	m := &Map{
		landmasses: make([]Landmass, len(landmasses)),
		byID:       make(map[string]int, len(landmasses)),
		byTile:     make(map[hexgrid.TileID]TileRef),
	}
	copy(m.landmasses, landmasses)

	for i, lm := range m.landmasses {
		if err := lm.Validate(); err != nil {
			return nil, err
		}
		if _, dup := m.byID[lm.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, lm.ID)
		}
		m.byID[lm.ID] = i

		for j, tile := range lm.Tiles {
			if other, exists := m.byTile[tile]; exists {
				return nil, fmt.Errorf("%w: %s in %s and %s", ErrTileConflict, tile, other.LandmassID, lm.ID)
			}
			m.byTile[tile] = TileRef{
				TileID:     tile,
				Coord:      hexgrid.Decode(tile),
				LandmassID: lm.ID,
				Index:      j,
				Level:      lm.PeakLevels[j],
			}
		}
	}
	return m, nil
}

// Len возвращает количество участков суши
func (m *Map) Len() int {
	return len(m.landmasses)
}

// Landmasses возвращает копию списка
func (m *Map) Landmasses() []Landmass {
	out := make([]Landmass, len(m.landmasses))
	copy(out, m.landmasses)
	return out
}

// IDs возвращает отсортированные идентификаторы
func (m *Map) IDs() []string {
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get возвращает сушу по id
func (m *Map) Get(id string) (Landmass, error) {
	i, ok := m.byID[id]
	if !ok {
		return Landmass{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.landmasses[i], nil
}

// TileAt находит тайл по упакованному идентификатору
func (m *Map) TileAt(id hexgrid.TileID) (TileRef, bool) {
	ref, ok := m.byTile[id]
	return ref, ok
}

// Lookup находит тайл по координате сетки (например, после попадания луча).
func (m *Map) Lookup(x, z int) (TileRef, bool) {
	id, err := hexgrid.Encode(x, z)
	if err != nil {
		return TileRef{}, false
	}
	return m.TileAt(id)
}

// TileCount возвращает общее количество тайлов
func (m *Map) TileCount() int {
	return len(m.byTile)
}

// WithStatus возвращает новую карту, где у суши id заменён статус.
// Индекс тайлов общий: статус на него не влияет.
func (m *Map) WithStatus(id string, status Status) (*Map, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	i, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := &Map{
		landmasses: make([]Landmass, len(m.landmasses)),
		byID:       m.byID,
		byTile:     m.byTile,
	}
	copy(next.landmasses, m.landmasses)
	next.landmasses[i] = next.landmasses[i].WithStatus(status)
	return next, nil
}
