package landmass

import (
	"errors"
	"fmt"

	"github.com/annel0/hexvoxel/internal/elevation"
	"github.com/annel0/hexvoxel/internal/hexgrid"
	"github.com/annel0/hexvoxel/internal/logging"
)

// Builder собирает модель суши из исходных записей
type Builder struct {
	synth *elevation.Synthesizer
}

// NewBuilder создаёт сборщик с синтезатором высот
func NewBuilder(synth *elevation.Synthesizer) *Builder {
	return &Builder{synth: synth}
}

// Build собирает все записи. Первая же испорченная запись прерывает сборку.
func (b *Builder) Build(raw []RawLandmass) ([]Landmass, error) {
	out := make([]Landmass, 0, len(raw))
	seen := make(map[string]int, len(raw))

	for i, r := range raw {
		lm, err := b.BuildOne(r)
		if err != nil {
			return nil, fmt.Errorf("record #%d: %w", i, err)
		}
		if prev, dup := seen[lm.ID]; dup {
			return nil, &SourceError{LandmassID: lm.ID, Index: -1, Err: fmt.Errorf("%w: records #%d and #%d", ErrDuplicateID, prev, i)}
		}
		seen[lm.ID] = i
		out = append(out, lm)
	}

	logging.Debug("Собрано %d участков суши", len(out))
	return out, nil
}

// BuildOne собирает одну запись: тайлы, рамку и уровни вершин.
func (b *Builder) BuildOne(r RawLandmass) (Landmass, error) {
	id, err := NormalizeID(r.ID)
	if err != nil {
		return Landmass{}, &SourceError{LandmassID: fmt.Sprint(r.ID), Index: -1, Err: err}
	}
	status, err := ParseStatus(r.Status)
	if err != nil {
		return Landmass{}, &SourceError{LandmassID: id, Index: -1, Err: err}
	}
	if len(r.Positions) == 0 {
		return Landmass{}, &SourceError{LandmassID: id, Index: -1, Err: ErrEmptyLandmass}
	}

	tiles := make([]hexgrid.TileID, len(r.Positions))
	seen := make(map[hexgrid.TileID]int, len(r.Positions))
	var box elevation.Box

	for i, raw := range r.Positions {
		tile, err := CoercePosition(raw)
		if err != nil {
			return Landmass{}, &SourceError{LandmassID: id, Index: i, Err: err}
		}
		if prev, dup := seen[tile]; dup {
			return Landmass{}, &SourceError{LandmassID: id, Index: i, Err: fmt.Errorf("%w: %s repeats position #%d", hexgrid.ErrDuplicateTile, tile, prev)}
		}
		seen[tile] = i
		tiles[i] = tile

		c := hexgrid.Decode(tile)
		if i == 0 {
			box = elevation.BoxAround(c)
		} else {
			box = box.Extend(c)
		}
	}

	levels, err := b.synth.Synthesize(box, tiles)
	if err != nil {
		return Landmass{}, &SourceError{LandmassID: id, Index: -1, Err: err}
	}

	lm := Landmass{
		ID:          id,
		Name:        r.Name,
		Status:      status,
		Tiles:       tiles,
		PeakLevels:  levels,
		BoundingBox: box,
	}
	logging.Trace("Суша %s: %d тайлов, рамка %s, максимум %d", id, len(tiles), box, lm.MaxLevel())
	return lm, nil
}

// IsSourceError сообщает, вызвана ли ошибка испорченными исходными данными
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
