// Package elevation вычисляет уровни вершин (этажность колонок) для суши:
// гладкий "купол" по положению тайла внутри ограничивающей рамки.
package elevation

import (
	"errors"
	"fmt"
	"math"

	"github.com/annel0/hexvoxel/internal/hexgrid"
	"github.com/aquilax/go-perlin"
)

var (
	// ErrInvalidOptions - некорректные параметры синтеза.
	ErrInvalidOptions = errors.New("elevation: invalid options")
	// ErrOutsideBox - тайл лежит вне переданной рамки.
	ErrOutsideBox = errors.New("elevation: tile outside bounding box")
)

const (
	// DefaultPeakScalar - высота купола в этажах.
	DefaultPeakScalar = 4.0
	// noiseFrequency уводит выборку шума с целочисленной решётки, где шум Перлина равен нулю.
	noiseFrequency = 0.173
)

// Options задаёт форму рельефа
type Options struct {
	// PeakScalar - K: максимальная высота купола.
	PeakScalar float64 `yaml:"peak_scalar" json:"peakScalar"`
	// MinLevel - нижняя граница уровня (0 или 1). При 1 у каждого тайла есть колонка.
	MinLevel uint8 `yaml:"min_level" json:"minLevel"`
	// Roughness - амплитуда шума Перлина в этажах; 0 отключает шум.
	Roughness float64 `yaml:"roughness" json:"roughness"`
	Seed      int64   `yaml:"seed" json:"seed"`
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions() Options {
	return Options{
		PeakScalar: DefaultPeakScalar,
		MinLevel:   1,
	}
}

// Validate проверяет параметры
func (o Options) Validate() error {
	switch {
	case math.IsNaN(o.PeakScalar) || o.PeakScalar < 0 || o.PeakScalar > math.MaxUint8:
		return fmt.Errorf("%w: peak scalar %v must be within [0, 255]", ErrInvalidOptions, o.PeakScalar)
	case o.MinLevel > 1:
		return fmt.Errorf("%w: min level %d must be 0 or 1", ErrInvalidOptions, o.MinLevel)
	case float64(o.MinLevel) > o.PeakScalar:
		return fmt.Errorf("%w: min level %d exceeds peak scalar %v", ErrInvalidOptions, o.MinLevel, o.PeakScalar)
	case math.IsNaN(o.Roughness) || o.Roughness < 0:
		return fmt.Errorf("%w: roughness %v must be >= 0", ErrInvalidOptions, o.Roughness)
	}
	return nil
}

// Synthesizer детерминированно вычисляет уровни. Не хранит изменяемого
// состояния после создания и может использоваться из нескольких горутин.
type Synthesizer struct {
	opts  Options
	noise *perlin.Perlin
}

// NewSynthesizer создаёт синтезатор
func NewSynthesizer(opts Options) (*Synthesizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Synthesizer{opts: opts}
	if opts.Roughness > 0 {
		s.noise = perlin.NewPerlin(2, 2, 3, opts.Seed)
	}
	return s, nil
}

// Options возвращает параметры синтезатора
func (s *Synthesizer) Options() Options {
	return s.opts
}

// Synthesize возвращает уровни, параллельные массиву tiles.
// При K >= 1 ближайшие к центру рамки тайлы получают не меньше 1 этажа,
// даже если купол на чётной ширине обнулил их (рамка в две колонки).
func (s *Synthesizer) Synthesize(box Box, tiles []hexgrid.TileID) ([]uint8, error) {
	levels := make([]uint8, len(tiles))
	for i, id := range tiles {
		c := hexgrid.Decode(id)
		if !box.Contains(c) {
			return nil, fmt.Errorf("%w: tile %s index %d, box %s", ErrOutsideBox, id, i, box)
		}
		levels[i] = s.Level(box, c)
	}
	if s.opts.PeakScalar >= 1 {
		raiseCenter(box, tiles, levels)
	}
	return levels, nil
}

// raiseCenter поднимает до 1 этажа тайлы на минимальном расстоянии до центра.
// Расстояние считается в удвоенных координатах, чтобы равноудалённые тайлы
// сравнивались точно.
func raiseCenter(box Box, tiles []hexgrid.TileID, levels []uint8) {
	cx, cz := box.MinX+box.MaxX, box.MinZ+box.MaxZ
	dist := func(id hexgrid.TileID) int {
		c := hexgrid.Decode(id)
		dx, dz := 2*c.X-cx, 2*c.Z-cz
		return dx*dx + dz*dz
	}

	best := -1
	for _, id := range tiles {
		if d := dist(id); best < 0 || d < best {
			best = d
		}
	}
	for i, id := range tiles {
		if dist(id) == best && levels[i] < 1 {
			levels[i] = 1
		}
	}
}

// Level вычисляет уровень одной колонки:
// floor(sin(dx/width*π) * sin(dz/height*π) * K), затем шум и ограничение [MinLevel, K].
func (s *Synthesizer) Level(box Box, c hexgrid.Coord) uint8 {
	fx := domeFactor(box.MinX, box.Width(), c.X)
	fz := domeFactor(box.MinZ, box.Height(), c.Z)
	raw := fx * fz * s.opts.PeakScalar

	if s.noise != nil {
		raw += s.noise.Noise2D((float64(c.X)+0.5)*noiseFrequency, (float64(c.Z)+0.5)*noiseFrequency) * s.opts.Roughness
	}

	level := math.Floor(raw)
	level = math.Min(level, math.Floor(s.opts.PeakScalar))
	level = math.Max(level, float64(s.opts.MinLevel))
	return uint8(level)
}

// domeFactor - sin(расстояние от минимума / протяжённость * π).
// Вырожденная ось (протяжённость 0) даёт 1: узкая полоса суши - это гребень.
func domeFactor(minValue int, extent float64, v int) float64 {
	if extent == 0 {
		return 1
	}
	fromMin := axisDistance(minValue, v)
	return math.Sin(fromMin / extent * math.Pi)
}

// Synthesize - разовый синтез с заданными параметрами
func Synthesize(box Box, tiles []hexgrid.TileID, opts Options) ([]uint8, error) {
	s, err := NewSynthesizer(opts)
	if err != nil {
		return nil, err
	}
	return s.Synthesize(box, tiles)
}
