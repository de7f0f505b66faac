package elevation

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/annel0/hexvoxel/internal/hexgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(minX, maxX, minZ, maxZ int) []hexgrid.TileID {
	var tiles []hexgrid.TileID
	for z := minZ; z <= maxZ; z++ {
		for x := minX; x <= maxX; x++ {
			tiles = append(tiles, hexgrid.MustEncode(x, z))
		}
	}
	return tiles
}

func TestBoxOf(t *testing.T) {
	tiles := []hexgrid.TileID{
		hexgrid.MustEncode(3, -1),
		hexgrid.MustEncode(-2, 4),
		hexgrid.MustEncode(0, 0),
	}
	box, err := BoxOf(tiles)
	require.NoError(t, err)
	assert.Equal(t, Box{MinX: -2, MaxX: 3, MinZ: -1, MaxZ: 4}, box)
	assert.Equal(t, 5.0, box.Width())
	assert.Equal(t, 5.0, box.Height())

	_, err = BoxOf(nil)
	assert.True(t, errors.Is(err, ErrEmptyTiles))
}

func TestDomePeaksAtCenter(t *testing.T) {
	tiles := grid(0, 4, 0, 4)
	box, err := BoxOf(tiles)
	require.NoError(t, err)

	s, err := NewSynthesizer(Options{PeakScalar: 4, MinLevel: 0})
	require.NoError(t, err)

	levels, err := s.Synthesize(box, tiles)
	require.NoError(t, err)
	require.Len(t, levels, len(tiles))

	assert.Equal(t, uint8(4), s.Level(box, hexgrid.Coord{X: 2, Z: 2}), "купол в центре")
	assert.Equal(t, uint8(0), s.Level(box, hexgrid.Coord{X: 0, Z: 2}), "край рамки")
	assert.Equal(t, uint8(0), s.Level(box, hexgrid.Coord{X: 4, Z: 4}), "угол рамки")
}

func TestMinLevelClamp(t *testing.T) {
	tiles := grid(0, 1, 0, 1)
	box, err := BoxOf(tiles)
	require.NoError(t, err)

	levels, err := Synthesize(box, tiles, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1, 1, 1}, levels, "край купола поднимается до минимума")

	levels, err = Synthesize(box, tiles, Options{PeakScalar: 4})
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1, 1, 1}, levels, "рамка 2x2: все тайлы равноудалены от центра")

	levels, err = Synthesize(box, tiles, Options{PeakScalar: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 0, 0}, levels, "при K < 1 центр не поднимается")
}

func TestEvenWidthCenterRaised(t *testing.T) {
	tiles := grid(0, 1, 0, 4)
	box, err := BoxOf(tiles)
	require.NoError(t, err)

	levels, err := Synthesize(box, tiles, Options{PeakScalar: 4})
	require.NoError(t, err)

	for i, id := range tiles {
		c := hexgrid.Decode(id)
		if c.Z == 2 {
			assert.Equal(t, uint8(1), levels[i], "центральный ряд %v", c)
			continue
		}
		assert.Equal(t, uint8(0), levels[i], "остальные тайлы %v", c)
	}
}

func TestDegenerateAxis(t *testing.T) {
	tiles := grid(5, 5, 0, 4)
	box, err := BoxOf(tiles)
	require.NoError(t, err)

	s, err := NewSynthesizer(Options{PeakScalar: 3.4, MinLevel: 1})
	require.NoError(t, err)
	assert.Equal(t, uint8(3), s.Level(box, hexgrid.Coord{X: 5, Z: 2}), "однотайловая ширина - гребень")

	single := []hexgrid.TileID{hexgrid.MustEncode(7, 7)}
	box, err = BoxOf(single)
	require.NoError(t, err)
	levels, err := s.Synthesize(box, single)
	require.NoError(t, err)
	assert.Equal(t, []uint8{3}, levels)
}

func TestLevelsBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, opts := range []Options{
		{PeakScalar: 4, MinLevel: 0},
		{PeakScalar: 3.4, MinLevel: 1},
		{PeakScalar: 4, MinLevel: 1, Roughness: 2.5, Seed: 7},
	} {
		s, err := NewSynthesizer(opts)
		require.NoError(t, err)

		for i := 0; i < 20; i++ {
			minX, minZ := rng.Intn(200)-100, rng.Intn(200)-100
			tiles := grid(minX, minX+rng.Intn(12), minZ, minZ+rng.Intn(12))
			box, err := BoxOf(tiles)
			require.NoError(t, err)

			levels, err := s.Synthesize(box, tiles)
			require.NoError(t, err)
			for _, l := range levels {
				assert.GreaterOrEqual(t, float64(l), float64(opts.MinLevel))
				assert.LessOrEqual(t, float64(l), opts.PeakScalar)
			}
		}
	}
}

func TestCenterTileRaised(t *testing.T) {
	tiles := grid(-3, 3, 10, 16)
	box, err := BoxOf(tiles)
	require.NoError(t, err)

	s, err := NewSynthesizer(Options{PeakScalar: 1})
	require.NoError(t, err)
	center := box.Center().Round()
	assert.Equal(t, 0, center.X)
	assert.Equal(t, 13, center.Z)
	assert.GreaterOrEqual(t, s.Level(box, hexgrid.Coord{X: center.X, Z: center.Z}), uint8(1))
}

func TestRoughnessDeterministic(t *testing.T) {
	tiles := grid(0, 9, 0, 9)
	box, err := BoxOf(tiles)
	require.NoError(t, err)

	opts := Options{PeakScalar: 6, MinLevel: 1, Roughness: 3, Seed: 1337}
	first, err := Synthesize(box, tiles, opts)
	require.NoError(t, err)
	second, err := Synthesize(box, tiles, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSynthesizeOutsideBox(t *testing.T) {
	box := Box{MinX: 0, MaxX: 1, MinZ: 0, MaxZ: 1}
	_, err := Synthesize(box, []hexgrid.TileID{hexgrid.MustEncode(5, 5)}, DefaultOptions())
	assert.True(t, errors.Is(err, ErrOutsideBox))
}

func TestOptionsValidate(t *testing.T) {
	bad := []Options{
		{PeakScalar: -1},
		{PeakScalar: 300},
		{PeakScalar: 4, MinLevel: 2},
		{PeakScalar: 0.5, MinLevel: 1},
		{PeakScalar: 4, Roughness: -1},
	}
	for _, o := range bad {
		_, err := NewSynthesizer(o)
		assert.True(t, errors.Is(err, ErrInvalidOptions), "%+v", o)
	}
	assert.NoError(t, DefaultOptions().Validate())
}
