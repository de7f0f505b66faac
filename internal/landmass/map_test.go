package landmass

import (
	"errors"
	"testing"

	"github.com/annel0/hexvoxel/internal/elevation"
	"github.com/annel0/hexvoxel/internal/hexgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMap(t *testing.T) *Map {
	t.Helper()
	b := newBuilder(t, elevation.DefaultOptions())
	out, err := b.Build([]RawLandmass{
		{ID: "west", Name: "Запад", Positions: []interface{}{packed(-3, 0), packed(-2, 0), packed(-3, 1)}},
		{ID: "east", Name: "Восток", Status: "disabled", Positions: []interface{}{packed(4, 0), packed(5, 0)}},
	})
	require.NoError(t, err)
	m, err := NewMap(out)
	require.NoError(t, err)
	return m
}

func TestMapLookup(t *testing.T) {
	m := sampleMap(t)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 5, m.TileCount())
	assert.Equal(t, []string{"east", "west"}, m.IDs())

	ref, ok := m.Lookup(-2, 0)
	require.True(t, ok)
	assert.Equal(t, "west", ref.LandmassID)
	assert.Equal(t, 1, ref.Index)
	assert.Equal(t, hexgrid.Coord{X: -2, Z: 0}, ref.Coord)

	_, ok = m.Lookup(0, 0)
	assert.False(t, ok, "море")
	_, ok = m.Lookup(100000, 0)
	assert.False(t, ok, "вне сетки")
}

func TestMapWithStatusReplacesValue(t *testing.T) {
	m := sampleMap(t)

	next, err := m.WithStatus("east", StatusActive)
	require.NoError(t, err)

	old, err := m.Get("east")
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, old.Status, "исходная карта не меняется")

	updated, err := next.Get("east")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, updated.Status)

	_, err = m.WithStatus("nowhere", StatusActive)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = m.WithStatus("east", Status("flooded"))
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}

func TestMapRejectsSharedTiles(t *testing.T) {
	tile := hexgrid.MustEncode(0, 0)
	_, err := NewMap([]Landmass{
		{ID: "a", Status: StatusActive, Tiles: []hexgrid.TileID{tile}, PeakLevels: Levels{1}},
		{ID: "b", Status: StatusActive, Tiles: []hexgrid.TileID{tile}, PeakLevels: Levels{1}},
	})
	assert.True(t, errors.Is(err, ErrTileConflict))
}

func TestSummary(t *testing.T) {
	lm := Landmass{ID: "a", Name: "A", Status: StatusExplored, Tiles: []hexgrid.TileID{1, 2, 3}, PeakLevels: Levels{1, 4, 2}}
	s := lm.Summary()
	assert.Equal(t, 3, s.TileCount)
	assert.Equal(t, uint8(4), s.MaxLevel)
}
