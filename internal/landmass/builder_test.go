package landmass

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/annel0/hexvoxel/internal/elevation"
	"github.com/annel0/hexvoxel/internal/hexgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T, opts elevation.Options) *Builder {
	t.Helper()
	synth, err := elevation.NewSynthesizer(opts)
	require.NoError(t, err)
	return NewBuilder(synth)
}

func packed(x, z int) interface{} {
	return float64(hexgrid.MustEncode(x, z))
}

func TestBuildSquareBlock(t *testing.T) {
	b := newBuilder(t, elevation.Options{PeakScalar: 4, MinLevel: 1})

	out, err := b.Build([]RawLandmass{{
		ID:        "north",
		Name:      "Северный",
		Positions: []interface{}{packed(0, 0), packed(1, 0), packed(0, 1), packed(1, 1)},
	}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	lm := out[0]
	assert.Equal(t, "north", lm.ID)
	assert.Equal(t, StatusActive, lm.Status, "статус по умолчанию")
	assert.Equal(t, elevation.Box{MinX: 0, MaxX: 1, MinZ: 0, MaxZ: 1}, lm.BoundingBox)
	assert.Len(t, lm.PeakLevels, len(lm.Tiles))
	for _, level := range lm.PeakLevels {
		assert.GreaterOrEqual(t, level, uint8(1))
	}
	assert.NoError(t, lm.Validate())
}

func TestBuildBoxIgnoresOrigin(t *testing.T) {
	b := newBuilder(t, elevation.DefaultOptions())

	lm, err := b.BuildOne(RawLandmass{
		ID:        7,
		Positions: []interface{}{packed(10, 20), packed(12, 25), packed(11, 21)},
	})
	require.NoError(t, err)
	assert.Equal(t, "7", lm.ID)
	assert.Equal(t, elevation.Box{MinX: 10, MaxX: 12, MinZ: 20, MaxZ: 25}, lm.BoundingBox, "рамка по собственным тайлам, без начала координат")
}

func TestBuildCoercesPositionForms(t *testing.T) {
	b := newBuilder(t, elevation.DefaultOptions())
	id := hexgrid.MustEncode(-2, 3)

	lm, err := b.BuildOne(RawLandmass{
		ID:     json.Number("12"),
		Status: "explored",
		Positions: []interface{}{
			json.Number("2147450876"),
			"2147450877",
			map[string]interface{}{"x": -2, "z": 3},
			int(hexgrid.MustEncode(5, 5)),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "12", lm.ID)
	assert.Equal(t, StatusExplored, lm.Status)
	assert.Equal(t, id, lm.Tiles[2])
	assert.Equal(t, hexgrid.TileID(2147450876), lm.Tiles[0])
	assert.Len(t, lm.PeakLevels, 4)
}

func TestBuildFailsFastOnMalformedData(t *testing.T) {
	b := newBuilder(t, elevation.DefaultOptions())

	cases := []struct {
		name  string
		raw   RawLandmass
		index int
		want  error
	}{
		{"не число", RawLandmass{ID: "a", Positions: []interface{}{packed(0, 0), "abc"}}, 1, ErrMalformedPosition},
		{"дробь", RawLandmass{ID: "a", Positions: []interface{}{1.5}}, 0, ErrMalformedPosition},
		{"отрицательное", RawLandmass{ID: "a", Positions: []interface{}{-1}}, 0, ErrMalformedPosition},
		{"больше uint32", RawLandmass{ID: "a", Positions: []interface{}{float64(1 << 33)}}, 0, ErrMalformedPosition},
		{"координата вне сетки", RawLandmass{ID: "a", Positions: []interface{}{map[string]interface{}{"x": 40000, "z": 0}}}, 0, hexgrid.ErrOutOfRange},
		{"без z", RawLandmass{ID: "a", Positions: []interface{}{map[string]interface{}{"x": 1}}}, 0, ErrMalformedPosition},
		{"повтор", RawLandmass{ID: "a", Positions: []interface{}{packed(1, 1), packed(1, 1)}}, 1, hexgrid.ErrDuplicateTile},
		{"bool", RawLandmass{ID: "a", Positions: []interface{}{true}}, 0, ErrMalformedPosition},
		{"пусто", RawLandmass{ID: "a"}, -1, ErrEmptyLandmass},
		{"без id", RawLandmass{Positions: []interface{}{packed(0, 0)}}, -1, ErrMissingID},
		{"статус", RawLandmass{ID: "a", Status: "sunk", Positions: []interface{}{packed(0, 0)}}, -1, ErrInvalidStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.BuildOne(tc.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "получено %v", err)

			var se *SourceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.index, se.Index)
			assert.True(t, IsSourceError(err))
		})
	}
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	b := newBuilder(t, elevation.DefaultOptions())
	_, err := b.Build([]RawLandmass{
		{ID: "x", Positions: []interface{}{packed(0, 0)}},
		{ID: "x", Positions: []interface{}{packed(5, 5)}},
	})
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestBuildErrorNamesLandmass(t *testing.T) {
	b := newBuilder(t, elevation.DefaultOptions())
	_, err := b.Build([]RawLandmass{
		{ID: "ok", Positions: []interface{}{packed(0, 0)}},
		{ID: "broken", Positions: []interface{}{packed(3, 3), "NaN"}},
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), `"broken"`), err.Error())
	assert.True(t, strings.Contains(err.Error(), "#1"), err.Error())
}

func TestNormalizeID(t *testing.T) {
	for raw, want := range map[interface{}]string{
		"north":             "north",
		json.Number("12"):   "12",
		json.Number("1e3"):  "1000",
		float64(7):          "7",
		json.Number("-4.0"): "-4",
	} {
		got, err := NormalizeID(raw)
		require.NoError(t, err, "%v", raw)
		assert.Equal(t, want, got)
	}

	for _, raw := range []interface{}{nil, " ", json.Number("1.5"), float64(1.5), []int{1}} {
		_, err := NormalizeID(raw)
		assert.ErrorIs(t, err, ErrMissingID, "%v", raw)
	}
}

func TestLevelsJSON(t *testing.T) {
	lm := Landmass{ID: "a", Status: StatusActive, Tiles: []hexgrid.TileID{1, 2}, PeakLevels: Levels{3, 4}}
	data, err := json.Marshal(lm)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"peakLevels":[3,4]`)

	var back Landmass
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, lm.PeakLevels, back.PeakLevels)

	assert.Error(t, json.Unmarshal([]byte(`[300]`), &back.PeakLevels))
}

func TestValidateParallelArrays(t *testing.T) {
	lm := Landmass{ID: "a", Status: StatusActive, Tiles: []hexgrid.TileID{1, 2}, PeakLevels: Levels{1}}
	assert.True(t, errors.Is(lm.Validate(), ErrBrokenInvariant))
}
