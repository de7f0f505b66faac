package voxel

import (
	"errors"
	"math"
	"testing"

	"github.com/annel0/hexvoxel/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsDerived(t *testing.T) {
	p, err := NewParams(2, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Sqrt(3), p.Width(), 1e-9)
	assert.Equal(t, 4.0, p.Height())
}

func TestParamsValidate(t *testing.T) {
	for _, p := range []Params{{0, 1}, {1, 0}, {-1, 1}, {math.NaN(), 1}, {math.Inf(1), 1}} {
		_, err := NewParams(p.Size, p.Depth)
		assert.True(t, errors.Is(err, ErrInvalidParams), "%+v", p)
	}
}

func TestToWorldVertexOrigin(t *testing.T) {
	p := Params{Size: 1, Depth: 0.5}
	corner := vec.Vec3Float{X: 0.25, Y: 0.5, Z: -0.5}
	assert.Equal(t, corner, p.ToWorldVertex(corner, vec.Vec3{}))
}

func TestToWorldVertexAxes(t *testing.T) {
	p := Params{Size: 1, Depth: 0.5}

	v := p.ToWorldVertex(vec.Vec3Float{}, vec.Vec3{X: 2, Y: 3, Z: 1})
	assert.InDelta(t, 2*p.Height()-2*p.Size/2, v.X, 1e-9)
	assert.InDelta(t, 1.5, v.Y, 1e-9, "три этажа по depth")
	assert.InDelta(t, -p.Width(), v.Z, 1e-9, "чётная колонка без сдвига")
}

func TestToWorldVertexOddColumnSkew(t *testing.T) {
	p := Params{Size: 1, Depth: 1}
	half := p.Width() / 2

	odd := p.Anchor(vec.Vec3{X: 1})
	even := p.Anchor(vec.Vec3{X: 2})
	assert.InDelta(t, -half, odd.Z, 1e-9)
	assert.InDelta(t, 0, even.Z, 1e-9)
	assert.InDelta(t, half, even.Z-odd.Z, 1e-9, "сдвиг применяется только к нечётным колонкам")

	neg := p.Anchor(vec.Vec3{X: -1})
	assert.InDelta(t, odd.Z, neg.Z, 1e-9, "сдвиг одинаков по обе стороны от нуля")
}

func TestToWorldVertexConsistentAcrossEmitters(t *testing.T) {
	p := Params{Size: 1, Depth: 0.5}
	top := Faces(p.Size, p.Depth, FilterTop)[0]
	all := Faces(p.Size, p.Depth, FilterAll)

	var wallTop Face
	for _, f := range all {
		if f.Side == top.Side {
			wallTop = f
		}
	}
	tile := vec.Vec3{X: -3, Y: 2, Z: 5}
	for i := range top.Corners {
		assert.Equal(t, p.ToWorldVertex(wallTop.Corners[i], tile), p.ToWorldVertex(top.Corners[i], tile))
	}
}
