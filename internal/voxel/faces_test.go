package voxel

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacesInvariants(t *testing.T) {
	faces := Faces(1, 1, FilterAll)
	require.Len(t, faces, FaceCount)

	sides := make(map[Side]bool)
	for _, f := range faces {
		sides[f.Side] = true
		assert.Len(t, f.Corners, 4)

		nonZero := 0
		for _, d := range f.Dir {
			assert.Contains(t, []int{-1, 0, 1}, d, "грань %s", f.Side)
			if d != 0 {
				nonZero++
			}
		}
		if f.Side == SideC || f.Side == SideE {
			assert.Equal(t, 2, nonZero, "диагональная грань %s", f.Side)
		} else {
			assert.Equal(t, 1, nonZero, "грань %s", f.Side)
		}
	}
	assert.Len(t, sides, FaceCount, "метки граней уникальны")
}

func TestFacesTopFilter(t *testing.T) {
	top := Faces(1, 1, FilterTop)
	require.Len(t, top, 2)
	for _, f := range top {
		assert.True(t, f.IsTop())
		assert.Equal(t, [3]int{0, 1, 0}, f.Dir)
		for _, c := range f.Corners {
			assert.Equal(t, 1.0, c.Y, "верх на высоте depth")
		}
	}
}

func TestFacesClassification(t *testing.T) {
	var top, bottom, lateral, skewed int
	for _, f := range Faces(1, 1, FilterAll) {
		switch {
		case f.IsTop():
			top++
		case f.IsBottom():
			bottom++
		case f.IsLateral():
			lateral++
		}
		if f.Skewed() {
			skewed++
		}
	}
	assert.Equal(t, 2, top)
	assert.Equal(t, 2, bottom)
	assert.Equal(t, 6, lateral)
	assert.Equal(t, 4, skewed)
}

func TestFacesScale(t *testing.T) {
	unit := Faces(1, 0.5, FilterAll)
	double := Faces(2, 0.5, FilterAll)

	for i := range unit {
		for j := range unit[i].Corners {
			assert.InDelta(t, unit[i].Corners[j].X*2, double[i].Corners[j].X, 1e-9)
			assert.InDelta(t, unit[i].Corners[j].Z*2, double[i].Corners[j].Z, 1e-9)
			assert.Equal(t, unit[i].Corners[j].Y, double[i].Corners[j].Y, "толщина не зависит от size")
		}
	}

	// правый край шестиугольника лежит на x = size*sqrt(3)
	d := unit[7]
	require.Equal(t, SideD, d.Side)
	assert.InDelta(t, math.Sqrt(3), d.Corners[0].X, 1e-9)
}

func TestFaceCacheMemoizes(t *testing.T) {
	cache := NewFaceCache()
	p := Params{Size: 1, Depth: 0.5}

	first := cache.Get(p, FilterAll)
	second := cache.Get(p, FilterAll)
	require.Len(t, first, FaceCount)
	assert.Same(t, &first[0], &second[0], "таблица строится один раз")

	top := cache.Get(p, FilterTop)
	assert.Len(t, top, 2)
	cache.Get(Params{Size: 2, Depth: 0.5}, FilterAll)
	assert.Equal(t, 3, cache.Len())
}

func TestFaceCacheConcurrentReaders(t *testing.T) {
	cache := NewFaceCache()
	p := Params{Size: 1, Depth: 1}

	var wg sync.WaitGroup
	results := make([][]Face, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.Get(p, FilterAll)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, &results[0][0], &r[0])
	}
	assert.Equal(t, 1, cache.Len())
}
