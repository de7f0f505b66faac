// Package voxel описывает геометрию гексагональной призмы ("вокселя")
// и перевод координат тайла в мировые координаты вершин.
package voxel

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams возвращается для неположительных размеров вокселя.
var ErrInvalidParams = errors.New("voxel: size and depth must be positive")

// Params - параметры вокселя. Ширина и высота шестиугольника всегда
// выводятся из Size и отдельно не настраиваются.
type Params struct {
	Size  float64 `json:"size" yaml:"size"`
	Depth float64 `json:"depth" yaml:"depth"`
}

// NewParams создаёт проверенные параметры
func NewParams(size, depth float64) (Params, error) {
	p := Params{Size: size, Depth: depth}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate проверяет, что размеры положительны и конечны
func (p Params) Validate() error {
	if !(p.Size > 0) || !(p.Depth > 0) || math.IsInf(p.Size, 0) || math.IsInf(p.Depth, 0) {
		return fmt.Errorf("%w: size=%v depth=%v", ErrInvalidParams, p.Size, p.Depth)
	}
	return nil
}

// Width - ширина шестиугольника: size * sqrt(3)
func (p Params) Width() float64 {
	return p.Size * math.Sqrt(3)
}

// Height - высота шестиугольника: size * 2
func (p Params) Height() float64 {
	return p.Size * 2
}
