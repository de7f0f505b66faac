// Package landmass строит модель суши (континентов) из исходных списков тайлов:
// упакованные тайлы, параллельные уровни вершин и ограничивающая рамка.
package landmass

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/annel0/hexvoxel/internal/elevation"
	"github.com/annel0/hexvoxel/internal/hexgrid"
)

// Status - состояние суши в игре
type Status string

const (
	StatusActive   Status = "active"
	StatusExplored Status = "explored"
	StatusDisabled Status = "disabled"
)

var (
	ErrInvalidStatus = errors.New("landmass: invalid status")
	ErrNotFound      = errors.New("landmass: not found")
	// ErrBrokenInvariant - массивы tiles и peakLevels разной длины.
	ErrBrokenInvariant = errors.New("landmass: tiles and peak levels are not parallel")
)

// ParseStatus разбирает статус; пустая строка означает active.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "":
		return StatusActive, nil
	case StatusActive, StatusExplored, StatusDisabled:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Levels - уровни вершин. В JSON пишутся массивом чисел, а не base64.
type Levels []uint8

func (l Levels) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(l))
	for i, v := range l {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func (l *Levels) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	out := make(Levels, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("level %d at %d out of uint8 range", v, i)
		}
		out[i] = uint8(v)
	}
	*l = out
	return nil
}

// Landmass - суша. Tiles и PeakLevels параллельны и не меняются после сборки;
// Status меняется только заменой значения целиком (см. WithStatus).
type Landmass struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Status      Status           `json:"status"`
	Tiles       []hexgrid.TileID `json:"tiles"`
	PeakLevels  Levels           `json:"peakLevels"`
	BoundingBox elevation.Box    `json:"boundingBox"`
}

// Validate проверяет инварианты модели
func (l Landmass) Validate() error {
	if len(l.Tiles) != len(l.PeakLevels) {
		return fmt.Errorf("%w: %s has %d tiles and %d levels", ErrBrokenInvariant, l.ID, len(l.Tiles), len(l.PeakLevels))
	}
	if _, err := ParseStatus(string(l.Status)); err != nil {
		return err
	}
	return nil
}

// TileSet строит индекс тайлов для запросов соседства
func (l Landmass) TileSet() (*hexgrid.TileSet, error) {
	return hexgrid.NewTileSet(l.Tiles, l.PeakLevels)
}

// WithStatus возвращает копию с новым статусом. Срезы общие: они неизменяемы.
func (l Landmass) WithStatus(status Status) Landmass {
	l.Status = status
	return l
}

// MaxLevel возвращает наибольший уровень вершины
func (l Landmass) MaxLevel() uint8 {
	var top uint8
	for _, v := range l.PeakLevels {
		top = max(top, v)
	}
	return top
}

// Summary - краткое описание без массивов тайлов
type Summary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	TileCount   int           `json:"tileCount"`
	MaxLevel    uint8         `json:"maxLevel"`
	BoundingBox elevation.Box `json:"boundingBox"`
}

// Summary возвращает краткое описание
func (l Landmass) Summary() Summary {
	return Summary{
		ID:          l.ID,
		Name:        l.Name,
		Status:      l.Status,
		TileCount:   len(l.Tiles),
		MaxLevel:    l.MaxLevel(),
		BoundingBox: l.BoundingBox,
	}
}
