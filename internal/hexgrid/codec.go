// Package hexgrid кодирует координаты гексагональной сетки со смещением
// в 32-битные идентификаторы тайлов и отвечает на запросы соседства.
package hexgrid

import (
	"errors"
	"fmt"
)

const (
	// Offset сдвигает знаковые координаты в беззнаковое 16-битное поле.
	Offset = 32760
	// MinCoord и MaxCoord - границы координаты по каждой оси.
	MinCoord = -Offset
	MaxCoord = 0xFFFF - Offset
)

// ErrOutOfRange возвращается, когда координата не помещается в 16-битное поле.
var ErrOutOfRange = errors.New("hexgrid: coordinate out of range")

// RangeError описывает координату, вышедшую за пределы [MinCoord, MaxCoord].
type RangeError struct {
	Axis  string
	Value int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("hexgrid: %s=%d outside [%d, %d]", e.Axis, e.Value, MinCoord, MaxCoord)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// TileID - упакованный идентификатор тайла: ((z+Offset) << 16) | (x+Offset).
type TileID uint32

// Coord - координата колонки на сетке. Нечётные колонки X сдвинуты на полряда.
type Coord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// InRange проверяет, что значение оси кодируется без переполнения.
func InRange(v int) bool {
	return v >= MinCoord && v <= MaxCoord
}

// Encode упаковывает координату в TileID
func Encode(x, z int) (TileID, error) {
	if !InRange(x) {
		return 0, &RangeError{Axis: "x", Value: x}
	}
	if !InRange(z) {
		return 0, &RangeError{Axis: "z", Value: z}
	}
	return pack(x, z), nil
}

// MustEncode как Encode, но паникует на координате вне диапазона.
func MustEncode(x, z int) TileID {
	id, err := Encode(x, z)
	if err != nil {
		panic(err)
	}
	return id
}

func pack(x, z int) TileID {
	return TileID(uint32(z+Offset)<<16 | uint32(x+Offset))
}

// Decode распаковывает TileID. Любое 32-битное значение декодируется
// в координату внутри допустимого окна, поэтому ошибки нет.
func Decode(id TileID) Coord {
	return Coord{
		X: int(uint32(id)&0xFFFF) - Offset,
		Z: int(uint32(id)>>16) - Offset,
	}
}

// ID возвращает упакованный идентификатор координаты
func (c Coord) ID() (TileID, error) {
	return Encode(c.X, c.Z)
}

// Coord декодирует идентификатор
func (id TileID) Coord() Coord {
	return Decode(id)
}

func (id TileID) String() string {
	c := Decode(id)
	return fmt.Sprintf("%d(%d,%d)", uint32(id), c.X, c.Z)
}
