package vec

import "math"

// Vec2Float - точка на плоскости карты: X - колонка, Z - ряд.
// Используется для центров рамок и расстояний вдоль осей сетки.
type Vec2Float struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Z: v.Z - other.Z}
}

// Length возвращает евклидову длину
func (v Vec2Float) Length() float64 {
	return math.Hypot(v.X, v.Z)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	return v.Sub(other).Length()
}

// Round возвращает ближайшую клетку сетки
func (v Vec2Float) Round() Vec3 {
	return Vec3{X: int(math.Round(v.X)), Z: int(math.Round(v.Z))}
}
