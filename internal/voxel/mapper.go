package voxel

import "github.com/annel0/hexvoxel/internal/vec"

// ToWorldVertex переводит угол вокселя (локальные координаты) и позицию тайла
// (колонка X, этаж Y, ряд Z) в мировые координаты вершины.
// Все генераторы геометрии обязаны использовать только эту функцию,
// иначе стены, шапки и маркеры разъедутся.
func (p Params) ToWorldVertex(corner vec.Vec3Float, tile vec.Vec3) vec.Vec3Float {
	w := p.Width()
	x := float64(tile.X)

	// Нечётные колонки сдвинуты на половину ширины в одну сторону по обе стороны от нуля.
	sign := 1.0
	if tile.X > 0 {
		sign = -1.0
	}
	skew := float64(tile.X%2) * (w / 2) * sign

	return vec.Vec3Float{
		X: corner.X + x*p.Height() - x*p.Size/2,
		Y: corner.Y + float64(tile.Y)*p.Depth,
		Z: corner.Z - float64(tile.Z)*w + skew,
	}
}

// Anchor - мировая позиция начала координат вокселя тайла.
func (p Params) Anchor(tile vec.Vec3) vec.Vec3Float {
	return p.ToWorldVertex(vec.Vec3Float{}, tile)
}
