package voxel

import (
	"math"

	"github.com/annel0/hexvoxel/internal/vec"
)

/*
Шестиугольник в плоскости XZ и обозначения боковых граней:

         D
       3 -- 4
    C /      \ E
     2        5
    B \      / F
       1 -- 0
         A

Верх и низ разбиты на две трапеции (левая/правая).
*/

// Side - метка грани
type Side string

const (
	SideBottomLeft  Side = "bl"
	SideBottomRight Side = "br"
	SideTopLeft     Side = "tl"
	SideTopRight    Side = "tr"
	SideA           Side = "a"
	SideB           Side = "b"
	SideC           Side = "c"
	SideD           Side = "d"
	SideE           Side = "e"
	SideF           Side = "f"
)

// FaceCount - количество граней вокселя
const FaceCount = 10

// QuadIndices - порядок обхода 4 углов грани: два треугольника (0,1,2), (2,1,3).
var QuadIndices = [6]uint32{0, 1, 2, 2, 1, 3}

// Filter выбирает подмножество граней
type Filter int

const (
	// FilterAll - все 10 граней
	FilterAll Filter = iota
	// FilterTop - только 2 верхние грани (шапки вершин, маркеры тайлов)
	FilterTop
)

// Face - грань призмы. Dir - внешняя нормаль и одновременно смещение
// к соседней колонке, закрывающей грань.
type Face struct {
	Side    Side             `json:"side"`
	Dir     [3]int           `json:"dir"`
	Corners [4]vec.Vec3Float `json:"corners"`
}

// IsTop сообщает, верхняя ли грань
func (f Face) IsTop() bool {
	return f.Side == SideTopLeft || f.Side == SideTopRight
}

// IsBottom сообщает, нижняя ли грань
func (f Face) IsBottom() bool {
	return f.Side == SideBottomLeft || f.Side == SideBottomRight
}

// IsLateral сообщает, боковая ли грань
func (f Face) IsLateral() bool {
	return !f.IsTop() && !f.IsBottom()
}

// Skewed - для граней a, c, d, f поиск соседа учитывает сдвиг нечётных колонок.
func (f Face) Skewed() bool {
	switch f.Side {
	case SideA, SideC, SideD, SideF:
		return true
	}
	return false
}

// Normal возвращает нормаль грани в виде float-вектора
func (f Face) Normal() vec.Vec3Float {
	return vec.Vec3Float{X: float64(f.Dir[0]), Y: float64(f.Dir[1]), Z: float64(f.Dir[2])}
}

// Faces строит таблицу граней для заданного размера и толщины слоя.
// Результат не зависит от тайла; используйте FaceCache, чтобы не строить её повторно.
func Faces(size, depth float64, filter Filter) []Face {
	s := size
	s12 := size / 2
	w := s * math.Sqrt(3)
	w12 := w / 2
	d := depth

	c := func(x, y, z float64) vec.Vec3Float { return vec.Vec3Float{X: x, Y: y, Z: z} }

	faces := []Face{
		// низ
		{Side: SideBottomLeft, Dir: [3]int{0, -1, 0}, Corners: [4]vec.Vec3Float{
			c(w12, 0, -s12), c(w12, 0, s+s12), c(0, 0, 0), c(0, 0, s),
		}},
		{Side: SideBottomRight, Dir: [3]int{0, -1, 0}, Corners: [4]vec.Vec3Float{
			c(w12, 0, s+s12), c(w12, 0, -s12), c(w, 0, s), c(w, 0, 0),
		}},
		// верх
		{Side: SideTopLeft, Dir: [3]int{0, 1, 0}, Corners: [4]vec.Vec3Float{
			c(0, d, 0), c(0, d, s), c(w12, d, -s12), c(w12, d, s+s12),
		}},
		{Side: SideTopRight, Dir: [3]int{0, 1, 0}, Corners: [4]vec.Vec3Float{
			c(w12, d, s+s12), c(w, d, s), c(w12, d, -s12), c(w, d, 0),
		}},
		// боковые
		{Side: SideA, Dir: [3]int{-1, 0, 0}, Corners: [4]vec.Vec3Float{
			c(0, 0, 0), c(0, 0, s), c(0, d, 0), c(0, d, s),
		}},
		{Side: SideB, Dir: [3]int{0, 0, -1}, Corners: [4]vec.Vec3Float{
			c(w12, 0, -s12), c(0, 0, 0), c(w12, d, -s12), c(0, d, 0),
		}},
		{Side: SideC, Dir: [3]int{1, 0, -1}, Corners: [4]vec.Vec3Float{
			c(w, 0, 0), c(w12, 0, -s12), c(w, d, 0), c(w12, d, -s12),
		}},
		{Side: SideD, Dir: [3]int{1, 0, 0}, Corners: [4]vec.Vec3Float{
			c(w, 0, s), c(w, 0, 0), c(w, d, s), c(w, d, 0),
		}},
		{Side: SideE, Dir: [3]int{1, 0, 1}, Corners: [4]vec.Vec3Float{
			c(w12, 0, s+s12), c(w, 0, s), c(w12, d, s+s12), c(w, d, s),
		}},
		{Side: SideF, Dir: [3]int{0, 0, 1}, Corners: [4]vec.Vec3Float{
			c(0, 0, s), c(w12, 0, s+s12), c(0, d, s), c(w12, d, s+s12),
		}},
	}

	if filter == FilterTop {
		top := make([]Face, 0, 2)
		for _, f := range faces {
			if f.IsTop() {
				top = append(top, f)
			}
		}
		return top
	}
	return faces
}
