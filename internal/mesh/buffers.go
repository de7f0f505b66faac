// Package mesh превращает модель суши в буферы вершин, нормалей и индексов
// для рендера: стены рельефа с отсечением внутренних граней, шапки вершин
// и маркеры тайлов.
package mesh

import (
	"github.com/annel0/hexvoxel/internal/vec"
	"github.com/annel0/hexvoxel/internal/voxel"
)

// Buffers - плоские массивы атрибутов: по 3 float на вершину и по 6 индексов на грань.
type Buffers struct {
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals"`
	Indices   []uint32  `json:"indices"`
}

// AppendFace добавляет грань вокселя, стоящего в позиции tile
func (b *Buffers) AppendFace(p voxel.Params, f voxel.Face, tile vec.Vec3) {
	base := uint32(b.VertexCount())

	for _, corner := range f.Corners {
		v := p.ToWorldVertex(corner, tile)
		b.Positions = append(b.Positions, float32(v.X), float32(v.Y), float32(v.Z))
		b.Normals = append(b.Normals, float32(f.Dir[0]), float32(f.Dir[1]), float32(f.Dir[2]))
	}
	for _, i := range voxel.QuadIndices {
		b.Indices = append(b.Indices, base+i)
	}
}

// VertexCount возвращает количество вершин
func (b *Buffers) VertexCount() int {
	return len(b.Positions) / 3
}

// FaceCount возвращает количество граней
func (b *Buffers) FaceCount() int {
	return len(b.Indices) / len(voxel.QuadIndices)
}

// Vertex возвращает вершину по индексу
func (b *Buffers) Vertex(i int) vec.Vec3Float {
	return vec.Vec3Float{
		X: float64(b.Positions[i*3]),
		Y: float64(b.Positions[i*3+1]),
		Z: float64(b.Positions[i*3+2]),
	}
}
