// Package pick maintains a spatial index over document entities and answers
// point and area hit queries against it.
package pick

import (
	"math"

	"drawcore/internal/entity"
	"drawcore/internal/geom"
)

// DefaultCellSize is the grid cell edge used by NewSystem.
const DefaultCellSize = 50.0

// Grid is a uniform spatial hash. Every entity occupies the cells its
// bounding box overlaps; a reverse map makes removal cheap.
type Grid struct {
	cellSize    float64
	cells       map[int64][]entity.ID
	entityCells map[entity.ID][]int64
}

// NewGrid returns an empty grid with the given cell size.
func NewGrid(cellSize float64) *Grid {
	return &Grid{
		cellSize:    cellSize,
		cells:       make(map[int64][]entity.ID),
		entityCells: make(map[entity.ID][]int64),
	}
}

func (g *Grid) hash(ix, iy int) int64 {
	return int64(ix)*73856093 ^ int64(iy)*19349663
}

func (g *Grid) cellRange(b geom.AABB) (minX, minY, maxX, maxY int) {
	minX = int(math.Floor(b.MinX / g.cellSize))
	maxX = int(math.Floor(b.MaxX / g.cellSize))
	minY = int(math.Floor(b.MinY / g.cellSize))
	maxY = int(math.Floor(b.MaxY / g.cellSize))
	return minX, minY, maxX, maxY
}

// Insert registers id under every cell its bounds overlap. The caller must
// Remove a previously inserted id first; Update on System does both.
func (g *Grid) Insert(id entity.ID, bounds geom.AABB) {
	minX, minY, maxX, maxY := g.cellRange(bounds)
	keys := make([]int64, 0, (maxX-minX+1)*(maxY-minY+1))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			key := g.hash(x, y)
			g.cells[key] = append(g.cells[key], id)
			keys = append(keys, key)
		}
	}
	g.entityCells[id] = keys
}

// Remove unregisters id from every cell it occupies. Unknown ids are a no-op.
func (g *Grid) Remove(id entity.ID) {
	keys, ok := g.entityCells[id]
	if !ok {
		return
	}
	for _, key := range keys {
		list := g.cells[key]
		for i := range list {
			if list[i] == id {
				list[i] = list[len(list)-1]
				list = list[:len(list)-1]
				break
			}
		}
		if len(list) == 0 {
			delete(g.cells, key)
		} else {
			g.cells[key] = list
		}
	}
	delete(g.entityCells, id)
}

// Clear drops every entity from the grid.
func (g *Grid) Clear() {
	g.cells = make(map[int64][]entity.ID)
	g.entityCells = make(map[entity.ID][]int64)
}

// Len returns the number of indexed entities.
func (g *Grid) Len() int { return len(g.entityCells) }

// Query appends every id registered in a cell the bounds overlap. The result
// may contain duplicates; callers sort and dedupe.
func (g *Grid) Query(bounds geom.AABB, results []entity.ID) []entity.ID {
	minX, minY, maxX, maxY := g.cellRange(bounds)
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			if list, ok := g.cells[g.hash(x, y)]; ok {
				results = append(results, list...)
			}
		}
	}
	return results
}
