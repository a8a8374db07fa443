package entity

import (
	"math"
	"sort"
)

// DefaultCellSize is the edge length of a grid cell in yards.
const DefaultCellSize = 32.0

type cellKey struct {
	X int
	Y int
}

// grid is a uniform spatial hash over entity positions.
type grid struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]ID
	where       map[ID]cellKey
}

func newGrid(cellSize float64) *grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]ID),
		where:       make(map[ID]cellKey),
	}
}

func (g *grid) keyFor(p Position) cellKey {
	return cellKey{
		X: int(math.Floor(p.X * g.invCellSize)),
		Y: int(math.Floor(p.Y * g.invCellSize)),
	}
}

// upsert places id in the cell covering p.
func (g *grid) upsert(id ID, p Position) {
	key := g.keyFor(p)
	if old, ok := g.where[id]; ok {
		if old == key {
			return
		}
		g.removeFromCell(id, old)
	}
	g.where[id] = key
	g.cells[key] = append(g.cells[key], id)
}

func (g *grid) remove(id ID) {
	key, ok := g.where[id]
	if !ok {
		return
	}
	g.removeFromCell(id, key)
	delete(g.where, id)
}

func (g *grid) removeFromCell(id ID, key cellKey) {
	bucket := g.cells[key]
	for i := range bucket {
		if bucket[i] != id {
			continue
		}
		bucket[i] = bucket[len(bucket)-1]
		bucket = bucket[:len(bucket)-1]
		break
	}
	if len(bucket) == 0 {
		delete(g.cells, key)
	} else {
		g.cells[key] = bucket
	}
}

// candidates returns the ids in every cell overlapping the query circle, sorted by id.
func (g *grid) candidates(center Position, radius float64) []ID {
	minKey := g.keyFor(Position{X: center.X - radius, Y: center.Y - radius})
	maxKey := g.keyFor(Position{X: center.X + radius, Y: center.Y + radius})
	var out []ID
	for x := minKey.X; x <= maxKey.X; x++ {
		for y := minKey.Y; y <= maxKey.Y; y++ {
			out = append(out, g.cells[cellKey{X: x, Y: y}]...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
