package extract

import (
	"sort"

	"thawmark/internal/raster"
)

// component is one 8-connected foreground region, pixels in raster scan order.
type component struct {
	id     int
	pixels [][2]int
}

// labelComponents finds 8-connected foreground regions in raster scan order,
// which keeps region numbering deterministic for a fixed mask.
func labelComponents(mask *raster.Mask) []component {
	labels := make([]int, mask.Width*mask.Height)
	var components []component

	var stack [][2]int
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.At(x, y) || labels[y*mask.Width+x] != 0 {
				continue
			}
			comp := component{id: len(components) + 1}
			stack = append(stack[:0], [2]int{x, y})
			labels[y*mask.Width+x] = comp.id
			for len(stack) > 0 {
				px := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				comp.pixels = append(comp.pixels, px)
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx, ny := px[0]+dx, px[1]+dy
						if !mask.At(nx, ny) || labels[ny*mask.Width+nx] != 0 {
							continue
						}
						labels[ny*mask.Width+nx] = comp.id
						stack = append(stack, [2]int{nx, ny})
					}
				}
			}
			sort.Slice(comp.pixels, func(i, j int) bool {
				if comp.pixels[i][1] != comp.pixels[j][1] {
					return comp.pixels[i][1] < comp.pixels[j][1]
				}
				return comp.pixels[i][0] < comp.pixels[j][0]
			})
			components = append(components, comp)
		}
	}
	return components
}

// Directions for boundary walking, screen coordinates (y down).
var dirs = [4][2]int{
	{1, 0},  // east
	{0, 1},  // south
	{-1, 0}, // west
	{0, -1}, // north
}

type corner struct{ x, y int }

type cornerEdges struct {
	// out[d] is true when a directed boundary edge leaves this corner in
	// direction d and has not been consumed yet.
	out [4]bool
}

// traceRings walks the pixel-edge ("crack") boundary of a component and
// returns every closed ring: one outer boundary plus one ring per enclosed
// hole. Edges are directed so the component interior stays on the left of
// travel; at corners where two diagonal pixels of the same component touch,
// the walk takes the right turn, which keeps 8-connected regions on a single
// outer ring. Ring vertices are pixel-corner coordinates.
func traceRings(comp component, inComp func(x, y int) bool) [][]corner {
	edges := make(map[corner]*cornerEdges)
	addEdge := func(c corner, dir int) {
		entry := edges[c]
		if entry == nil {
			entry = &cornerEdges{}
			edges[c] = entry
		}
		entry.out[dir] = true
	}

	for _, px := range comp.pixels {
		x, y := px[0], px[1]
		if !inComp(x, y-1) { // top exposed: walk west
			addEdge(corner{x + 1, y}, 2)
		}
		if !inComp(x, y+1) { // bottom exposed: walk east
			addEdge(corner{x, y + 1}, 0)
		}
		if !inComp(x-1, y) { // left exposed: walk south
			addEdge(corner{x, y}, 1)
		}
		if !inComp(x+1, y) { // right exposed: walk north
			addEdge(corner{x + 1, y + 1}, 3)
		}
	}

	starts := make([]corner, 0, len(edges))
	for c := range edges {
		starts = append(starts, c)
	}
	sort.Slice(starts, func(i, j int) bool {
		if starts[i].y != starts[j].y {
			return starts[i].y < starts[j].y
		}
		return starts[i].x < starts[j].x
	})

	var rings [][]corner
	for _, start := range starts {
		for dir := 0; dir < 4; dir++ {
			if !edges[start].out[dir] {
				continue
			}
			ring := walkRing(edges, start, dir)
			if len(ring) >= 4 {
				rings = append(rings, ring)
			}
		}
	}
	return rings
}

func walkRing(edges map[corner]*cornerEdges, start corner, startDir int) []corner {
	ring := []corner{start}
	pos := start
	dir := startDir

	for {
		entry := edges[pos]
		entry.out[dir] = false
		pos = corner{pos.x + dirs[dir][0], pos.y + dirs[dir][1]}
		ring = append(ring, pos)
		if pos == start {
			return ring
		}

		next := edges[pos]
		if next == nil {
			return ring // open chain; cannot happen for a valid boundary
		}
		// Preference: right turn, straight, left turn. Never reverse.
		switch {
		case next.out[(dir+1)%4]:
			dir = (dir + 1) % 4
		case next.out[dir]:
		case next.out[(dir+3)%4]:
			dir = (dir + 3) % 4
		default:
			return ring
		}
	}
}

// ringArea is the signed shoelace area of a closed corner ring.
func ringArea(ring []corner) float64 {
	var sum int
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i].x*ring[i+1].y - ring[i+1].x*ring[i].y
	}
	return float64(sum) / 2
}
