// Package neighbors computes nearest-neighbor distance statistics over a
// planar point set, typically the atomic coordinates decoded from a STEM
// image. A KD-tree indexes the set so each query is logarithmic.
package neighbors

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/stat"

	"stemtools/internal/models"
)

// ErrTooFewPoints reports a nearest-neighbor query on fewer than 2 points.
var ErrTooFewPoints = errors.New("neighbors: need at least 2 points")

// Point2D is a planar point carrying its index into the original set.
type Point2D struct {
	X, Y float64
	ID   int
}

// Compare implements the kdtree.Comparable interface
func (p Point2D) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(Point2D)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p Point2D) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between two points
func (p Point2D) Distance(c kdtree.Comparable) float64 {
	q := c.(Point2D)
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Points2D is a collection of Point2D that satisfies kdtree.Interface
type Points2D []Point2D

func (p Points2D) Index(i int) kdtree.Comparable     { return p[i] }
func (p Points2D) Len() int                          { return len(p) }
func (p Points2D) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p Points2D) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{Points2D: p, Dim: d}, kdtree.MedianOfRandoms(pointPlane{Points2D: p, Dim: d}, 100))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for Points2D
type pointPlane struct {
	Points2D
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.Points2D[i].X < p.Points2D[j].X
	case 1:
		return p.Points2D[i].Y < p.Points2D[j].Y
	default:
		panic("illegal dimension")
	}
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{Points2D: p.Points2D[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.Points2D[i], p.Points2D[j] = p.Points2D[j], p.Points2D[i]
}

// Distances returns the distance from each point to its nearest other
// point, with each undirected pair counted once. Duplicate locations yield
// a zero distance and are not filtered. Fewer than 2 points fail with
// ErrTooFewPoints since no nearest neighbor exists.
func Distances(sites []models.Site) ([]float64, error) {
	if len(sites) < 2 {
		return nil, fmt.Errorf("%w, got %d", ErrTooFewPoints, len(sites))
	}

	points := make(Points2D, len(sites))
	for i, s := range sites {
		points[i] = Point2D{X: s.X, Y: s.Y, ID: i}
	}
	tree := kdtree.New(points, true)

	type pair struct{ a, b int }
	seen := make(map[pair]bool)
	distances := make([]float64, 0, len(sites))

	for _, p := range points {
		keeper := kdtree.NewNKeeper(2)
		tree.NearestSet(keeper, p)

		// The keeper returns the query point itself at distance zero plus
		// its closest other point. With coincident points either result
		// may come first, so pick the non-self item.
		nearest := -1
		dist := math.Inf(1)
		for _, item := range keeper.Heap {
			if item.Comparable == nil {
				continue
			}
			q := item.Comparable.(Point2D)
			if q.ID == p.ID {
				continue
			}
			if item.Dist < dist {
				nearest = q.ID
				dist = item.Dist
			}
		}
		if nearest < 0 {
			continue
		}

		if seen[pair{nearest, p.ID}] {
			continue
		}
		seen[pair{p.ID, nearest}] = true
		distances = append(distances, math.Sqrt(dist))
	}
	return distances, nil
}

// Stats returns the mean and population standard deviation of the
// nearest-neighbor distances of a point set.
func Stats(sites []models.Site) (mean, stdev float64, err error) {
	distances, err := Distances(sites)
	if err != nil {
		return 0, 0, err
	}
	return stat.Mean(distances, nil), stat.PopStdDev(distances, nil), nil
}
