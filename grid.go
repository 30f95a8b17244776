/*
Copyright © 2019 the InMAP authors.
This file is part of gcdiag.

gcdiag is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gcdiag is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gcdiag.  If not, see <http://www.gnu.org/licenses/>.
*/

package gcdiag

import (
	"fmt"
	"math"
)

// MaxLatitude is the largest absolute latitude used for grid cell lookups.
// Query latitudes are clamped to ±MaxLatitude so that points at the poles
// resolve to the nearest row of cells rather than to a degenerate point.
const MaxLatitude = 89.75

// CubedSphereFaces is the number of faces in a cubed-sphere grid.
const CubedSphereFaces = 6

// GridKind specifies the topology of a horizontal model grid.
type GridKind int

const (
	// Regular is a rectilinear latitude-longitude grid.
	Regular GridKind = iota
	// CubedSphere is a six-face gnomonic cubed-sphere grid.
	CubedSphere
)

func (k GridKind) String() string {
	switch k {
	case Regular:
		return "regular"
	case CubedSphere:
		return "cubed-sphere"
	default:
		return fmt.Sprintf("GridKind(%d)", int(k))
	}
}

// GridDescriptor describes the horizontal grid a ModelField is defined on.
// A GridDescriptor is not modified after it is created and can be shared
// between goroutines.
type GridDescriptor struct {
	Kind GridKind

	// Lon and Lat are the cell-center longitudes and latitudes
	// of a Regular grid [degrees].
	Lon, Lat []float64

	// FaceLon and FaceLat hold the cell-center coordinates of a
	// CubedSphere grid, one slice per face. Within a face, cells are
	// stored row by row, so the center of cell (y, x) is at index y*N+x.
	FaceLon, FaceLat [CubedSphereFaces][]float64

	// N is the number of cells along each edge of a cubed-sphere face.
	N int
}

// NewRegularGrid returns a regular latitude-longitude grid with the given
// cell-center coordinates.
func NewRegularGrid(lon, lat []float64) (*GridDescriptor, error) {
	g := &GridDescriptor{Kind: Regular, Lon: lon, Lat: lat}
	if err := g.Check(); err != nil {
		return nil, err
	}
	return g, nil
}

// NewCubedSphereGrid returns a cubed-sphere grid with n cells along each
// face edge. lon and lat hold the cell centers of all six faces in
// face, y, x order.
func NewCubedSphereGrid(n int, lon, lat []float64) (*GridDescriptor, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: cubed-sphere face size %d", ErrInvalidGrid, n)
	}
	size := n * n
	if len(lon) != CubedSphereFaces*size || len(lat) != CubedSphereFaces*size {
		return nil, fmt.Errorf("%w: cubed-sphere C%d needs %d coordinates; got %d longitudes and %d latitudes",
			ErrInvalidGrid, n, CubedSphereFaces*size, len(lon), len(lat))
	}
	g := &GridDescriptor{Kind: CubedSphere, N: n}
	for f := 0; f < CubedSphereFaces; f++ {
		g.FaceLon[f] = lon[f*size : (f+1)*size]
		g.FaceLat[f] = lat[f*size : (f+1)*size]
	}
	if err := g.Check(); err != nil {
		return nil, err
	}
	return g, nil
}

// Check returns an error wrapping ErrInvalidGrid if g is empty,
// internally inconsistent, or contains NaN coordinates.
func (g *GridDescriptor) Check() error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", ErrInvalidGrid)
	}
	switch g.Kind {
	case Regular:
		if len(g.Lon) == 0 || len(g.Lat) == 0 {
			return fmt.Errorf("%w: regular grid has %d longitudes and %d latitudes",
				ErrInvalidGrid, len(g.Lon), len(g.Lat))
		}
		if hasNaN(g.Lon) || hasNaN(g.Lat) {
			return fmt.Errorf("%w: regular grid contains NaN coordinates", ErrInvalidGrid)
		}
	case CubedSphere:
		size := g.N * g.N
		if size == 0 {
			return fmt.Errorf("%w: cubed-sphere grid has no cells", ErrInvalidGrid)
		}
		for f := 0; f < CubedSphereFaces; f++ {
			if len(g.FaceLon[f]) != size || len(g.FaceLat[f]) != size {
				return fmt.Errorf("%w: cubed-sphere face %d has %d longitudes and %d latitudes; want %d",
					ErrInvalidGrid, f, len(g.FaceLon[f]), len(g.FaceLat[f]), size)
			}
			if hasNaN(g.FaceLon[f]) || hasNaN(g.FaceLat[f]) {
				return fmt.Errorf("%w: cubed-sphere face %d contains NaN coordinates", ErrInvalidGrid, f)
			}
		}
	default:
		return fmt.Errorf("%w: unknown grid kind %v", ErrInvalidGrid, g.Kind)
	}
	return nil
}

// Shape returns the horizontal dimensions of the grid: (lat, lon) for
// a regular grid and (face, y, x) for a cubed-sphere grid.
func (g *GridDescriptor) Shape() []int {
	if g.Kind == CubedSphere {
		return []int{CubedSphereFaces, g.N, g.N}
	}
	return []int{len(g.Lat), len(g.Lon)}
}

// Center returns the longitude and latitude of the center of cell c.
func (g *GridDescriptor) Center(c CellIndex) (lon, lat float64) {
	if g.Kind == CubedSphere {
		i := c.Y*g.N + c.X
		return g.FaceLon[c.Face][i], g.FaceLat[c.Face][i]
	}
	return g.Lon[c.X], g.Lat[c.Y]
}

// CellIndex identifies a horizontal grid cell. Face is always zero on
// regular grids, where Y indexes latitude and X indexes longitude.
type CellIndex struct {
	Face, Y, X int
}

func (c CellIndex) String() string {
	return fmt.Sprintf("(face=%d, y=%d, x=%d)", c.Face, c.Y, c.X)
}

// NearestCell returns the index of the grid cell whose center is nearest
// to the point (lon, lat), in degrees. The latitude is first clamped to
// ±MaxLatitude. On a regular grid the nearest longitude and latitude are
// found independently; on a cubed-sphere grid every cell center on every
// face is compared by great-circle distance. Exact ties resolve to the
// first cell in storage order.
func NearestCell(g *GridDescriptor, lon, lat float64) (CellIndex, error) {
	if err := g.Check(); err != nil {
		return CellIndex{}, err
	}
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return CellIndex{}, fmt.Errorf("%w: query point (%g, %g)", ErrInvalidGrid, lon, lat)
	}
	lat = ClampLatitude(lat)

	if g.Kind == Regular {
		return CellIndex{
			Y: argminAbs(g.Lat, lat),
			X: argminAbs(g.Lon, lon),
		}, nil
	}

	best := CellIndex{}
	bestDist := math.Inf(1)
	for f := 0; f < CubedSphereFaces; f++ {
		lons, lats := g.FaceLon[f], g.FaceLat[f]
		for i := range lons {
			d := GreatCircle(lon, lat, lons[i], lats[i])
			if d < bestDist {
				bestDist = d
				best = CellIndex{Face: f, Y: i / g.N, X: i % g.N}
			}
		}
	}
	return best, nil
}

// ClampLatitude limits lat to the range [-MaxLatitude, MaxLatitude].
func ClampLatitude(lat float64) float64 {
	return math.Max(math.Min(lat, MaxLatitude), -MaxLatitude)
}

// GreatCircle returns the central angle in radians between two points
// given in degrees, using the haversine formula.
func GreatCircle(lon1, lat1, lon2, lat2 float64) float64 {
	const deg = math.Pi / 180
	phi1, phi2 := lat1*deg, lat2*deg
	dphi := phi2 - phi1
	dlambda := (lon2 - lon1) * deg
	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlambda/2)*math.Sin(dlambda/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(a)))
}

// argminAbs returns the index of the element of v closest to x.
// Ties go to the lowest index.
func argminAbs(v []float64, x float64) int {
	best := 0
	bestDiff := math.Inf(1)
	for i, vv := range v {
		if d := math.Abs(vv - x); d < bestDiff {
			bestDiff = d
			best = i
		}
	}
	return best
}

func hasNaN(v []float64) bool {
	for _, vv := range v {
		if math.IsNaN(vv) {
			return true
		}
	}
	return false
}
