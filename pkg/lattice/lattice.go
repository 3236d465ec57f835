// Package lattice describes the atomic species present in a STEM image:
// which species is the host lattice atom, which is the dopant, and how long
// bonds between each species pair may get. It also maps raw coordinate
// records onto binary atom classes for downstream analysis.
package lattice

import (
	"fmt"
	"sort"

	"stemtools/internal/models"
)

// SpeciesMap assigns species labels to the two roles an atom can play in a
// doped 2D lattice.
type SpeciesMap struct {
	// LatticeAtom is the species of the host lattice (class 0)
	LatticeAtom string

	// Dopant is the impurity species (class 1)
	Dopant string
}

// Pair is an unordered pair of species labels. Construct it with NewPair so
// that (A, B) and (B, A) compare equal.
type Pair [2]string

// NewPair returns the normalized pair for two species labels.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{a, b}
}

// BondTable maps a species pair to the maximum plausible bond length
// between the two, in picometers. The table is used to bound neighbor
// searches around defect sites.
type BondTable map[Pair]float64

// MaxLength returns the maximum bond length between species a and b, in
// either order. The second return is false when the pair is not listed.
func (t BondTable) MaxLength(a, b string) (float64, bool) {
	d, ok := t[NewPair(a, b)]
	return d, ok
}

// BondSpec declares the maximum length of a bond between two species.
type BondSpec struct {
	A, B      string
	MaxLength float64
}

// NewTables builds the species map and bond table for a host lattice of
// atom1 doped with atom2. The three bond specs cover the host-host,
// host-dopant and dopant-dopant pairs.
func NewTables(atom1, atom2 string, b11, b12, b22 BondSpec) (SpeciesMap, BondTable) {
	species := SpeciesMap{
		LatticeAtom: atom1,
		Dopant:      atom2,
	}
	bonds := BondTable{
		NewPair(b11.A, b11.B): b11.MaxLength,
		NewPair(b12.A, b12.B): b12.MaxLength,
		NewPair(b22.A, b22.B): b22.MaxLength,
	}
	return species, bonds
}

// DefaultTables returns the tables for Si-doped graphene, the system the
// default analysis parameters are calibrated for.
func DefaultTables() (SpeciesMap, BondTable) {
	return NewTables("C", "Si",
		BondSpec{"C", "C", 175},
		BondSpec{"Si", "C", 210},
		BondSpec{"Si", "Si", 250},
	)
}

// MapClasses converts raw coordinate records to classed sites. The
// row/column order of the raw records is swapped into x/y convention, the
// species labels are folded onto classes through the species map, and the
// result is sorted by class with lattice atoms first. A record whose
// species is covered by neither role is an error.
func MapClasses(records []models.CoordRecord, species SpeciesMap) ([]models.Site, error) {
	sites := make([]models.Site, len(records))
	for i, rec := range records {
		var class int
		switch rec.Species {
		case species.LatticeAtom:
			class = 0
		case species.Dopant:
			class = 1
		default:
			return nil, fmt.Errorf("species %q at record %d matches neither lattice atom %q nor dopant %q",
				rec.Species, i, species.LatticeAtom, species.Dopant)
		}
		// Detection output stores (row, col); analysis works in (x, y).
		sites[i] = models.Site{X: rec.Y, Y: rec.X, Class: class}
	}
	sort.SliceStable(sites, func(i, j int) bool { return sites[i].Class < sites[j].Class })
	return sites, nil
}
