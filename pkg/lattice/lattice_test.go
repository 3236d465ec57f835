package lattice

import (
	"testing"

	"stemtools/internal/models"
)

// TestDefaultTables verifies the default species roles and bond lengths
func TestDefaultTables(t *testing.T) {
	species, bonds := DefaultTables()

	if species.LatticeAtom != "C" {
		t.Errorf("Expected lattice atom C, got %s", species.LatticeAtom)
	}
	if species.Dopant != "Si" {
		t.Errorf("Expected dopant Si, got %s", species.Dopant)
	}

	if len(bonds) != 3 {
		t.Errorf("Expected 3 bond entries, got %d", len(bonds))
	}

	cases := []struct {
		a, b string
		want float64
	}{
		{"C", "C", 175},
		{"Si", "C", 210},
		{"C", "Si", 210}, // reversed order must resolve to the same entry
		{"Si", "Si", 250},
	}
	for _, tc := range cases {
		got, ok := bonds.MaxLength(tc.a, tc.b)
		if !ok {
			t.Errorf("No bond length for pair (%s, %s)", tc.a, tc.b)
			continue
		}
		if got != tc.want {
			t.Errorf("Bond (%s, %s): expected %.0f, got %.0f", tc.a, tc.b, tc.want, got)
		}
	}
}

// TestMapClasses verifies axis swapping, class assignment and class ordering
func TestMapClasses(t *testing.T) {
	species, _ := DefaultTables()

	records := []models.CoordRecord{
		{X: 1, Y: 2, Species: "Si"},
		{X: 3, Y: 4, Species: "C"},
		{X: 5, Y: 6, Species: "C"},
	}

	sites, err := MapClasses(records, species)
	if err != nil {
		t.Fatalf("MapClasses failed: %v", err)
	}

	if len(sites) != 3 {
		t.Fatalf("Expected 3 sites, got %d", len(sites))
	}

	// Lattice atoms sort before the dopant.
	if sites[0].Class != 0 || sites[1].Class != 0 || sites[2].Class != 1 {
		t.Errorf("Sites not sorted by class: %+v", sites)
	}

	// The Si record had (row, col) = (1, 2); after the axis swap it must
	// appear as (x, y) = (2, 1).
	dopant := sites[2]
	if dopant.X != 2 || dopant.Y != 1 {
		t.Errorf("Expected dopant at (2, 1), got (%v, %v)", dopant.X, dopant.Y)
	}
}

// TestMapClassesUnknownSpecies verifies that an unmapped species is rejected
func TestMapClassesUnknownSpecies(t *testing.T) {
	species, _ := DefaultTables()

	records := []models.CoordRecord{
		{X: 0, Y: 0, Species: "N"},
	}

	if _, err := MapClasses(records, species); err == nil {
		t.Error("Expected an error for species not covered by the map")
	}
}
