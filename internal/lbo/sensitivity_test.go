package lbo

import (
	"testing"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
)

func TestGridMultiples(t *testing.T) {
	got := gridMultiples(8)
	want := []float64{7.0, 7.5, 8.0, 8.5, 9.0}

	if len(got) != len(want) {
		t.Fatalf("expected %d multiples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("multiple %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestGridMultiples_FractionalBaseKeepsEndpoints(t *testing.T) {
	got := gridMultiples(6.3)
	if got[0] != 6.3-1.0 {
		t.Errorf("expected lower endpoint %v, got %v", 6.3-1.0, got[0])
	}
	if got[4] != 6.3+1.0 {
		t.Errorf("expected upper endpoint %v, got %v", 6.3+1.0, got[4])
	}
	if got[2] != 6.3 {
		t.Errorf("expected exact base at the midpoint, got %v", got[2])
	}
}

func TestComputeSensitivity_GridShapeAndBaseCell(t *testing.T) {
	profile := baselineProfile()
	a := baselineAssumptions()
	proj := Project(100, 0.03, 0.05, a.TaxRate, a.HorizonYears)

	matrix, ok := ComputeSensitivity(profile, a, proj)
	if !ok {
		t.Fatal("expected a matrix")
	}

	if len(matrix.EntryMultiples) != 5 || len(matrix.ExitMultiples) != 5 {
		t.Fatalf("expected 5x5 grid, got %dx%d", len(matrix.EntryMultiples), len(matrix.ExitMultiples))
	}
	if len(matrix.Cells) != 5 {
		t.Fatalf("expected 5 cell rows, got %d", len(matrix.Cells))
	}
	for i, row := range matrix.Cells {
		if len(row) != 5 {
			t.Fatalf("row %d: expected 5 cells, got %d", i, len(row))
		}
	}

	// The center cell must agree with the unmodified base run.
	base, ok := ComputeReturns(profile, a, proj, domain.Figure{}, domain.Figure{})
	if !ok {
		t.Fatal("expected a base result")
	}
	cell, ok := matrix.BaseCell()
	if !ok {
		t.Fatal("expected the base cell to be present in the grid")
	}
	if !cell.Defined {
		t.Fatal("expected the base cell to be defined")
	}
	if !almostEqual(cell.IRR, base.IRR) {
		t.Errorf("base cell IRR %.9f disagrees with base run %.9f", cell.IRR, base.IRR)
	}
	if !almostEqual(cell.MOIC, base.MOIC) {
		t.Errorf("base cell MOIC %.9f disagrees with base run %.9f", cell.MOIC, base.MOIC)
	}
}

func TestComputeSensitivity_IRRMonotoneInExitMultiple(t *testing.T) {
	profile := baselineProfile()
	a := baselineAssumptions()
	proj := Project(100, 0.03, 0.05, a.TaxRate, a.HorizonYears)

	matrix, ok := ComputeSensitivity(profile, a, proj)
	if !ok {
		t.Fatal("expected a matrix")
	}

	// Holding entry fixed, a richer exit can only raise the return.
	for i := range matrix.Cells {
		for j := 1; j < len(matrix.Cells[i]); j++ {
			left, right := matrix.Cells[i][j-1], matrix.Cells[i][j]
			if !left.Defined || !right.Defined {
				continue
			}
			if right.IRR < left.IRR {
				t.Errorf("row %d: IRR fell from %.6f to %.6f as exit multiple rose", i, left.IRR, right.IRR)
			}
		}
	}
}

func TestComputeSensitivity_InfeasibleCellsUndefined(t *testing.T) {
	// Base 6.5x with 6x leverage: the low-entry corner (5.5x, 6x) prices
	// entry equity at or below zero and must stay undefined while richer
	// entries remain defined.
	profile := baselineProfile()
	profile.EVEBITDA = domain.NewFigure(6.5)
	a := baselineAssumptions()
	proj := Project(100, 0.03, 0.05, a.TaxRate, a.HorizonYears)

	matrix, ok := ComputeSensitivity(profile, a, proj)
	if !ok {
		t.Fatal("expected a matrix")
	}

	for j := range matrix.ExitMultiples {
		for i, entry := range matrix.EntryMultiples {
			cell := matrix.Cells[i][j]
			if entry <= a.LeverageMultiple && cell.Defined {
				t.Errorf("entry %.1fx at leverage %.1fx should be undefined", entry, a.LeverageMultiple)
			}
			if entry > a.LeverageMultiple && !cell.Defined {
				t.Errorf("entry %.1fx above leverage should be defined", entry)
			}
		}
	}
}

func TestComputeSensitivity_MissingBaseMultipleAbsent(t *testing.T) {
	profile := baselineProfile()
	profile.EVEBITDA = domain.Figure{}
	a := baselineAssumptions()
	proj := Project(100, 0.03, 0.05, a.TaxRate, a.HorizonYears)

	if _, ok := ComputeSensitivity(profile, a, proj); ok {
		t.Error("expected absent matrix when the base multiple is undefined")
	}
}

func TestComputeSensitivity_MissingLTMYieldsAllUndefinedCells(t *testing.T) {
	// The grid axis only needs the base multiple; a missing LTM EBITDA
	// still produces the matrix, with every cell undefined.
	profile := baselineProfile()
	profile.LTMEBITDA = domain.Figure{}
	a := baselineAssumptions()
	proj := Project(0, 0.03, 0.05, a.TaxRate, a.HorizonYears)

	matrix, ok := ComputeSensitivity(profile, a, proj)
	if !ok {
		t.Fatal("expected a matrix keyed off the defined base multiple")
	}
	for i, row := range matrix.Cells {
		for j, cell := range row {
			if cell.Defined {
				t.Errorf("cell (%d,%d): expected undefined without LTM EBITDA", i, j)
			}
		}
	}
}

func TestSensitivityMatrix_Flatten(t *testing.T) {
	profile := baselineProfile()
	a := baselineAssumptions()
	proj := Project(100, 0.03, 0.05, a.TaxRate, a.HorizonYears)

	matrix, ok := ComputeSensitivity(profile, a, proj)
	if !ok {
		t.Fatal("expected a matrix")
	}

	points := matrix.Flatten("run-1")
	if len(points) != 25 {
		t.Fatalf("expected 25 flattened cells, got %d", len(points))
	}
	for _, p := range points {
		if p.RunID != "run-1" || p.Ticker != "ACME" {
			t.Fatalf("unexpected identity on point: %+v", p)
		}
	}
	// Row-major order: the first point is the (lowest entry, lowest exit)
	// corner.
	if points[0].EntryMultiple != 7.0 || points[0].ExitMultiple != 7.0 {
		t.Errorf("expected first point at (7.0, 7.0), got (%v, %v)", points[0].EntryMultiple, points[0].ExitMultiple)
	}
	if points[24].EntryMultiple != 9.0 || points[24].ExitMultiple != 9.0 {
		t.Errorf("expected last point at (9.0, 9.0), got (%v, %v)", points[24].EntryMultiple, points[24].ExitMultiple)
	}
}
