package domain

// SensitivityCell is one (entry, exit) grid outcome. Defined is false when
// the model rejected that pair; an undefined cell is distinct from a cell
// holding a genuine zero return.
type SensitivityCell struct {
	IRR     float64
	MOIC    float64
	Defined bool
}

// SensitivityMatrix holds IRR and MOIC outcomes over an entry x exit
// multiple grid. Rows follow EntryMultiples, columns follow ExitMultiples;
// the two label sets are identical by construction since both derive from
// the candidate's base multiple.
type SensitivityMatrix struct {
	Ticker         string
	BaseMultiple   float64
	EntryMultiples []float64 // row labels
	ExitMultiples  []float64 // column labels
	Cells          [][]SensitivityCell
}

// At returns the cell at (row, col), with ok false out of range.
func (m SensitivityMatrix) At(row, col int) (SensitivityCell, bool) {
	if row < 0 || row >= len(m.Cells) {
		return SensitivityCell{}, false
	}
	if col < 0 || col >= len(m.Cells[row]) {
		return SensitivityCell{}, false
	}
	return m.Cells[row][col], true
}

// BaseCell returns the (entry=base, exit=base) cell. It must match the
// unmodified base-case run within floating-point tolerance.
func (m SensitivityMatrix) BaseCell() (SensitivityCell, bool) {
	for i, entry := range m.EntryMultiples {
		if entry != m.BaseMultiple {
			continue
		}
		for j, exit := range m.ExitMultiples {
			if exit == m.BaseMultiple {
				return m.At(i, j)
			}
		}
	}
	return SensitivityCell{}, false
}

// Flatten converts the matrix into per-cell rows for analytics storage.
func (m SensitivityMatrix) Flatten(runID string) []SensitivityPoint {
	points := make([]SensitivityPoint, 0, len(m.EntryMultiples)*len(m.ExitMultiples))
	for i, entry := range m.EntryMultiples {
		for j, exit := range m.ExitMultiples {
			cell := m.Cells[i][j]
			points = append(points, SensitivityPoint{
				RunID:         runID,
				Ticker:        m.Ticker,
				EntryMultiple: entry,
				ExitMultiple:  exit,
				IRR:           cell.IRR,
				MOIC:          cell.MOIC,
				Defined:       cell.Defined,
			})
		}
	}
	return points
}

// SensitivityPoint is one flattened grid cell.
// Corresponds to sensitivity_cells table in ClickHouse.
type SensitivityPoint struct {
	RunID         string
	Ticker        string
	EntryMultiple float64
	ExitMultiple  float64
	IRR           float64
	MOIC          float64
	Defined       bool
}
