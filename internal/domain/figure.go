package domain

// Figure is a numeric data point that may be undefined when the underlying
// concept is missing from source filings or market data. The zero value is
// undefined. Undefined figures propagate as absent results downstream; they
// are never silently treated as zero.
type Figure struct {
	Value   float64
	Defined bool
}

// NewFigure returns a defined figure holding v.
func NewFigure(v float64) Figure {
	return Figure{Value: v, Defined: true}
}

// Or returns the figure's value, or fallback when undefined.
func (f Figure) Or(fallback float64) float64 {
	if f.Defined {
		return f.Value
	}
	return fallback
}

// Ptr returns a pointer to the value for nullable database columns,
// or nil when undefined.
func (f Figure) Ptr() *float64 {
	if !f.Defined {
		return nil
	}
	v := f.Value
	return &v
}

// FigureFromPtr converts a nullable database value into a Figure.
func FigureFromPtr(p *float64) Figure {
	if p == nil {
		return Figure{}
	}
	return Figure{Value: *p, Defined: true}
}
