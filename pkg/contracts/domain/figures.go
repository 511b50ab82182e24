package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Figure is a single statistic that is either a number or not applicable.
type Figure struct {
	Value float64
	Valid bool
}

// NA is the not-applicable figure.
var NA = Figure{}

// Of wraps a present value.
func Of(v float64) Figure {
	return Figure{Value: v, Valid: true}
}

// Rounded returns the figure rounded to the given number of decimals.
func (f Figure) Rounded(decimals int) Figure {
	if !f.Valid {
		return f
	}
	p := math.Pow(10, float64(decimals))
	return Of(math.Round(f.Value*p) / p)
}

// String renders one decimal place or "N/A".
func (f Figure) String() string {
	if !f.Valid {
		return "N/A"
	}
	if f.Value == math.Trunc(f.Value) {
		return fmt.Sprintf("%.0f", f.Value)
	}
	return fmt.Sprintf("%.1f", f.Value)
}

// MarshalJSON renders a number or the string "N/A".
func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte(`"N/A"`), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON accepts a number, null or "N/A".
func (f *Figure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`"N/A"`)) {
		*f = NA
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("figure: %w", err)
	}
	*f = Of(v)
	return nil
}

// Category distinguishes cases handled in-house from externally assigned ones.
type Category string

const (
	CategoryInHouse  Category = "inhouse"
	CategoryAssigned Category = "assigned"
	CategoryUnknown  Category = "unknown"
)

// Categories lists the categories that carry caseload figures.
var Categories = []Category{CategoryInHouse, CategoryAssigned}

// CategoryFigures are the period counters of one case category.
// Reassigned = max(Opening + Added - Closed - Ending, 0) unless the source
// carries an explicit reassigned column.
type CategoryFigures struct {
	Opening    Figure `json:"opening"`
	Added      Figure `json:"added"`
	Closed     Figure `json:"closed"`
	Reassigned Figure `json:"reassigned"`
	Ending     Figure `json:"ending"`
}

// Figures holds the counters for both case categories.
type Figures struct {
	InHouse  CategoryFigures `json:"inhouse"`
	Assigned CategoryFigures `json:"assigned"`
}

// For returns the counters of a category.
func (f Figures) For(c Category) CategoryFigures {
	if c == CategoryAssigned {
		return f.Assigned
	}
	return f.InHouse
}

// With returns a copy with the counters of a category replaced.
func (f Figures) With(c Category, cf CategoryFigures) Figures {
	if c == CategoryAssigned {
		f.Assigned = cf
	} else {
		f.InHouse = cf
	}
	return f
}

// PeerFigures are cohort averages for the officer's role.
type PeerFigures struct {
	Cohort     string `json:"cohort"`
	CohortSize int    `json:"cohort_size"`
	Figures
}
