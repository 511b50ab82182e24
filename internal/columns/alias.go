package columns

import (
	"strings"

	apperrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

// Concept names a piece of information that exporters label inconsistently.
type Concept string

const (
	Name         Concept = "name"
	Abbreviation Concept = "abbreviation"
	Role         Concept = "role"
	Officer      Concept = "officer"
	CaseRef      Concept = "case reference"
	Applicant    Concept = "applicant"
	CaseCategory Concept = "case category"
)

// Measure is a caseload counter reported per case category.
type Measure string

const (
	Opening    Measure = "opening"
	Additions  Measure = "additions"
	NFA        Measure = "nfa"
	Reassigned Measure = "reassigned"
	Ending     Measure = "ending"
	// AsAt marks the dated "<category> caseload as at <date>" columns.
	AsAt Measure = "as at"
)

// Measures lists the counters in report order.
var Measures = []Measure{Opening, Additions, NFA, Reassigned, Ending}

// CaseloadConcept is the concept of one counter of one category.
func CaseloadConcept(c domain.Category, m Measure) Concept {
	return Concept(string(c) + " " + string(m))
}

// Alias lists what a concept may look like once headers are normalized.
// Exact literals win over Contains substrings, which win over AllOf word
// groups (every group must contribute one whole-word match). Exclude
// substrings veto the looser passes.
type Alias struct {
	Exact    []string
	Contains []string
	AllOf    [][]string
	Exclude  []string
}

// AliasTable maps concepts to their accepted spellings.
type AliasTable map[Concept]Alias

var categoryTokens = map[domain.Category][]string{
	domain.CategoryInHouse:  {"in-house", "inhouse", "in house"},
	domain.CategoryAssigned: {"assigned", "external", "outsourced"},
}

var measureTokens = map[Measure][]string{
	Opening:    {"opening", "opening balance", "start", "brought forward"},
	Additions:  {"additions", "addition", "added", "new cases", "new", "intake"},
	NFA:        {"nfa", "closed", "closures", "no further action"},
	Reassigned: {"reassigned", "re-assigned", "reassignment", "transferred"},
	Ending:     {"end", "ending", "closing", "closing balance", "carried forward"},
	AsAt:       {"as at", "as of"},
}

// DefaultAliases returns the alias table for the three known export shapes.
func DefaultAliases() AliasTable {
	t := AliasTable{
		Name: {
			Exact:    []string{"name", "officer name", "full name", "staff name", "officer"},
			Contains: []string{"officer name", "staff name", "name"},
			Exclude:  []string{"applicant", "client", "abbreviation", "case", "file", "user"},
		},
		Abbreviation: {
			Exact:    []string{"abbreviation", "abbr", "abbrev", "initials", "officer code"},
			Contains: []string{"abbreviation", "abbr", "initials"},
		},
		Role: {
			Exact:    []string{"function", "role", "lo/le", "self_type", "self type", "designation"},
			Contains: []string{"function", "lo/le", "self_type", "role"},
			Exclude:  []string{"case"},
		},
		Officer: {
			Exact:    []string{"officer", "lawyer", "legal officer", "assigned officer", "handling officer", "officer in charge"},
			Contains: []string{"officer", "lawyer"},
			Exclude:  []string{"name", "abbreviation"},
		},
		CaseRef: {
			Exact:    []string{"case ref", "case reference", "case no", "case no.", "case number", "file ref", "file reference", "reference", "ref"},
			Contains: []string{"case ref", "case no", "case number", "file ref", "reference"},
		},
		Applicant: {
			Exact:    []string{"applicant", "applicant name", "client", "client name"},
			Contains: []string{"applicant", "client"},
		},
		CaseCategory: {
			Exact:    []string{"case type", "case category", "type", "assignment", "in-house/assigned", "inhouse/assigned"},
			Contains: []string{"case type", "case category", "in-house/assigned", "inhouse/assigned", "assignment"},
		},
	}
	for _, c := range domain.Categories {
		for m, words := range measureTokens {
			alias := Alias{AllOf: [][]string{categoryTokens[c], words}}
			if m != AsAt {
				alias.Exclude = []string{"as at", "as of"}
			}
			t[CaseloadConcept(c, m)] = alias
		}
	}
	return t
}

// Extend returns a copy of the table with extra literal spellings appended to
// the Exact and Contains lists of each named concept.
func (t AliasTable) Extend(extra map[string][]string) AliasTable {
	out := make(AliasTable, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for name, literals := range extra {
		c := Concept(Normalize(name))
		a := out[c]
		for _, l := range literals {
			l = Normalize(l)
			if l == "" {
				continue
			}
			a.Exact = append(append([]string(nil), a.Exact...), l)
			a.Contains = append(append([]string(nil), a.Contains...), l)
		}
		out[c] = a
	}
	return out
}

// Find returns the index of the column that best represents concept in the
// canonical header list cols.
func (t AliasTable) Find(cols []string, concept Concept) (int, error) {
	a, ok := t[concept]
	if !ok {
		return -1, &apperrors.ColumnNotFoundError{Concept: string(concept)}
	}
	for _, lit := range a.Exact {
		for i, c := range cols {
			if c == lit {
				return i, nil
			}
		}
	}
	for _, sub := range a.Contains {
		for i, c := range cols {
			if strings.Contains(c, sub) && !excluded(c, a.Exclude) {
				return i, nil
			}
		}
	}
	if len(a.AllOf) > 0 {
		for i, c := range cols {
			if matchesAllOf(c, a.AllOf) && !excluded(c, a.Exclude) {
				return i, nil
			}
		}
	}
	return -1, &apperrors.ColumnNotFoundError{Concept: string(concept)}
}

// Has reports whether any column represents concept.
func (t AliasTable) Has(cols []string, concept Concept) bool {
	_, err := t.Find(cols, concept)
	return err == nil
}

// FindAll returns every column index matching concept by any pass, in column
// order.
func (t AliasTable) FindAll(cols []string, concept Concept) []int {
	a, ok := t[concept]
	if !ok {
		return nil
	}
	var out []int
	for i, c := range cols {
		if matchesAlias(c, a) {
			out = append(out, i)
		}
	}
	return out
}

func matchesAlias(c string, a Alias) bool {
	for _, lit := range a.Exact {
		if c == lit {
			return true
		}
	}
	if excluded(c, a.Exclude) {
		return false
	}
	for _, sub := range a.Contains {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return len(a.AllOf) > 0 && matchesAllOf(c, a.AllOf)
}

func matchesAllOf(c string, groups [][]string) bool {
	for _, words := range groups {
		found := false
		for _, w := range words {
			if containsWord(c, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func excluded(c string, exclude []string) bool {
	for _, x := range exclude {
		if strings.Contains(c, x) {
			return true
		}
	}
	return false
}

// Marker builds a header-row predicate that accepts a candidate header list
// when any of the concepts resolves.
func (t AliasTable) Marker(concepts ...Concept) func(cols []string) bool {
	return func(cols []string) bool {
		for _, c := range concepts {
			if t.Has(cols, c) {
				return true
			}
		}
		return false
	}
}

// CategoryOf classifies a cell value such as "In-House" or "Assigned".
func CategoryOf(value string) domain.Category {
	v := Normalize(value)
	if v == "" {
		return domain.CategoryUnknown
	}
	for _, c := range domain.Categories {
		for _, tok := range categoryTokens[c] {
			if containsWord(v, tok) {
				return c
			}
		}
	}
	return domain.CategoryUnknown
}
