// Package resolver joins roster entries to caseload and survey rows using a
// tolerant identity key (trimmed, case-folded name or abbreviation).
package resolver

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"github.com/worldsofmind/lab-newsletter-generator/internal/columns"
	apperrors "github.com/worldsofmind/lab-newsletter-generator/internal/errors"
	"github.com/worldsofmind/lab-newsletter-generator/internal/tabular"
	"github.com/worldsofmind/lab-newsletter-generator/pkg/contracts/domain"
)

// Match is one roster entity with the rows that belong to it. Either row
// list may be empty: new joiners have no caseload yet.
type Match struct {
	Index        int
	Entity       domain.Identity
	CaseloadRows []int
	RatingRows   []int
}

// Resolution is the outcome of joining the three tables.
type Resolution struct {
	Entities []domain.Identity
	Matches  []Match
	// CaseloadOwner maps each caseload row to its entity index, or -1.
	CaseloadOwner []int
	// RatingOwner maps each rating row to its entity index, or -1.
	RatingOwner []int

	index *Index
}

// Resolver joins tables using an alias table to find identity columns.
type Resolver struct {
	aliases columns.AliasTable
	logger  *slog.Logger
}

// New creates a resolver.
func New(aliases columns.AliasTable, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		aliases: aliases,
		logger:  logger.With(slog.String("component", "entity_resolver")),
	}
}

// Index maps identity keys to roster positions. Abbreviations always
// resolve; a name resolves only when exactly one entity carries it.
type Index struct {
	keys      map[string]int
	ambiguous map[string]bool
}

// Lookup returns the entity an identity cell resolves to.
func (x *Index) Lookup(s string) (int, bool) {
	i, ok := x.keys[columns.Key(s)]
	return i, ok
}

// Ambiguous reports whether s is a name shared by several entities.
func (x *Index) Ambiguous(s string) bool {
	return x.ambiguous[columns.Key(s)]
}

// Roster reads identities from the roster table, one per non-blank row.
// A repeated abbreviation, or a repeated name/abbreviation pair, is a data
// error. Entities sharing only a name stay reachable by abbreviation.
func (r *Resolver) Roster(roster *tabular.Table) ([]domain.Identity, *Index, error) {
	nameCol, nameErr := r.aliases.Find(roster.Columns, columns.Name)
	abbrCol, abbrErr := r.aliases.Find(roster.Columns, columns.Abbreviation)
	if nameErr != nil && abbrErr != nil {
		return nil, nil, &apperrors.ColumnNotFoundError{Table: roster.Name, Concept: string(columns.Name)}
	}
	roleCol, _ := r.aliases.Find(roster.Columns, columns.Role)

	var (
		entities []domain.Identity
		rowOf    []int
		abbrs    = make(map[string]int)
	)
	for row := 0; row < roster.Len(); row++ {
		id := domain.Identity{
			Name:         roster.Cell(row, nameCol),
			Abbreviation: roster.Cell(row, abbrCol),
			Role:         roster.Cell(row, roleCol),
		}
		if id.Name == "" && id.Abbreviation == "" {
			continue
		}
		if id.Name == "" {
			id.Name = id.Abbreviation
		}

		if id.Abbreviation != "" {
			k := columns.Key(id.Abbreviation)
			if prev, ok := abbrs[k]; ok {
				return nil, nil, duplicate(k, rowOf[prev], row)
			}
			abbrs[k] = len(entities)
		}
		entities = append(entities, id)
		rowOf = append(rowOf, row)
	}

	names := make(map[string][]int)
	for i, e := range entities {
		k := columns.Key(e.Name)
		names[k] = append(names[k], i)
	}

	index := &Index{keys: make(map[string]int, len(abbrs)+len(names)), ambiguous: make(map[string]bool)}
	for k, i := range abbrs {
		index.keys[k] = i
	}
	for i, e := range entities {
		k := columns.Key(e.Name)
		owner, isAbbr := abbrs[k]
		if len(names[k]) == 1 && (!isAbbr || owner == i) {
			index.keys[k] = i
			continue
		}
		if !isAbbr {
			index.ambiguous[k] = true
		}
		if e.Abbreviation != "" {
			continue
		}

		// Nothing left to tell this entity apart.
		others := lo.Without(names[k], i)
		if isAbbr {
			others = append(others, owner)
		}
		other := lo.Min(others)
		return nil, nil, duplicate(k, rowOf[min(i, other)], rowOf[max(i, other)])
	}
	return entities, index, nil
}

func duplicate(key string, first, second int) error {
	return &apperrors.DuplicateEntityError{Key: key, FirstRow: first + 1, SecondRow: second + 1}
}

// Resolve joins roster entities to caseload and rating rows.
func (r *Resolver) Resolve(ctx context.Context, roster, caseload, ratings *tabular.Table) (*Resolution, error) {
	entities, index, err := r.Roster(roster)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Entities: entities,
		Matches:  make([]Match, len(entities)),
		index:    index,
	}
	for i, e := range entities {
		res.Matches[i] = Match{Index: i, Entity: e}
	}

	res.CaseloadOwner = r.assign(ctx, caseload, index, func(entity, row int) {
		res.Matches[entity].CaseloadRows = append(res.Matches[entity].CaseloadRows, row)
	})
	res.RatingOwner = r.assign(ctx, ratings, index, func(entity, row int) {
		res.Matches[entity].RatingRows = append(res.Matches[entity].RatingRows, row)
	})

	unmatched := lo.CountBy(res.Matches, func(m Match) bool { return len(m.CaseloadRows) == 0 })
	r.logger.InfoContext(ctx, "entities resolved",
		slog.Int("entities", len(entities)),
		slog.Int("without_caseload", unmatched))

	return res, nil
}

// assign walks a table once and reports every (entity, row) pair whose
// identity cells match an entity key. It returns the owner of each row.
func (r *Resolver) assign(ctx context.Context, t *tabular.Table, index *Index, add func(entity, row int)) []int {
	owners := make([]int, 0)
	if t == nil {
		return owners
	}
	owners = make([]int, t.Len())

	idCols := r.identityColumns(t)
	if len(idCols) == 0 {
		r.logger.WarnContext(ctx, "table has no identity column", slog.String("table", t.Name))
	}

	for row := 0; row < t.Len(); row++ {
		owners[row] = -1
		var (
			matched   []int
			ambiguous string
		)
		for _, col := range idCols {
			cell := t.Cell(row, col)
			if idx, ok := index.Lookup(cell); ok {
				matched = append(matched, idx)
			} else if index.Ambiguous(cell) {
				ambiguous = cell
			}
		}
		matched = lo.Uniq(matched)
		if len(matched) == 0 && ambiguous != "" {
			r.logger.WarnContext(ctx, "row matches a name shared by several roster entries",
				slog.String("table", t.Name),
				slog.Int("row", row+1),
				slog.String("name", ambiguous))
		}
		if len(matched) > 1 {
			r.logger.WarnContext(ctx, "row matches several roster entries",
				slog.String("table", t.Name),
				slog.Int("row", row+1),
				slog.Int("matches", len(matched)))
		}
		for _, idx := range matched {
			add(idx, row)
		}
		if len(matched) > 0 {
			owners[row] = matched[0]
		}
	}
	return owners
}

func (r *Resolver) identityColumns(t *tabular.Table) []int {
	var cols []int
	for _, c := range []columns.Concept{columns.Name, columns.Abbreviation, columns.Officer} {
		if idx, err := r.aliases.Find(t.Columns, c); err == nil {
			cols = append(cols, idx)
		}
	}
	return lo.Uniq(cols)
}

// Select restricts matches to the given identities (names or abbreviations,
// compared by key). An empty selection keeps every entity. Unknown
// identities are logged and skipped.
func (res *Resolution) Select(ctx context.Context, logger *slog.Logger, identities []string) []Match {
	if len(identities) == 0 {
		return res.Matches
	}
	if logger == nil {
		logger = slog.Default()
	}
	want := make(map[int]bool, len(identities))
	for _, id := range identities {
		idx, ok := res.index.Lookup(id)
		if !ok && res.index.Ambiguous(id) {
			logger.WarnContext(ctx, "selected name is shared by several roster entries", slog.String("identity", id))
			continue
		}
		if !ok {
			logger.WarnContext(ctx, "selected identity not on roster", slog.String("identity", id))
			continue
		}
		want[idx] = true
	}
	return lo.Filter(res.Matches, func(m Match, _ int) bool { return want[m.Index] })
}
