package bordereau

import (
	"cmp"
	"regexp"
	"slices"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
)

const noCandidate = "aucune candidature"

// Result is one normalized table.
type Result struct {
	Category entity.Category
	Header   []string // raw header after cleaning
	Records  []entity.Record
}

// Normalizer turns raw tables into records of a canonical schema.
type Normalizer struct {
	rules *RuleSet
}

func NewNormalizer(rules *RuleSet) *Normalizer {
	return &Normalizer{rules: rules}
}

// Rules returns the rule table of the Normalizer.
func (n *Normalizer) Rules() *RuleSet {
	return n.rules
}

// Normalize classifies t and maps its rows onto the schema of its category.
// Records carry the page of t but no document name. A table matching no
// category fails with *entity.UnclassifiedTableError.
func (n *Normalizer) Normalize(t entity.RawTable) (Result, error) {
	grid := clean(t.Rows)
	if len(grid) == 0 {
		return Result{}, &entity.UnclassifiedTableError{Page: t.Page, Index: t.Index}
	}

	header, body := splitHeader(grid)
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = fold(h)
	}

	rule := n.rules.classify(folded, fold(t.Context))
	if rule == nil {
		return Result{}, &entity.UnclassifiedTableError{Page: t.Page, Index: t.Index, Header: header}
	}

	mapping := n.rules.mapColumns(rule, folded)

	var posting []string
	if rule.PostingDetails {
		posting = ParsePosting(t.Context).Values()
	}

	schema := rule.schema
	res := Result{Category: rule.Category, Header: header}
	for _, row := range body {
		values := make([]string, len(schema))
		empty := true
		for canonical, raw := range mapping {
			if raw >= 0 && raw < len(row) {
				values[canonical] = row[raw]
				empty = empty && row[raw] == ""
			}
		}
		if empty {
			continue
		}

		if rule.statusColumn >= 0 {
			status := &values[rule.statusColumn+1]
			if fold(*status) == noCandidate {
				values[0] = noCandidate
				*status = ""
			}
		}
		copy(values[len(mapping):], posting)

		res.Records = append(res.Records, entity.Record{
			Category: rule.Category,
			Page:     t.Page,
			Columns:  schema,
			Values:   values,
		})
	}
	return res, nil
}

type candidate struct {
	rule    *Rule
	order   int
	context int
	headers int
}

// classify picks the rule of a table from its folded header and page text.
func (rs *RuleSet) classify(header []string, context string) *Rule {
	scores := rs.contextScores(context)

	var candidates []candidate
	for i, r := range rs.rules {
		if len(header) < r.MinColumns {
			continue
		}
		hits := headerHits(r, header)
		if scores[i] == 0 && hits < rs.minHeaderMatches {
			continue
		}
		candidates = append(candidates, candidate{rule: r, order: i, context: scores[i], headers: hits})
	}
	if len(candidates) == 0 {
		return nil
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(b.context, a.context),
			cmp.Compare(b.headers, a.headers),
			cmp.Compare(a.order, b.order),
		)
	})
	return candidates[0].rule
}

// headerHits counts the canonical columns of r recognised in header.
func headerHits(r *Rule, header []string) int {
	hits := 0
	for _, col := range r.columns {
		if slices.ContainsFunc(header, col.matchesAny) {
			hits++
		}
	}
	return hits
}

func (c column) matchesAny(header string) bool {
	for _, re := range c.aliases {
		if re.MatchString(header) {
			return true
		}
	}
	return false
}

// mapColumns returns, for every schema column before the posting details,
// the index of the raw column it reads or -1.
func (rs *RuleSet) mapColumns(r *Rule, header []string) []int {
	mapping := make([]int, 1+len(r.columns))
	for i := range mapping {
		mapping[i] = -1
	}
	used := make([]bool, len(header))

	take := func(canonical int, aliases []*regexp.Regexp, skip func(string) bool) bool {
		for _, re := range aliases {
			for raw, h := range header {
				if !used[raw] && !skip(h) && re.MatchString(h) {
					mapping[canonical] = raw
					used[raw] = true
					return true
				}
			}
		}
		return false
	}
	none := func(string) bool { return false }
	// "Nom de l'unité d'origine" belongs to the unit column, not the name.
	reserved := func(h string) bool {
		return slices.ContainsFunc(r.columns, func(c column) bool { return c.matchesAny(h) })
	}

	matched := take(0, rs.namePatterns, reserved)
	for i, col := range r.columns {
		if take(i+1, col.aliases, none) {
			matched = true
		}
	}
	if mapping[0] < 0 && take(0, rs.namePatterns, none) {
		matched = true
	}

	if !matched {
		for i := range mapping {
			if i < len(header) {
				mapping[i] = i
			}
		}
		return mapping
	}

	if mapping[0] < 0 {
		if raw := slices.Index(used, false); raw >= 0 {
			mapping[0] = raw
		}
	}
	return mapping
}
