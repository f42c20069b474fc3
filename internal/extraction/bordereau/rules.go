package bordereau

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
)

//go:embed rules.yaml
var embeddedRules []byte

var errNoRules = errors.New("bordereau: rule table is empty")

type ruleFile struct {
	MinHeaderMatches int                 `yaml:"min_header_matches"`
	NamePatterns     []string            `yaml:"name_patterns"`
	Columns          map[string][]string `yaml:"columns"`
	Categories       []ruleEntry         `yaml:"categories"`
}

type ruleEntry struct {
	Code           string   `yaml:"code"`
	MinColumns     int      `yaml:"min_columns"`
	Columns        []string `yaml:"columns"`
	StatusColumn   string   `yaml:"status_column"`
	PostingDetails bool     `yaml:"posting_details"`
}

type column struct {
	name    string
	aliases []*regexp.Regexp
}

// Rule is the classification rule and canonical schema of one category.
type Rule struct {
	Category       entity.Category
	MinColumns     int
	PostingDetails bool

	columns      []column // canonical columns after Nom & Prénom
	statusColumn int      // index in columns, -1 when none
	schema       []string
	keyword      string // folded
	label        string // folded
}

// Schema returns the canonical column names of the category, starting with
// Nom & Prénom.
func (r *Rule) Schema() []string {
	return slices.Clone(r.schema)
}

// RuleSet is the immutable rule table used by the Normalizer.
type RuleSet struct {
	rules            []*Rule
	byCategory       map[entity.Category]*Rule
	namePatterns     []*regexp.Regexp
	minHeaderMatches int
}

var defaultRules = sync.OnceValues(func() (*RuleSet, error) {
	return ParseRules(embeddedRules)
})

// DefaultRules returns the rule table embedded in the binary.
func DefaultRules() (*RuleSet, error) {
	return defaultRules()
}

// ParseRules decodes a YAML rule table. Every known category must appear
// exactly once.
func ParseRules(data []byte) (*RuleSet, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("bordereau: decode rules: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, errNoRules
	}

	rs := &RuleSet{
		byCategory:       make(map[entity.Category]*Rule, len(file.Categories)),
		minHeaderMatches: file.MinHeaderMatches,
	}
	if rs.minHeaderMatches <= 0 {
		rs.minHeaderMatches = 1
	}

	var err error
	if rs.namePatterns, err = compileAll(file.NamePatterns); err != nil {
		return nil, fmt.Errorf("bordereau: name pattern: %w", err)
	}

	library := make(map[string]column, len(file.Columns))
	for name, aliases := range file.Columns {
		compiled, err := compileAll(aliases)
		if err != nil {
			return nil, fmt.Errorf("bordereau: column %q: %w", name, err)
		}
		library[name] = column{name: name, aliases: compiled}
	}

	for _, entry := range file.Categories {
		rule, err := newRule(entry, library)
		if err != nil {
			return nil, err
		}
		if _, dup := rs.byCategory[rule.Category]; dup {
			return nil, fmt.Errorf("bordereau: category %s defined twice", rule.Category)
		}
		rs.byCategory[rule.Category] = rule
		rs.rules = append(rs.rules, rule)
	}

	for _, c := range entity.Categories() {
		if _, ok := rs.byCategory[c]; !ok {
			return nil, fmt.Errorf("bordereau: category %s has no rule", c)
		}
	}

	return rs, nil
}

func newRule(entry ruleEntry, library map[string]column) (*Rule, error) {
	category, ok := entity.ParseCategory(entry.Code)
	if !ok {
		return nil, fmt.Errorf("bordereau: unknown category code %q", entry.Code)
	}

	rule := &Rule{
		Category:       category,
		MinColumns:     max(entry.MinColumns, 1),
		PostingDetails: entry.PostingDetails,
		statusColumn:   -1,
		schema:         []string{entity.ColumnName},
		keyword:        fold(category.Keyword()),
		label:          fold(category.Label()),
	}

	for _, name := range entry.Columns {
		col, ok := library[name]
		if !ok {
			return nil, fmt.Errorf("bordereau: %s: column %q has no aliases", category, name)
		}
		if slices.Contains(rule.schema, name) {
			return nil, fmt.Errorf("bordereau: %s: column %q listed twice", category, name)
		}
		if name == entry.StatusColumn {
			rule.statusColumn = len(rule.columns)
		}
		rule.columns = append(rule.columns, col)
		rule.schema = append(rule.schema, name)
	}

	if entry.StatusColumn != "" && rule.statusColumn < 0 {
		return nil, fmt.Errorf("bordereau: %s: status column %q is not a column", category, entry.StatusColumn)
	}
	if rule.PostingDetails {
		rule.schema = append(rule.schema, PostingColumns...)
	}

	return rule, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + stripMarks(p))
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Rule returns the rule of category c.
func (rs *RuleSet) Rule(c entity.Category) (*Rule, bool) {
	r, ok := rs.byCategory[c]
	return r, ok
}

// Schema returns the canonical columns of category c.
func (rs *RuleSet) Schema(c entity.Category) []string {
	if r, ok := rs.byCategory[c]; ok {
		return r.Schema()
	}
	return nil
}

// MatchText returns the categories whose keyword or label appears in text,
// in rule order. A label contained in a longer matching label does not
// count.
func (rs *RuleSet) MatchText(text string) []entity.Category {
	scores := rs.contextScores(fold(text))
	var out []entity.Category
	for i, r := range rs.rules {
		if scores[i] > 0 {
			out = append(out, r.Category)
		}
	}
	return out
}

const (
	labelHit   = 1
	keywordHit = 2
)

// contextScores scores every rule against folded page text.
func (rs *RuleSet) contextScores(text string) []int {
	scores := make([]int, len(rs.rules))
	if text == "" {
		return scores
	}

	for i, r := range rs.rules {
		switch {
		case strings.Contains(text, r.keyword):
			scores[i] = keywordHit
		case strings.Contains(text, r.label):
			scores[i] = labelHit
		}
	}

	for i, r := range rs.rules {
		if scores[i] != labelHit {
			continue
		}
		for j, other := range rs.rules {
			if i != j && scores[j] > 0 && len(other.label) > len(r.label) &&
				strings.Contains(other.label, r.label) && strings.Contains(text, other.label) {
				scores[i] = 0
				break
			}
		}
	}

	return scores
}
