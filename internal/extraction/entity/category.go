package entity

import (
	"fmt"
	"strings"
)

// Category is the closed set of bordereau types a table can belong to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryA1
	CategoryI2
	CategoryA3
	CategoryA4
	CategoryA5
	CategoryA50
	CategoryA6
	CategoryA6Bis
	CategoryA7
	CategoryA7Bis
	CategoryA7Ter
	CategoryI8
	CategoryA9
)

type categoryInfo struct {
	code  string
	label string
}

//nolint:gochecknoglobals // closed lookup table indexed by Category
var categoryTable = [...]categoryInfo{
	CategoryUnknown: {},
	CategoryA1:      {code: "A1", label: "Admissions au stage statutaire"},
	CategoryI2:      {code: "I2", label: "Suivis au stage statutaire"},
	CategoryA3:      {code: "A3", label: "Titularisations"},
	CategoryA4:      {code: "A4", label: "Reclassements"},
	CategoryA5:      {code: "A5", label: "Publications - examen des candidatures"},
	CategoryA50:     {code: "A50", label: "Nominations suite aux publications de postes"},
	CategoryA6:      {code: "A6", label: "Mutations individuelles"},
	CategoryA6Bis:   {code: "A6 bis", label: "Mutations collectives"},
	CategoryA7:      {code: "A7", label: "Avancement"},
	CategoryA7Bis:   {code: "A7 bis", label: "Avancement AIC"},
	CategoryA7Ter:   {code: "A7 ter", label: "Reconnaissances individuelles au choix"},
	CategoryI8:      {code: "I8", label: "Services civils"},
	CategoryA9:      {code: "A9", label: "Requêtes individuelles"},
}

// Categories returns every known category in bordereau order.
func Categories() []Category {
	out := make([]Category, 0, len(categoryTable)-1)
	for c := CategoryA1; int(c) < len(categoryTable); c++ {
		out = append(out, c)
	}
	return out
}

// ParseCategory resolves a bordereau code such as "A7 bis". Matching ignores
// case and surrounding spaces.
func ParseCategory(code string) (Category, bool) {
	code = strings.Join(strings.Fields(code), " ")
	for _, c := range Categories() {
		if strings.EqualFold(categoryTable[c].code, code) {
			return c, true
		}
	}
	return CategoryUnknown, false
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c > CategoryUnknown && int(c) < len(categoryTable)
}

// Code returns the bordereau code ("A1", "A6 bis", ...).
func (c Category) Code() string {
	if !c.Valid() {
		return ""
	}
	return categoryTable[c].code
}

// Label returns the French label written in the Catégorie column.
func (c Category) Label() string {
	if !c.Valid() {
		return ""
	}
	return categoryTable[c].label
}

// Keyword returns the heading printed on bordereau pages, for example
// "Bordereau A6 bis n" (followed by "°" and the bordereau number).
func (c Category) Keyword() string {
	if !c.Valid() {
		return ""
	}
	return "Bordereau " + categoryTable[c].code + " n"
}

func (c Category) String() string {
	if !c.Valid() {
		return "UNKNOWN"
	}
	return categoryTable[c].code
}

// MarshalText encodes the category as its code.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.Code()), nil
}

// UnmarshalText decodes a category code.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, ok := ParseCategory(string(b))
	if !ok {
		return fmt.Errorf("unknown category %q", string(b))
	}
	*c = parsed
	return nil
}
