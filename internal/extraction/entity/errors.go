package entity

import (
	"fmt"
	"strings"
)

// ExtractionError reports an unreadable or corrupt PDF, or a failure of the
// extraction library. It is scoped to one document.
type ExtractionError struct {
	Document string
	Page     int // 0 when the failure is not tied to a page
	Err      error
}

func (e *ExtractionError) Error() string {
	var sb strings.Builder
	sb.WriteString("extraction failed")
	if e.Document != "" {
		fmt.Fprintf(&sb, " for %q", e.Document)
	}
	if e.Page > 0 {
		fmt.Fprintf(&sb, " on page %d", e.Page)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// UnclassifiedTableError reports a table whose shape and page context match
// no category.
type UnclassifiedTableError struct {
	Page   int
	Index  int
	Header []string
}

func (e *UnclassifiedTableError) Error() string {
	return fmt.Sprintf("table %d on page %d matches no bordereau (header: %s)",
		e.Index+1, e.Page, strings.Join(e.Header, " | "))
}

// ExportError reports a failure while writing one export. Other exports of
// the run are unaffected.
type ExportError struct {
	Target string
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s as %s: %v", e.Target, e.Format, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
