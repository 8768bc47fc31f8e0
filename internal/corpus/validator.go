package corpus

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RowError describes a corpus row that cannot become a Document. Rows with
// a RowError are skipped, not fatal.
type RowError struct {
	Line   int
	Fields map[string]string
}

func (e *RowError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return fmt.Sprintf("line %d: %s", e.Line, strings.Join(parts, "; "))
}

// validateRow checks that a split row carries the identifier and text
// columns described by layout, both as valid UTF-8. Artifacts are JSON, which
// would replace invalid bytes with U+FFFD and fold distinct values together.
func validateRow(line int, fields []string, layout Layout) error {
	errs := make(map[string]string)
	if len(fields) < layout.minFields() {
		errs["fields"] = fmt.Sprintf("expected at least %d fields, got %d", layout.minFields(), len(fields))
		return &RowError{Line: line, Fields: errs}
	}
	id := fields[layout.IDField]
	switch {
	case strings.TrimSpace(id) == "":
		errs["id"] = "identifier is required"
	case !utf8.ValidString(id):
		errs["id"] = "identifier is not valid UTF-8"
	}
	if !utf8.ValidString(fields[layout.TextField]) {
		errs["text"] = "text is not valid UTF-8"
	}
	if len(errs) > 0 {
		return &RowError{Line: line, Fields: errs}
	}
	return nil
}
