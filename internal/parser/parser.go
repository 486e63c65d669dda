// Package parser turns command output into rows of raw field values using
// the ordered line rules of a command definition.
package parser

import (
	"fmt"
	"strings"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
)

// Row is one dimension's raw captured values for a single cycle.
type Row struct {
	// Dimension is empty for simple commands.
	Dimension string
	// Fields holds field names in first-capture order.
	Fields []string
	Values map[string]string
}

func newRow(dim string) *Row {
	return &Row{Dimension: dim, Values: make(map[string]string)}
}

func (r *Row) set(field, value string) {
	if _, ok := r.Values[field]; !ok {
		r.Fields = append(r.Fields, field)
	}
	r.Values[field] = value
}

// ParseError reports a command whose output matched no rule.
type ParseError struct {
	Command string
	Lines   int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("command %s: no rows matched in %d line(s)", e.Command, e.Lines)
}

// Parse applies def to lines and returns the resulting rows in the order
// their dimensions were first seen. A result without rows is a *ParseError.
//
// Lines matching an ignore pattern are dropped first. Each remaining line
// is tried against the rules in declaration order and the first match wins.
// Lines matching no rule are skipped.
func Parse(key string, lines []string, def catalog.CommandDefinition) ([]Row, error) {
	var (
		rows  []*Row
		index = make(map[string]*Row)
	)

	rowFor := func(dim string) *Row {
		if r, ok := index[dim]; ok {
			return r
		}
		r := newRow(dim)
		index[dim] = r
		rows = append(rows, r)
		return r
	}

	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if ignored(line, def) {
			continue
		}
		rule, groups := match(line, def.Rules)
		if rule == nil {
			continue
		}

		dim := ""
		if def.Mode != catalog.Simple {
			if i := rule.DimensionIndex(); i >= 0 && i+1 < len(groups) {
				dim = groups[i+1]
			}
			if def.Mode == catalog.InterfaceKeyed {
				dim = normalizeInterface(dim)
			}
			if dim == "" {
				continue
			}
		}

		// Simple commands share one row, so later matches overwrite
		// earlier values for the same field.
		row := rowFor(dim)
		for i, field := range rule.Fields {
			if field == catalog.Dimension || field == catalog.Skip || i+1 >= len(groups) {
				continue
			}
			row.set(field, groups[i+1])
		}
	}

	if len(rows) == 0 {
		return nil, &ParseError{Command: key, Lines: len(lines)}
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

func ignored(line string, def catalog.CommandDefinition) bool {
	for _, re := range def.Ignore {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func match(line string, rules []catalog.Rule) (*catalog.Rule, []string) {
	for i := range rules {
		if groups := rules[i].Pattern.FindStringSubmatch(line); groups != nil {
			return &rules[i], groups
		}
	}
	return nil, nil
}

// normalizeInterface strips the markers netstat appends to interface names
// (a trailing '*' for down interfaces, ':' on some platforms).
func normalizeInterface(name string) string {
	return strings.TrimRight(strings.TrimSpace(name), "*:")
}
