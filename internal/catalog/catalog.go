// Package catalog holds the static declaration types that configure the
// collection engine: command definitions (what to run and how to parse it)
// and metric descriptors (how each extracted field is reported).
package catalog

import (
	"fmt"
	"regexp"
)

// Reserved field names. They may appear in a rule's field list but never
// resolve to a metric descriptor.
const (
	// Dimension marks the capture group holding the row's dimension key.
	Dimension = "__dimension__"

	// Skip marks a capture group that is matched but not reported.
	Skip = "__skip__"
)

// DimensionMode controls how matching lines become rows.
type DimensionMode int

const (
	// Simple commands produce one implicit row for the whole output.
	Simple DimensionMode = iota
	// RegexMulti commands produce one row per matching line, keyed by the
	// Dimension capture group.
	RegexMulti
	// InterfaceKeyed behaves like RegexMulti but the key is a device or
	// interface name and is normalized before use.
	InterfaceKeyed
)

func (m DimensionMode) String() string {
	switch m {
	case Simple:
		return "simple"
	case RegexMulti:
		return "regex_multi"
	case InterfaceKeyed:
		return "interface_keyed"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Kind tells the engine whether a value is reported as-is or as a rate.
type Kind int

const (
	// Normal values are reported after the multiplier is applied.
	Normal Kind = iota
	// Delta values are monotonic counters reported as per-second rates.
	Delta
)

func (k Kind) String() string {
	if k == Delta {
		return "delta"
	}
	return "normal"
}

// Rule pairs a line pattern with the field names its capture groups produce.
// Fields are positional: Fields[i] names capture group i+1.
type Rule struct {
	Pattern *regexp.Regexp
	Fields  []string
}

// NewRule compiles pattern so that it must match a whole line.
func NewRule(pattern string, fields ...string) (Rule, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return Rule{}, fmt.Errorf("compiling rule %q: %w", pattern, err)
	}
	return Rule{Pattern: re, Fields: fields}, nil
}

// MustRule is like NewRule but panics on an invalid pattern. It is intended
// for package-level declaration tables.
func MustRule(pattern string, fields ...string) Rule {
	r, err := NewRule(pattern, fields...)
	if err != nil {
		panic(err)
	}
	return r
}

// DimensionIndex returns the field position of the Dimension placeholder,
// or -1 when the rule has none.
func (r Rule) DimensionIndex() int {
	for i, f := range r.Fields {
		if f == Dimension {
			return i
		}
	}
	return -1
}

// CommandDefinition declares one external command and how to parse it.
type CommandDefinition struct {
	// Command is the executable followed by its arguments.
	Command []string
	Mode    DimensionMode
	// Ignore lists patterns; a line matching any of them is dropped before
	// rules are tried.
	Ignore []*regexp.Regexp
	// HeaderLines is the number of leading output lines discarded before
	// ignore filtering.
	HeaderLines int
	// LineLimit caps the number of lines kept after the header skip.
	// Zero means no limit.
	LineLimit int
	Rules     []Rule
}

// Executable returns the program to run.
func (d CommandDefinition) Executable() string {
	if len(d.Command) == 0 {
		return ""
	}
	return d.Command[0]
}

// Args returns the arguments passed to the executable.
func (d CommandDefinition) Args() []string {
	if len(d.Command) < 2 {
		return nil
	}
	return d.Command[1:]
}

// MetricDescriptor describes how a captured field is reported.
type MetricDescriptor struct {
	Category   string
	Name       string
	Unit       string
	Kind       Kind
	Multiplier float64
}

// MetricKey identifies one metric series across cycles.
type MetricKey struct {
	Command   string
	Dimension string
	Field     string
}

func (k MetricKey) String() string {
	if k.Dimension == "" {
		return k.Command + "/" + k.Field
	}
	return k.Command + "/" + k.Dimension + "/" + k.Field
}
