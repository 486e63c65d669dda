package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDuplicateCommand = errors.New("duplicate command")
	ErrDuplicateMetric  = errors.New("duplicate metric")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrUnknownMetric    = errors.New("unknown metric")
	ErrFrozen           = errors.New("table is frozen")
)

type metricRef struct {
	command string
	field   string
}

// Table is the command registry and metric catalog for one platform.
// It is populated at construction time, frozen, and read-only afterwards,
// so lookups need no locking.
type Table struct {
	name     string
	order    []string
	commands map[string]CommandDefinition
	metrics  map[metricRef]MetricDescriptor
	frozen   bool
}

// NewTable creates an empty table for the named platform.
func NewTable(name string) *Table {
	return &Table{
		name:     name,
		commands: make(map[string]CommandDefinition),
		metrics:  make(map[metricRef]MetricDescriptor),
	}
}

// Name returns the platform name the table was declared for.
func (t *Table) Name() string { return t.name }

// RegisterCommand adds a command definition under key.
func (t *Table) RegisterCommand(key string, def CommandDefinition) error {
	if t.frozen {
		return fmt.Errorf("registering command %q: %w", key, ErrFrozen)
	}
	if _, ok := t.commands[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, key)
	}
	t.commands[key] = def
	t.order = append(t.order, key)
	return nil
}

// RegisterMetric adds the descriptor for field of command key.
// A zero multiplier is stored as 1.
func (t *Table) RegisterMetric(key, field string, desc MetricDescriptor) error {
	if t.frozen {
		return fmt.Errorf("registering metric %s/%s: %w", key, field, ErrFrozen)
	}
	ref := metricRef{command: key, field: field}
	if _, ok := t.metrics[ref]; ok {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateMetric, key, field)
	}
	if desc.Multiplier == 0 {
		desc.Multiplier = 1
	}
	t.metrics[ref] = desc
	return nil
}

// Freeze makes the table immutable.
func (t *Table) Freeze() *Table {
	t.frozen = true
	return t
}

// Frozen reports whether Freeze has been called.
func (t *Table) Frozen() bool { return t.frozen }

// LookupCommand returns the definition registered under key.
func (t *Table) LookupCommand(key string) (CommandDefinition, error) {
	def, ok := t.commands[key]
	if !ok {
		return CommandDefinition{}, fmt.Errorf("%w: %q", ErrUnknownCommand, key)
	}
	return def, nil
}

// LookupMetric returns the descriptor for field of command key.
func (t *Table) LookupMetric(key, field string) (MetricDescriptor, error) {
	desc, ok := t.metrics[metricRef{command: key, field: field}]
	if !ok {
		return MetricDescriptor{}, fmt.Errorf("%w: %s/%s", ErrUnknownMetric, key, field)
	}
	return desc, nil
}

// Commands returns command keys in registration order.
func (t *Table) Commands() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Subset returns a frozen table holding only the given commands and their
// metrics. Unknown keys are an error.
func (t *Table) Subset(keys []string) (*Table, error) {
	sub := NewTable(t.name)
	for _, key := range keys {
		def, err := t.LookupCommand(key)
		if err != nil {
			return nil, err
		}
		if err := sub.RegisterCommand(key, def); err != nil {
			return nil, err
		}
	}
	for ref, desc := range t.metrics {
		if _, ok := sub.commands[ref.command]; ok {
			sub.metrics[ref] = desc
		}
	}
	return sub.Freeze(), nil
}

// ValidationError lists every problem found by Validate.
type ValidationError struct {
	Table    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("table %s has %d problem(s): %s",
		e.Table, len(e.Problems), strings.Join(e.Problems, "; "))
}

// Validate checks that every field produced by a rule resolves to a
// descriptor, that field lists match capture group counts, and that the
// dimension placeholder is used consistently with each command's mode.
func (t *Table) Validate() error {
	var problems []string
	for _, key := range t.order {
		def := t.commands[key]
		if def.Executable() == "" {
			problems = append(problems, fmt.Sprintf("%s: empty command line", key))
		}
		if len(def.Rules) == 0 {
			problems = append(problems, fmt.Sprintf("%s: no rules", key))
		}
		for i, rule := range def.Rules {
			if groups := rule.Pattern.NumSubexp(); groups != len(rule.Fields) {
				problems = append(problems, fmt.Sprintf("%s rule %d: %d capture groups but %d fields",
					key, i, groups, len(rule.Fields)))
			}
			dims := 0
			for _, field := range rule.Fields {
				switch field {
				case Dimension:
					dims++
				case Skip:
				default:
					if _, ok := t.metrics[metricRef{command: key, field: field}]; !ok {
						problems = append(problems, fmt.Sprintf("%s: field %q has no descriptor", key, field))
					}
				}
			}
			switch {
			case def.Mode == Simple && dims > 0:
				problems = append(problems, fmt.Sprintf("%s rule %d: simple command declares a dimension", key, i))
			case def.Mode != Simple && dims != 1:
				problems = append(problems, fmt.Sprintf("%s rule %d: %s command needs exactly one dimension, has %d",
					key, i, def.Mode, dims))
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return &ValidationError{Table: t.name, Problems: problems}
}
