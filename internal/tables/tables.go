// Package tables declares the per-platform command and metric tables the
// collection engine is parameterized with. Each constructor returns a fresh,
// frozen table.
package tables

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
)

// defaultIgnores drops blank lines and separator rows.
var defaultIgnores = []*regexp.Regexp{
	regexp.MustCompile(`^\s*$`),
	regexp.MustCompile(`^\s*[-=]+[\s=-]*$`),
}

func ignores(extra ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(defaultIgnores)+len(extra))
	out = append(out, defaultIgnores...)
	for _, p := range extra {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

var constructors = map[string]func() *catalog.Table{
	"solaris": Solaris,
	"linux":   Linux,
}

var aliases = map[string]string{
	"sunos":   "solaris",
	"illumos": "solaris",
}

// ForOS returns the table for an operating system name as reported by
// uname or runtime.GOOS.
func ForOS(name string) (*catalog.Table, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	ctor, ok := constructors[key]
	if !ok {
		return nil, fmt.Errorf("no command table for platform %q (supported: %s)",
			name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names lists the platforms that have a table.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// builder panics on registration errors. Tables are static declarations,
// so a duplicate key is a programming error caught by the package tests.
type builder struct {
	t *catalog.Table
}

func newBuilder(name string) *builder {
	return &builder{t: catalog.NewTable(name)}
}

func (b *builder) command(key string, def catalog.CommandDefinition) {
	if err := b.t.RegisterCommand(key, def); err != nil {
		panic(err)
	}
}

func (b *builder) metric(key, field, category, name, unit string, kind catalog.Kind, multiplier float64) {
	err := b.t.RegisterMetric(key, field, catalog.MetricDescriptor{
		Category:   category,
		Name:       name,
		Unit:       unit,
		Kind:       kind,
		Multiplier: multiplier,
	})
	if err != nil {
		panic(err)
	}
}

func (b *builder) build() *catalog.Table {
	return b.t.Freeze()
}
