package protocol

import (
	"fmt"
	"slices"
)

// Catalog is an immutable registry of command specs keyed by logical name.
//
// A catalog is built once from a static table and never mutated afterwards,
// so it is safe for concurrent use without locking.
type Catalog struct {
	specs       map[string]CommandSpec
	names       []string
	statusQuery string
	probe       string
}

// NewCatalog builds a catalog from specs.
//
// statusQuery names the Immediate command polled while a Macro command runs,
// probe names the cheap command used by device scans. NewCatalog panics on a
// duplicate name, or when statusQuery or probe is missing or is not an
// Immediate command: catalogs are static tables and such a mistake is a
// programming error.
func NewCatalog(statusQuery, probe string, specs ...CommandSpec) *Catalog {
	c := &Catalog{
		specs:       make(map[string]CommandSpec, len(specs)),
		names:       make([]string, 0, len(specs)),
		statusQuery: statusQuery,
		probe:       probe,
	}

	for _, s := range specs {
		if _, dup := c.specs[s.Name]; dup {
			panic(fmt.Sprintf("protocol: duplicate command %q in catalog", s.Name))
		}
		c.specs[s.Name] = s
		c.names = append(c.names, s.Name)
	}
	slices.Sort(c.names)

	for _, name := range []string{statusQuery, probe} {
		s, ok := c.specs[name]
		if !ok {
			panic(fmt.Sprintf("protocol: catalog has no command %q", name))
		}
		if s.Category != Immediate {
			panic(fmt.Sprintf("protocol: command %q must be immediate, got %s", name, s.Category))
		}
	}

	return c
}

// Lookup returns the spec registered under name.
func (c *Catalog) Lookup(name string) (CommandSpec, bool) {
	s, ok := c.specs[name]
	return s, ok
}

// MustLookup returns the spec registered under name and panics if absent.
func (c *Catalog) MustLookup(name string) CommandSpec {
	s, ok := c.specs[name]
	if !ok {
		panic(fmt.Sprintf("protocol: unknown command %q", name))
	}

	return s
}

// Names returns all logical names in sorted order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Len returns the number of registered commands.
func (c *Catalog) Len() int {
	return len(c.names)
}

// StatusQuery returns the command polled for Macro completion.
func (c *Catalog) StatusQuery() CommandSpec {
	return c.specs[c.statusQuery]
}

// Probe returns the command used to detect reachable devices.
func (c *Catalog) Probe() CommandSpec {
	return c.specs[c.probe]
}

// ByCategory returns the specs of the given category sorted by name.
func (c *Catalog) ByCategory(cat Category) []CommandSpec {
	var out []CommandSpec
	for _, name := range c.names {
		if s := c.specs[name]; s.Category == cat {
			out = append(out, s)
		}
	}

	return out
}
