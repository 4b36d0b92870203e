// Package catalog holds the static product catalog: modifiers with their
// allowed values, sections with the modifiers that affect them, and the
// enumeration of the configuration space built on top of it.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Value is one allowed value of a modifier. None means the attribute is not applied.
type Value string

// None is the "attribute not applied" value.
const None Value = ""

// Modifier identifies a configurable attribute. Its integer value is the
// modifier's position in the catalog and defines the canonical order.
type Modifier int

// Section identifies a physical part of the product, by catalog position.
type Section int

// SectionType is one of the two halves of the product.
type SectionType int

const (
	Upper SectionType = iota
	Lower
)

// SectionTypes lists both halves in processing order.
var SectionTypes = []SectionType{Upper, Lower}

func (t SectionType) String() string {
	switch t {
	case Upper:
		return "Upper"
	case Lower:
		return "Lower"
	}
	return fmt.Sprintf("SectionType(%d)", int(t))
}

// ParseSectionType parses "Upper" or "Lower" (case-insensitive).
func ParseSectionType(s string) (SectionType, error) {
	switch strings.ToLower(s) {
	case "upper":
		return Upper, nil
	case "lower":
		return Lower, nil
	}
	return 0, fmt.Errorf("catalog: unknown section type %q", s)
}

// FallbackKind tags the variant of a section's value substitution rule.
type FallbackKind int

const (
	// FallbackIdentity leaves every value unchanged.
	FallbackIdentity FallbackKind = iota
	// FallbackSubstitute rewrites values of one modifier through a table.
	FallbackSubstitute
)

// Fallback is the per-section value substitution rule. The zero value is
// the identity rule.
type Fallback struct {
	Kind     FallbackKind
	Modifier Modifier
	Table    map[Value]Value
}

// Apply returns the value the section is rendered with. It never fails.
func (f Fallback) Apply(m Modifier, v Value) Value {
	if f.Kind != FallbackSubstitute || m != f.Modifier {
		return v
	}
	if r, ok := f.Table[v]; ok {
		return r
	}
	return v
}

type modifierDef struct {
	name   string
	values []Value
}

type sectionDef struct {
	name      string
	typ       SectionType
	modifiers []Modifier // sorted
	fallback  Fallback
}

// Catalog is the immutable modifier/section table. It is built once at
// startup and shared read-only.
type Catalog struct {
	version   string
	modifiers []modifierDef
	sections  []sectionDef
	modByName map[string]Modifier
	secByName map[string]Section
	typeMods  map[SectionType][]Modifier
}

// Error is a malformed catalog definition.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog: %s: %s", e.Field, e.Reason)
}

// New validates spec and builds the catalog. Every problem found is
// reported; the returned error joins one *Error per problem.
func New(spec Spec) (*Catalog, error) {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &Error{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	c := &Catalog{
		version:   spec.Version,
		modByName: make(map[string]Modifier),
		secByName: make(map[string]Section),
		typeMods:  make(map[SectionType][]Modifier),
	}

	if len(spec.Modifiers) == 0 {
		fail("modifiers", "no modifiers defined")
	}
	for i, ms := range spec.Modifiers {
		field := fmt.Sprintf("modifiers[%d]", i)
		if ms.Name == "" {
			fail(field, "empty name")
		}
		if _, dup := c.modByName[ms.Name]; dup {
			fail(field, "duplicate modifier %q", ms.Name)
		}
		if len(ms.Values) == 0 {
			fail(field, "modifier %q has no values", ms.Name)
		}
		seen := make(map[string]bool, len(ms.Values))
		values := make([]Value, 0, len(ms.Values))
		for _, v := range ms.Values {
			if seen[v] {
				fail(field, "modifier %q lists value %q twice", ms.Name, v)
			}
			seen[v] = true
			values = append(values, Value(v))
		}
		c.modByName[ms.Name] = Modifier(i)
		c.modifiers = append(c.modifiers, modifierDef{name: ms.Name, values: values})
	}

	if len(spec.Sections) == 0 {
		fail("sections", "no sections defined")
	}
	for i, ss := range spec.Sections {
		field := fmt.Sprintf("sections[%d]", i)
		if ss.Name == "" {
			fail(field, "empty name")
		}
		if _, dup := c.secByName[ss.Name]; dup {
			fail(field, "duplicate section %q", ss.Name)
		}
		typ, err := ParseSectionType(ss.Type)
		if err != nil {
			fail(field, "section %q: %v", ss.Name, err)
		}

		var mods []Modifier
		used := make(map[Modifier]bool)
		for _, name := range ss.Modifiers {
			m, ok := c.modByName[name]
			if !ok {
				fail(field, "section %q references unknown modifier %q", ss.Name, name)
				continue
			}
			if used[m] {
				fail(field, "section %q lists modifier %q twice", ss.Name, name)
				continue
			}
			used[m] = true
			mods = append(mods, m)
		}
		sort.Slice(mods, func(a, b int) bool { return mods[a] < mods[b] })

		var fb Fallback
		if ss.Fallback != nil {
			fb, err = c.buildFallback(ss.Name, *ss.Fallback, used)
			if err != nil {
				errs = append(errs, err)
			}
		}

		c.secByName[ss.Name] = Section(i)
		c.sections = append(c.sections, sectionDef{name: ss.Name, typ: typ, modifiers: mods, fallback: fb})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, t := range SectionTypes {
		set := make(map[Modifier]bool)
		for _, s := range c.sections {
			if s.typ != t {
				continue
			}
			for _, m := range s.modifiers {
				set[m] = true
			}
		}
		mods := make([]Modifier, 0, len(set))
		for m := range set {
			mods = append(mods, m)
		}
		sort.Slice(mods, func(a, b int) bool { return mods[a] < mods[b] })
		c.typeMods[t] = mods
	}

	return c, nil
}

// MustNew is New for built-in tables; it panics on an invalid catalog.
func MustNew(spec Spec) *Catalog {
	c, err := New(spec)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) buildFallback(section string, fs FallbackSpec, used map[Modifier]bool) (Fallback, error) {
	field := fmt.Sprintf("sections[%s].fallback", section)
	m, ok := c.modByName[fs.Modifier]
	if !ok {
		return Fallback{}, &Error{Field: field, Reason: fmt.Sprintf("unknown modifier %q", fs.Modifier)}
	}
	if !used[m] {
		return Fallback{}, &Error{Field: field, Reason: fmt.Sprintf("modifier %q does not affect the section", fs.Modifier)}
	}

	allowed := make(map[Value]bool)
	for _, v := range c.modifiers[m].values {
		allowed[v] = true
	}
	table := make(map[Value]Value, len(fs.Substitute))
	for from, to := range fs.Substitute {
		if !allowed[Value(from)] || !allowed[Value(to)] {
			return Fallback{}, &Error{Field: field, Reason: fmt.Sprintf("substitution %q -> %q outside the values of %q", from, to, fs.Modifier)}
		}
		table[Value(from)] = Value(to)
	}
	return Fallback{Kind: FallbackSubstitute, Modifier: m, Table: table}, nil
}

// Version returns the catalog schema version.
func (c *Catalog) Version() string { return c.version }

// Modifiers returns all modifiers in canonical order.
func (c *Catalog) Modifiers() []Modifier {
	out := make([]Modifier, len(c.modifiers))
	for i := range out {
		out[i] = Modifier(i)
	}
	return out
}

// ModifierName returns the catalog name of m.
func (c *Catalog) ModifierName(m Modifier) string { return c.modifiers[m].name }

// LookupModifier finds a modifier by name.
func (c *Catalog) LookupModifier(name string) (Modifier, bool) {
	m, ok := c.modByName[name]
	return m, ok
}

// ModifierValues returns the ordered allowed values of m.
func (c *Catalog) ModifierValues(m Modifier) []Value {
	return append([]Value(nil), c.modifiers[m].values...)
}

// DefaultValue returns the value used when m is unconstrained.
func (c *Catalog) DefaultValue(m Modifier) Value { return c.modifiers[m].values[0] }

// Sections returns all sections in catalog order.
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.sections))
	for i := range out {
		out[i] = Section(i)
	}
	return out
}

// SectionsOf returns the sections of one half in catalog order.
func (c *Catalog) SectionsOf(t SectionType) []Section {
	var out []Section
	for i, s := range c.sections {
		if s.typ == t {
			out = append(out, Section(i))
		}
	}
	return out
}

// SectionName returns the catalog name of s.
func (c *Catalog) SectionName(s Section) string { return c.sections[s].name }

// SectionType returns the half s belongs to.
func (c *Catalog) SectionType(s Section) SectionType { return c.sections[s].typ }

// SectionFallback returns the substitution rule of s.
func (c *Catalog) SectionFallback(s Section) Fallback { return c.sections[s].fallback }

// LookupSection finds a section by name.
func (c *Catalog) LookupSection(name string) (Section, bool) {
	s, ok := c.secByName[name]
	return s, ok
}

// SectionModifiers returns the modifiers affecting s, in canonical order.
func (c *Catalog) SectionModifiers(s Section) []Modifier {
	return append([]Modifier(nil), c.sections[s].modifiers...)
}

// TypeModifiers returns the union of the modifiers of every section of t,
// deduplicated and in canonical order.
func (c *Catalog) TypeModifiers(t SectionType) []Modifier {
	return append([]Modifier(nil), c.typeMods[t]...)
}
