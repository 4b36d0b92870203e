package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Binding fixes one modifier to one value.
type Binding struct {
	Modifier Modifier
	Value    Value
}

// GlobalConfig is one point of a half's configuration space. Every modifier
// relevant to the half is bound, in canonical order.
type GlobalConfig struct {
	Type     SectionType
	Bindings []Binding
}

// Value returns the value bound to m.
func (g GlobalConfig) Value(m Modifier) (Value, bool) {
	for _, b := range g.Bindings {
		if b.Modifier == m {
			return b.Value, true
		}
	}
	return None, false
}

// Name is the canonical identifier of the configuration, e.g.
// "upper-45-gov-novak".
func (g GlobalConfig) Name() string {
	values := make([]Value, len(g.Bindings))
	for i, b := range g.Bindings {
		values[i] = b.Value
	}
	return FormatName(g.Type.String(), values)
}

// FormatName joins prefix and the non-None values with hyphens, lowercased.
// A Caser is not safe for concurrent use, so each call makes its own.
func FormatName(prefix string, values []Value) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v != None {
			parts = append(parts, string(v))
		}
	}
	return cases.Lower(language.Und).String(prefix + "-" + strings.Join(parts, "-"))
}

// SectionConfigs lists every asset name of s. When the section's fallback
// collapses several values onto one, only the distinct rendered values are
// enumerated.
func (c *Catalog) SectionConfigs(s Section) []string {
	sec := c.sections[s]
	lists := make([][]Value, len(sec.modifiers))
	for i, m := range sec.modifiers {
		seen := make(map[Value]bool)
		for _, v := range c.modifiers[m].values {
			r := sec.fallback.Apply(m, v)
			if seen[r] {
				continue
			}
			seen[r] = true
			lists[i] = append(lists[i], r)
		}
	}

	combos := product(lists)
	names := make([]string, len(combos))
	for i, values := range combos {
		names[i] = FormatName(sec.name, values)
	}
	return names
}

// GlobalConfigs enumerates the full Cartesian product of t's modifiers.
// The last modifier varies fastest.
func (c *Catalog) GlobalConfigs(t SectionType) []GlobalConfig {
	mods := c.typeMods[t]
	lists := make([][]Value, len(mods))
	for i, m := range mods {
		lists[i] = c.modifiers[m].values
	}

	combos := product(lists)
	configs := make([]GlobalConfig, len(combos))
	for i, values := range combos {
		bindings := make([]Binding, len(mods))
		for j, m := range mods {
			bindings[j] = Binding{Modifier: m, Value: values[j]}
		}
		configs[i] = GlobalConfig{Type: t, Bindings: bindings}
	}
	return configs
}

// MatchingName returns the asset name of s for the global configuration g.
// Modifiers not bound by g take their default; the section's fallback is
// applied before formatting.
func (c *Catalog) MatchingName(s Section, g GlobalConfig) string {
	sec := c.sections[s]
	values := make([]Value, len(sec.modifiers))
	for i, m := range sec.modifiers {
		v, ok := g.Value(m)
		if !ok {
			v = c.DefaultValue(m)
		}
		values[i] = sec.fallback.Apply(m, v)
	}
	return FormatName(sec.name, values)
}

// SectionNames returns the asset name of every section of g's half, in
// catalog order.
func (c *Catalog) SectionNames(g GlobalConfig) []string {
	secs := c.SectionsOf(g.Type)
	names := make([]string, len(secs))
	for i, s := range secs {
		names[i] = c.MatchingName(s, g)
	}
	return names
}

// TypeAssets lists the distinct asset names needed by every section of t.
func (c *Catalog) TypeAssets(t SectionType) []string {
	var names []string
	for _, s := range c.SectionsOf(t) {
		names = append(names, c.SectionConfigs(s)...)
	}
	return names
}

// product returns the Cartesian product of lists in odometer order.
func product(lists [][]Value) [][]Value {
	total := 1
	for _, l := range lists {
		total *= len(l)
	}
	if total == 0 {
		return nil
	}

	out := make([][]Value, 0, total)
	idx := make([]int, len(lists))
	for {
		combo := make([]Value, len(lists))
		for i, l := range lists {
			combo[i] = l[idx[i]]
		}
		out = append(out, combo)

		k := len(lists) - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < len(lists[k]) {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			return out
		}
	}
}
