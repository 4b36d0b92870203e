package catalog

import (
	"reflect"
	"strings"
	"testing"
)

func TestGlobalConfigCount(t *testing.T) {
	c := Default()
	for _, typ := range SectionTypes {
		want := 1
		for _, m := range c.TypeModifiers(typ) {
			want *= len(c.ModifierValues(m))
		}
		configs := c.GlobalConfigs(typ)
		if len(configs) != want {
			t.Errorf("len(GlobalConfigs(%s)) = %d, want %d", typ, len(configs), want)
		}

		names := make(map[string]bool, len(configs))
		for _, g := range configs {
			if len(g.Bindings) != len(c.TypeModifiers(typ)) {
				t.Fatalf("%s: %d bindings, want every modifier bound", g.Name(), len(g.Bindings))
			}
			names[g.Name()] = true
		}
		if len(names) != len(configs) {
			t.Errorf("%s: %d distinct names for %d configurations", typ, len(names), len(configs))
		}
	}

	if got := len(c.GlobalConfigs(Upper)); got != 240 {
		t.Errorf("Upper space = %d, want 240", got)
	}
	if got := len(c.GlobalConfigs(Lower)); got != 768 {
		t.Errorf("Lower space = %d, want 768", got)
	}
}

func TestGlobalConfigOrder(t *testing.T) {
	c := Default()
	configs := c.GlobalConfigs(Upper)
	if got := configs[0].Name(); got != "upper-45-gov-novak" {
		t.Errorf("first config = %q", got)
	}
	if got := configs[1].Name(); got != "upper-45-gov-tritium-1" {
		t.Errorf("second config = %q", got)
	}
	if got := configs[len(configs)-1].Name(); got != "upper-40-com-ext-tri-fiber-optic" {
		t.Errorf("last config = %q", got)
	}
}

func TestSectionConfigs(t *testing.T) {
	c := Default()
	tests := []struct {
		section string
		want    []string
	}{
		{"Trigger", []string{"trigger-", "trigger-skeleton"}},
		{"Grips", []string{"grips-smooth", "grips-checkered", "grips-bob-smooth", "grips-bob-checkered"}},
		{"Sights", []string{
			"sights-gov-novak", "sights-gov-tritium-1", "sights-gov-tritium-2", "sights-gov-fiber-optic",
			"sights-com-novak", "sights-com-tritium-1", "sights-com-tritium-2", "sights-com-fiber-optic",
		}},
	}
	for _, tt := range tests {
		s, _ := c.LookupSection(tt.section)
		if got := c.SectionConfigs(s); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SectionConfigs(%s) = %v, want %v", tt.section, got, tt.want)
		}
	}
}

func TestSectionConfigsFallbackDistinct(t *testing.T) {
	c := Default()
	slide, _ := c.LookupSection("Slide")
	names := c.SectionConfigs(slide)

	// 2 rendered calibers x 2 lengths x 2 dust covers x 3 slide mods.
	if len(names) != 24 {
		t.Fatalf("len(SectionConfigs(Slide)) = %d, want 24", len(names))
	}
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate asset name %q", n)
		}
		seen[n] = true
		if strings.Contains(n, "10mm") || strings.Contains(n, "-38") || strings.Contains(n, "-40") {
			t.Errorf("asset name %q uses a substituted caliber", n)
		}
	}
}

func TestMatchingNameFallback(t *testing.T) {
	c := Default()
	slide, _ := c.LookupSection("Slide")
	barrel, _ := c.LookupSection("Barrel")
	caliber, _ := c.LookupModifier("Caliber")

	byCaliber := make(map[Value]GlobalConfig)
	for _, g := range c.GlobalConfigs(Upper) {
		v, _ := g.Value(caliber)
		if _, ok := byCaliber[v]; !ok {
			byCaliber[v] = g
		}
	}

	tests := []struct {
		caliber Value
		slide   string
		barrel  string
	}{
		{"45", "slide-45-gov", "barrel-45-gov"},
		{"9mm", "slide-9mm-gov", "barrel-9mm-gov"},
		{"10mm", "slide-9mm-gov", "barrel-10mm-gov"},
		{"38", "slide-9mm-gov", "barrel-38-gov"},
		{"40", "slide-9mm-gov", "barrel-40-gov"},
	}
	for _, tt := range tests {
		g := byCaliber[tt.caliber]
		if got := c.MatchingName(slide, g); got != tt.slide {
			t.Errorf("Slide(%s) = %q, want %q", tt.caliber, got, tt.slide)
		}
		if got := c.MatchingName(barrel, g); got != tt.barrel {
			t.Errorf("Barrel(%s) = %q, want %q", tt.caliber, got, tt.barrel)
		}
	}
}

func TestMatchingNameInSectionConfigs(t *testing.T) {
	c := Default()
	for _, typ := range SectionTypes {
		for _, s := range c.SectionsOf(typ) {
			assets := make(map[string]bool)
			for _, n := range c.SectionConfigs(s) {
				assets[n] = true
			}
			used := make(map[string]bool)
			for _, g := range c.GlobalConfigs(typ) {
				name := c.MatchingName(s, g)
				if !assets[name] {
					t.Fatalf("%s: %q not in SectionConfigs", g.Name(), name)
				}
				used[name] = true
			}
			if len(used) != len(assets) {
				t.Errorf("%s: %d of %d assets reachable", c.SectionName(s), len(used), len(assets))
			}
		}
	}
}

func TestMatchingNameDependsOnlyOnSectionModifiers(t *testing.T) {
	c := Default()
	sights, _ := c.LookupSection("Sights")
	relevant := make(map[Modifier]bool)
	for _, m := range c.SectionModifiers(sights) {
		relevant[m] = true
	}

	key := func(g GlobalConfig) string {
		var parts []string
		for _, b := range g.Bindings {
			if relevant[b.Modifier] {
				parts = append(parts, string(b.Value))
			}
		}
		return strings.Join(parts, "|")
	}

	byKey := make(map[string]string)
	for _, g := range c.GlobalConfigs(Upper) {
		name := c.MatchingName(sights, g)
		if again := c.MatchingName(sights, g); again != name {
			t.Fatalf("MatchingName not deterministic: %q vs %q", name, again)
		}
		k := key(g)
		if prev, ok := byKey[k]; ok && prev != name {
			t.Errorf("restriction %s maps to %q and %q", k, prev, name)
		}
		byKey[k] = name
	}
}

func TestMatchingNameUnboundUsesDefault(t *testing.T) {
	c := Default()
	nose, _ := c.LookupSection("Nose")
	g := GlobalConfig{Type: Lower}
	if got := c.MatchingName(nose, g); got != "nose-std-gov" {
		t.Errorf("MatchingName(Nose, empty) = %q, want nose-std-gov", got)
	}
}

func TestSectionNames(t *testing.T) {
	c := Default()
	g := c.GlobalConfigs(Lower)[0]
	want := []string{"grips-smooth", "msh-", "nose-std-gov", "rear-", "trigger-"}
	if got := c.SectionNames(g); !reflect.DeepEqual(got, want) {
		t.Errorf("SectionNames = %v, want %v", got, want)
	}
}

func TestFormatName(t *testing.T) {
	got := FormatName("Slide", []Value{"9mm", "Com", None, "Dual"})
	if got != "slide-9mm-com-dual" {
		t.Errorf("FormatName = %q", got)
	}
	if got := FormatName("Grips", []Value{"Ölkreis"}); got != "grips-ölkreis" {
		t.Errorf("FormatName = %q", got)
	}
}

func TestFallbackApply(t *testing.T) {
	var identity Fallback
	if got := identity.Apply(0, "x"); got != "x" {
		t.Errorf("identity fallback = %q", got)
	}
	f := Fallback{Kind: FallbackSubstitute, Modifier: 2, Table: map[Value]Value{"10mm": "9mm"}}
	if got := f.Apply(2, "10mm"); got != "9mm" {
		t.Errorf("Apply(10mm) = %q", got)
	}
	if got := f.Apply(2, "45"); got != "45" {
		t.Errorf("Apply(45) = %q", got)
	}
	if got := f.Apply(3, "10mm"); got != "10mm" {
		t.Errorf("Apply on other modifier = %q", got)
	}
}
