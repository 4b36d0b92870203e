package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Spec is the serializable form of a catalog. An empty string in a value
// list is the None value.
type Spec struct {
	Version   string         `json:"version"`
	Modifiers []ModifierSpec `json:"modifiers"`
	Sections  []SectionSpec  `json:"sections"`
}

// ModifierSpec declares one modifier. Values[0] is the default.
type ModifierSpec struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// SectionSpec declares one section.
type SectionSpec struct {
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Modifiers []string      `json:"modifiers"`
	Fallback  *FallbackSpec `json:"fallback,omitempty"`
}

// FallbackSpec rewrites values of one modifier when naming the section's asset.
type FallbackSpec struct {
	Modifier   string            `json:"modifier"`
	Substitute map[string]string `json:"substitute"`
}

// Load reads a JSON catalog file and validates it.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}

	return New(spec)
}

// DefaultSpec returns the built-in pistol catalog.
func DefaultSpec() Spec {
	return Spec{
		Version: "2",
		Modifiers: []ModifierSpec{
			{Name: "FrameStyle", Values: []string{"Std", "Tac"}},
			{Name: "TriggerGuardMod", Values: []string{"", "Sqr"}},
			{Name: "Caliber", Values: []string{"45", "9mm", "10mm", "38", "40"}},
			{Name: "BarrelLength", Values: []string{"Gov", "Com"}},
			{Name: "DustCoverMod", Values: []string{"", "Ext"}},
			{Name: "RearCutMod", Values: []string{"", "Bob"}},
			{Name: "GripModRear", Values: []string{"", "RChk", "RChain"}},
			{Name: "GripModFront", Values: []string{"", "FChk"}},
			{Name: "SlideMod", Values: []string{"", "Dual", "Tri"}},
			{Name: "TriggerMod", Values: []string{"", "Skeleton"}},
			{Name: "SightType", Values: []string{"Novak", "Tritium-1", "Tritium-2", "Fiber-Optic"}},
			{Name: "BarrelMod", Values: []string{""}},
			{Name: "GripType", Values: []string{"Smooth", "Checkered"}},
		},
		Sections: []SectionSpec{
			{Name: "Barrel", Type: "Upper", Modifiers: []string{"Caliber", "BarrelLength", "BarrelMod"}},
			{Name: "Grips", Type: "Lower", Modifiers: []string{"RearCutMod", "GripType"}},
			{Name: "MSH", Type: "Lower", Modifiers: []string{"RearCutMod", "GripModRear"}},
			{Name: "Nose", Type: "Lower", Modifiers: []string{"FrameStyle", "TriggerGuardMod", "BarrelLength", "DustCoverMod"}},
			{Name: "Rear", Type: "Lower", Modifiers: []string{"RearCutMod", "GripModFront"}},
			{Name: "Sights", Type: "Upper", Modifiers: []string{"BarrelLength", "SightType"}},
			{
				Name:      "Slide",
				Type:      "Upper",
				Modifiers: []string{"Caliber", "BarrelLength", "DustCoverMod", "SlideMod"},
				// One slide render serves every 9mm-class chambering.
				Fallback: &FallbackSpec{
					Modifier:   "Caliber",
					Substitute: map[string]string{"10mm": "9mm", "38": "9mm", "40": "9mm"},
				},
			},
			{Name: "Trigger", Type: "Lower", Modifiers: []string{"TriggerMod"}},
		},
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return MustNew(DefaultSpec())
}
