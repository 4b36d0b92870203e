package identity

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/mrjoshuak/go-openexr/exrid"
)

// defaultHashes lists the material hashes of the product renders, indexed
// by code. Codes 0 and 1 are the reserved None and Void entries.
var defaultHashes = [...]float32{
	0,
	VoidHash,
	-0.03498752787709236,
	-7.442164937651292e-35,
	-6.816108887753408e+29,
	0.00035458870115689933,
	1.4020313126302311e+32,
	-1.0356748461253123e-29,
	-2.9085143335341026e+36,
	1.3880169547064725e-07,
	-1.259480075076364e+31,
	9.950111644430328e-20,
	7.755555963998422e+23,
	7.694573644696632e-19,
	-5.1650727722774545e-23,
	9.80960464477539,
	-2.863075394543557e-07,
	-1.1106028290273499e+26,
	5.081761389253177e+22,
	-6.4202393950590105e+25,
	-4.099688753251169e+19,
	-4.738090716008833e+34,
	1.3174184410047474e-08,
	-0.014175964519381523,
	2.4984514311654493e-05,
	-8.232201253122184e-06,
	1.2103820479584479e-20,
	-2.508242528606597e-12,
	1.5731503249895985e+26,
	1.4262572893553038e-11,
	-84473296.0,
	-6.486369792231469e-37,
	1.150444436850863e+20,
	-1.180638517484824e-38,
	3.6098729115699803e-36,
	-1.0834222605653176e-29,
	-1.1292286235016067e-29,
	2.9290276870597154e-09,
	2.641427494857044e-31,
	2.353400999332558e-15,
}

// Default returns the built-in 40-entry material table.
func Default() *Table {
	entries := make([]Entry, 0, len(defaultHashes))
	for i, h := range defaultHashes {
		entries = append(entries, Entry{Name: fmt.Sprintf("material-%02d", i), Hash: h, Code: Code(i)})
	}
	t, err := NewTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

type materialEntry struct {
	Hash float64 `json:"hash"`
	ID   int     `json:"id"`
}

// LoadMaterialMap reads a material map of the form
// {"<name>": {"hash": <float>, "id": <int>}, ...}.
func LoadMaterialMap(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}

	var raw map[string]materialEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("identity: parse %s: %w", path, err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(raw))
	for _, name := range names {
		m := raw[name]
		if m.ID < 0 || m.ID >= MaxCode {
			return nil, fmt.Errorf("identity: %s: material %q: id %d out of range [0, %d)", path, name, m.ID, MaxCode)
		}
		entries = append(entries, Entry{Name: name, Hash: float32(m.Hash), Code: Code(m.ID)})
	}

	t, err := NewTable(entries)
	if err != nil {
		return nil, fmt.Errorf("identity: %s: %w", path, err)
	}
	return t, nil
}

// FromNames builds a table from material names, hashing each with the
// cryptomatte MurmurHash3 scheme. Codes are assigned in order after the
// reserved ones.
func FromNames(names []string) (*Table, error) {
	if first := int(Void) + 1; first+len(names) > MaxCode {
		return nil, fmt.Errorf("identity: %d materials exceed %d codes", len(names), MaxCode-first)
	}
	entries := make([]Entry, len(names))
	for i, name := range names {
		entries[i] = Entry{
			Name: name,
			Hash: exrid.CryptomatteHashFloat(name),
			Code: Void + 1 + Code(i),
		}
	}
	return NewTable(entries)
}

// FromManifest builds a table from one cryptomatte manifest group. Hashes
// are the IDs stored in the manifest, not recomputed from the names, so the
// table matches what the renderer wrote. Codes are assigned after the
// reserved ones in name order. The void material is skipped.
func FromManifest(g *exrid.ChannelGroupManifest) (*Table, error) {
	var entries []Entry
	for id, values := range g.Entries {
		if len(values) == 0 {
			continue
		}
		if id > math.MaxUint32 {
			return nil, fmt.Errorf("identity: manifest id %#x of %q is not a 32-bit hash", id, values[0])
		}
		hash := math.Float32frombits(uint32(id))
		if IsVoid(hash) {
			continue
		}
		entries = append(entries, Entry{Name: values[0], Hash: hash})
	}
	if first := int(Void) + 1; first+len(entries) > MaxCode {
		return nil, fmt.Errorf("identity: %d materials exceed %d codes", len(entries), MaxCode-first)
	}
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].Name != entries[b].Name {
			return entries[a].Name < entries[b].Name
		}
		return math.Float32bits(entries[a].Hash) < math.Float32bits(entries[b].Hash)
	})
	for i := range entries {
		entries[i].Code = Void + 1 + Code(i)
	}
	return NewTable(entries)
}
