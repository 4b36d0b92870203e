// Package identity maps cryptomatte-style material hashes to small dense
// integer codes. Hashes are compared by their exact IEEE-754 bit pattern.
package identity

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Code is a dense material identity in [0, MaxCode).
type Code uint8

const (
	// None marks an empty rank: no material contributes.
	None Code = 0
	// Void is the background material of the renderer.
	Void Code = 1

	// MaxCode bounds every code so that four of them pack into three bytes.
	MaxCode = 64
)

// VoidHash is the hash the renderer writes for the void material.
const VoidHash float32 = 46.93645477294922

// ErrUnknownIdentity is wrapped by every UnknownIdentityError.
var ErrUnknownIdentity = errors.New("identity: unknown hash")

// UnknownIdentityError reports a hash that is neither reserved nor present
// in the table.
type UnknownIdentityError struct {
	Hash float32
}

func (e *UnknownIdentityError) Error() string {
	return fmt.Sprintf("identity: unknown hash %g (bits 0x%08x)", e.Hash, math.Float32bits(e.Hash))
}

func (e *UnknownIdentityError) Unwrap() error { return ErrUnknownIdentity }

// Entry binds one hash to one code. Several hashes may share a code.
type Entry struct {
	Name string
	Hash float32
	Code Code
}

// Table is an immutable exact-match lookup from hash bits to code.
type Table struct {
	entries []Entry
	byBits  map[uint32]Code
}

// NewTable validates entries and builds the lookup. Codes must be below
// MaxCode and no hash bit pattern may appear twice. None and Void are
// always present with their reserved hashes.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{byBits: make(map[uint32]Code, len(entries)+2)}
	reserved := []Entry{
		{Name: "none", Hash: 0, Code: None},
		{Name: "void", Hash: VoidHash, Code: Void},
	}

	var errs []error
	for _, e := range append(reserved, entries...) {
		if e.Code >= MaxCode {
			errs = append(errs, fmt.Errorf("identity: %q: code %d out of range [0, %d)", e.Name, e.Code, MaxCode))
			continue
		}
		bits := math.Float32bits(e.Hash)
		if prev, dup := t.byBits[bits]; dup {
			if prev == e.Code && isReserved(e.Code) {
				continue
			}
			errs = append(errs, fmt.Errorf("identity: %q: hash 0x%08x already mapped to code %d", e.Name, bits, prev))
			continue
		}
		t.byBits[bits] = e.Code
		t.entries = append(t.entries, e)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(t.entries, func(i, j int) bool { return t.entries[i].Code < t.entries[j].Code })
	return t, nil
}

func isReserved(c Code) bool { return c == None || c == Void }

// Lookup returns the code of hash, matching the exact bit pattern.
func (t *Table) Lookup(hash float32) (Code, bool) {
	c, ok := t.byBits[math.Float32bits(hash)]
	return c, ok
}

// Len returns the number of hashes in the table, reserved ones included.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns the table sorted by code.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Policy decides what happens to a hash missing from the table.
type Policy int

const (
	// PolicyFail reports an UnknownIdentityError.
	PolicyFail Policy = iota
	// PolicyDegrade decodes to None and counts the pixel as degraded.
	PolicyDegrade
)

func (p Policy) String() string {
	switch p {
	case PolicyFail:
		return "fail"
	case PolicyDegrade:
		return "degrade"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses "fail" or "degrade". The empty string is PolicyFail.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "fail":
		return PolicyFail, nil
	case "degrade":
		return PolicyDegrade, nil
	}
	return 0, fmt.Errorf("identity: unknown policy %q", s)
}

// Decoder applies a Table with a fixed unknown-hash policy. It is safe for
// concurrent use.
type Decoder struct {
	table  *Table
	policy Policy
}

// NewDecoder returns a decoder over t.
func NewDecoder(t *Table, p Policy) *Decoder {
	return &Decoder{table: t, policy: p}
}

// Policy returns the decoder's unknown-hash policy.
func (d *Decoder) Policy() Policy { return d.policy }

// Decode maps one hash to its code. degraded is true when the hash was
// unknown and the policy substituted None.
func (d *Decoder) Decode(hash float32) (c Code, degraded bool, err error) {
	if c, ok := d.table.Lookup(hash); ok {
		return c, false, nil
	}
	if d.policy == PolicyDegrade {
		return None, true, nil
	}
	return None, false, &UnknownIdentityError{Hash: hash}
}

// IsVoid reports whether hash is the void material.
func IsVoid(hash float32) bool {
	return math.Float32bits(hash) == math.Float32bits(VoidHash)
}
