package symbolic

import (
	"encoding/binary"
	"maps"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Constraint is what is known about one symbol's value. Each pair of
// constraints is exclusive: a symbol is never both Null and NotNull.
type Constraint uint8

const (
	Null Constraint = 1 << iota
	NotNull
	True
	False
	Zero
	NotZero
)

const (
	nullness = Null | NotNull
	truth    = True | False
	zeroness = Zero | NotZero
)

// opposite returns the constraints that contradict c.
func (c Constraint) opposite() Constraint {
	var o Constraint
	for _, pair := range []Constraint{nullness, truth, zeroness} {
		if c&pair != 0 {
			o |= pair &^ c
		}
	}
	return o
}

func (c Constraint) String() string {
	if c == 0 {
		return "unknown"
	}
	names := []string{"null", "not-null", "true", "false", "zero", "not-zero"}
	var parts []string
	for i, name := range names {
		if c&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// State maps symbols, identified by the ID of their declaring node, to
// what is known about them on one execution path. The zero State knows
// nothing. States are never modified in place.
type State struct {
	known map[uint32]Constraint
}

// Get returns the constraints on sym.
func (s State) Get(sym uint32) Constraint { return s.known[sym] }

// Len returns the number of constrained symbols.
func (s State) Len() int { return len(s.known) }

// Set returns a state where sym has exactly c. A zero c forgets sym.
func (s State) Set(sym uint32, c Constraint) State {
	if s.known[sym] == c {
		return s
	}
	next := make(map[uint32]Constraint, len(s.known)+1)
	maps.Copy(next, s.known)
	if c == 0 {
		delete(next, sym)
	} else {
		next[sym] = c
	}
	return State{known: next}
}

// Forget drops everything known about sym.
func (s State) Forget(sym uint32) State { return s.Set(sym, 0) }

// Constrain adds c to what is known about sym. It reports false when c
// contradicts the state, meaning the path is infeasible.
func (s State) Constrain(sym uint32, c Constraint) (State, bool) {
	cur := s.known[sym]
	if cur&c.opposite() != 0 {
		return s, false
	}
	return s.Set(sym, cur|c), true
}

// Hash identifies the state's content independently of map order.
func (s State) Hash() uint64 {
	if len(s.known) == 0 {
		return 0
	}
	keys := slices.Sorted(maps.Keys(s.known))
	d := xxhash.New()
	var buf [5]byte
	for _, k := range keys {
		binary.LittleEndian.PutUint32(buf[:4], k)
		buf[4] = byte(s.known[k])
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
