/*
Package sparse implements a simple type for sparse integer matrices. It is
used for the GOTO-style transition table inside a CompiledGrammar — most
entries are absent (a given automaton state
is live for only a handful of terminal classes), so a dense matrix would
waste most of its memory.

This implementation uses the COO algorithm (a.k.a. triplet-encoding).

   https://medium.com/@jmaxg3/101-ways-to-store-a-sparse-matrix-c7f2bf15a229
   https://www.coin-or.org/Ipopt/documentation/node38.html

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package sparse

import "fmt"

// IntMatrix is a type for a sparse matrix of integer values. Construct with
//
//	M := NewIntMatrix(10, 10, -1)  // last parameter is M's null-value
//
// Now
//
//	M.Set(2, 3, 4711)              // set a value
//	v := M.Value(2, 3)             // returns 4711
//	M.Add(2, 3, 123)               // add a second value
//	cnt := M.ValueCount()          // still returns 1 (one position set)
//	v = M.Value(10, 10)            // returns -1, i.e. the null-value
//
// Values cannot be deleted, but may be overwritten with the null-value.
// Space for null-values is not re-claimed.
type IntMatrix struct {
	values  []triplet
	rowcnt  uint
	colcnt  uint
	nullval int32
}

type triplet struct {
	row, col uint
	value    intPair
}

// NewIntMatrix creates a new matrix for int, size m x n. The 3rd argument is
// a null-value, indicating empty entries (use DefaultNullValue if you have
// no specific requirements).
func NewIntMatrix(m, n uint, nullValue int32) *IntMatrix {
	return &IntMatrix{
		values:  []triplet{},
		rowcnt:  m,
		colcnt:  n,
		nullval: nullValue,
	}
}

// DefaultNullValue is the default empty-value for matrices (min int32).
const DefaultNullValue int32 = -2147483648

// M returns the row count.
func (m *IntMatrix) M() uint { return m.rowcnt }

// N returns the column count.
func (m *IntMatrix) N() uint { return m.colcnt }

// NullValue returns this matrix' null value.
func (m *IntMatrix) NullValue() int32 { return m.nullval }

// ValueCount returns the number of values in the matrix.
func (m *IntMatrix) ValueCount() int { return len(m.values) }

// Value returns the primary value at position (i,j), or NullValue.
func (m *IntMatrix) Value(i, j uint) int32 {
	for _, t := range m.values {
		if !t.storedLeftOf(i, j) {
			if t.storedAt(i, j) {
				return t.value.a
			}
			break
		}
	}
	return m.nullval
}

// Values returns the pair of values at position (i,j), or (NullValue, NullValue).
func (m *IntMatrix) Values(i, j uint) (int32, int32) {
	for _, t := range m.values {
		if !t.storedLeftOf(i, j) {
			if t.storedAt(i, j) {
				return t.value.a, t.value.b
			}
			break
		}
	}
	return m.nullval, m.nullval
}

// Set a value in the matrix at position (i,j).
func (m *IntMatrix) Set(i, j uint, value int32) *IntMatrix {
	return m.setOrAdd(i, j, value, false)
}

// Add a value in the matrix at position (i,j).
func (m *IntMatrix) Add(i, j uint, value int32) *IntMatrix {
	return m.setOrAdd(i, j, value, true)
}

func (m *IntMatrix) setOrAdd(i, j uint, value int32, doAdd bool) *IntMatrix {
	at := 0
	for k, t := range m.values {
		if !t.storedLeftOf(i, j) {
			if t.storedAt(i, j) {
				if doAdd {
					m.values[k].value = addIntValue(m.values[k].value, value, m.nullval)
				} else {
					m.values[k].value = newIntPair(value, m.nullval)
				}
				return m
			}
			break
		}
		at++
	}
	tnew := triplet{row: i, col: j, value: newIntPair(value, m.nullval)}
	m.values = append(m.values, tnew)
	copy(m.values[at+1:], m.values[at:])
	m.values[at] = tnew
	return m
}

func addIntValue(v intPair, n int32, nullval int32) intPair {
	if v.a == nullval {
		v.a = n
	} else if v.b == nullval {
		v.b = n
	} else {
		v.b = n // entry full: overwrite second (2nd action = ambiguity marker)
	}
	return v
}

func (t *triplet) storedLeftOf(i, j uint) bool {
	return t.row < i || t.row == i && t.col < j
}

func (t *triplet) storedAt(i, j uint) bool {
	return t.row == i && t.col == j
}

type intPair struct {
	a int32
	b int32
}

func (pr intPair) String() string {
	return fmt.Sprintf("[%d,%d]", pr.a, pr.b)
}

func newIntPair(a, b int32) intPair {
	return intPair{a, b}
}
