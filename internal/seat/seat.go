// Package seat defines seat identifiers on a fixed cabin grid and the
// canonical set type used to compare selections by content.
package seat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Default cabin dimensions.
const (
	DefaultRows = 5
	DefaultCols = 6
)

// ErrInvalidID is returned when a seat label cannot be parsed or lies
// outside the layout.
var ErrInvalidID = errors.New("invalid seat id")

// ID identifies a seat by its 1-based row and 1-based column.  The
// textual form is the row number followed by the column letter(s),
// e.g. "1A" or "12F".  IDs are comparable and usable as map keys.
type ID struct {
	Row int
	Col int
}

// String renders the seat label, e.g. {Row:2, Col:3} -> "2C".
func (id ID) String() string {
	return strconv.Itoa(id.Row) + columnLabel(id.Col-1)
}

// Less orders seats by row, then column.
func (id ID) Less(other ID) bool {
	if id.Row != other.Row {
		return id.Row < other.Row
	}
	return id.Col < other.Col
}

// Layout is the fixed R x C grid of a flight.
type Layout struct {
	Rows int
	Cols int
}

// DefaultLayout returns the 5x6 cabin.
func DefaultLayout() Layout { return Layout{Rows: DefaultRows, Cols: DefaultCols} }

// Contains reports whether id lies on the grid.
func (l Layout) Contains(id ID) bool {
	return id.Row >= 1 && id.Row <= l.Rows && id.Col >= 1 && id.Col <= l.Cols
}

// Size is the number of seats on the grid.
func (l Layout) Size() int { return l.Rows * l.Cols }

// All enumerates every seat in (row, column) order.
func (l Layout) All() []ID {
	out := make([]ID, 0, l.Size())
	for r := 1; r <= l.Rows; r++ {
		for c := 1; c <= l.Cols; c++ {
			out = append(out, ID{Row: r, Col: c})
		}
	}
	return out
}

// Parse converts a label such as "3D" into an ID and verifies it lies on
// the layout.  Labels are case-insensitive and surrounding space is ignored.
func (l Layout) Parse(label string) (ID, error) {
	id, err := ParseID(label)
	if err != nil {
		return ID{}, err
	}
	if !l.Contains(id) {
		return ID{}, fmt.Errorf("%w: %q outside %dx%d grid", ErrInvalidID, label, l.Rows, l.Cols)
	}
	return id, nil
}

// ParseSet parses every label and rejects duplicates.  The whole input is
// rejected on the first bad label.
func (l Layout) ParseSet(labels []string) (Set, error) {
	s := NewSet()
	for _, raw := range labels {
		id, err := l.Parse(raw)
		if err != nil {
			return Set{}, err
		}
		if s.Contains(id) {
			return Set{}, fmt.Errorf("%w: duplicate %q", ErrInvalidID, raw)
		}
		s.Add(id)
	}
	return s, nil
}

// ParseID parses a seat label without any layout bound.
func ParseID(label string) (ID, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, label)
	}
	row, err := strconv.Atoi(s[:i])
	if err != nil || row < 1 {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, label)
	}
	col, ok := columnIndex(s[i:])
	if !ok {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, label)
	}
	return ID{Row: row, Col: col + 1}, nil
}

// columnLabel converts a zero-based index to an alphabetical label like A, B, AA.
func columnLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		res = append(res, rune('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// columnIndex converts a label like A or AA into its zero-based index.
func columnIndex(label string) (int, bool) {
	if label == "" {
		return -1, false
	}
	n := 0
	for i := 0; i < len(label); i++ {
		ch := label[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}
