package seat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_String(t *testing.T) {
	assert.Equal(t, "1A", ID{Row: 1, Col: 1}.String())
	assert.Equal(t, "5F", ID{Row: 5, Col: 6}.String())
	assert.Equal(t, "12AA", ID{Row: 12, Col: 27}.String())
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want ID
		ok   bool
	}{
		{"1A", ID{1, 1}, true},
		{" 3d ", ID{3, 4}, true},
		{"10F", ID{10, 6}, true},
		{"2AA", ID{2, 27}, true},
		{"", ID{}, false},
		{"A1", ID{}, false},
		{"12", ID{}, false},
		{"0A", ID{}, false},
		{"1-A", ID{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayout_Parse_Bounds(t *testing.T) {
	l := DefaultLayout()

	_, err := l.Parse("5F")
	require.NoError(t, err)

	_, err = l.Parse("6A")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = l.Parse("1G")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestLayout_All_Ordered(t *testing.T) {
	l := DefaultLayout()
	all := l.All()
	require.Len(t, all, 30)
	assert.Equal(t, "1A", all[0].String())
	assert.Equal(t, "1F", all[5].String())
	assert.Equal(t, "2A", all[6].String())
	assert.Equal(t, "5F", all[29].String())
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].Less(all[i]))
	}
}

func TestLayout_ParseSet(t *testing.T) {
	l := DefaultLayout()

	s, err := l.ParseSet([]string{"2B", "1a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1A", "2B"}, s.Strings())

	_, err = l.ParseSet([]string{"1A", "1A"})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = l.ParseSet([]string{"1A", "9Z"})
	assert.ErrorIs(t, err, ErrInvalidID)

	empty, err := l.ParseSet(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestSet_EqualIgnoresOrder(t *testing.T) {
	a := NewSet(ID{2, 2}, ID{1, 1})
	b := NewSet(ID{1, 1}, ID{2, 2})
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "1A,2B", a.Key())

	assert.False(t, a.Equal(NewSet(ID{1, 1})))
	assert.True(t, Set{}.Equal(NewSet()))
}

func TestSet_ToggleIsCopy(t *testing.T) {
	a := NewSet(ID{1, 1})
	b := a.Toggle(ID{1, 2})
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 2, b.Len())

	c := b.Toggle(ID{1, 2})
	assert.True(t, a.Equal(c))
}

func TestSet_Diff(t *testing.T) {
	a := NewSet(ID{1, 1}, ID{1, 2})
	b := NewSet(ID{1, 2}, ID{3, 3})
	onlyA, onlyB := a.Diff(b)
	assert.Equal(t, []ID{{1, 1}}, onlyA)
	assert.Equal(t, []ID{{3, 3}}, onlyB)
}
