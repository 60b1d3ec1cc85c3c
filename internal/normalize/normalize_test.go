package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	assert.Equal(t, "John Smith", Value("  John Smith \n"))
	assert.Equal(t, "abc", Value("a\x00bc"))
	// Decomposed "é" composes to a single rune.
	assert.Equal(t, "café", Value("café"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "smith2020", Fold(" Smith2020 "))
	assert.Equal(t, Fold("ÄBC"), Fold("äbc"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("A Great Paper", "great"))
	assert.True(t, Contains("Journal of Examples", "OF EX"))
	assert.False(t, Contains("Journal", "paper"))
	assert.True(t, Contains("anything", ""))
}

func TestSortKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Zebra", "zebra"},
		{"A Great Paper", "great paper"},
		{"An Apple", "apple"},
		{"Anthology", "anthology"},
		{"Theory of Everything", "theory of everything"},
		{"  the   Spaces", "spaces"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SortKey(tt.in))
		})
	}
}

func TestDOI(t *testing.T) {
	assert.Equal(t, "10.1000/xyz123", DOI("https://doi.org/10.1000/xyz123"))
	assert.Equal(t, "10.1000/xyz123", DOI("doi:10.1000/xyz123"))
	assert.Equal(t, "10.1000/xyz123", DOI(" 10.1000/xyz123 "))
}
