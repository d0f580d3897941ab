package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEquivalentFormats(t *testing.T) {
	inputs := []string{
		"08012345678",
		"2348012345678",
		"+2348012345678",
		"0801 234 5678",
		"+234 (801) 234-5678",
		"  0801-234-5678 ",
		"(+234) 801 234 5678",
		"( +234 ) 8012345678",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := Normalize(in)
			require.NoError(t, err)
			assert.Equal(t, "+2348012345678", got)
		})
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "+", "abc", "0801abc5678", "123", "phone: 0801", "++2348012345678", "234+8012345678", "(+)"} {
		t.Run(in, func(t *testing.T) {
			_, err := Normalize(in)
			assert.ErrorIs(t, err, ErrInvalidPhone)
		})
	}
}

func TestNormalizerFallsBackToDefaultRegion(t *testing.T) {
	n := NewNormalizer("zz")
	assert.Equal(t, DefaultRegion, n.Region())

	got, err := n.Normalize("08011112222")
	require.NoError(t, err)
	assert.Equal(t, "+2348011112222", got)
}

func TestNormalizerOtherRegion(t *testing.T) {
	n := NewNormalizer("gh")
	assert.Equal(t, "GH", n.Region())

	got, err := n.Normalize("024 123 4567")
	require.NoError(t, err)
	assert.Equal(t, "+233241234567", got)
}
