package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Apple ":    "apple",
		"APPLICATION": "application",
		"":            "",
		"   ":         "",
		"Ap":          "ap",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestNormalizeCaseEquivalence(t *testing.T) {
	assert.Equal(t, Normalize("apple"), Normalize("Apple"))
}

func TestFirstRune(t *testing.T) {
	r, ok := FirstRune("apple")
	assert.True(t, ok)
	assert.Equal(t, 'a', r)

	_, ok = FirstRune("")
	assert.False(t, ok)

	r, ok = FirstRune("日本語")
	assert.True(t, ok)
	assert.Equal(t, '日', r)
}
