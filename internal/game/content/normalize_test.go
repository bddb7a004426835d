package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{" -7 ", -7, true},
		{"007", 7, true},
		{"0", 0, true},
		{"", 0, false},
		{"  ", 0, false},
		{"3.14", 0, false},
		{"42x", 0, false},
		{"x42", 0, false},
		{"4 2", 0, false},
		{"+42", 0, false},
		{"--5", 0, false},
	}

	for _, c := range cases {
		got, ok := NormalizeAnswer(c.in)
		assert.Equal(t, c.ok, ok, "输入 %q", c.in)
		if c.ok {
			assert.Equal(t, c.want, got, "输入 %q", c.in)
		}
	}
}

func TestNormalizeWord(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"golden", "GOLDEN"},
		{"  Golden  ", "GOLDEN"},
		{"gol-den!", "GOLDEN"},
		{"two  words", "TWO WORDS"},
		{"tab\tand\nnewline", "TABANDNEWLINE"},
		{"...", ""},
		{"", ""},
		{"A1 B2", "A1 B2"},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeWord(c.in), "输入 %q", c.in)
	}
}
