package models

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDenomination(t *testing.T) {
	tests := []struct {
		label     string
		value     int
		formatted string
	}{
		{"billete_1000", 1000, "$1000"},
		{"billete_2000", 2000, "$2000"},
		{"billete_5000", 5000, "$5000"},
		{"billete_10000", 10000, "$10000"},
		{"billete_20000", 20000, "$20000"},
		{"billete_500", 0, UnknownLabel},
		{"moneda", 0, UnknownLabel},
		{"", 0, UnknownLabel},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.value, Denomination(tt.label))
			assert.Equal(t, tt.formatted, FormatDenomination(tt.label))
		})
	}
}

func TestDenominationColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF}, DenominationColor("billete_1000"))
	assert.Equal(t, color.RGBA{R: 0xE9, G: 0x1E, B: 0x63, A: 0xFF}, DenominationColor("billete_10000"))
	assert.Equal(t, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, DenominationColor("unknown_7"))

	// Every built-in class has its own colour.
	seen := map[color.RGBA]string{}
	for _, l := range BanknoteClasses.Labels() {
		c := DenominationColor(l)
		_, dup := seen[c]
		assert.False(t, dup, "%s shares a colour with %s", l, seen[c])
		seen[c] = l
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]string{"billete_1000", "billete_1000", "billete_5000", "unknown_9"})

	assert.Equal(t, 7000, s.Total)
	assert.Equal(t, map[int]int{1000: 2, 5000: 1}, s.Counts)
	assert.Equal(t, 1, s.Unknown)
	assert.Equal(t, "2x$1000 1x$5000 1xDesconocido total=$7000", s.String())

	assert.Equal(t, "total=$0", Summarize(nil).String())
}
