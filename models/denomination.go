package models

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"
)

// Denominations recognised on banknote labels, in pesos.
var Denominations = []int{1000, 2000, 5000, 10000, 20000}

var denominationColors = map[int]color.RGBA{
	1000:  {R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF}, // green
	2000:  {R: 0x21, G: 0x96, B: 0xF3, A: 0xFF}, // blue
	5000:  {R: 0xFF, G: 0x98, B: 0x00, A: 0xFF}, // orange
	10000: {R: 0xE9, G: 0x1E, B: 0x63, A: 0xFF}, // pink
	20000: {R: 0x9C, G: 0x27, B: 0xB0, A: 0xFF}, // purple
}

// UnknownLabel is shown for classes that carry no known denomination.
const UnknownLabel = "Desconocido"

// Denomination returns the peso value encoded in a label such as
// "billete_10000", or 0 when the label carries no known denomination.
//
// The value is the trailing run of digits, so "billete_10000" is 10000 and
// never 1000.
func Denomination(label string) int {
	end := len(label)
	start := end
	for start > 0 && label[start-1] >= '0' && label[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0
	}
	v, err := strconv.Atoi(label[start:end])
	if err != nil {
		return 0
	}
	for _, d := range Denominations {
		if d == v {
			return v
		}
	}
	return 0
}

// FormatDenomination returns "$<value>" for known denominations and
// UnknownLabel otherwise.
func FormatDenomination(label string) string {
	if v := Denomination(label); v > 0 {
		return fmt.Sprintf("$%d", v)
	}
	return UnknownLabel
}

// DenominationColor returns the drawing colour for the label's denomination.
// Unknown labels are drawn in white.
func DenominationColor(label string) color.RGBA {
	if c, ok := denominationColors[Denomination(label)]; ok {
		return c
	}
	return color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
}

// CashSummary counts detected banknotes and their total value.
type CashSummary struct {
	// Counts maps a denomination to the number of notes detected.
	Counts map[int]int
	// Unknown counts detections whose label carries no denomination.
	Unknown int
	// Total is the sum of all known denominations.
	Total int
}

// Summarize builds a CashSummary from detection labels.
func Summarize(labels []string) CashSummary {
	s := CashSummary{Counts: make(map[int]int)}
	for _, l := range labels {
		v := Denomination(l)
		if v == 0 {
			s.Unknown++
			continue
		}
		s.Counts[v]++
		s.Total += v
	}
	return s
}

// String renders the summary as "2x$1000 1x$5000 total=$7000".
func (s CashSummary) String() string {
	keys := make([]int, 0, len(s.Counts))
	for k := range s.Counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	parts := make([]string, 0, len(keys)+2)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%dx$%d", s.Counts[k], k))
	}
	if s.Unknown > 0 {
		parts = append(parts, fmt.Sprintf("%dx%s", s.Unknown, UnknownLabel))
	}
	parts = append(parts, fmt.Sprintf("total=$%d", s.Total))
	return strings.Join(parts, " ")
}
