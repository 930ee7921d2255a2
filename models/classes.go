// Package models - Output class sets and banknote denominations.
package models

import (
	"fmt"
	"strings"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// ClassSet is the ordered list of labels a model was trained on.
type ClassSet struct {
	// Name identifies where the set came from (built-in name or dataset file).
	Name string
	// Classes that are supported and mappable.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewClassSet builds a class set from labels in model index order.
func NewClassSet(name string, labels ...string) *ClassSet {
	s := &ClassSet{Name: name, Classes: make([]OutputClass, len(labels))}
	for i, l := range labels {
		s.Classes[i] = OutputClass{Index: i, Name: l}
	}
	s.BuildNameIndexMap()
	return s
}

// BuildNameIndexMap builds or rebuilds the name->index map.
func (s *ClassSet) BuildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[c.Name] = c.Index
	}
}

// Len returns the number of classes.
func (s *ClassSet) Len() int {
	return len(s.Classes)
}

// Label returns the label for idx, or "unknown_<idx>" when idx is out of range.
func (s *ClassSet) Label(idx int) string {
	if idx >= 0 && idx < len(s.Classes) {
		return s.Classes[idx].Name
	}
	return fmt.Sprintf("unknown_%d", idx)
}

// Index returns the class index for a given name.
func (s *ClassSet) Index(name string) (int, error) {
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, fmt.Errorf("name %q not found in class set %q", name, s.Name)
	}
	return idx, nil
}

// Labels returns the labels in index order.
func (s *ClassSet) Labels() []string {
	out := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		out[i] = c.Name
	}
	return out
}

// String lists the classes one per line.
func (s *ClassSet) String() string {
	var b strings.Builder
	for _, c := range s.Classes {
		fmt.Fprintf(&b, "%d\t%s\n", c.Index, c.Name)
	}
	return b.String()
}

// BanknoteClasses is the built-in set of Chilean peso banknotes, in the
// order the detector was trained on.
var BanknoteClasses = NewClassSet(
	"banknotes",
	"billete_1000",
	"billete_2000",
	"billete_5000",
	"billete_10000",
	"billete_20000",
)
