package status

import (
	"encoding/json"
	"sync"
)

// Section represents a named grouping of Counters and Ratios.
type Section struct {
	Name string

	Counters map[string]*Counter
	Ratios   map[string]*Ratio

	m sync.Mutex
}

// NewSection returns the Section with the provided name, creating it if needed.
func NewSection(name string) *Section {
	s.m.Lock()
	defer s.m.Unlock()

	section, exists := s.Sections[name]
	if !exists {
		section = newEmptySection(name)
		s.Sections[name] = section
	}
	return section
}

func newEmptySection(name string) *Section {
	return &Section{
		Name:     name,
		Counters: make(map[string]*Counter),
		Ratios:   make(map[string]*Ratio),
	}
}

// MarshalJSON is implemented to avoid concurrent map access. It holds the
// section lock and masks the MarshalJSON method to avoid recursion.
func (s *Section) MarshalJSON() ([]byte, error) {
	s.m.Lock()
	defer s.m.Unlock()

	type tmp Section
	return json.Marshal((*tmp)(s))
}

func (s *Section) reset() {
	s.m.Lock()
	defer s.m.Unlock()

	for _, c := range s.Counters {
		c.Set(0)
	}
	for _, r := range s.Ratios {
		r.reset()
	}
}

// Counter returns the counter with the provided name, creating it if needed.
func (s *Section) Counter(name string) *Counter {
	s.m.Lock()
	defer s.m.Unlock()

	counter, exists := s.Counters[name]
	if !exists {
		counter = newCounter()
		s.Counters[name] = counter
	}
	return counter
}

// Ratio returns the ratio metric with the provided name, creating it if needed.
func (s *Section) Ratio(name string) *Ratio {
	s.m.Lock()
	defer s.m.Unlock()

	ratio, exists := s.Ratios[name]
	if !exists {
		ratio = newRatio()
		s.Ratios[name] = ratio
	}
	return ratio
}
