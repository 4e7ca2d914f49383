package status

import (
	"encoding/json"
	"sync"
)

var s = newEmptyStatus()

// Status is the root level object containing all sections.
type Status struct {
	m        sync.Mutex
	Sections map[string]*Section
}

func newEmptyStatus() *Status {
	return &Status{
		Sections: make(map[string]*Section),
	}
}

// Get returns the process-wide Status.
func Get() *Status {
	return s
}

// Reset zeroes all metrics in place. Counters are diagnostic only, so this is
// safe to do between runs. Metrics are zeroed rather than discarded so that
// long-lived references to them stay valid.
func Reset() {
	s.m.Lock()
	defer s.m.Unlock()

	for _, section := range s.Sections {
		section.reset()
	}
}

// MarshalJSON allows for go-routine safe access to Sections.
func (s *Status) MarshalJSON() ([]byte, error) {
	s.m.Lock()
	defer s.m.Unlock()

	// mask the MarshalJSON method to avoid a recursive call
	type tmp Status
	return json.Marshal((*tmp)(s))
}
