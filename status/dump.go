package status

import (
	"fmt"
	"io"
	"sort"

	humanize "github.com/dustin/go-humanize"
)

// Dump writes a plain-text rendering of all sections to w.
func Dump(w io.Writer) {
	s.m.Lock()
	sections := make([]*Section, 0, len(s.Sections))
	for _, section := range s.Sections {
		sections = append(sections, section)
	}
	s.m.Unlock()

	sort.Slice(sections, func(i, j int) bool { return sections[i].Name < sections[j].Name })

	for _, section := range sections {
		section.dump(w)
	}
}

func (s *Section) dump(w io.Writer) {
	s.m.Lock()
	defer s.m.Unlock()

	fmt.Fprintf(w, "%s:\n", s.Name)

	names := make([]string, 0, len(s.Counters))
	for name := range s.Counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-30s %s\n", name, humanize.Comma(s.Counters[name].GetValue()))
	}

	names = names[:0]
	for name := range s.Ratios {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := s.Ratios[name]
		fmt.Fprintf(w, "  %-30s %.1f%% (%s/%s)\n", name, r.Value(),
			humanize.Comma(r.Numerator), humanize.Comma(r.Denominator))
	}
}
