package sqlshape

import (
	"strings"

	"github.com/syssam/aotsql/dialect"
)

// Render rewrites the canonical markers of s into the given placeholder
// style. The returned order lists, for every driver argument slot, the
// marker name bound to it: one entry per occurrence for '?' markers, one
// entry per distinct name otherwise. Repeated names use the spelling of
// their first occurrence.
func Render(s *Shape, style dialect.Placeholder) (string, []string) {
	if len(s.Markers) == 0 {
		return s.Text, nil
	}
	var (
		b     strings.Builder
		last  int
		names []string
		occ   []string
		index = make(map[string]int, len(s.Markers))
	)
	b.Grow(len(s.Text) + 4*len(s.Markers))
	for _, m := range s.Markers {
		b.WriteString(s.Text[last:m.Start])
		last = m.End
		key := strings.ToLower(m.Name)
		n, seen := index[key]
		if !seen {
			names = append(names, m.Name)
			n = len(names)
			index[key] = n
		}
		name := names[n-1]
		occ = append(occ, name)
		switch {
		case style == dialect.Question:
			b.WriteByte('?')
		case style.Indexed():
			b.WriteString(style.Marker(name, n))
		default:
			b.WriteString("@" + name)
		}
	}
	b.WriteString(s.Text[last:])
	if style == dialect.Question {
		return b.String(), occ
	}
	return b.String(), names
}
