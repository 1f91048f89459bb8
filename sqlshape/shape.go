package sqlshape

import (
	"strconv"
	"strings"
)

// Flags describe the shape of a command.
type Flags uint16

// Shape flags.
const (
	// Reliable is set when the whole text is known at build time.
	Reliable Flags = 1 << iota
	// SyntaxError is set when a quote, comment or dollar block is not terminated.
	SyntaxError
	// ReturnsRows is set for SELECT-like commands.
	ReturnsRows
	// IsBatch is set when the text holds more than one statement.
	IsBatch
	// MaybeQuery is set for procedure calls whose row output is only known at runtime.
	MaybeQuery
	// HasDynamicParameterBag is set when parameter names cannot be checked statically.
	HasDynamicParameterBag
	// SyntaxAdjusted is set when legacy markers were rewritten.
	SyntaxAdjusted
)

var flagNames = []string{
	"Reliable",
	"SyntaxError",
	"ReturnsRows",
	"IsBatch",
	"MaybeQuery",
	"HasDynamicParameterBag",
	"SyntaxAdjusted",
}

// Has reports whether all bits of x are set.
func (f Flags) Has(x Flags) bool { return f&x == x }

// String returns the set flags joined by '|'.
func (f Flags) String() string {
	if f == 0 {
		return "None"
	}
	var b strings.Builder
	for i, n := range flagNames {
		if f&(1<<i) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(n)
	}
	return b.String()
}

// Segment is one piece of command text.
type Segment struct {
	Text string
	// Dynamic marks text computed at runtime; its content is unknown.
	Dynamic bool
	// Hole marks an interpolated value; it becomes one parameter marker.
	Hole bool
}

// Literal returns a constant text segment.
func Literal(text string) Segment { return Segment{Text: text} }

// HolePrefix prefixes the marker names generated for interpolation holes.
const HolePrefix = "__p"

// Shape is the classification of one command text. It is never mutated
// after Classify returns.
type Shape struct {
	Flags Flags
	// Source is the text as written, holes and dynamic pieces excluded.
	Source string
	// Text is the command with brace markers rewritten and holes replaced by markers.
	Text    string
	Markers []Marker
	Err     error
	Holes   int
}

// Has reports whether the shape carries all of the given flags.
func (s *Shape) Has(f Flags) bool { return s.Flags.Has(f) }

// With returns a copy of s with the extra flags set.
func (s *Shape) With(f Flags) *Shape {
	c := *s
	c.Flags |= f
	return &c
}

// Names returns the distinct marker names in first-appearance order.
// Names are compared case-insensitively; the first spelling wins.
func (s *Shape) Names() []string {
	var names []string
	seen := make(map[string]bool, len(s.Markers))
	for _, m := range s.Markers {
		k := strings.ToLower(m.Name)
		if !seen[k] {
			seen[k] = true
			names = append(names, m.Name)
		}
	}
	return names
}

// ClassifyText classifies a single constant text.
func ClassifyText(text string) *Shape {
	return Classify(Literal(text))
}

// Classify classifies command text given as segments. It never fails;
// problems are reported through the SyntaxError flag and Err.
func Classify(segments ...Segment) *Shape {
	var (
		text, source strings.Builder
		holes        int
		reliable     = true
	)
	for _, seg := range segments {
		switch {
		case seg.Hole:
			text.WriteString("@" + HolePrefix + strconv.Itoa(holes))
			holes++
		case seg.Dynamic:
			text.WriteByte(' ')
			reliable = false
		default:
			text.WriteString(seg.Text)
			source.WriteString(seg.Text)
		}
	}
	l := &lexer{src: text.String()}
	l.scan()

	s := &Shape{Source: source.String(), Holes: holes, Err: l.err}
	if reliable {
		s.Flags |= Reliable
	}
	if l.err != nil {
		s.Flags |= SyntaxError
	}
	if len(l.stmts) > 1 {
		s.Flags |= IsBatch
	}
	for _, st := range l.stmts {
		switch classifyKeyword(st) {
		case rowsYes:
			s.Flags |= ReturnsRows
		case rowsMaybe:
			s.Flags |= MaybeQuery
		}
	}
	s.Text, s.Markers = adjust(l.src, l.markers)
	if s.Text != l.src {
		s.Flags |= SyntaxAdjusted
	}
	return s
}

type rowKind uint8

const (
	rowsNo rowKind = iota
	rowsYes
	rowsMaybe
)

func classifyKeyword(st statement) rowKind {
	switch st.keyword {
	case "SELECT", "WITH", "VALUES", "SHOW", "EXPLAIN", "PRAGMA", "TABLE", "DESCRIBE", "DESC":
		return rowsYes
	case "EXEC", "EXECUTE", "CALL":
		return rowsMaybe
	case "INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE", "UPSERT":
		if st.returning {
			return rowsYes
		}
	}
	return rowsNo
}

// adjust rewrites brace markers to the canonical @name form and shifts
// marker offsets to match the rewritten text.
func adjust(src string, markers []Marker) (string, []Marker) {
	out := make([]Marker, len(markers))
	copy(out, markers)
	var (
		b     strings.Builder
		last  int
		shift int
		dirty bool
	)
	for i, m := range out {
		if !m.Brace {
			out[i].Start += shift
			out[i].End += shift
			continue
		}
		if !dirty {
			b.Grow(len(src))
			dirty = true
		}
		b.WriteString(src[last:m.Start])
		repl := "@" + m.Name
		b.WriteString(repl)
		last = m.End
		out[i].Start += shift
		shift += len(repl) - (m.End - m.Start)
		out[i].End = out[i].Start + len(repl)
		out[i].Brace = false
	}
	if !dirty {
		return src, out
	}
	b.WriteString(src[last:])
	return b.String(), out
}
