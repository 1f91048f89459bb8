// Package token normalizes and hashes column and member names so that
// result columns can be routed to member slots with a switch on a hash
// constant followed by an exact string compare.
//
// The generator embeds HashNormalized values as literals in generated
// code; the same functions run at runtime against live column names.
package token

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
)

// Skip is the token of a column that maps to no member.
const Skip = -1

// Normalize strips the identifier quotes enclosing s, then folds it to a
// canonical case and drops whitespace and underscores. Quote characters
// inside the name are kept. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = unquote(s)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= utf8.RuneSelf {
			return normalizeFold(s)
		}
		if dropASCII(c) || ('A' <= c && c <= 'Z') {
			return normalizeASCII(s)
		}
	}
	return s
}

func normalizeASCII(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= utf8.RuneSelf {
			return normalizeFold(s)
		}
		if dropASCII(c) {
			continue
		}
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		b = append(b, c)
	}
	return string(b)
}

// normalizeFold handles non-ASCII names with full Unicode case folding,
// which does not depend on the current culture.
func normalizeFold(s string) string {
	folded := cases.Fold().String(s)
	out := make([]rune, 0, len(folded))
	for _, r := range folded {
		if drop(r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// unquote removes enclosing "x", `x` and [x] pairs, ignoring the
// characters Normalize drops around them.
func unquote(s string) string {
	for {
		s = strings.TrimFunc(s, drop)
		if len(s) < 2 {
			return s
		}
		if c := closing(s[0]); c == 0 || s[len(s)-1] != c {
			return s
		}
		s = s[1 : len(s)-1]
	}
}

func closing(open byte) byte {
	switch open {
	case '"', '`':
		return open
	case '[':
		return ']'
	}
	return 0
}

func dropASCII(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f', '_':
		return true
	}
	return false
}

func drop(r rune) bool {
	if r < utf8.RuneSelf {
		return dropASCII(byte(r))
	}
	return unicode.IsSpace(r)
}

// HashNormalized hashes an already normalized name. The 64-bit xxhash sum
// is folded to 32 bits.
func HashNormalized(n string) uint32 {
	h := xxhash.Sum64String(n)
	return uint32(h) ^ uint32(h>>32)
}

// Hash normalizes and hashes s.
func Hash(s string) uint32 { return HashNormalized(Normalize(s)) }
