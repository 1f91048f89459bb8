package sqlshape

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexical errors recorded on a Shape.
var (
	ErrUnterminatedString  = errors.New("sqlshape: unterminated quoted string")
	ErrUnterminatedIdent   = errors.New("sqlshape: unterminated quoted identifier")
	ErrUnterminatedComment = errors.New("sqlshape: unterminated block comment")
	ErrUnterminatedDollar  = errors.New("sqlshape: unterminated dollar-quoted string")
)

// Marker is one occurrence of a named parameter marker in command text.
type Marker struct {
	Name  string
	Start int // byte offset of the first marker character
	End   int // byte offset just past the marker
	Brace bool
}

// statement is the lexical summary of one ';'-separated statement.
type statement struct {
	keyword   string // leading keyword, upper case
	returning bool   // RETURNING or OUTPUT clause seen
}

type lexer struct {
	src     string
	markers []Marker
	stmts   []statement
	err     error
	// state of the current statement.
	cur       statement
	started   bool
	nonBlank  bool
	// declaring is set inside a DECLARE list; the next @name is a local
	// when expectLocal is set. depth counts parentheses within the list.
	declaring   bool
	expectLocal bool
	depth       int
	locals      map[string]bool
}

// scan walks src once. Literals and comments are skipped; markers,
// statement separators and keywords are recorded.
func (l *lexer) scan() {
	s := l.src
	i := 0
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '\'':
			j, ok := skipQuoted(s, i+w, '\'')
			if !ok {
				l.fail(ErrUnterminatedString)
				return
			}
			l.touch()
			i = j
			continue
		case r == '"' || r == '`':
			j, ok := skipQuoted(s, i+w, byte(r))
			if !ok {
				l.fail(ErrUnterminatedIdent)
				return
			}
			l.touch()
			i = j
			continue
		case r == '[':
			j := strings.IndexByte(s[i+1:], ']')
			if j < 0 {
				l.fail(ErrUnterminatedIdent)
				return
			}
			l.touch()
			i += j + 2
			continue
		case r == '-' && strings.HasPrefix(s[i:], "--"):
			i = skipLine(s, i+2)
			continue
		case r == '/' && strings.HasPrefix(s[i:], "/*"):
			j := strings.Index(s[i+2:], "*/")
			if j < 0 {
				l.fail(ErrUnterminatedComment)
				return
			}
			i += j + 4
			continue
		case r == '$':
			if j, ok, err := skipDollar(s, i); err != nil {
				l.fail(err)
				return
			} else if ok {
				l.touch()
				i = j
				continue
			}
		case r == ';':
			l.endStatement()
			i += w
			continue
		case r == '{' && strings.HasPrefix(s[i:], "{{"):
			if name, end, ok := parseBrace(s, i); ok {
				l.touch()
				l.markers = append(l.markers, Marker{Name: name, Start: i, End: end, Brace: true})
				i = end
				continue
			}
		case r == '@':
			if strings.HasPrefix(s[i:], "@@") {
				// server variable, e.g. @@ROWCOUNT
				_, end := parseIdent(s, i+2)
				l.touch()
				i = end
				continue
			}
			if name, end := parseIdent(s, i+1); name != "" {
				l.touch()
				if l.expectLocal {
					l.local(name)
					i = end
					continue
				}
				l.markers = append(l.markers, Marker{Name: name, Start: i, End: end})
				i = end
				continue
			}
		case r == ':':
			if strings.HasPrefix(s[i:], "::") {
				l.touch()
				i += 2
				continue
			}
			if name, end := parseIdent(s, i+1); name != "" && !isDigit(name[0]) {
				l.touch()
				l.markers = append(l.markers, Marker{Name: name, Start: i, End: end})
				i = end
				continue
			}
		case isIdentStart(r):
			word, end := parseIdent(s, i)
			l.word(word)
			i = end
			continue
		case unicode.IsSpace(r):
			i += w
			continue
		case r == ',' && l.declaring:
			// DECLARE @a INT, @b INT
			l.expectLocal = l.depth == 0
			l.touch()
			i += w
			continue
		case r == '(' || r == ')':
			if l.declaring {
				if r == '(' {
					l.depth++
				} else if l.depth > 0 {
					l.depth--
				}
			}
			// leading parentheses do not start a statement: (SELECT ...) UNION ...
			if l.started {
				l.touch()
			}
			i += w
			continue
		}
		l.touch()
		i += w
	}
	l.endStatement()
	l.dropLocals()
}

// local records a variable declared inside the batch (DECLARE @x INT);
// it is not a parameter.
func (l *lexer) local(name string) {
	if l.locals == nil {
		l.locals = make(map[string]bool)
	}
	l.locals[strings.ToLower(name)] = true
	l.expectLocal = false
}

func (l *lexer) dropLocals() {
	if len(l.locals) == 0 {
		return
	}
	kept := l.markers[:0]
	for _, m := range l.markers {
		if m.Brace || !l.locals[strings.ToLower(m.Name)] {
			kept = append(kept, m)
		}
	}
	l.markers = kept
}

func (l *lexer) fail(err error) {
	l.err = err
	l.endStatement()
	l.dropLocals()
}

// touch marks the current statement as containing non-blank text.
func (l *lexer) touch() {
	l.started = true
	l.nonBlank = true
}

func (l *lexer) word(w string) {
	up := strings.ToUpper(w)
	if !l.started {
		l.cur.keyword = up
	}
	l.expectLocal = false
	switch up {
	case "RETURNING", "OUTPUT":
		l.cur.returning = true
	case "DECLARE":
		l.declaring, l.expectLocal, l.depth = true, true, 0
	case "SELECT", "INSERT", "UPDATE", "DELETE", "MERGE", "SET", "EXEC", "EXECUTE",
		"IF", "WHILE", "BEGIN", "RETURN", "WITH", "PRINT":
		l.declaring = false
	}
	l.touch()
}

func (l *lexer) endStatement() {
	if l.nonBlank {
		l.stmts = append(l.stmts, l.cur)
	}
	l.cur, l.started, l.nonBlank = statement{}, false, false
	l.declaring, l.expectLocal, l.depth = false, false, 0
}

func skipQuoted(s string, i int, q byte) (int, bool) {
	for i < len(s) {
		c := s[i]
		i++
		if c == q {
			if i < len(s) && s[i] == q {
				i++
				continue
			}
			return i, true
		}
	}
	return 0, false
}

func skipLine(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
		return i + j + 1
	}
	return len(s)
}

// skipDollar handles $$...$$ and $tag$...$tag$ blocks. Positional $1 markers are not blocks.
func skipDollar(s string, i int) (int, bool, error) {
	j := i + 1
	if j < len(s) && isDigit(s[j]) {
		return 0, false, nil
	}
	for j < len(s) && s[j] != '$' {
		r, w := utf8.DecodeRuneInString(s[j:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return 0, false, nil
		}
		j += w
	}
	if j >= len(s) {
		return 0, false, nil
	}
	tag := s[i : j+1]
	k := strings.Index(s[j+1:], tag)
	if k < 0 {
		return 0, true, ErrUnterminatedDollar
	}
	return j + 1 + k + len(tag), true, nil
}

// parseBrace parses a legacy {{name}} marker starting at i.
func parseBrace(s string, i int) (string, int, bool) {
	j := i + 2
	for j < len(s) && s[j] == ' ' {
		j++
	}
	name, end := parseIdent(s, j)
	for end < len(s) && s[end] == ' ' {
		end++
	}
	if name == "" || !strings.HasPrefix(s[end:], "}}") {
		return "", 0, false
	}
	return name, end + 2, true
}

func parseIdent(s string, i int) (string, int) {
	start := i
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		i += w
	}
	return s[start:i], i
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
