// Package sqlshape performs lightweight lexical classification of SQL
// command text. It is not a parser: it finds statement separators, leading
// keywords, parameter markers and unterminated literals, which is enough to
// decide how a command should be executed and materialized.
//
//	s := sqlshape.ClassifyText("SELECT id, name FROM users WHERE id = @id")
//	s.Has(sqlshape.ReturnsRows) // true
//	s.Names()                   // [id]
//
// The same classification is used by the code generator at build time and
// by the runtime fallback, which memoizes shapes in an LRU cache.
package sqlshape
