// Package dialect names the SQL dialects aotsql knows about and the
// parameter placeholder style each of them expects.
//
// # Supported Dialects
//
//	dialect.Postgres  = "postgres"
//	dialect.MySQL     = "mysql"
//	dialect.SQLite    = "sqlite3"
//	dialect.SQLServer = "sqlserver"
//	dialect.Oracle    = "oracle"
//
// # Placeholders
//
// Command text is written with canonical named markers (@name or :name).
// Before a command reaches the driver the markers are rendered into the
// style of the target dialect:
//
//	Named     @name   values passed as sql.Named
//	Question  ?       one argument per occurrence
//	Dollar    $1      one argument per distinct name, index reused
//	AtP       @p1     one argument per distinct name, index reused
//	ColonNum  :1      one argument per distinct name, index reused
//
// The generator renders reliable command text once at build time; the
// runtime fallback renders on every call through a shape cache.
//
// # Sub-packages
//
//   - dialect/sql: database/sql driver wrapper carrying the dialect name
package dialect
