package gen

import (
	"fmt"
	"go/token"
	"sort"
)

// Severity is the level of a diagnostic.
type Severity uint8

// Severities, from least to most severe.
const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", s)
}

// Diagnostic codes.
const (
	CodeNonConstantText    = "AOT001"
	CodeMissingMember      = "AOT002"
	CodeSyntaxError        = "AOT003"
	CodeDuplicateMember    = "AOT004"
	CodeUnsupportedType    = "AOT005"
	CodeOutputOnValueBag   = "AOT006"
	CodeNonConstantOption  = "AOT007"
	CodeSameLine           = "AOT008"
	CodePositionalBatch    = "AOT009"
	CodeUnknownColumns     = "AOT010"
	CodeNoResultForCommand = "AOT011"
	CodeInternal           = "AOT999"
)

// Diagnostic is a message about one call site.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	Pos      token.Position
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s %s: %s", d.Pos, d.Severity, d.Code, d.Message)
}

// Diagnostics is a list of diagnostics.
type Diagnostics []Diagnostic

// Sort orders diagnostics by position, then code.
func (ds Diagnostics) Sort() {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i].Pos, ds[j].Pos
		switch {
		case a.Filename != b.Filename:
			return a.Filename < b.Filename
		case a.Line != b.Line:
			return a.Line < b.Line
		case a.Column != b.Column:
			return a.Column < b.Column
		}
		return ds[i].Code < ds[j].Code
	})
}

// HasErrors reports whether any diagnostic has Error severity.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics of severity s.
func (ds Diagnostics) Count(s Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity == s {
			n++
		}
	}
	return n
}

func diag(pos token.Position, s Severity, code, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: s, Code: code, Message: fmt.Sprintf(format, args...), Pos: pos}
}
