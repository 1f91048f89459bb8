package aotsql

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DbType is the provider-neutral type of a command parameter.
type DbType uint8

// Parameter types.
const (
	DbObject DbType = iota
	DbBoolean
	DbSByte
	DbByte
	DbInt16
	DbUInt16
	DbInt32
	DbUInt32
	DbInt64
	DbUInt64
	DbSingle
	DbDouble
	DbDecimal
	DbString
	DbAnsiString
	DbStringFixedLength
	DbAnsiStringFixedLength
	DbBinary
	DbDateTime
	DbDate
	DbTime
	DbDateTimeOffset
	DbGuid
	DbJson
)

var dbTypeNames = [...]string{
	DbObject:                "Object",
	DbBoolean:               "Boolean",
	DbSByte:                 "SByte",
	DbByte:                  "Byte",
	DbInt16:                 "Int16",
	DbUInt16:                "UInt16",
	DbInt32:                 "Int32",
	DbUInt32:                "UInt32",
	DbInt64:                 "Int64",
	DbUInt64:                "UInt64",
	DbSingle:                "Single",
	DbDouble:                "Double",
	DbDecimal:               "Decimal",
	DbString:                "String",
	DbAnsiString:            "AnsiString",
	DbStringFixedLength:     "StringFixedLength",
	DbAnsiStringFixedLength: "AnsiStringFixedLength",
	DbBinary:                "Binary",
	DbDateTime:              "DateTime",
	DbDate:                  "Date",
	DbTime:                  "Time",
	DbDateTimeOffset:        "DateTimeOffset",
	DbGuid:                  "Guid",
	DbJson:                  "Json",
}

func (t DbType) String() string {
	if int(t) < len(dbTypeNames) {
		return dbTypeNames[t]
	}
	return fmt.Sprintf("DbType(%d)", t)
}

// ParseDbType parses a type name such as "AnsiString", case-insensitively.
func ParseDbType(s string) (DbType, error) {
	for i, n := range dbTypeNames {
		if strings.EqualFold(n, s) {
			return DbType(i), nil
		}
	}
	return DbObject, fmt.Errorf("aotsql: unknown db type %q", s)
}

var (
	guidType     = reflect.TypeFor[uuid.UUID]()
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	rawJSONType  = reflect.TypeFor[json.RawMessage]()
)

// wellKnown maps qualified type names to their parameter type. The code
// generator looks types up by the same keys.
var wellKnown = map[string]DbType{
	TypeKey(timeType):     DbDateTime,
	TypeKey(durationType): DbTime,
	TypeKey(guidType):     DbGuid,
	TypeKey(rawJSONType):  DbJson,
}

// basicTypes maps Go basic type names to their parameter type. int and
// uint are 64 bits wide on every supported platform.
var basicTypes = map[string]DbType{
	"bool":    DbBoolean,
	"int8":    DbSByte,
	"uint8":   DbByte,
	"int16":   DbInt16,
	"uint16":  DbUInt16,
	"int32":   DbInt32,
	"uint32":  DbUInt32,
	"int":     DbInt64,
	"int64":   DbInt64,
	"uint":    DbUInt64,
	"uint64":  DbUInt64,
	"float32": DbSingle,
	"float64": DbDouble,
	"string":  DbString,
	"[]byte":  DbBinary,
}

// TypeKey returns the qualified name of a named type, e.g. "time.Time".
func TypeKey(t reflect.Type) string {
	return t.PkgPath() + "." + t.Name()
}

// LookupDbType maps a qualified named type or a basic type name to its
// parameter type. Named types called Decimal map to DbDecimal.
func LookupDbType(key string) (DbType, bool) {
	if t, ok := wellKnown[key]; ok {
		return t, true
	}
	if t, ok := basicTypes[key]; ok {
		return t, true
	}
	if strings.HasSuffix(key, ".Decimal") {
		return DbDecimal, true
	}
	return DbObject, false
}

// DbTypeOf returns the parameter type of a Go type and whether the type
// can carry NULL. Pointers and database/sql Null wrappers map to their
// element type; named basic types (enums) map to their underlying type.
func DbTypeOf(t reflect.Type) (DbType, bool) {
	nullable := false
	for t.Kind() == reflect.Pointer {
		t, nullable = t.Elem(), true
	}
	if t.PkgPath() == "database/sql" && strings.HasPrefix(t.Name(), "Null") && t.Kind() == reflect.Struct && t.NumField() == 2 {
		dt, _ := DbTypeOf(t.Field(0).Type)
		return dt, true
	}
	if t.Name() != "" && t.PkgPath() != "" {
		if dt, ok := LookupDbType(TypeKey(t)); ok {
			return dt, nullable
		}
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return DbBinary, true
	}
	if dt, ok := basicTypes[t.Kind().String()]; ok {
		return dt, nullable
	}
	return DbObject, true
}

// Direction is the direction of a command parameter.
type Direction uint8

// Parameter directions.
const (
	In Direction = iota
	Out
	InOut
	Return
)

var directionNames = [...]string{
	In:     "in",
	Out:    "out",
	InOut:  "inout",
	Return: "return",
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", d)
}

// ParseDirection parses "in", "out", "inout" or "return".
func ParseDirection(s string) (Direction, error) {
	for i, n := range directionNames {
		if strings.EqualFold(n, s) {
			return Direction(i), nil
		}
	}
	return In, fmt.Errorf("aotsql: unknown parameter direction %q", s)
}
