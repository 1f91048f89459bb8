package aotsql_test

import (
	"database/sql"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/aotsql"
)

type status int16

type Decimal struct{ unscaled int64 }

func TestDbTypeOf(t *testing.T) {
	tests := []struct {
		typ      reflect.Type
		want     aotsql.DbType
		nullable bool
	}{
		{reflect.TypeFor[bool](), aotsql.DbBoolean, false},
		{reflect.TypeFor[int8](), aotsql.DbSByte, false},
		{reflect.TypeFor[uint8](), aotsql.DbByte, false},
		{reflect.TypeFor[int16](), aotsql.DbInt16, false},
		{reflect.TypeFor[int32](), aotsql.DbInt32, false},
		{reflect.TypeFor[int](), aotsql.DbInt64, false},
		{reflect.TypeFor[int64](), aotsql.DbInt64, false},
		{reflect.TypeFor[uint](), aotsql.DbUInt64, false},
		{reflect.TypeFor[float32](), aotsql.DbSingle, false},
		{reflect.TypeFor[float64](), aotsql.DbDouble, false},
		{reflect.TypeFor[string](), aotsql.DbString, false},
		{reflect.TypeFor[[]byte](), aotsql.DbBinary, true},
		{reflect.TypeFor[time.Time](), aotsql.DbDateTime, false},
		{reflect.TypeFor[time.Duration](), aotsql.DbTime, false},
		{reflect.TypeFor[uuid.UUID](), aotsql.DbGuid, false},
		{reflect.TypeFor[json.RawMessage](), aotsql.DbJson, false},
		{reflect.TypeFor[Decimal](), aotsql.DbDecimal, false},
		{reflect.TypeFor[status](), aotsql.DbInt16, false},
		{reflect.TypeFor[*string](), aotsql.DbString, true},
		{reflect.TypeFor[**int32](), aotsql.DbInt32, true},
		{reflect.TypeFor[*uuid.UUID](), aotsql.DbGuid, true},
		{reflect.TypeFor[sql.NullString](), aotsql.DbString, true},
		{reflect.TypeFor[sql.NullInt32](), aotsql.DbInt32, true},
		{reflect.TypeFor[sql.Null[float64]](), aotsql.DbDouble, true},
		{reflect.TypeFor[struct{ A int }](), aotsql.DbObject, true},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			got, nullable := aotsql.DbTypeOf(tt.typ)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.nullable, nullable)
		})
	}
}

func TestLookupDbType(t *testing.T) {
	dt, ok := aotsql.LookupDbType("github.com/google/uuid.UUID")
	require.True(t, ok)
	assert.Equal(t, aotsql.DbGuid, dt)

	dt, ok = aotsql.LookupDbType("github.com/shopspring/decimal.Decimal")
	require.True(t, ok)
	assert.Equal(t, aotsql.DbDecimal, dt)

	_, ok = aotsql.LookupDbType("example.com/geo.Point")
	assert.False(t, ok)
}

func TestParseDbType(t *testing.T) {
	dt, err := aotsql.ParseDbType("ansistring")
	require.NoError(t, err)
	assert.Equal(t, aotsql.DbAnsiString, dt)
	assert.Equal(t, "AnsiString", dt.String())

	_, err = aotsql.ParseDbType("varchar")
	assert.Error(t, err)
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		value string
		want  aotsql.Tag
	}{
		{"", aotsql.Tag{}},
		{"id", aotsql.Tag{Name: "id"}},
		{"-", aotsql.Tag{Skip: true}},
		{",inline", aotsql.Tag{Inline: true}},
		{"total,dir=out", aotsql.Tag{Name: "total", Direction: aotsql.Out}},
		{"total,inout", aotsql.Tag{Name: "total", Direction: aotsql.InOut}},
		{"rc,return", aotsql.Tag{Name: "rc", Direction: aotsql.Return}},
		{"name, size=50, type=AnsiString", aotsql.Tag{Name: "name", Size: 50, DbType: aotsql.DbAnsiString, HasDbType: true}},
		{"price,precision=10,scale=2,type=Decimal", aotsql.Tag{Name: "price", Precision: 10, Scale: 2, DbType: aotsql.DbDecimal, HasDbType: true}},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := aotsql.ParseTag(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"id,size=-1", "id,size=x", "id,dir=sideways", "id,type=varchar", "id,unique"} {
		_, err := aotsql.ParseTag(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDirection(t *testing.T) {
	d, err := aotsql.ParseDirection("InOut")
	require.NoError(t, err)
	assert.Equal(t, aotsql.InOut, d)
	assert.Equal(t, "inout", d.String())
	_, err = aotsql.ParseDirection("both")
	assert.Error(t, err)
}
