package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"id", "id"},
		{"UserId", "userid"},
		{"user_id", "userid"},
		{" User Id ", "userid"},
		{`"UserId"`, "userid"},
		{"[User_Id]", "userid"},
		{"`user id`", "userid"},
		{` "Order_Id" `, "orderid"},
		{`[[x]]`, "x"},
		{`a"b`, `a"b`},
		{`[a]b`, `[a]b`},
		{`"O'Brien""s"`, `o'brien""s`},
		{`""`, ""},
		{"ÉCOLE", "école"},
		{"Kelvin", "kelvin"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func FuzzNormalizeIdempotent(f *testing.F) {
	for _, s := range []string{"", "id", "User_Id", "[x]", "\"\"", "Straße", "_\"x\"_", "\"_\"x\"", "ǅemal", "ΣΑΣ", "K", "a b", "ﬃ"} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once))
	})
}

func TestHash(t *testing.T) {
	assert.Equal(t, Hash("UserId"), Hash("user_id"))
	assert.Equal(t, HashNormalized("userid"), Hash("USER ID"))
	assert.NotEqual(t, Hash("id"), Hash("name"))
}

func TestTableResolve(t *testing.T) {
	tbl, dups := NewTable([]string{"Id", "Name", "CreatedAt"})
	require.Empty(t, dups)
	assert.Equal(t, 3, tbl.Count())
	assert.Equal(t, 0, tbl.Resolve("id"))
	assert.Equal(t, 1, tbl.Resolve("NAME"))
	assert.Equal(t, 2, tbl.Resolve("created_at"))
	assert.Equal(t, Skip, tbl.Resolve("unknown"))
}

func TestTableCollision(t *testing.T) {
	// every name lands in one bucket; only the exact compare separates them.
	tbl, dups := NewTable([]string{"alpha", "beta", "gamma"}, WithHasher(func(string) uint32 { return 42 }))
	require.Empty(t, dups)
	buckets := tbl.Buckets()
	require.Len(t, buckets, 1)
	assert.Len(t, buckets[0].Entries, 3)

	assert.Equal(t, 0, tbl.Resolve("Alpha"))
	assert.Equal(t, 1, tbl.Resolve("beta"))
	assert.Equal(t, 2, tbl.Resolve("GAMMA"))
	assert.Equal(t, Skip, tbl.Resolve("delta"))
}

func TestTableDuplicates(t *testing.T) {
	tbl, dups := NewTable([]string{"UserId", "Name", "user_id"})
	require.Len(t, dups, 1)
	assert.Equal(t, Duplicate{Name: "userid", Member: 2, Source: "user_id", Existing: 0}, dups[0])
	assert.Equal(t, 0, tbl.Resolve("USERID"))
	assert.Len(t, tbl.Entries(), 2)
}

func TestEntryCoerced(t *testing.T) {
	tbl, _ := NewTable([]string{"a", "b"})
	e := tbl.Entries()[1]
	assert.Equal(t, 3, e.Coerced(tbl.Count()))
}

func TestBucketsOrdered(t *testing.T) {
	tbl, _ := NewTable([]string{"a", "b", "c", "d"})
	buckets := tbl.Buckets()
	for i := 1; i < len(buckets); i++ {
		assert.Less(t, buckets[i-1].Hash, buckets[i].Hash)
	}
}
