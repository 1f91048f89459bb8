package token

import "sort"

// Entry routes one normalized name to one member slot.
type Entry struct {
	Hash   uint32
	Name   string // normalized
	Source string // as declared
	Member int
}

// Coerced returns the token used when the column needs conversion before
// it can be assigned to the member. count is the number of members.
func (e Entry) Coerced(count int) int { return e.Member + count }

// Duplicate reports a member whose normalized name is already taken.
// The later member is not routed.
type Duplicate struct {
	Name     string // normalized
	Member   int
	Source   string
	Existing int
}

// Bucket groups entries sharing a hash, in member order.
type Bucket struct {
	Hash    uint32
	Entries []Entry
}

// Table resolves column names to member slots.
type Table struct {
	entries []Entry
	buckets map[uint32][]Entry
	hash    func(string) uint32
	count   int
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithHasher replaces HashNormalized. The function receives normalized names.
func WithHasher(h func(string) uint32) TableOption {
	return func(t *Table) { t.hash = h }
}

// NewTable builds a table over member names; the member slot of a name is
// its index in names.
func NewTable(names []string, opts ...TableOption) (*Table, []Duplicate) {
	t := &Table{
		buckets: make(map[uint32][]Entry, len(names)),
		hash:    HashNormalized,
		count:   len(names),
	}
	for _, opt := range opts {
		opt(t)
	}
	var (
		dups []Duplicate
		seen = make(map[string]int, len(names))
	)
	for i, name := range names {
		n := Normalize(name)
		if prev, ok := seen[n]; ok {
			dups = append(dups, Duplicate{Name: n, Member: i, Source: name, Existing: prev})
			continue
		}
		seen[n] = i
		e := Entry{Hash: t.hash(n), Name: n, Source: name, Member: i}
		t.entries = append(t.entries, e)
		t.buckets[e.Hash] = append(t.buckets[e.Hash], e)
	}
	return t, dups
}

// Count returns the number of member slots, including unrouted duplicates.
func (t *Table) Count() int { return t.count }

// Entries returns the routed entries in member order.
func (t *Table) Entries() []Entry { return t.entries }

// Buckets returns entries grouped by hash, ordered by hash value.
func (t *Table) Buckets() []Bucket {
	out := make([]Bucket, 0, len(t.buckets))
	for h, es := range t.buckets {
		out = append(out, Bucket{Hash: h, Entries: es})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// Resolve returns the member slot for a column name, or Skip.
func (t *Table) Resolve(column string) int {
	return t.ResolveNormalized(Normalize(column))
}

// ResolveNormalized is Resolve for an already normalized name. A hash
// match alone never routes a column: every candidate is compared exactly.
func (t *Table) ResolveNormalized(n string) int {
	for _, e := range t.buckets[t.hash(n)] {
		if e.Name == n {
			return e.Member
		}
	}
	return Skip
}
