package sqlshape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/aotsql/dialect"
)

func TestClassifyText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		flags Flags
		names []string
	}{
		{"select", "SELECT id, name FROM users WHERE id = @id", Reliable | ReturnsRows, []string{"id"}},
		{"update", "UPDATE users SET name = @name WHERE id = @id", Reliable, []string{"name", "id"}},
		{"insert returning", "INSERT INTO t (a) VALUES (@a) RETURNING id", Reliable | ReturnsRows, []string{"a"}},
		{"output clause", "DELETE FROM t OUTPUT deleted.id WHERE id = @id", Reliable | ReturnsRows, []string{"id"}},
		{"exec", "EXEC dbo.Touch @x", Reliable | MaybeQuery, []string{"x"}},
		{"call", "call refresh()", Reliable | MaybeQuery, nil},
		{"batch", "SELECT 1; SELECT 2", Reliable | ReturnsRows | IsBatch, nil},
		{"trailing separator", "SELECT 1;  ", Reliable | ReturnsRows, nil},
		{"with cte", "WITH x AS (SELECT 1) SELECT * FROM x", Reliable | ReturnsRows, nil},
		{"parenthesized", "(SELECT 1) UNION (SELECT 2)", Reliable | ReturnsRows, nil},
		{"leading comment", "-- list users\n/* all */ SELECT * FROM users", Reliable | ReturnsRows, nil},
		{"lowercase", "select * from t where a = :a", Reliable | ReturnsRows, []string{"a"}},
		{"markers in literals", "SELECT '@s', \"@q\", `@b` FROM t -- @c\nWHERE x = :x AND y::int = 1", Reliable | ReturnsRows, []string{"x"}},
		{"dollar block", "SELECT $tag$ @inside $tag$, $1 FROM t WHERE a = @a", Reliable | ReturnsRows, []string{"a"}},
		{"server variable", "SELECT @@ROWCOUNT", Reliable | ReturnsRows, nil},
		{"declared local", "DECLARE @n INT = 1; SELECT @n + @x", Reliable | ReturnsRows | IsBatch, []string{"x"}},
		{"declared list", "DECLARE @a INT, @b DECIMAL(10, 2) = @p; SELECT @a + @b", Reliable | ReturnsRows | IsBatch, []string{"p"}},
		{"case insensitive names", "SELECT * FROM t WHERE a = @Id OR b = @id", Reliable | ReturnsRows, []string{"Id"}},
		{"bracket identifier", "SELECT [@name] FROM [dbo].[t] WHERE a = @a", Reliable | ReturnsRows, []string{"a"}},
		{"empty", "", Reliable, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ClassifyText(tt.text)
			assert.Equal(t, tt.flags, s.Flags, "got %s", s.Flags)
			assert.Equal(t, tt.names, s.Names())
			assert.NoError(t, s.Err)
		})
	}
}

func TestClassifyDeclareNames(t *testing.T) {
	tests := []struct {
		text  string
		names []string
	}{
		{"DECLARE @a INT, @b INT, @c INT = @d", []string{"d"}},
		{"DECLARE @t TABLE (id INT, name TEXT), @u INT", nil},
		{"DECLARE @a INT SELECT @a, @b", []string{"b"}},
		{"DECLARE @a INT; SELECT @x, @y", []string{"x", "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.names, ClassifyText(tt.text).Names())
		})
	}
}

func TestClassifySyntaxError(t *testing.T) {
	tests := []struct {
		text string
		err  error
	}{
		{"SELECT 'abc", ErrUnterminatedString},
		{`SELECT "abc`, ErrUnterminatedIdent},
		{"SELECT [abc", ErrUnterminatedIdent},
		{"SELECT 1 /* x", ErrUnterminatedComment},
		{"SELECT $$abc", ErrUnterminatedDollar},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s := ClassifyText(tt.text)
			assert.True(t, s.Has(SyntaxError))
			assert.ErrorIs(t, s.Err, tt.err)
		})
	}
}

func TestClassifyBraceMarkers(t *testing.T) {
	s := ClassifyText("SELECT * FROM t WHERE id = {{id}} AND name = {{ name }} AND x = @x")
	require.True(t, s.Has(SyntaxAdjusted))
	assert.Equal(t, "SELECT * FROM t WHERE id = @id AND name = @name AND x = @x", s.Text)
	assert.Equal(t, []string{"id", "name", "x"}, s.Names())
	for _, m := range s.Markers {
		assert.Equal(t, "@"+m.Name, s.Text[m.Start:m.End])
	}

	plain := ClassifyText("SELECT * FROM t WHERE id = @id")
	assert.False(t, plain.Has(SyntaxAdjusted))
}

func TestClassifySegments(t *testing.T) {
	t.Run("dynamic", func(t *testing.T) {
		s := Classify(Literal("SELECT * FROM "), Segment{Dynamic: true}, Literal(" WHERE id = @id"))
		assert.False(t, s.Has(Reliable))
		assert.True(t, s.Has(ReturnsRows))
		assert.Equal(t, []string{"id"}, s.Names())
		assert.Equal(t, "SELECT * FROM  WHERE id = @id", s.Source)
	})
	t.Run("holes", func(t *testing.T) {
		s := Classify(Literal("SELECT * FROM t WHERE id = "), Segment{Hole: true}, Literal(" AND n = "), Segment{Hole: true})
		assert.True(t, s.Has(Reliable))
		assert.Equal(t, 2, s.Holes)
		assert.Equal(t, []string{"__p0", "__p1"}, s.Names())
	})
}

func TestShapeWith(t *testing.T) {
	s := ClassifyText("SELECT 1")
	d := s.With(HasDynamicParameterBag)
	assert.True(t, d.Has(HasDynamicParameterBag))
	assert.False(t, s.Has(HasDynamicParameterBag))
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "None", Flags(0).String())
	assert.Equal(t, "Reliable|ReturnsRows", (Reliable | ReturnsRows).String())
}

func TestRender(t *testing.T) {
	s := ClassifyText("SELECT * FROM t WHERE a = @a AND b = :b OR c = @A")
	tests := []struct {
		style dialect.Placeholder
		text  string
		order []string
	}{
		{dialect.Named, "SELECT * FROM t WHERE a = @a AND b = @b OR c = @a", []string{"a", "b"}},
		{dialect.Question, "SELECT * FROM t WHERE a = ? AND b = ? OR c = ?", []string{"a", "b", "a"}},
		{dialect.Dollar, "SELECT * FROM t WHERE a = $1 AND b = $2 OR c = $1", []string{"a", "b"}},
		{dialect.AtP, "SELECT * FROM t WHERE a = @p1 AND b = @p2 OR c = @p1", []string{"a", "b"}},
		{dialect.ColonNum, "SELECT * FROM t WHERE a = :1 AND b = :2 OR c = :1", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.style.String(), func(t *testing.T) {
			text, order := Render(s, tt.style)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.order, order)
		})
	}

	text, order := Render(ClassifyText("SELECT 1"), dialect.Dollar)
	assert.Equal(t, "SELECT 1", text)
	assert.Empty(t, order)
}

func TestCache(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)
	a := c.Classify("SELECT 1")
	b := c.Classify("SELECT 1")
	assert.Same(t, a, b)
	assert.Equal(t, 1, c.Len())

	c.Classify("SELECT 2")
	c.Classify("SELECT 3")
	assert.Equal(t, 2, c.Len())

	_, err = NewCache(0)
	require.Error(t, err)

	require.NoError(t, SetCacheSize(8))
	assert.Same(t, Lookup("SELECT 4"), Lookup("SELECT 4"))
}
