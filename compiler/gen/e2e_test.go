package gen

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeSrc = `package store

import (
	"context"

	"github.com/syssam/aotsql"
)

type Status int32

const (
	Active Status = 1
	Locked Status = 2
)

type User struct {
	ID    int64
	Name  string
	Email *string
	State Status
	Org   int32
}

type Filter struct {
	Org int32 ` + "`db:\"org\"`" + `
}

type ByID struct {
	UserID int64
}

func Setup(ctx context.Context, conn aotsql.Conn) error {
	_, err := aotsql.Execute(ctx, conn, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT, state INTEGER NOT NULL, org INTEGER NOT NULL)", nil)
	return err
}

func Insert(ctx context.Context, conn aotsql.Conn, u User) (int64, error) {
	return aotsql.Execute(ctx, conn, "INSERT INTO users (id, name, email, state, org) VALUES (@ID, @Name, @Email, @State, @Org)", u)
}

func List(ctx context.Context, conn aotsql.Conn, f Filter) ([]User, error) {
	return aotsql.Query[User](ctx, conn, "SELECT id, name, email, state FROM users WHERE org = @org ORDER BY id", f)
}

func Single(ctx context.Context, conn aotsql.Conn, f Filter) (User, error) {
	return aotsql.QuerySingle[User](ctx, conn, "SELECT id, name, email, state FROM users WHERE org = @org", f)
}

func Where(ctx context.Context, conn aotsql.Conn, where string, p ByID) ([]User, error) {
	return aotsql.Query[User](ctx, conn, "SELECT id, name, email, state FROM users WHERE "+where, p)
}
`

const storeTestSrc = `package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/aotsql"
	"github.com/syssam/aotsql/dialect"
	dsql "github.com/syssam/aotsql/dialect/sql"
)

var siteLines = %#v

const pkgPath = %q

func TestStore(t *testing.T) {
	for _, line := range siteLines {
		assert.True(t, aotsql.Intercepted(aotsql.CallSite{Package: pkgPath, File: "store.go", Line: line}), "line %%d", line)
	}

	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	conn := dsql.OpenDB(dialect.SQLite, db)
	require.NoError(t, Setup(ctx, conn))

	mail := "ann@example.com"
	for _, u := range []User{
		{ID: 1, Name: "ann", Email: &mail, State: Active, Org: 7},
		{ID: 2, Name: "bob", State: Locked, Org: 7},
		{ID: 3, Name: "cid", State: Active, Org: 8},
	} {
		n, err := Insert(ctx, conn, u)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}

	users, err := List(ctx, conn, Filter{Org: 7})
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.NotNil(t, users[0].Email)
	assert.Equal(t, mail, *users[0].Email)
	assert.Nil(t, users[1].Email)
	assert.Equal(t, Active, users[0].State)
	assert.Equal(t, Locked, users[1].State)

	_, err = Single(ctx, conn, Filter{Org: 7})
	assert.True(t, aotsql.IsNotSingular(err), "%%v", err)
	u, err := Single(ctx, conn, Filter{Org: 8})
	require.NoError(t, err)
	assert.Equal(t, "cid", u.Name)

	users, err = Where(ctx, conn, "id = @user_id", ByID{UserID: 2})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Name)
}
`

// siteLinesOf returns the lines of src holding an aotsql call.
func siteLinesOf(src string) []int {
	var lines []int
	for i, l := range strings.Split(src, "\n") {
		if strings.Contains(l, "aotsql.Execute(") || strings.Contains(l, "aotsql.Query") {
			lines = append(lines, i+1)
		}
	}
	return lines
}

// TestGeneratedPackageRuns generates handlers for a package inside this
// module, then builds and tests that package against SQLite.
func TestGeneratedPackageRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a generated package")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go tool not found")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dir, err := os.MkdirTemp(".", "e2e")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	dir, err = filepath.Abs(dir)
	require.NoError(t, err)
	pkgPath := "github.com/syssam/aotsql/compiler/gen/" + filepath.Base(dir)
	lines := siteLinesOf(storeSrc)
	require.Len(t, lines, 5)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "store.go"), []byte(storeSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "store_test.go"), fmt.Appendf(nil, storeTestSrc, lines, pkgPath), 0o644))

	cfg := MustNewConfig(WithLogger(zerolog.New(io.Discard)))
	res, stats, err := Run(ctx, cfg, dir, ".")
	require.NoError(t, err)
	require.False(t, res.Diagnostics.HasErrors(), "%v", res.Diagnostics)
	require.Len(t, res.Files, 1)
	assert.Equal(t, len(lines), res.Files[0].Sites)
	assert.Equal(t, 1, stats.Written)

	var unknown []int
	for _, d := range res.Diagnostics {
		if d.Code == CodeUnknownColumns {
			assert.Equal(t, Info, d.Severity)
			unknown = append(unknown, d.Pos.Line)
		}
	}
	assert.Equal(t, lines[len(lines)-1:], unknown, "only the dynamic site matches columns at run time")

	cmd := exec.CommandContext(ctx, goBin, "test", "-count=1", ".")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s", out)
}
