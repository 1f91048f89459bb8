package sites

import (
	"context"

	"github.com/syssam/aotsql"
)

const userColumns = "id, name"

type User struct {
	ID   int64
	Name string
}

type Filter struct {
	Org int32 `db:"org"`
}

func List(ctx context.Context, conn aotsql.Conn, f Filter) ([]User, error) {
	return aotsql.Query[User](ctx, conn, "SELECT "+userColumns+" FROM users WHERE org = @org", f)
}

func Get(ctx context.Context, conn aotsql.Conn, id int64) (User, error) {
	return aotsql.QueryRow[User](ctx, conn, "SELECT id, name FROM users WHERE id = @id", id, aotsql.WithRowKind(aotsql.Single))
}

func Touch(ctx context.Context, conn aotsql.Conn, table string) (int64, error) {
	return aotsql.Execute(ctx, conn, "UPDATE "+table+" SET seen = 1", nil)
}

func Count(ctx context.Context, conn aotsql.Conn, opts ...aotsql.CallOption) *aotsql.Task[int] {
	return aotsql.QueryRowAsync[int](ctx, conn, "SELECT COUNT(*) FROM users", nil, opts...)
}

func Twice(ctx context.Context, conn aotsql.Conn) {
	_, _ = aotsql.Execute(ctx, conn, "DELETE FROM a", nil); _, _ = aotsql.Execute(ctx, conn, "DELETE FROM b", nil)
}

func Later(ctx context.Context, conn aotsql.Conn) *aotsql.Task[[]User] {
	return aotsql.QueryAsync[User](ctx, conn, "SELECT id, name FROM users", nil, aotsql.Deferred())
}
