package accessor

import (
	"database/sql"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Status int

type widget struct {
	ID     int64
	Name   string
	Status Status
	Note   *string
}

// widgetAccessor is written by hand the way generated accessors dispatch.
type widgetAccessor struct{}

var widgetNames = [...]string{"ID", "Name", "Status", "Note"}

func (widgetAccessor) MemberCount() int { return len(widgetNames) }

func (widgetAccessor) Name(i int) (string, error) {
	if err := CheckIndex(i, len(widgetNames)); err != nil {
		return "", err
	}
	return widgetNames[i], nil
}

func (widgetAccessor) Type(i int) (reflect.Type, error) {
	switch i {
	case 0:
		return reflect.TypeFor[int64](), nil
	case 1:
		return reflect.TypeFor[string](), nil
	case 2:
		return reflect.TypeFor[Status](), nil
	case 3:
		return reflect.TypeFor[*string](), nil
	}
	return nil, CheckIndex(i, len(widgetNames))
}

func (widgetAccessor) IsNullable(i int) (bool, error) {
	if err := CheckIndex(i, len(widgetNames)); err != nil {
		return false, err
	}
	return i == 3, nil
}

func (widgetAccessor) IndexOf(name string) (int, error) {
	for i, n := range widgetNames {
		if n == name {
			return i, nil
		}
	}
	return -1, &MemberNotFoundError{Type: "widget", Name: name}
}

func (widgetAccessor) Get(w *widget, i int) (any, error) {
	switch i {
	case 0:
		return w.ID, nil
	case 1:
		return w.Name, nil
	case 2:
		return w.Status, nil
	case 3:
		return w.Note, nil
	}
	return nil, CheckIndex(i, len(widgetNames))
}

func (widgetAccessor) Set(w *widget, i int, v any) error {
	var ok bool
	switch i {
	case 0:
		w.ID, ok = v.(int64)
	case 1:
		w.Name, ok = v.(string)
	case 2:
		w.Status, ok = v.(Status)
	case 3:
		w.Note, ok = v.(*string)
	default:
		return CheckIndex(i, len(widgetNames))
	}
	if !ok {
		return &TypeMismatchError{Member: widgetNames[i], Want: reflect.TypeOf(v)}
	}
	return nil
}

func (widgetAccessor) Addr(w *widget, i int) (unsafe.Pointer, error) {
	switch i {
	case 0:
		return unsafe.Pointer(&w.ID), nil
	case 1:
		return unsafe.Pointer(&w.Name), nil
	case 2:
		return unsafe.Pointer(&w.Status), nil
	case 3:
		return unsafe.Pointer(&w.Note), nil
	}
	return nil, CheckIndex(i, len(widgetNames))
}

func TestContract(t *testing.T) {
	accessors := map[string]Accessor[widget]{
		"handwritten": widgetAccessor{},
		"reflect":     Reflect[widget](),
	}
	for name, a := range accessors {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, 4, a.MemberCount())

			_, err := a.Name(4)
			require.True(t, IsIndexOutOfRange(err))
			var oor *IndexOutOfRangeError
			require.ErrorAs(t, err, &oor)
			assert.Equal(t, 4, oor.Index)
			assert.Equal(t, 4, oor.Count)

			_, err = a.Name(-1)
			require.ErrorIs(t, err, ErrIndexOutOfRange)
			_, err = a.Type(4)
			require.ErrorIs(t, err, ErrIndexOutOfRange)
			_, err = a.IsNullable(-1)
			require.ErrorIs(t, err, ErrIndexOutOfRange)

			var w widget
			_, err = GetByName(a, &w, "unknown")
			require.True(t, IsMemberNotFound(err))
			require.ErrorIs(t, SetByName(a, &w, "unknown", 1), ErrMemberNotFound)
			assert.False(t, IsIndexOutOfRange(err))

			idx, err := a.IndexOf("Status")
			require.NoError(t, err)
			require.NoError(t, SetValue[int](a, &w, idx, 5))
			v, err := GetValue[int](a, &w, idx)
			require.NoError(t, err)
			assert.Equal(t, 5, v)
			assert.Equal(t, Status(5), w.Status)

			_, err = GetValue[string](a, &w, idx)
			require.ErrorIs(t, err, ErrTypeMismatch)
			_, err = GetValue[int32](a, &w, idx)
			require.ErrorIs(t, err, ErrTypeMismatch)
			_, err = GetValue[int](a, &w, 9)
			require.ErrorIs(t, err, ErrIndexOutOfRange)

			require.NoError(t, SetByName(a, &w, "Name", "gear"))
			got, err := GetByName(a, &w, "Name")
			require.NoError(t, err)
			assert.Equal(t, "gear", got)

			nullable, err := a.IsNullable(3)
			require.NoError(t, err)
			assert.True(t, nullable)
		})
	}
}

type audit struct {
	CreatedBy string `db:"created_by"`
}

type order struct {
	audit
	ID      int32          `db:"id"`
	Total   float64        `db:"total"`
	Code    string         `db:"code"`
	Memo    sql.NullString `db:"memo"`
	Ref     *int64         `db:"ref"`
	Secret  string         `db:"-"`
	Payload []byte         `db:"payload"`
	hidden  int
}

func TestReflect(t *testing.T) {
	a := Reflect[order]()
	assert.Equal(t, a, Reflect[order]())
	require.Equal(t, 7, a.MemberCount())

	names := make([]string, a.MemberCount())
	for i := range names {
		names[i], _ = a.Name(i)
	}
	assert.Equal(t, []string{"created_by", "id", "total", "code", "memo", "ref", "payload"}, names)

	i, err := a.IndexOf("ID")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	_, err = a.IndexOf("Secret")
	require.ErrorIs(t, err, ErrMemberNotFound)

	memo, _ := a.IndexOf("memo")
	nullable, err := a.IsNullable(memo)
	require.NoError(t, err)
	assert.True(t, nullable)
	nullable, err = a.IsNullable(i)
	require.NoError(t, err)
	assert.False(t, nullable)

	var o order
	require.NoError(t, SetByName(a, &o, "id", int64(7)))
	require.NoError(t, SetByName(a, &o, "total", int64(3)))
	require.NoError(t, SetByName(a, &o, "code", []byte("X1")))
	require.NoError(t, SetByName(a, &o, "memo", "note"))
	require.NoError(t, SetByName(a, &o, "ref", int64(9)))
	require.NoError(t, SetByName(a, &o, "created_by", "root"))
	require.NoError(t, SetByName(a, &o, "payload", []byte{1, 2}))
	assert.Equal(t, int32(7), o.ID)
	assert.Equal(t, 3.0, o.Total)
	assert.Equal(t, "X1", o.Code)
	assert.Equal(t, sql.NullString{String: "note", Valid: true}, o.Memo)
	require.NotNil(t, o.Ref)
	assert.Equal(t, int64(9), *o.Ref)
	assert.Equal(t, "root", o.CreatedBy)
	assert.Equal(t, []byte{1, 2}, o.Payload)

	require.NoError(t, SetByName(a, &o, "id", "12"))
	assert.Equal(t, int32(12), o.ID)
	require.NoError(t, SetByName(a, &o, "ref", nil))
	assert.Nil(t, o.Ref)

	require.ErrorIs(t, SetByName(a, &o, "id", int64(1)<<40), ErrTypeMismatch)
	require.ErrorIs(t, SetByName(a, &o, "id", "abc"), ErrTypeMismatch)
	require.ErrorIs(t, SetByName(a, &o, "total", struct{}{}), ErrTypeMismatch)

	v, err := GetValue[float64](a, &o, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

type money struct {
	Amount   int64
	Currency string `db:"currency"`
}

type invoice struct {
	ID    int64
	Price money `db:",inline"`
	Due   money `db:"due"`
	Skip  money `db:"-"`
	Gross money `db:"gross,inline"`
}

func TestReflectInline(t *testing.T) {
	a := Reflect[invoice]()
	names := make([]string, a.MemberCount())
	for i := range names {
		names[i], _ = a.Name(i)
	}
	// Gross repeats the names of Price; the first field wins.
	assert.Equal(t, []string{"ID", "Amount", "currency", "due"}, names)

	var inv invoice
	require.NoError(t, SetByName(a, &inv, "currency", "EUR"))
	require.NoError(t, SetByName(a, &inv, "amount", int64(120)))
	assert.Equal(t, money{Amount: 120, Currency: "EUR"}, inv.Price)
}

func TestDynamic(t *testing.T) {
	d := ReflectType(reflect.TypeFor[order]())
	assert.Equal(t, 7, d.MemberCount())

	i, err := d.IndexOf("total")
	require.NoError(t, err)
	tag, err := d.Tag(i)
	require.NoError(t, err)
	assert.Equal(t, "total", tag.Get("db"))

	o := order{Total: 1.5}
	v := reflect.ValueOf(&o).Elem()
	f, err := d.Field(v, i)
	require.NoError(t, err)
	assert.Equal(t, 1.5, f.Float())

	require.NoError(t, d.Assign(v, i, "2.25"))
	assert.Equal(t, 2.25, o.Total)

	_, err = d.Field(v, 7)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = d.IndexOf("nope")
	require.ErrorIs(t, err, ErrMemberNotFound)
}
