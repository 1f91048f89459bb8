package aotsql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/aotsql"
	"github.com/syssam/aotsql/sqlshape"
)

func TestResolve(t *testing.T) {
	var (
		rows      = sqlshape.Reliable | sqlshape.ReturnsRows
		noRows    = sqlshape.Reliable
		proc      = sqlshape.Reliable | sqlshape.MaybeQuery
		dynamic   = sqlshape.ReturnsRows
		row       = aotsql.ElemShape{}
		integer   = aotsql.ElemShape{Scalar: true, Integer: true}
		text      = aotsql.ElemShape{Scalar: true, Reference: false}
		reference = aotsql.ElemShape{Reference: true}
	)
	tests := []struct {
		name string
		in   aotsql.Input
		want string
	}{
		{"Execute", aotsql.Input{Verb: aotsql.VerbExecute, Shape: noRows}, "Execute/sync"},
		{"ExecuteProc", aotsql.Input{Verb: aotsql.VerbExecute, Shape: proc}, "Execute/sync"},
		{"ExecuteTask", aotsql.Input{Verb: aotsql.VerbExecute, Async: aotsql.AsyncTask, Shape: noRows}, "Execute/task"},
		{"ExecuteScalar", aotsql.Input{Verb: aotsql.VerbExecuteScalar, Elem: integer, Shape: rows}, "ExecuteScalar/sync"},
		{"ExecuteScalarNoRows", aotsql.Input{Verb: aotsql.VerbExecuteScalar, Elem: integer, Shape: noRows}, "ExecuteScalar/sync/checked"},
		{"Slice", aotsql.Input{Verb: aotsql.VerbQuery, Container: aotsql.ContainerSlice, Shape: rows}, "QuerySequence/sync/buffered"},
		{"SliceTask", aotsql.Input{Verb: aotsql.VerbQuery, Container: aotsql.ContainerSlice, Async: aotsql.AsyncTask, Shape: rows}, "QuerySequence/task/buffered"},
		{"SliceDeferred", aotsql.Input{Verb: aotsql.VerbQuery, Container: aotsql.ContainerSlice, Async: aotsql.AsyncDeferred, Shape: rows}, "QuerySequence/deferred/buffered"},
		{"Iter", aotsql.Input{Verb: aotsql.VerbQuery, Container: aotsql.ContainerIter, Shape: rows}, "QuerySequence/sync/unbuffered"},
		{"Stream", aotsql.Input{Verb: aotsql.VerbQuery, Container: aotsql.ContainerStream, Shape: rows}, "QuerySequence/stream/unbuffered"},
		{"SliceProc", aotsql.Input{Verb: aotsql.VerbQuery, Container: aotsql.ContainerSlice, Shape: proc}, "QuerySequence/sync/buffered/checked"},
		{"RowAutomatic", aotsql.Input{Verb: aotsql.VerbQueryRow, Elem: row, Shape: rows}, "QueryFirst/sync"},
		{"RowReference", aotsql.Input{Verb: aotsql.VerbQueryRow, Elem: reference, Shape: rows}, "QueryFirst/sync"},
		{"RowSingle", aotsql.Input{Verb: aotsql.VerbQueryRow, RowKind: aotsql.Single, Elem: row, Shape: rows}, "QuerySingle/sync"},
		{"RowSingleOrDefault", aotsql.Input{Verb: aotsql.VerbQueryRow, RowKind: aotsql.SingleOrDefault, Elem: row, Shape: rows}, "QuerySingleOrDefault/sync"},
		{"RowFirstOrDefaultTask", aotsql.Input{Verb: aotsql.VerbQueryRow, RowKind: aotsql.FirstOrDefault, Async: aotsql.AsyncTask, Elem: row, Shape: rows}, "QueryFirstOrDefault/task"},
		{"ScalarAutomatic", aotsql.Input{Verb: aotsql.VerbQueryRow, Elem: text, Shape: rows}, "QueryScalar/sync"},
		{"ScalarFirst", aotsql.Input{Verb: aotsql.VerbQueryRow, RowKind: aotsql.First, Elem: text, Shape: rows}, "QueryFirst/sync"},
		{"ScalarAffectedRows", aotsql.Input{Verb: aotsql.VerbQueryRow, Elem: integer, Shape: noRows}, "Execute/sync"},
		{"ScalarProc", aotsql.Input{Verb: aotsql.VerbQueryRow, Elem: integer, Shape: proc}, "QueryScalar/sync/checked"},
		{"ScalarDynamicText", aotsql.Input{Verb: aotsql.VerbQueryRow, Elem: integer, Shape: dynamic}, "QueryScalar/sync"},
		{"RowProc", aotsql.Input{Verb: aotsql.VerbQueryRow, Elem: row, Shape: proc}, "QueryFirst/sync/checked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := aotsql.Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.String())
		})
	}
}

func TestResolveErrors(t *testing.T) {
	_, err := aotsql.Resolve(aotsql.Input{
		Verb:  aotsql.VerbQueryRow,
		Elem:  aotsql.ElemShape{Scalar: true},
		Shape: sqlshape.Reliable,
	})
	require.Error(t, err)
	assert.True(t, aotsql.IsStrategyError(err))

	_, err = aotsql.Resolve(aotsql.Input{Verb: aotsql.VerbQueryRow, RowKind: aotsql.RowKind(42), Shape: sqlshape.ReturnsRows})
	assert.True(t, aotsql.IsStrategyError(err))

	_, err = aotsql.Resolve(aotsql.Input{Verb: aotsql.Verb(9)})
	assert.True(t, aotsql.IsStrategyError(err))
}

func TestResolveAsyncIsOrthogonal(t *testing.T) {
	for _, async := range []aotsql.Async{aotsql.Sync, aotsql.AsyncTask, aotsql.AsyncDeferred} {
		for _, kind := range []aotsql.RowKind{aotsql.Automatic, aotsql.First, aotsql.FirstOrDefault, aotsql.Single, aotsql.SingleOrDefault} {
			in := aotsql.Input{Verb: aotsql.VerbQueryRow, RowKind: kind, Shape: sqlshape.Reliable | sqlshape.ReturnsRows}
			sync, err := aotsql.Resolve(in)
			require.NoError(t, err)
			in.Async = async
			got, err := aotsql.Resolve(in)
			require.NoError(t, err)
			assert.Equal(t, sync.Kind, got.Kind)
			assert.Equal(t, async, got.Async)
		}
	}
}

func TestParseRowKind(t *testing.T) {
	k, err := aotsql.ParseRowKind("singleordefault")
	require.NoError(t, err)
	assert.Equal(t, aotsql.SingleOrDefault, k)
	assert.Equal(t, "SingleOrDefault", k.String())

	_, err = aotsql.ParseRowKind("many")
	assert.Error(t, err)
	assert.Equal(t, "RowKind(9)", aotsql.RowKind(9).String())
	assert.Equal(t, "QuerySequence", aotsql.KindSequence.String())
}
