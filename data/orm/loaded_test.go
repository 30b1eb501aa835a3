package orm

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type gadget struct{ ID int64 }

func TestRef_NotLoaded(t *testing.T) {
	var r Ref[widget]

	assert.False(t, r.IsLoaded())
	_, err := r.Get()
	assert.ErrorIs(t, err, ErrAssociationNotLoaded)
	_, err = r.LoadedValues()
	assert.ErrorIs(t, err, ErrAssociationNotLoaded)
	assert.Panics(t, func() { r.MustGet() })
	assert.Equal(t, CardinalityOne, r.Cardinality())
	assert.Equal(t, reflect.TypeOf(widget{}), r.TargetType())
}

func TestRef_LoadValues(t *testing.T) {
	var r Ref[widget]
	w := &widget{ID: 1}

	require.NoError(t, r.LoadValues([]any{w, &widget{ID: 2}}))
	assert.True(t, r.IsLoaded())
	assert.Same(t, w, r.MustGet())

	values, err := r.LoadedValues()
	require.NoError(t, err)
	assert.Equal(t, []any{w}, values)

	require.NoError(t, r.LoadValues(nil))
	assert.True(t, r.IsLoaded())
	assert.Nil(t, r.MustGet())
	values, err = r.LoadedValues()
	require.NoError(t, err)
	assert.Empty(t, values)

	err = r.LoadValues([]any{&gadget{ID: 1}})
	assert.ErrorIs(t, err, ErrHeterogeneousInput)

	r.Reset()
	assert.False(t, r.IsLoaded())
}

func TestMany_LoadValues(t *testing.T) {
	var m Many[widget]
	assert.False(t, m.IsLoaded())
	_, err := m.Items()
	assert.ErrorIs(t, err, ErrAssociationNotLoaded)
	assert.Equal(t, 0, m.Len())

	a, b := &widget{ID: 1}, &widget{ID: 2}
	require.NoError(t, m.LoadValues([]any{a, nil, b}))
	items := m.MustItems()
	require.Len(t, items, 2)
	assert.Same(t, a, items[0])
	assert.Same(t, b, items[1])

	require.NoError(t, m.LoadValues(nil))
	items, err = m.Items()
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	err = m.LoadValues([]any{a, &gadget{}})
	assert.ErrorIs(t, err, ErrHeterogeneousInput)
}

func TestLoadedConstructors(t *testing.T) {
	m := LoadedMany[widget]()
	assert.True(t, m.IsLoaded())
	assert.NotNil(t, m.MustItems())

	r := LoadedRef[widget](nil)
	assert.True(t, r.IsLoaded())
	assert.Nil(t, r.MustGet())

	var _ Loadable = &m
	var _ Loadable = &r
}

func TestLoaded_MarshalJSON(t *testing.T) {
	type holder struct {
		One  Ref[widget]  `json:"one"`
		Many Many[widget] `json:"many"`
	}

	data, err := json.Marshal(holder{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"one":null,"many":null}`, string(data))

	data, err = json.Marshal(holder{
		One:  LoadedRef(&widget{ID: 1, Name: "a"}),
		Many: LoadedMany[widget](),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"one":{"id":1,"name":"a"},"many":[]}`, string(data))
}
