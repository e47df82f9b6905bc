package generic

import (
	"encoding/json"
	"errors"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert := assert_.New(t)

	ok := Ok(123)
	assert.True(ok.IsOk())
	assert.False(ok.IsErr())
	assert.Equal(123, ok.Unwrap())
	assert.True(ok.Ok().IsSome())
	v, err := ok.Parts()
	assert.Equal(123, v)
	assert.NoError(err)

	failure := errors.New("failure")
	bad := Err[int](failure)
	assert.True(bad.IsErr())
	assert.True(bad.Ok().IsNone())
	assert.Equal(456, bad.UnwrapOr(456))
	assert.PanicsWithError("tried to Unwrap() an Err: failure", func() { bad.Unwrap() })
	_, err = bad.Parts()
	assert.ErrorIs(err, failure)

	assert.Panics(func() { Err[int](nil) })
}

func TestOption(t *testing.T) {
	assert := assert_.New(t)

	some := Some("x")
	v, ok := some.Get()
	assert.True(ok)
	assert.Equal("x", v)
	assert.Equal("x", some.UnwrapOr("y"))
	assert.True(some.OkOr(errors.New("missing")).IsOk())

	none := None[string]()
	assert.True(none.IsNone())
	assert.Equal("y", none.UnwrapOr("y"))
	assert.True(none.OkOr(errors.New("missing")).IsErr())
}

func TestOptionJSON(t *testing.T) {
	assert := assert_.New(t)

	data, err := json.Marshal(map[string]Option[string]{"a": Some("file.zip"), "b": None[string]()})
	assert.NoError(err)
	assert.JSONEq(`{"a": "file.zip", "b": null}`, string(data))

	var decoded map[string]Option[string]
	assert.NoError(json.Unmarshal(data, &decoded))
	assert.Equal(Some("file.zip"), decoded["a"])
	assert.True(decoded["b"].IsNone())
}
