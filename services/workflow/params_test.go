package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		in    string
		want  Ref
		isRef bool
	}{
		{"$1.output", Ref{NodeID: "1", Field: "output"}, true},
		{"$abc", Ref{NodeID: "abc"}, true},
		{"$n.a.b", Ref{NodeID: "n", Field: "a.b"}, true},
		{"$1.", Ref{NodeID: "1"}, true},
		{"$", Ref{}, false},
		{"plain", Ref{}, false},
		{"cost $5", Ref{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRef(tt.in)
			assert.Equal(t, tt.isRef, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParamValue_UnmarshalVariants(t *testing.T) {
	var p Params
	err := json.Unmarshal([]byte(`{"s":"hi","n":4.5,"b":true,"z":null,"r":"$2.output"}`), &p)
	require.NoError(t, err)

	assert.Equal(t, KindString, p["s"].Kind())
	assert.Equal(t, KindNumber, p["n"].Kind())
	assert.Equal(t, KindBool, p["b"].Kind())
	assert.Equal(t, KindNull, p["z"].Kind())
	assert.Equal(t, KindRef, p["r"].Kind())

	r, ok := p["r"].Ref()
	require.True(t, ok)
	assert.Equal(t, "2", r.NodeID)
	n, _ := p["n"].Num()
	assert.Equal(t, 4.5, n)
}

func TestText_KeepsWireToken(t *testing.T) {
	for _, token := range []string{"$1.output", "$abc", "$1.", "$n.a.b"} {
		v := Text(token)
		assert.Equal(t, KindRef, v.Kind(), token)
		assert.Equal(t, token, v.Interface(), token)
	}
	assert.Equal(t, Text("$1.output"), OutputOf("1"))
}

func TestParamValue_RejectsComposites(t *testing.T) {
	var p Params
	assert.Error(t, json.Unmarshal([]byte(`{"a":[1,2]}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"a":{"b":1}}`), &p))
}

func TestParamValue_MarshalKeepsTokenForm(t *testing.T) {
	data, err := json.Marshal(Params{"body": OutputOf("7"), "n": Number(3), "flag": Bool(false), "none": Null()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"body":"$7.output","n":3,"flag":false,"none":null}`, string(data))
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface("$3.output")
	require.NoError(t, err)
	assert.Equal(t, OutputOf("3"), v)

	v, err = FromInterface(float64(2))
	require.NoError(t, err)
	assert.Equal(t, Number(2), v)

	_, err = FromInterface([]string{"x"})
	assert.Error(t, err)
}

func TestParams_CloneDoesNotAlias(t *testing.T) {
	p := Params{"a": String("x")}
	c := p.Clone()
	c["a"] = String("y")
	assert.Equal(t, String("x"), p["a"])

	assert.NotNil(t, Params(nil).Clone())
}

func TestParams_Refs(t *testing.T) {
	p := Params{"a": String("x"), "b": OutputOf("1"), "c": Text("$2.result")}
	assert.Equal(t, map[string]Ref{
		"b": {NodeID: "1", Field: "output"},
		"c": {NodeID: "2", Field: "result"},
	}, p.Refs())
}
