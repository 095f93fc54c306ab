package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RefPrefix marks a string parameter value as a reference to another node's output.
const RefPrefix = "$"

// OutputField is the conventional field of a reference token.
const OutputField = "output"

// Kind identifies the variant held by a ParamValue.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindRef:
		return "reference"
	default:
		return "unknown"
	}
}

// Ref addresses a field of another node's result, written as $<NodeID>.<Field>.
type Ref struct {
	NodeID string
	Field  string
}

func (r Ref) String() string {
	if r.Field == "" {
		return RefPrefix + r.NodeID
	}
	return RefPrefix + r.NodeID + "." + r.Field
}

// ParseRef parses a reference token. The node id runs from after the leading $
// up to the first dot. A bare "$" is not a reference.
func ParseRef(s string) (Ref, bool) {
	if !strings.HasPrefix(s, RefPrefix) || len(s) == len(RefPrefix) {
		return Ref{}, false
	}
	body := s[len(RefPrefix):]
	if i := strings.IndexByte(body, '.'); i >= 0 {
		return Ref{NodeID: body[:i], Field: body[i+1:]}, true
	}
	return Ref{NodeID: body}, true
}

// ParamValue is a literal (string, number, boolean, null) or a reference to
// another node's output. References only exist as "$id.field" strings on the wire.
// For a reference, str holds the wire token when Ref.String would not reproduce it.
type ParamValue struct {
	kind Kind
	str  string
	num  float64
	b    bool
	ref  Ref
}

func Null() ParamValue { return ParamValue{} }
func String(s string) ParamValue { return ParamValue{kind: KindString, str: s} }
func Number(n float64) ParamValue { return ParamValue{kind: KindNumber, num: n} }
func Bool(b bool) ParamValue { return ParamValue{kind: KindBool, b: b} }
func Reference(r Ref) ParamValue { return ParamValue{kind: KindRef, ref: r} }

// OutputOf references the output of the given node.
func OutputOf(nodeID string) ParamValue {
	return Reference(Ref{NodeID: nodeID, Field: OutputField})
}

// Text builds a value from raw text the way the wire format would, so "$1.output"
// becomes a reference and anything else a string literal.
func Text(s string) ParamValue {
	if r, ok := ParseRef(s); ok {
		v := Reference(r)
		if r.String() != s {
			v.str = s
		}
		return v
	}
	return String(s)
}

func (v ParamValue) Kind() Kind { return v.kind }

// Ref returns the reference held by v, if any.
func (v ParamValue) Ref() (Ref, bool) {
	return v.ref, v.kind == KindRef
}

// Str returns the literal string held by v, if any.
func (v ParamValue) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v ParamValue) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v ParamValue) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Interface returns the wire representation of v as a plain Go value.
func (v ParamValue) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindRef:
		if v.str != "" {
			return v.str
		}
		return v.ref.String()
	default:
		return nil
	}
}

func (v ParamValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *ParamValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty parameter value")
	}

	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '[', '{':
		return fmt.Errorf("parameter values must be string, number, boolean or null")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Number(n)
		return nil
	}
}

// FromInterface converts a decoded JSON scalar into a ParamValue.
func FromInterface(x any) (ParamValue, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case string:
		return Text(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(n), nil
	default:
		return Null(), fmt.Errorf("unsupported parameter type %T", x)
	}
}

// Params maps parameter names to values.
type Params map[string]ParamValue

// Clone returns a copy of p that never aliases it. A nil map clones to an empty one.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Refs returns the references held by p keyed by parameter name.
func (p Params) Refs() map[string]Ref {
	refs := make(map[string]Ref)
	for k, v := range p {
		if r, ok := v.Ref(); ok {
			refs[k] = r
		}
	}
	return refs
}
