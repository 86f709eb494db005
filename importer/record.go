package importer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

// Value is one decoded cell. Exactly one payload field is meaningful for a given Kind.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	List []string
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func ListValue(l []string) Value { return Value{Kind: KindList, List: l} }
func NullValue() Value { return Value{Kind: KindNull} }

// Text renders a scalar as a string. Whole numbers lose their fractional part
// so article codes read from spreadsheets or JSON stay "1001", not "1001.0".
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindList:
		return strings.Join(v.List, ", ")
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	default:
		return []byte("null"), nil
	}
}

// Field is a named cell of a RawRecord.
type Field struct {
	Name  string
	Value Value
}

// RawRecord is one source row with its field order preserved.
type RawRecord struct {
	// Line is the 1-based source row; the header occupies row 1.
	Line   int
	fields []Field
	index  map[string]int
}

func NewRawRecord(line int) *RawRecord {
	return &RawRecord{Line: line, index: make(map[string]int)}
}

// Set adds a field or replaces the value of an existing one in place.
func (r *RawRecord) Set(name string, v Value) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = v
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

func (r *RawRecord) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Text returns the trimmed text of a field, or "" when absent.
func (r *RawRecord) Text(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.Text())
}

func (r *RawRecord) Fields() []Field { return r.fields }

func (r *RawRecord) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// MarshalJSON writes the record as an object with keys in source order.
func (r *RawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
