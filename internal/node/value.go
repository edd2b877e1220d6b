package node

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	KindInt        Kind = "INT"
	KindFloat      Kind = "FLOAT"
	KindString     Kind = "STRING"
	KindBool       Kind = "BOOLEAN"
	KindIntList    Kind = "INT_LIST"
	KindStringList Kind = "STRING_LIST"
)

type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	ints []int64
	strs []string
}

func Int(v int64) Value {
	return Value{kind: KindInt, i: v}
}

func Float(v float64) Value {
	return Value{kind: KindFloat, f: v}
}

func Str(v string) Value {
	return Value{kind: KindString, s: v}
}

func Bool(v bool) Value {
	return Value{kind: KindBool, b: v}
}

func IntList(v []int64) Value {
	return Value{kind: KindIntList, ints: v}
}

func StringList(v []string) Value {
	return Value{kind: KindStringList, strs: v}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsZero() bool {
	return v.kind == ""
}

func (v Value) Int() int64 {
	if v.kind == KindFloat {
		return int64(v.f)
	}
	return v.i
}

func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

func (v Value) Str() string {
	return v.s
}

func (v Value) Bool() bool {
	return v.b
}

func (v Value) IntList() []int64 {
	return v.ints
}

func (v Value) StringList() []string {
	return v.strs
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindBool:
		return json.Marshal(v.b)
	case KindIntList:
		if v.ints == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.ints)
	case KindStringList:
		if v.strs == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.strs)
	}
	return []byte("null"), nil
}

func Coerce(kind Kind, raw json.RawMessage) (Value, error) {
	switch kind {
	case KindInt:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, fmt.Errorf("expected integer literal: %w", err)
		}
		return Int(n), nil
	case KindFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, fmt.Errorf("expected number literal: %w", err)
		}
		return Float(f), nil
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("expected string literal: %w", err)
		}
		return Str(s), nil
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("expected boolean literal: %w", err)
		}
		return Bool(b), nil
	case KindIntList:
		var ns []int64
		if err := json.Unmarshal(raw, &ns); err != nil {
			return Value{}, fmt.Errorf("expected integer array literal: %w", err)
		}
		return IntList(ns), nil
	case KindStringList:
		var ss []string
		if err := json.Unmarshal(raw, &ss); err != nil {
			return Value{}, fmt.Errorf("expected string array literal: %w", err)
		}
		return StringList(ss), nil
	}
	return Value{}, fmt.Errorf("unknown kind %q", kind)
}

func (v Value) keyString() string {
	switch v.kind {
	case KindInt:
		return "i:" + strconv.FormatInt(v.i, 10)
	case KindFloat:
		return "f:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return "s:" + v.s
	case KindBool:
		return "b:" + strconv.FormatBool(v.b)
	case KindIntList:
		parts := make([]string, len(v.ints))
		for i, n := range v.ints {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return "is:" + strings.Join(parts, ",")
	case KindStringList:
		parts := make([]string, len(v.strs))
		for i, s := range v.strs {
			parts[i] = strconv.Quote(s)
		}
		return "ss:" + strings.Join(parts, ",")
	}
	return ""
}

type Values map[string]Value

func (vs Values) Int(name string) int64 {
	return vs[name].Int()
}

func (vs Values) Float(name string) float64 {
	return vs[name].Float()
}

func (vs Values) Str(name string) string {
	return vs[name].Str()
}

func (vs Values) Bool(name string) bool {
	return vs[name].Bool()
}

func (vs Values) IntList(name string) []int64 {
	return vs[name].IntList()
}

func (vs Values) StringList(name string) []string {
	return vs[name].StringList()
}
