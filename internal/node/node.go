package node

import "context"

type ParamSpec struct {
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Required  bool     `json:"required,omitempty"`
	Default   *Value   `json:"default,omitempty"`
	Min       *int64   `json:"min,omitempty"`
	Max       *int64   `json:"max,omitempty"`
	Step      int64    `json:"step,omitempty"`
	Options   []string `json:"options,omitempty"`
	Multiline bool     `json:"multiline,omitempty"`
	Tooltip   string   `json:"tooltip,omitempty"`
}

type OutputSpec struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

type Descriptor struct {
	Type        string       `json:"type"`
	DisplayName string       `json:"display_name"`
	Category    string       `json:"category"`
	Params      []ParamSpec  `json:"params"`
	Outputs     []OutputSpec `json:"outputs"`
	Volatile    bool         `json:"volatile,omitempty"`
}

func (d Descriptor) Param(name string) (ParamSpec, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

func (d Descriptor) Output(name string) (OutputSpec, bool) {
	for _, o := range d.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return OutputSpec{}, false
}

type Node interface {
	Describe() Descriptor
	Evaluate(ctx context.Context, in Values) (Values, error)
}

func IntParam(v int64) *Value {
	val := Int(v)
	return &val
}

func FloatParam(v float64) *Value {
	val := Float(v)
	return &val
}

func StrParam(v string) *Value {
	val := Str(v)
	return &val
}

func BoolParam(v bool) *Value {
	val := Bool(v)
	return &val
}

func IntRange(min, max int64) (*int64, *int64) {
	return &min, &max
}
