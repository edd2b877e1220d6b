package nodes

import (
	"context"
	"log"
	"strings"

	"github.com/dunamismax/autoflow/internal/node"
)

type Compare struct {
	logger *log.Logger
}

func NewCompare(logger *log.Logger) *Compare {
	return &Compare{logger: logger}
}

func (c *Compare) Describe() node.Descriptor {
	numMin, numMax := node.IntRange(-999999, 999999)
	return node.Descriptor{
		Type:        "logic.compare",
		DisplayName: "Compare",
		Category:    "logic",
		Params: []node.ParamSpec{
			{Name: "data_type", Kind: node.KindString, Required: true, Default: node.StrParam("String"), Options: []string{"String", "Int", "Float"}},
			{Name: "condition", Kind: node.KindString, Required: true, Default: node.StrParam("equals"), Options: []string{"equals", "contains", "not_equals", "greater_than", "greater_or_equal"}},
			{Name: "string1", Kind: node.KindString, Default: node.StrParam(""), Tooltip: "First string value"},
			{Name: "string2", Kind: node.KindString, Default: node.StrParam(""), Tooltip: "Second string value"},
			{Name: "int1", Kind: node.KindInt, Default: node.IntParam(0), Min: numMin, Max: numMax, Step: 1},
			{Name: "int2", Kind: node.KindInt, Default: node.IntParam(0), Min: numMin, Max: numMax, Step: 1},
			{Name: "float1", Kind: node.KindFloat, Default: node.FloatParam(0)},
			{Name: "float2", Kind: node.KindFloat, Default: node.FloatParam(0)},
		},
		Outputs: []node.OutputSpec{{Name: "result", Kind: node.KindBool}},
	}
}

func (c *Compare) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	dataType := in.Str("data_type")
	condition := in.Str("condition")

	var result bool
	switch dataType {
	case "String":
		result = c.compareStrings(in.Str("string1"), in.Str("string2"), condition)
	case "Int":
		result = c.compareNumeric(float64(in.Int("int1")), float64(in.Int("int2")), condition)
	case "Float":
		result = c.compareNumeric(in.Float("float1"), in.Float("float2"), condition)
	}
	return node.Values{"result": node.Bool(result)}, nil
}

func (c *Compare) compareStrings(s1, s2, condition string) bool {
	switch condition {
	case "equals":
		return s1 == s2
	case "contains":
		if s1 == "" && s2 == "" {
			return true
		}
		if s2 == "" {
			return false
		}
		return strings.Contains(s1, s2)
	case "not_equals":
		return s1 != s2
	}
	c.logger.Printf("compare: unsupported condition %q for String", condition)
	return false
}

func (c *Compare) compareNumeric(v1, v2 float64, condition string) bool {
	switch condition {
	case "equals":
		return v1 == v2
	case "not_equals":
		return v1 != v2
	case "greater_than":
		return v1 > v2
	case "greater_or_equal":
		return v1 >= v2
	}
	c.logger.Printf("compare: unsupported condition %q for numeric values", condition)
	return false
}

type Select struct{}

func NewSelect() *Select {
	return &Select{}
}

func (s *Select) Describe() node.Descriptor {
	numMin, numMax := node.IntRange(-999999, 999999)
	return node.Descriptor{
		Type:        "logic.select",
		DisplayName: "Select",
		Category:    "logic",
		Params: []node.ParamSpec{
			{Name: "condition", Kind: node.KindBool, Required: true, Default: node.BoolParam(true), Tooltip: "Condition that picks the true or false variant"},
			{Name: "string_true", Kind: node.KindString, Default: node.StrParam("true")},
			{Name: "string_false", Kind: node.KindString, Default: node.StrParam("false")},
			{Name: "int_true", Kind: node.KindInt, Default: node.IntParam(1), Min: numMin, Max: numMax, Step: 1},
			{Name: "int_false", Kind: node.KindInt, Default: node.IntParam(0), Min: numMin, Max: numMax, Step: 1},
			{Name: "float_true", Kind: node.KindFloat, Default: node.FloatParam(1)},
			{Name: "float_false", Kind: node.KindFloat, Default: node.FloatParam(0)},
		},
		Outputs: []node.OutputSpec{
			{Name: "string", Kind: node.KindString},
			{Name: "int", Kind: node.KindInt},
			{Name: "float", Kind: node.KindFloat},
		},
	}
}

func (s *Select) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	if in.Bool("condition") {
		return node.Values{
			"string": node.Str(in.Str("string_true")),
			"int":    node.Int(in.Int("int_true")),
			"float":  node.Float(in.Float("float_true")),
		}, nil
	}
	return node.Values{
		"string": node.Str(in.Str("string_false")),
		"int":    node.Int(in.Int("int_false")),
		"float":  node.Float(in.Float("float_false")),
	}, nil
}
