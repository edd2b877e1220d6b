package nodes

import (
	"context"
	"fmt"

	"github.com/dunamismax/autoflow/internal/node"
)

const maxCollectInputs = 20

type CollectInts struct{}

func NewCollectInts() *CollectInts {
	return &CollectInts{}
}

func (c *CollectInts) Describe() node.Descriptor {
	lengthMin, lengthMax := node.IntRange(1, maxCollectInputs)
	valueMin, valueMax := node.IntRange(-999999, 999999)
	params := []node.ParamSpec{
		{Name: "length", Kind: node.KindInt, Required: true, Default: node.IntParam(1), Min: lengthMin, Max: lengthMax, Tooltip: "How many inputs to collect"},
	}
	for i := 1; i <= maxCollectInputs; i++ {
		params = append(params, node.ParamSpec{
			Name:    fmt.Sprintf("int_input_%d", i),
			Kind:    node.KindInt,
			Default: node.IntParam(0),
			Min:     valueMin,
			Max:     valueMax,
		})
	}
	return node.Descriptor{
		Type:        "list.collect_ints",
		DisplayName: "Collect Integers",
		Category:    "list",
		Params:      params,
		Outputs:     []node.OutputSpec{{Name: "int_list", Kind: node.KindIntList}},
	}
}

func (c *CollectInts) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	length := in.Int("length")
	if length < 1 {
		length = 1
	}
	if length > maxCollectInputs {
		length = maxCollectInputs
	}

	values := make([]int64, 0, length)
	for i := 1; i <= int(length); i++ {
		values = append(values, in.Int(fmt.Sprintf("int_input_%d", i)))
	}
	return node.Values{"int_list": node.IntList(values)}, nil
}

type PickInt struct{}

func NewPickInt() *PickInt {
	return &PickInt{}
}

func (p *PickInt) Describe() node.Descriptor {
	indexMin, indexMax := node.IntRange(-999, 999)
	valueMin, valueMax := node.IntRange(-999999, 999999)
	return node.Descriptor{
		Type:        "list.pick_int",
		DisplayName: "Pick Integer",
		Category:    "list",
		Params: []node.ParamSpec{
			{Name: "int_list", Kind: node.KindIntList, Required: true, Tooltip: "List to pick from"},
			{Name: "index", Kind: node.KindInt, Default: node.IntParam(0), Min: indexMin, Max: indexMax, Tooltip: "Index to pick, negative counts from the end"},
			{Name: "default_value", Kind: node.KindInt, Default: node.IntParam(0), Min: valueMin, Max: valueMax, Tooltip: "Value returned when the index is out of range"},
		},
		Outputs: []node.OutputSpec{
			{Name: "extracted_int", Kind: node.KindInt},
			{Name: "is_valid_index", Kind: node.KindBool},
		},
	}
}

func (p *PickInt) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	list := in.IntList("int_list")
	index := int(in.Int("index"))
	fallback := in.Int("default_value")

	if len(list) == 0 || index < -len(list) || index >= len(list) {
		return pickResult(fallback, false), nil
	}
	if index < 0 {
		index += len(list)
	}
	return pickResult(list[index], true), nil
}

func pickResult(value int64, valid bool) node.Values {
	return node.Values{
		"extracted_int":  node.Int(value),
		"is_valid_index": node.Bool(valid),
	}
}

type ListLength struct{}

func NewListLength() *ListLength {
	return &ListLength{}
}

func (l *ListLength) Describe() node.Descriptor {
	return node.Descriptor{
		Type:        "list.length",
		DisplayName: "List Length",
		Category:    "list",
		Params: []node.ParamSpec{
			{Name: "int_list", Kind: node.KindIntList, Required: true, Tooltip: "List to measure"},
		},
		Outputs: []node.OutputSpec{{Name: "list_length", Kind: node.KindInt}},
	}
}

func (l *ListLength) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	return node.Values{"list_length": node.Int(int64(len(in.IntList("int_list"))))}, nil
}
