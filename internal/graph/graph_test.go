package graph

import (
	"encoding/json"
	"io"
	"log"
	"testing"

	"github.com/dunamismax/autoflow/internal/nodes"
)

func TestGraphValidate(t *testing.T) {
	reg := nodes.Builtin(log.New(io.Discard, "", 0))

	valid := Graph{Nodes: []NodeCall{
		{
			ID:   "calc",
			Type: "image.size_calculator",
			Inputs: map[string]Input{
				"width":      {Literal: json.RawMessage(`1920`)},
				"height":     {Literal: json.RawMessage(`1080`)},
				"num_pixels": {Literal: json.RawMessage(`1048576`)},
			},
		},
		{
			ID:   "label",
			Type: "text.format",
			Inputs: map[string]Input{
				"template": {Literal: json.RawMessage(`"{n1}x{n2}"`)},
				"number_1": {Ref: &PortRef{Node: "calc", Output: "width_max"}},
				"number_2": {Ref: &PortRef{Node: "calc", Output: "height_max"}},
			},
		},
	}}
	if err := valid.Validate(reg); err != nil {
		t.Fatalf("expected valid graph, got error: %v", err)
	}

	empty := Graph{}
	if err := empty.Validate(reg); err == nil {
		t.Fatal("expected validation error for empty graph")
	}

	missingID := Graph{Nodes: []NodeCall{{Type: "text.concat"}}}
	if err := missingID.Validate(reg); err == nil {
		t.Fatal("expected validation error for missing node id")
	}

	duplicateID := Graph{Nodes: []NodeCall{
		{ID: "a", Type: "text.concat"},
		{ID: "a", Type: "text.concat"},
	}}
	if err := duplicateID.Validate(reg); err == nil {
		t.Fatal("expected validation error for duplicate node id")
	}

	unknownType := Graph{Nodes: []NodeCall{{ID: "a", Type: "image.render"}}}
	if err := unknownType.Validate(reg); err == nil {
		t.Fatal("expected validation error for unknown node type")
	}
}

func TestGraphValidateInputs(t *testing.T) {
	reg := nodes.Builtin(log.New(io.Discard, "", 0))

	unknownInput := Graph{Nodes: []NodeCall{
		{ID: "a", Type: "text.concat", Inputs: map[string]Input{
			"bogus": {Literal: json.RawMessage(`"x"`)},
		}},
	}}
	if err := unknownInput.Validate(reg); err == nil {
		t.Fatal("expected validation error for unknown input name")
	}

	badLiteral := Graph{Nodes: []NodeCall{
		{ID: "a", Type: "image.size_calculator", Inputs: map[string]Input{
			"width": {Literal: json.RawMessage(`"wide"`)},
		}},
	}}
	if err := badLiteral.Validate(reg); err == nil {
		t.Fatal("expected validation error for mistyped literal")
	}

	fractionalInt := Graph{Nodes: []NodeCall{
		{ID: "a", Type: "image.size_calculator", Inputs: map[string]Input{
			"width": {Literal: json.RawMessage(`1.5`)},
		}},
	}}
	if err := fractionalInt.Validate(reg); err == nil {
		t.Fatal("expected validation error for fractional INT literal")
	}

	unknownRefNode := Graph{Nodes: []NodeCall{
		{ID: "a", Type: "text.concat", Inputs: map[string]Input{
			"string_a": {Ref: &PortRef{Node: "ghost", Output: "result"}},
		}},
	}}
	if err := unknownRefNode.Validate(reg); err == nil {
		t.Fatal("expected validation error for reference to unknown node")
	}

	unknownRefOutput := Graph{Nodes: []NodeCall{
		{ID: "a", Type: "text.concat"},
		{ID: "b", Type: "text.concat", Inputs: map[string]Input{
			"string_a": {Ref: &PortRef{Node: "a", Output: "nothing"}},
		}},
	}}
	if err := unknownRefOutput.Validate(reg); err == nil {
		t.Fatal("expected validation error for reference to unknown output")
	}

	kindMismatch := Graph{Nodes: []NodeCall{
		{ID: "calc", Type: "image.size_calculator"},
		{ID: "concat", Type: "text.concat", Inputs: map[string]Input{
			"string_a": {Ref: &PortRef{Node: "calc", Output: "width_max"}},
		}},
	}}
	if err := kindMismatch.Validate(reg); err == nil {
		t.Fatal("expected validation error for INT output into STRING input")
	}

	missingRequired := Graph{Nodes: []NodeCall{
		{ID: "len", Type: "list.length"},
	}}
	if err := missingRequired.Validate(reg); err == nil {
		t.Fatal("expected validation error for missing required input")
	}
}

func TestGraphValidateIntWidensToFloat(t *testing.T) {
	reg := nodes.Builtin(log.New(io.Discard, "", 0))

	g := Graph{Nodes: []NodeCall{
		{ID: "pick", Type: "list.pick_int", Inputs: map[string]Input{
			"int_list": {Literal: json.RawMessage(`[1, 2]`)},
		}},
		{ID: "cmp", Type: "logic.compare", Inputs: map[string]Input{
			"data_type": {Literal: json.RawMessage(`"Float"`)},
			"condition": {Literal: json.RawMessage(`"greater_than"`)},
			"float1":    {Ref: &PortRef{Node: "pick", Output: "extracted_int"}},
		}},
	}}
	if err := g.Validate(reg); err != nil {
		t.Fatalf("expected INT output to connect to FLOAT input, got error: %v", err)
	}
}

func TestInputJSONRoundTrip(t *testing.T) {
	raw := []byte(`{"id":"a","type":"text.concat","inputs":{"string_a":"hello","string_b":{"$from":{"node":"x","output":"result"}}}}`)

	var call NodeCall
	if err := json.Unmarshal(raw, &call); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}

	litInput := call.Inputs["string_a"]
	if litInput.Ref != nil {
		t.Fatal("expected literal input, got reference")
	}
	if string(litInput.Literal) != `"hello"` {
		t.Fatalf("expected literal %q, got %q", `"hello"`, string(litInput.Literal))
	}

	refInput := call.Inputs["string_b"]
	if refInput.Ref == nil {
		t.Fatal("expected reference input, got literal")
	}
	if refInput.Ref.Node != "x" || refInput.Ref.Output != "result" {
		t.Fatalf("unexpected reference: %+v", refInput.Ref)
	}

	out, err := json.Marshal(call)
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	var again NodeCall
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-unmarshal returned error: %v", err)
	}
	if again.Inputs["string_b"].Ref == nil || again.Inputs["string_b"].Ref.Node != "x" {
		t.Fatal("reference lost in round trip")
	}
}

func TestInputRejectsMalformedRef(t *testing.T) {
	var in Input
	if err := json.Unmarshal([]byte(`{"$from":"calc.width_max"}`), &in); err == nil {
		t.Fatal("expected error for non-object $from")
	}
	if err := json.Unmarshal([]byte(`{"$from":{"node":"calc"}}`), &in); err == nil {
		t.Fatal("expected error for $from without output")
	}
}
