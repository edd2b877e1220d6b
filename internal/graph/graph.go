package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dunamismax/autoflow/internal/node"
)

type PortRef struct {
	Node   string `json:"node"`
	Output string `json:"output"`
}

type Input struct {
	Literal json.RawMessage
	Ref     *PortRef
}

func (in *Input) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		if raw, ok := probe["$from"]; ok {
			var ref PortRef
			if err := json.Unmarshal(raw, &ref); err != nil {
				return fmt.Errorf("invalid $from reference: %w", err)
			}
			if strings.TrimSpace(ref.Node) == "" || strings.TrimSpace(ref.Output) == "" {
				return errors.New("$from reference needs node and output")
			}
			in.Ref = &ref
			return nil
		}
	}
	in.Literal = json.RawMessage(append([]byte(nil), data...))
	return nil
}

func (in Input) MarshalJSON() ([]byte, error) {
	if in.Ref != nil {
		return json.Marshal(map[string]*PortRef{"$from": in.Ref})
	}
	if len(in.Literal) == 0 {
		return []byte("null"), nil
	}
	return in.Literal, nil
}

type NodeCall struct {
	ID     string           `json:"id"`
	Type   string           `json:"type"`
	Inputs map[string]Input `json:"inputs,omitempty"`
}

type Graph struct {
	Nodes []NodeCall `json:"nodes"`
}

func (g Graph) Validate(reg *node.Registry) error {
	if len(g.Nodes) == 0 {
		return errors.New("graph must contain at least one node")
	}

	types := make(map[string]node.Descriptor, len(g.Nodes))
	for i, call := range g.Nodes {
		if strings.TrimSpace(call.ID) == "" {
			return fmt.Errorf("nodes[%d].id is required", i)
		}
		if _, dup := types[call.ID]; dup {
			return fmt.Errorf("duplicate node id %q", call.ID)
		}
		n, ok := reg.Lookup(call.Type)
		if !ok {
			return fmt.Errorf("node %q: unknown node type %q", call.ID, call.Type)
		}
		types[call.ID] = n.Describe()
	}

	for _, call := range g.Nodes {
		desc := types[call.ID]
		for name, input := range call.Inputs {
			param, ok := desc.Param(name)
			if !ok {
				return fmt.Errorf("node %q: unknown input %q", call.ID, name)
			}
			if input.Ref != nil {
				srcDesc, ok := types[input.Ref.Node]
				if !ok {
					return fmt.Errorf("node %q input %q: references unknown node %q", call.ID, name, input.Ref.Node)
				}
				out, ok := srcDesc.Output(input.Ref.Output)
				if !ok {
					return fmt.Errorf("node %q input %q: node %q has no output %q", call.ID, name, input.Ref.Node, input.Ref.Output)
				}
				if !kindAssignable(out.Kind, param.Kind) {
					return fmt.Errorf("node %q input %q: cannot connect %s output to %s input", call.ID, name, out.Kind, param.Kind)
				}
				continue
			}
			if _, err := node.Coerce(param.Kind, input.Literal); err != nil {
				return fmt.Errorf("node %q input %q: %w", call.ID, name, err)
			}
		}
		for _, param := range desc.Params {
			if !param.Required || param.Default != nil {
				continue
			}
			if _, supplied := call.Inputs[param.Name]; !supplied {
				return fmt.Errorf("node %q: missing required input %q", call.ID, param.Name)
			}
		}
	}
	return nil
}

func kindAssignable(from, to node.Kind) bool {
	if from == to {
		return true
	}
	return from == node.KindInt && to == node.KindFloat
}
