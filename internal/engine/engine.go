package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dunamismax/autoflow/internal/graph"
	"github.com/dunamismax/autoflow/internal/node"
)

type Engine struct {
	registry *node.Registry
	cache    Cache
	logger   *log.Logger
}

func New(registry *node.Registry, cache Cache, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{registry: registry, cache: cache, logger: logger}
}

func (e *Engine) Run(ctx context.Context, g graph.Graph) (graph.Result, error) {
	order, err := executionOrder(g)
	if err != nil {
		return graph.Result{}, err
	}

	start := time.Now()
	result := graph.Result{Nodes: make([]graph.NodeResult, 0, len(order))}
	produced := make(map[string]node.Values, len(order))

	for _, call := range order {
		if err := ctx.Err(); err != nil {
			return graph.Result{}, err
		}

		impl, ok := e.registry.Lookup(call.Type)
		if !ok {
			return graph.Result{}, fmt.Errorf("unknown node type %q", call.Type)
		}
		desc := impl.Describe()

		in, err := resolveInputs(desc, call, produced)
		if err != nil {
			return graph.Result{}, fmt.Errorf("evaluate node id=%s type=%s: %w", call.ID, call.Type, err)
		}

		cacheable := e.cache != nil && !desc.Volatile
		var key string
		if cacheable {
			key = node.CacheKey(call.Type, in)
		}

		nodeStart := time.Now()
		var out node.Values
		cached := false
		if cacheable {
			if raw, ok := e.cache.Get(ctx, key); ok {
				restored, err := outputsFromJSON(desc, raw)
				if err != nil {
					e.logger.Printf("discarding cached outputs for %s: %v", call.Type, err)
				} else {
					out = restored
					cached = true
				}
			}
		}
		if !cached {
			out, err = impl.Evaluate(ctx, in)
			if err != nil {
				return graph.Result{}, fmt.Errorf("evaluate node id=%s type=%s: %w", call.ID, call.Type, err)
			}
			if out == nil {
				out = node.Values{}
			}
			if cacheable {
				if raw, err := outputsToJSON(out); err == nil {
					e.cache.Set(ctx, key, raw)
				}
			}
		}

		encoded, err := json.Marshal(out)
		if err != nil {
			return graph.Result{}, fmt.Errorf("evaluate node id=%s type=%s: %w", call.ID, call.Type, err)
		}

		produced[call.ID] = out
		result.Nodes = append(result.Nodes, graph.NodeResult{
			NodeID:     call.ID,
			Type:       call.Type,
			Outputs:    encoded,
			Cached:     cached,
			DurationMS: time.Since(nodeStart).Milliseconds(),
		})
		result.NodesEvaluated++
		if cached {
			result.CacheHits++
		}
	}

	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

func resolveInputs(desc node.Descriptor, call graph.NodeCall, produced map[string]node.Values) (node.Values, error) {
	for name := range call.Inputs {
		if _, ok := desc.Param(name); !ok {
			return nil, fmt.Errorf("unknown input %q", name)
		}
	}

	in := make(node.Values, len(desc.Params))
	for _, param := range desc.Params {
		input, ok := call.Inputs[param.Name]
		if !ok {
			if param.Default != nil {
				in[param.Name] = *param.Default
			} else if param.Required {
				return nil, fmt.Errorf("missing required input %q", param.Name)
			}
			continue
		}

		if input.Ref != nil {
			upstream, ok := produced[input.Ref.Node]
			if !ok {
				return nil, fmt.Errorf("input %q references unevaluated node %q", param.Name, input.Ref.Node)
			}
			v, ok := upstream[input.Ref.Output]
			if !ok {
				return nil, fmt.Errorf("input %q references missing output %q of node %q", param.Name, input.Ref.Output, input.Ref.Node)
			}
			if param.Kind == node.KindFloat && v.Kind() == node.KindInt {
				v = node.Float(float64(v.Int()))
			}
			if v.Kind() != param.Kind {
				return nil, fmt.Errorf("input %q expects %s, node %q output %q is %s", param.Name, param.Kind, input.Ref.Node, input.Ref.Output, v.Kind())
			}
			in[param.Name] = v
			continue
		}

		v, err := node.Coerce(param.Kind, input.Literal)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", param.Name, err)
		}
		in[param.Name] = v
	}
	return in, nil
}

func executionOrder(g graph.Graph) ([]graph.NodeCall, error) {
	if len(g.Nodes) == 0 {
		return nil, errors.New("graph must contain at least one node")
	}

	index := make(map[string]int, len(g.Nodes))
	for i, call := range g.Nodes {
		if call.ID == "" {
			return nil, errors.New("node id is required")
		}
		if _, dup := index[call.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", call.ID)
		}
		index[call.ID] = i
	}

	indegree := make([]int, len(g.Nodes))
	dependents := make(map[string][]int, len(g.Nodes))
	for i, call := range g.Nodes {
		seen := make(map[string]bool, len(call.Inputs))
		for _, in := range call.Inputs {
			if in.Ref == nil || seen[in.Ref.Node] {
				continue
			}
			if _, ok := index[in.Ref.Node]; !ok {
				return nil, fmt.Errorf("node %q references unknown node %q", call.ID, in.Ref.Node)
			}
			seen[in.Ref.Node] = true
			dependents[in.Ref.Node] = append(dependents[in.Ref.Node], i)
			indegree[i]++
		}
	}

	queue := make([]int, 0, len(g.Nodes))
	for i := range g.Nodes {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]graph.NodeCall, 0, len(g.Nodes))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, g.Nodes[i])
		for _, dep := range dependents[g.Nodes[i].ID] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if len(order) != len(g.Nodes) {
		return nil, errors.New("graph contains a cycle")
	}
	return order, nil
}

func outputsToJSON(out node.Values) (map[string]json.RawMessage, error) {
	raw := make(map[string]json.RawMessage, len(out))
	for name, v := range out {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		raw[name] = data
	}
	return raw, nil
}

func outputsFromJSON(desc node.Descriptor, raw map[string]json.RawMessage) (node.Values, error) {
	out := make(node.Values, len(desc.Outputs))
	for _, spec := range desc.Outputs {
		data, ok := raw[spec.Name]
		if !ok {
			return nil, fmt.Errorf("cached outputs missing %q", spec.Name)
		}
		v, err := node.Coerce(spec.Kind, data)
		if err != nil {
			return nil, fmt.Errorf("cached output %q: %w", spec.Name, err)
		}
		out[spec.Name] = v
	}
	return out, nil
}
