package nodes

import (
	"context"
	"log"

	"github.com/dunamismax/autoflow/internal/node"
	"github.com/dunamismax/autoflow/internal/sizecalc"
)

type SizeCalculator struct {
	logger *log.Logger
}

func NewSizeCalculator(logger *log.Logger) *SizeCalculator {
	return &SizeCalculator{logger: logger}
}

func (c *SizeCalculator) Describe() node.Descriptor {
	dimMin, dimMax := node.IntRange(1, 65536)
	budgetMin, budgetMax := node.IntRange(1, 16777216)
	return node.Descriptor{
		Type:        "image.size_calculator",
		DisplayName: "Size Calculator",
		Category:    "image",
		Params: []node.ParamSpec{
			{Name: "width", Kind: node.KindInt, Required: true, Default: node.IntParam(1024), Min: dimMin, Max: dimMax, Step: 1, Tooltip: "Original image width"},
			{Name: "height", Kind: node.KindInt, Required: true, Default: node.IntParam(1024), Min: dimMin, Max: dimMax, Step: 1, Tooltip: "Original image height"},
			{Name: "num_pixels", Kind: node.KindInt, Required: true, Default: node.IntParam(1048576), Min: budgetMin, Max: budgetMax, Step: 1, Tooltip: "Target maximum total pixels (width_max * height_max <= num_pixels)"},
		},
		Outputs: []node.OutputSpec{
			{Name: "width_max", Kind: node.KindInt},
			{Name: "height_max", Kind: node.KindInt},
		},
	}
}

func (c *SizeCalculator) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	w, h, err := sizecalc.MaxSize(int(in.Int("width")), int(in.Int("height")), int(in.Int("num_pixels")))
	if err != nil {
		c.logger.Printf("size calculator degraded to 1x1: %v", err)
	}
	return node.Values{
		"width_max":  node.Int(int64(w)),
		"height_max": node.Int(int64(h)),
	}, nil
}
