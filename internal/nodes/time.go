package nodes

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/autoflow/internal/node"
)

var presetLayouts = map[string]string{
	"YYYYMMDDHHMMSS":      "20060102150405",
	"YYYY-MM-DD_HH-MM-SS": "2006-01-02_15-04-05",
	"YYYYMMDD_HHMMSS":     "20060102_150405",
	"YYYY-MM-DD":          "2006-01-02",
	"YYYYMMDD":            "20060102",
	"HHMMSS":              "150405",
	"HH-MM-SS":            "15-04-05",
	"compact":             "060102150405",
	"readable":            "2006Jan02_150405",
	"iso_safe":            "2006-01-02T15-04-05",
}

var timestampFormats = []string{
	"YYYYMMDDHHMMSS",
	"YYYY-MM-DD_HH-MM-SS",
	"YYYYMMDD_HHMMSS",
	"YYYY-MM-DD",
	"YYYYMMDD",
	"HHMMSS",
	"HH-MM-SS",
	"timestamp_ms",
	"timestamp_s",
	"compact",
	"readable",
	"iso_safe",
}

var reformatFormats = []string{
	"YYYYMMDDHHMMSS",
	"YYYY-MM-DD_HH-MM-SS",
	"YYYYMMDD_HHMMSS",
	"YYYY-MM-DD",
	"YYYYMMDD",
	"readable",
	"iso_safe",
}

type Timestamp struct {
	logger *log.Logger
	now    func() time.Time
}

func NewTimestamp(logger *log.Logger) *Timestamp {
	return &Timestamp{logger: logger, now: time.Now}
}

func (t *Timestamp) Describe() node.Descriptor {
	return node.Descriptor{
		Type:        "time.timestamp",
		DisplayName: "Timestamp",
		Category:    "time",
		Params: []node.ParamSpec{
			{Name: "format", Kind: node.KindString, Required: true, Default: node.StrParam("YYYYMMDDHHMMSS"), Options: timestampFormats},
			{Name: "custom_format", Kind: node.KindString, Default: node.StrParam(""), Tooltip: "Custom layout in Go reference time form, e.g.: 2006-01-02"},
			{Name: "use_utc", Kind: node.KindBool, Default: node.BoolParam(false), Tooltip: "Render in UTC"},
			{Name: "add_milliseconds", Kind: node.KindBool, Default: node.BoolParam(false), Tooltip: "Append a three digit millisecond suffix"},
		},
		Outputs:  []node.OutputSpec{{Name: "timestamp", Kind: node.KindString}},
		Volatile: true,
	}
}

func (t *Timestamp) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	now := t.now()
	if in.Bool("use_utc") {
		now = now.UTC()
	}
	millis := in.Bool("add_milliseconds")

	if custom := strings.TrimSpace(in.Str("custom_format")); custom != "" {
		out := now.Format(custom)
		if millis {
			out += fmt.Sprintf("%03d", now.Nanosecond()/int(time.Millisecond))
		}
		return node.Values{"timestamp": node.Str(out)}, nil
	}

	format := in.Str("format")
	var out string
	switch format {
	case "timestamp_ms":
		out = strconv.FormatInt(now.UnixMilli(), 10)
	case "timestamp_s":
		out = strconv.FormatInt(now.Unix(), 10)
	default:
		layout, ok := presetLayouts[format]
		if !ok {
			layout = presetLayouts["YYYYMMDDHHMMSS"]
		}
		out = now.Format(layout)
		if millis {
			out += fmt.Sprintf("%03d", now.Nanosecond()/int(time.Millisecond))
		}
	}
	return node.Values{"timestamp": node.Str(out)}, nil
}

type Reformat struct {
	logger *log.Logger
}

func NewReformat(logger *log.Logger) *Reformat {
	return &Reformat{logger: logger}
}

func (r *Reformat) Describe() node.Descriptor {
	return node.Descriptor{
		Type:        "time.reformat",
		DisplayName: "Reformat Timestamp",
		Category:    "time",
		Params: []node.ParamSpec{
			{Name: "timestamp", Kind: node.KindString, Required: true, Default: node.StrParam(""), Tooltip: "Timestamp string to reformat"},
			{Name: "input_format", Kind: node.KindString, Default: node.StrParam("2006-01-02 15:04:05"), Tooltip: "Layout of the input, Go reference time form"},
			{Name: "output_format", Kind: node.KindString, Default: node.StrParam("YYYYMMDDHHMMSS"), Options: reformatFormats},
			{Name: "custom_output_format", Kind: node.KindString, Default: node.StrParam(""), Tooltip: "Custom output layout, Go reference time form"},
		},
		Outputs: []node.OutputSpec{{Name: "formatted_timestamp", Kind: node.KindString}},
	}
}

func (r *Reformat) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	raw := in.Str("timestamp")
	parsed, err := time.Parse(in.Str("input_format"), raw)
	if err != nil {
		r.logger.Printf("timestamp reformat: %v", err)
		return node.Values{"formatted_timestamp": node.Str(raw)}, nil
	}

	if custom := strings.TrimSpace(in.Str("custom_output_format")); custom != "" {
		return node.Values{"formatted_timestamp": node.Str(parsed.Format(custom))}, nil
	}

	layout, ok := presetLayouts[in.Str("output_format")]
	if !ok {
		layout = presetLayouts["YYYYMMDDHHMMSS"]
	}
	return node.Values{"formatted_timestamp": node.Str(parsed.Format(layout))}, nil
}
