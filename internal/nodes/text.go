package nodes

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dunamismax/autoflow/internal/node"
)

type Concat struct{}

func NewConcat() *Concat {
	return &Concat{}
}

func (c *Concat) Describe() node.Descriptor {
	return node.Descriptor{
		Type:        "text.concat",
		DisplayName: "Concatenate",
		Category:    "text",
		Params: []node.ParamSpec{
			{Name: "string_a", Kind: node.KindString, Required: true, Default: node.StrParam(""), Tooltip: "First string"},
			{Name: "string_b", Kind: node.KindString, Required: true, Default: node.StrParam(""), Tooltip: "Second string"},
			{Name: "separator", Kind: node.KindString, Default: node.StrParam(""), Tooltip: "Separator (optional)"},
		},
		Outputs: []node.OutputSpec{{Name: "result", Kind: node.KindString}},
	}
}

func (c *Concat) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	result := in.Str("string_a") + in.Str("separator") + in.Str("string_b")
	return node.Values{"result": node.Str(result)}, nil
}

type ConcatMulti struct{}

func NewConcatMulti() *ConcatMulti {
	return &ConcatMulti{}
}

func (c *ConcatMulti) Describe() node.Descriptor {
	params := []node.ParamSpec{
		{Name: "separator", Kind: node.KindString, Required: true, Default: node.StrParam(""), Tooltip: "Separator (optional)"},
	}
	for i := 1; i <= 5; i++ {
		params = append(params, node.ParamSpec{
			Name:    fmt.Sprintf("string_%d", i),
			Kind:    node.KindString,
			Default: node.StrParam(""),
			Tooltip: fmt.Sprintf("String %d", i),
		})
	}
	return node.Descriptor{
		Type:        "text.concat_multi",
		DisplayName: "Concatenate Many",
		Category:    "text",
		Params:      params,
		Outputs: []node.OutputSpec{
			{Name: "result", Kind: node.KindString},
			{Name: "count", Kind: node.KindInt},
		},
	}
}

func (c *ConcatMulti) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	var parts []string
	for i := 1; i <= 5; i++ {
		if v := strings.TrimSpace(in.Str(fmt.Sprintf("string_%d", i))); v != "" {
			parts = append(parts, v)
		}
	}
	return node.Values{
		"result": node.Str(strings.Join(parts, in.Str("separator"))),
		"count":  node.Int(int64(len(parts))),
	}, nil
}

type Replace struct {
	logger *log.Logger
}

func NewReplace(logger *log.Logger) *Replace {
	return &Replace{logger: logger}
}

func (r *Replace) Describe() node.Descriptor {
	return node.Descriptor{
		Type:        "text.replace",
		DisplayName: "Replace",
		Category:    "text",
		Params: []node.ParamSpec{
			{Name: "text", Kind: node.KindString, Required: true, Default: node.StrParam(""), Multiline: true, Tooltip: "Text to process"},
			{Name: "search", Kind: node.KindString, Required: true, Default: node.StrParam(""), Tooltip: "Content to find"},
			{Name: "replace", Kind: node.KindString, Default: node.StrParam(""), Tooltip: "Content to replace with"},
			{Name: "use_regex", Kind: node.KindBool, Default: node.BoolParam(false), Tooltip: "Treat search as a regular expression"},
			{Name: "case_sensitive", Kind: node.KindBool, Default: node.BoolParam(true), Tooltip: "Match case exactly"},
		},
		Outputs: []node.OutputSpec{
			{Name: "result", Kind: node.KindString},
			{Name: "count", Kind: node.KindInt},
		},
	}
}

func (r *Replace) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	text := in.Str("text")
	search := in.Str("search")
	replace := in.Str("replace")

	if text == "" || search == "" {
		return replaceResult(text, 0), nil
	}

	if in.Bool("use_regex") {
		pattern := search
		if !in.Bool("case_sensitive") {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			r.logger.Printf("text replace: bad pattern %q: %v", search, err)
			return replaceResult(text, 0), nil
		}
		count := len(re.FindAllStringIndex(text, -1))
		return replaceResult(re.ReplaceAllString(text, replace), count), nil
	}

	if in.Bool("case_sensitive") {
		count := strings.Count(text, search)
		return replaceResult(strings.ReplaceAll(text, search, replace), count), nil
	}

	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(search))
	count := len(re.FindAllStringIndex(text, -1))
	return replaceResult(re.ReplaceAllLiteralString(text, replace), count), nil
}

func replaceResult(text string, count int) node.Values {
	return node.Values{"result": node.Str(text), "count": node.Int(int64(count))}
}

type Split struct{}

func NewSplit() *Split {
	return &Split{}
}

func (s *Split) Describe() node.Descriptor {
	splitsMin, splitsMax := node.IntRange(-1, 100)
	return node.Descriptor{
		Type:        "text.split",
		DisplayName: "Split",
		Category:    "text",
		Params: []node.ParamSpec{
			{Name: "text", Kind: node.KindString, Required: true, Default: node.StrParam(""), Multiline: true, Tooltip: "Text to split"},
			{Name: "delimiter", Kind: node.KindString, Default: node.StrParam(","), Tooltip: "Delimiter"},
			{Name: "max_splits", Kind: node.KindInt, Default: node.IntParam(-1), Min: splitsMin, Max: splitsMax, Tooltip: "Maximum number of splits, -1 for unlimited"},
		},
		Outputs: []node.OutputSpec{
			{Name: "parts", Kind: node.KindStringList},
			{Name: "count", Kind: node.KindInt},
		},
	}
}

func (s *Split) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	text := in.Str("text")
	if text == "" {
		return node.Values{"parts": node.StringList(nil), "count": node.Int(0)}, nil
	}

	delimiter := in.Str("delimiter")
	maxSplits := in.Int("max_splits")

	var parts []string
	switch {
	case delimiter == "":
		parts = []string{text}
	case maxSplits < 0:
		parts = strings.Split(text, delimiter)
	default:
		parts = strings.SplitN(text, delimiter, int(maxSplits)+1)
	}

	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return node.Values{
		"parts": node.StringList(parts),
		"count": node.Int(int64(len(parts))),
	}, nil
}

type Format struct {
	logger *log.Logger
}

func NewFormat(logger *log.Logger) *Format {
	return &Format{logger: logger}
}

func (f *Format) Describe() node.Descriptor {
	params := []node.ParamSpec{
		{Name: "template", Kind: node.KindString, Required: true, Default: node.StrParam(""), Multiline: true, Tooltip: "Template string, e.g.: {value1}_{number1:03d}.png"},
	}
	for i := 1; i <= 5; i++ {
		params = append(params, node.ParamSpec{
			Name:    fmt.Sprintf("value_%d", i),
			Kind:    node.KindString,
			Default: node.StrParam(""),
			Tooltip: fmt.Sprintf("Value %d", i),
		})
	}
	for i := 1; i <= 3; i++ {
		params = append(params, node.ParamSpec{
			Name:    fmt.Sprintf("number_%d", i),
			Kind:    node.KindInt,
			Default: node.IntParam(0),
			Tooltip: fmt.Sprintf("Number value %d", i),
		})
	}
	return node.Descriptor{
		Type:        "text.format",
		DisplayName: "Format",
		Category:    "text",
		Params:      params,
		Outputs:     []node.OutputSpec{{Name: "result", Kind: node.KindString}},
	}
}

func (f *Format) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	template := in.Str("template")
	if template == "" {
		return node.Values{"result": node.Str("")}, nil
	}

	args := make(map[string]node.Value, 16)
	for i := 1; i <= 5; i++ {
		v := node.Str(in.Str(fmt.Sprintf("value_%d", i)))
		args[fmt.Sprintf("value%d", i)] = v
		args[fmt.Sprintf("v%d", i)] = v
	}
	for i := 1; i <= 3; i++ {
		v := node.Int(in.Int(fmt.Sprintf("number_%d", i)))
		args[fmt.Sprintf("number%d", i)] = v
		args[fmt.Sprintf("n%d", i)] = v
	}

	result, err := formatTemplate(template, args)
	if err != nil {
		f.logger.Printf("text format: %v", err)
		result = template
	}
	return node.Values{"result": node.Str(result)}, nil
}

var numberSpec = regexp.MustCompile(`^[0-9]*d$`)

func formatTemplate(template string, args map[string]node.Value) (string, error) {
	var b strings.Builder
	for i := 0; i < len(template); {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated placeholder in %q", template)
			}
			rendered, err := renderPlaceholder(template[i+1:i+end], args)
			if err != nil {
				return "", err
			}
			b.WriteString(rendered)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", fmt.Errorf("unmatched '}' in %q", template)
		default:
			b.WriteByte(template[i])
			i++
		}
	}
	return b.String(), nil
}

func renderPlaceholder(token string, args map[string]node.Value) (string, error) {
	name, spec, hasSpec := strings.Cut(token, ":")
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("unknown placeholder %q", name)
	}
	if !hasSpec {
		if v.Kind() == node.KindInt {
			return strconv.FormatInt(v.Int(), 10), nil
		}
		return v.Str(), nil
	}
	if v.Kind() != node.KindInt || !numberSpec.MatchString(spec) {
		return "", fmt.Errorf("unsupported format spec %q for placeholder %q", spec, name)
	}
	return fmt.Sprintf("%"+spec, v.Int()), nil
}

type Case struct{}

func NewCase() *Case {
	return &Case{}
}

func (c *Case) Describe() node.Descriptor {
	return node.Descriptor{
		Type:        "text.case",
		DisplayName: "Change Case",
		Category:    "text",
		Params: []node.ParamSpec{
			{Name: "text", Kind: node.KindString, Required: true, Default: node.StrParam(""), Multiline: true, Tooltip: "Text to convert"},
			{Name: "case_type", Kind: node.KindString, Default: node.StrParam("lower"), Options: []string{"upper", "lower", "title", "capitalize", "swapcase"}},
		},
		Outputs: []node.OutputSpec{{Name: "result", Kind: node.KindString}},
	}
}

func (c *Case) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	text := in.Str("text")
	if text == "" {
		return node.Values{"result": node.Str("")}, nil
	}

	var result string
	switch in.Str("case_type") {
	case "upper":
		result = strings.ToUpper(text)
	case "lower":
		result = strings.ToLower(text)
	case "title":
		result = cases.Title(language.Und).String(text)
	case "capitalize":
		r, size := utf8.DecodeRuneInString(text)
		result = strings.ToUpper(string(r)) + strings.ToLower(text[size:])
	case "swapcase":
		result = strings.Map(swapRune, text)
	default:
		result = text
	}
	return node.Values{"result": node.Str(result)}, nil
}

func swapRune(r rune) rune {
	switch {
	case unicode.IsUpper(r):
		return unicode.ToLower(r)
	case unicode.IsLower(r):
		return unicode.ToUpper(r)
	}
	return r
}
