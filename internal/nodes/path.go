package nodes

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/autoflow/internal/node"
)

type PathParse struct{}

func NewPathParse() *PathParse {
	return &PathParse{}
}

func (p *PathParse) Describe() node.Descriptor {
	return node.Descriptor{
		Type:        "path.parse",
		DisplayName: "Parse Path",
		Category:    "path",
		Params: []node.ParamSpec{
			{Name: "path", Kind: node.KindString, Required: true, Default: node.StrParam(""), Tooltip: "Full path, e.g.: /workspace/hello.png"},
		},
		Outputs: []node.OutputSpec{
			{Name: "directory", Kind: node.KindString},
			{Name: "filename", Kind: node.KindString},
			{Name: "extension", Kind: node.KindString},
		},
	}
}

func (p *PathParse) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	path := strings.TrimSpace(in.Str("path"))
	if path == "" {
		return parseResult("", "", ""), nil
	}

	dir, file := filepath.Split(filepath.Clean(path))
	ext := filepath.Ext(file)
	return parseResult(dir, strings.TrimSuffix(file, ext), ext), nil
}

func parseResult(dir, filename, ext string) node.Values {
	return node.Values{
		"directory": node.Str(dir),
		"filename":  node.Str(filename),
		"extension": node.Str(ext),
	}
}

type PathJoin struct{}

func NewPathJoin() *PathJoin {
	return &PathJoin{}
}

func (p *PathJoin) Describe() node.Descriptor {
	return node.Descriptor{
		Type:        "path.join",
		DisplayName: "Join Path",
		Category:    "path",
		Params: []node.ParamSpec{
			{Name: "directory", Kind: node.KindString, Default: node.StrParam(""), Tooltip: "Directory path, e.g.: /workspace/"},
			{Name: "filename", Kind: node.KindString, Required: true, Default: node.StrParam(""), Tooltip: "Filename, e.g.: hello"},
			{Name: "extension", Kind: node.KindString, Default: node.StrParam(""), Tooltip: "File extension, e.g.: .png"},
		},
		Outputs: []node.OutputSpec{{Name: "path", Kind: node.KindString}},
	}
}

func (p *PathJoin) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	dir := strings.TrimSpace(in.Str("directory"))
	filename := strings.TrimSpace(in.Str("filename"))
	ext := strings.TrimSpace(in.Str("extension"))

	if filename == "" {
		return node.Values{"path": node.Str("")}, nil
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	name := filename + ext
	full := name
	if dir != "" {
		full = filepath.Join(dir, name)
	} else {
		full = filepath.Clean(name)
	}
	return node.Values{"path": node.Str(full)}, nil
}

type PathValidate struct{}

func NewPathValidate() *PathValidate {
	return &PathValidate{}
}

func (p *PathValidate) Describe() node.Descriptor {
	return node.Descriptor{
		Type:        "path.validate",
		DisplayName: "Validate Path",
		Category:    "path",
		Params: []node.ParamSpec{
			{Name: "path", Kind: node.KindString, Required: true, Default: node.StrParam(""), Tooltip: "Path to validate"},
			{Name: "check_existence", Kind: node.KindBool, Default: node.BoolParam(true), Tooltip: "Check whether the path exists"},
		},
		Outputs: []node.OutputSpec{
			{Name: "is_valid", Kind: node.KindBool},
			{Name: "exists", Kind: node.KindBool},
			{Name: "error_message", Kind: node.KindString},
		},
	}
}

func (p *PathValidate) Evaluate(ctx context.Context, in node.Values) (node.Values, error) {
	path := strings.TrimSpace(in.Str("path"))
	if path == "" {
		return validateResult(false, false, "path is empty"), nil
	}
	if strings.ContainsRune(path, 0) {
		return validateResult(false, false, "path contains a NUL byte"), nil
	}

	if !in.Bool("check_existence") {
		return validateResult(true, false, ""), nil
	}
	if _, err := os.Stat(path); err != nil {
		return validateResult(true, false, "path does not exist"), nil
	}
	return validateResult(true, true, ""), nil
}

func validateResult(valid, exists bool, message string) node.Values {
	return node.Values{
		"is_valid":      node.Bool(valid),
		"exists":        node.Bool(exists),
		"error_message": node.Str(message),
	}
}
