package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunamismax/autoflow/internal/node"
)

func TestConcat(t *testing.T) {
	out, err := NewConcat().Evaluate(context.Background(), node.Values{
		"string_a":  node.Str("foo"),
		"string_b":  node.Str("bar"),
		"separator": node.Str("-"),
	})
	require.NoError(t, err)
	assert.Equal(t, "foo-bar", out.Str("result"))

	out, err = NewConcat().Evaluate(context.Background(), node.Values{
		"string_a": node.Str("foo"),
		"string_b": node.Str("bar"),
	})
	require.NoError(t, err)
	assert.Equal(t, "foobar", out.Str("result"))
}

func TestConcatMultiSkipsEmptyParts(t *testing.T) {
	out, err := NewConcatMulti().Evaluate(context.Background(), node.Values{
		"separator": node.Str("_"),
		"string_1":  node.Str("  a  "),
		"string_2":  node.Str("   "),
		"string_3":  node.Str("b"),
		"string_5":  node.Str("c"),
	})
	require.NoError(t, err)
	assert.Equal(t, "a_b_c", out.Str("result"))
	assert.Equal(t, int64(3), out.Int("count"))
}

func TestReplacePlain(t *testing.T) {
	out, err := NewReplace(discardLogger()).Evaluate(context.Background(), node.Values{
		"text":           node.Str("aaa"),
		"search":         node.Str("a"),
		"replace":        node.Str("b"),
		"case_sensitive": node.Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "bbb", out.Str("result"))
	assert.Equal(t, int64(3), out.Int("count"))
}

func TestReplaceCaseInsensitive(t *testing.T) {
	out, err := NewReplace(discardLogger()).Evaluate(context.Background(), node.Values{
		"text":           node.Str("Hello hello HELLO"),
		"search":         node.Str("hello"),
		"replace":        node.Str("hi"),
		"case_sensitive": node.Bool(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "hi hi hi", out.Str("result"))
	assert.Equal(t, int64(3), out.Int("count"))
}

func TestReplaceRegex(t *testing.T) {
	out, err := NewReplace(discardLogger()).Evaluate(context.Background(), node.Values{
		"text":           node.Str("a1b22c333"),
		"search":         node.Str(`\d+`),
		"replace":        node.Str("#"),
		"use_regex":      node.Bool(true),
		"case_sensitive": node.Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "a#b#c#", out.Str("result"))
	assert.Equal(t, int64(3), out.Int("count"))
}

func TestReplaceBadPatternReturnsOriginal(t *testing.T) {
	out, err := NewReplace(discardLogger()).Evaluate(context.Background(), node.Values{
		"text":           node.Str("abc"),
		"search":         node.Str("(["),
		"replace":        node.Str("x"),
		"use_regex":      node.Bool(true),
		"case_sensitive": node.Bool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Str("result"))
	assert.Equal(t, int64(0), out.Int("count"))
}

func TestReplaceEmptySearch(t *testing.T) {
	out, err := NewReplace(discardLogger()).Evaluate(context.Background(), node.Values{
		"text":    node.Str("abc"),
		"search":  node.Str(""),
		"replace": node.Str("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Str("result"))
	assert.Equal(t, int64(0), out.Int("count"))
}

func TestSplitTrimsParts(t *testing.T) {
	out, err := NewSplit().Evaluate(context.Background(), node.Values{
		"text":       node.Str("a, b , c"),
		"delimiter":  node.Str(","),
		"max_splits": node.Int(-1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out.StringList("parts"))
	assert.Equal(t, int64(3), out.Int("count"))
}

func TestSplitRespectsMaxSplits(t *testing.T) {
	out, err := NewSplit().Evaluate(context.Background(), node.Values{
		"text":       node.Str("a,b,c"),
		"delimiter":  node.Str(","),
		"max_splits": node.Int(1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b,c"}, out.StringList("parts"))
	assert.Equal(t, int64(2), out.Int("count"))
}

func TestSplitEmptyText(t *testing.T) {
	out, err := NewSplit().Evaluate(context.Background(), node.Values{
		"text":       node.Str(""),
		"delimiter":  node.Str(","),
		"max_splits": node.Int(-1),
	})
	require.NoError(t, err)
	assert.Empty(t, out.StringList("parts"))
	assert.Equal(t, int64(0), out.Int("count"))
}

func TestSplitEmptyDelimiter(t *testing.T) {
	out, err := NewSplit().Evaluate(context.Background(), node.Values{
		"text":       node.Str("a,b"),
		"delimiter":  node.Str(""),
		"max_splits": node.Int(-1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a,b"}, out.StringList("parts"))
	assert.Equal(t, int64(1), out.Int("count"))
}

func TestFormatTemplate(t *testing.T) {
	out, err := NewFormat(discardLogger()).Evaluate(context.Background(), node.Values{
		"template": node.Str("{v1}_{n1:03d}.png"),
		"value_1":  node.Str("frame"),
		"number_1": node.Int(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "frame_007.png", out.Str("result"))
}

func TestFormatLongAliases(t *testing.T) {
	out, err := NewFormat(discardLogger()).Evaluate(context.Background(), node.Values{
		"template": node.Str("{value2}-{number3}"),
		"value_2":  node.Str("x"),
		"number_3": node.Int(42),
	})
	require.NoError(t, err)
	assert.Equal(t, "x-42", out.Str("result"))
}

func TestFormatUnknownPlaceholderKeepsTemplate(t *testing.T) {
	out, err := NewFormat(discardLogger()).Evaluate(context.Background(), node.Values{
		"template": node.Str("{nope}_{v1}"),
		"value_1":  node.Str("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "{nope}_{v1}", out.Str("result"))
}

func TestFormatEscapedBraces(t *testing.T) {
	out, err := NewFormat(discardLogger()).Evaluate(context.Background(), node.Values{
		"template": node.Str("{{literal}} {v1}"),
		"value_1":  node.Str("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "{literal} x", out.Str("result"))
}

func TestFormatEmptyTemplate(t *testing.T) {
	out, err := NewFormat(discardLogger()).Evaluate(context.Background(), node.Values{
		"template": node.Str(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "", out.Str("result"))
}

func TestCaseConversions(t *testing.T) {
	cases := []struct {
		caseType string
		text     string
		want     string
	}{
		{"upper", "hello World", "HELLO WORLD"},
		{"lower", "Hello WORLD", "hello world"},
		{"title", "hello world", "Hello World"},
		{"capitalize", "hELLO wORLD", "Hello world"},
		{"swapcase", "GoLang", "gOlANG"},
		{"unknown", "AsIs", "AsIs"},
	}
	for _, tc := range cases {
		out, err := NewCase().Evaluate(context.Background(), node.Values{
			"text":      node.Str(tc.text),
			"case_type": node.Str(tc.caseType),
		})
		require.NoError(t, err)
		assert.Equal(t, tc.want, out.Str("result"), "case_type=%s", tc.caseType)
	}
}
