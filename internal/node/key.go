package node

import (
	"net/url"
	"sort"
	"strings"
)

func CacheKey(typeName string, in Values) string {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(typeName)
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(in[name].keyString()))
	}
	return b.String()
}
