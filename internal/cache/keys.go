package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key builds a deterministic cache key from an HTTP method, path and query
// parameters. Parameter order never changes the key; parameter values always
// do, so distinct queries can never collide.
func Key(method, path string, params url.Values) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(path)

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('?')
		for i, k := range keys {
			vals := append([]string(nil), params[k]...)
			sort.Strings(vals)
			for j, v := range vals {
				if i > 0 || j > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
	}

	return b.String()
}
