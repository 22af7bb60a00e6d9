package apiclient

import "strings"

// NormalizePath returns p with exactly one leading slash and no repeated
// separators. A query string, if present, is preserved untouched.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	path, query, hasQuery := strings.Cut(p, "?")

	var b strings.Builder
	b.Grow(len(path) + 1)
	b.WriteByte('/')
	prevSlash := true
	for i := 0; i < len(path); i++ {
		ch := path[i]
		if ch == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(ch)
	}

	if hasQuery {
		return b.String() + "?" + query
	}
	return b.String()
}

// joinURL appends a normalized path to base, dropping base's trailing slashes
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + NormalizePath(path)
}
