// Package listing sorts and paginates collections fetched from the upstream
// backend before they are handed to the browser.
package listing

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	// MaxLimit caps the page size a client can request
	MaxLimit = 100
)

// Params are the listing controls read from a query string. Limit 0 means
// "everything on one page".
type Params struct {
	Page  int
	Limit int
	Sort  string // field name, "-" prefix for descending
}

// Meta describes the page that was returned
type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Reserved lists the query keys consumed locally and never forwarded upstream
var Reserved = []string{"page", "limit", "sort"}

// ParseParams reads page, limit and sort from q, clamping bad values
func ParseParams(q url.Values) Params {
	p := Params{Page: 1, Sort: strings.TrimSpace(q.Get("sort"))}

	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.Limit = n
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Upstream returns q without the locally handled keys
func Upstream(q url.Values) url.Values {
	out := url.Values{}
	for key, values := range q {
		if isReserved(key) {
			continue
		}
		out[key] = append([]string(nil), values...)
	}
	return out
}

func isReserved(key string) bool {
	for _, r := range Reserved {
		if key == r {
			return true
		}
	}
	return false
}

// Apply sorts items by p.Sort and slices out page p.Page
func Apply(items []json.RawMessage, p Params) ([]json.RawMessage, Meta) {
	sorted := make([]json.RawMessage, len(items))
	copy(sorted, items)

	if p.Sort != "" {
		field, desc := strings.TrimPrefix(p.Sort, "-"), strings.HasPrefix(p.Sort, "-")
		keys := make([]sortKey, len(sorted))
		for i, item := range sorted {
			keys[i] = extractKey(item, field)
		}
		idx := make([]int, len(sorted))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return keys[idx[a]].less(keys[idx[b]], desc)
		})
		reordered := make([]json.RawMessage, len(sorted))
		for i, j := range idx {
			reordered[i] = sorted[j]
		}
		sorted = reordered
	}

	total := len(sorted)
	meta := Meta{Page: p.Page, Limit: p.Limit, Total: total, Pages: 1}
	if meta.Page < 1 {
		meta.Page = 1
	}
	if p.Limit <= 0 {
		meta.Limit = total
		meta.Page = 1
		return sorted, meta
	}

	meta.Pages = (total + p.Limit - 1) / p.Limit
	if meta.Pages == 0 {
		meta.Pages = 1
	}
	// Checked before multiplying so a huge page cannot overflow start
	if meta.Page > meta.Pages {
		return []json.RawMessage{}, meta
	}
	start := (meta.Page - 1) * p.Limit
	if start >= total {
		return []json.RawMessage{}, meta
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return sorted[start:end], meta
}

type keyKind int

const (
	kindMissing keyKind = iota
	kindNumber
	kindString
	kindBool
)

type sortKey struct {
	kind keyKind
	num  float64
	str  string
}

// less orders keys of the same kind by value; missing values always sort last
func (k sortKey) less(o sortKey, desc bool) bool {
	if k.kind == kindMissing || o.kind == kindMissing {
		return k.kind != kindMissing && o.kind == kindMissing
	}
	if k.kind != o.kind {
		return k.kind < o.kind
	}

	var lt, gt bool
	switch k.kind {
	case kindNumber:
		lt, gt = k.num < o.num, k.num > o.num
	default:
		lt, gt = k.str < o.str, k.str > o.str
	}
	if desc {
		return gt
	}
	return lt
}

func extractKey(item json.RawMessage, field string) sortKey {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err != nil {
		return sortKey{}
	}
	raw, ok := obj[field]
	if !ok {
		return sortKey{}
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return sortKey{}
	}
	switch val := v.(type) {
	case float64:
		return sortKey{kind: kindNumber, num: val}
	case string:
		// Numeric strings (prices sent as text) sort numerically
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return sortKey{kind: kindNumber, num: f}
		}
		return sortKey{kind: kindString, str: strings.ToLower(val)}
	case bool:
		if val {
			return sortKey{kind: kindBool, str: "1"}
		}
		return sortKey{kind: kindBool, str: "0"}
	default:
		return sortKey{}
	}
}
