package listing

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(t *testing.T, raw string) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func ids(t *testing.T, list []json.RawMessage) []string {
	t.Helper()
	out := make([]string, 0, len(list))
	for _, item := range list {
		var v struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(item, &v))
		out = append(out, v.ID)
	}
	return out
}

const packages = `[
	{"id":"a","title":"Kerala Backwaters","price":"24999","createdAt":"2024-03-01"},
	{"id":"b","title":"andaman dive","price":18999,"createdAt":"2024-05-10"},
	{"id":"c","title":"Leh Ladakh","createdAt":"2024-01-20"},
	{"id":"d","title":"Goa Escape","price":9999,"createdAt":"2024-04-02"}
]`

func TestParseParams(t *testing.T) {
	p := ParseParams(url.Values{"page": {"3"}, "limit": {"500"}, "sort": {"-price"}})
	assert.Equal(t, Params{Page: 3, Limit: MaxLimit, Sort: "-price"}, p)

	p = ParseParams(url.Values{"page": {"zero"}, "limit": {"-4"}})
	assert.Equal(t, Params{Page: 1}, p)
}

func TestUpstream(t *testing.T) {
	q := url.Values{"page": {"2"}, "sort": {"title"}, "category": {"beach"}}
	assert.Equal(t, url.Values{"category": {"beach"}}, Upstream(q))
}

func TestApply_Sorting(t *testing.T) {
	list := items(t, packages)

	tests := []struct {
		sort string
		want []string
	}{
		{sort: "price", want: []string{"d", "b", "a", "c"}},
		{sort: "-price", want: []string{"a", "b", "d", "c"}},
		{sort: "title", want: []string{"b", "d", "a", "c"}},
		{sort: "-createdAt", want: []string{"b", "d", "a", "c"}},
		{sort: "", want: []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			got, meta := Apply(list, Params{Page: 1, Sort: tt.sort})
			assert.Equal(t, tt.want, ids(t, got))
			assert.Equal(t, 4, meta.Total)
			assert.Equal(t, 1, meta.Pages)
		})
	}

	// The input slice is left untouched
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(t, list))
}

func TestApply_Pagination(t *testing.T) {
	list := items(t, packages)

	got, meta := Apply(list, Params{Page: 2, Limit: 3})
	assert.Equal(t, []string{"d"}, ids(t, got))
	assert.Equal(t, Meta{Page: 2, Limit: 3, Total: 4, Pages: 2}, meta)

	got, meta = Apply(list, Params{Page: 5, Limit: 3})
	assert.Empty(t, got)
	assert.Equal(t, 2, meta.Pages)

	huge := ParseParams(url.Values{"page": {"4611686018427387904"}, "limit": {"100"}})
	require.NotPanics(t, func() { got, meta = Apply(list, huge) })
	assert.Empty(t, got)
	assert.Equal(t, 1, meta.Pages)

	got, meta = Apply(nil, Params{Page: 1, Limit: 10})
	assert.Empty(t, got)
	assert.Equal(t, Meta{Page: 1, Limit: 10, Total: 0, Pages: 1}, meta)
}
