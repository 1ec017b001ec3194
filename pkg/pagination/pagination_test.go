package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, Params{Page: 1, Limit: 50}, Params{}.Normalize())
	require.Equal(t, Params{Page: 3, Limit: 100}, Params{Page: 3, Limit: 500}.Normalize())
	require.Equal(t, 40, Params{Page: 3, Limit: 20}.Offset())
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		total  int64
		want   Meta
	}{
		{name: "empty", params: Params{Page: 1, Limit: 50}, total: 0, want: Meta{Page: 1, Limit: 50, Total: 0, TotalPages: 1}},
		{name: "single page", params: Params{Page: 1, Limit: 50}, total: 6, want: Meta{Page: 1, Limit: 50, Total: 6, TotalPages: 1}},
		{name: "first of many", params: Params{Page: 1, Limit: 2}, total: 6, want: Meta{Page: 1, Limit: 2, Total: 6, TotalPages: 3, HasNext: true}},
		{name: "middle", params: Params{Page: 2, Limit: 4}, total: 9, want: Meta{Page: 2, Limit: 4, Total: 9, TotalPages: 3, HasNext: true, HasPrevious: true}},
		{name: "past the end", params: Params{Page: 5, Limit: 4}, total: 9, want: Meta{Page: 5, Limit: 4, Total: 9, TotalPages: 3, HasPrevious: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NewMeta(tt.params, tt.total))
		})
	}
}
