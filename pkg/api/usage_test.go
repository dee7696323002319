package api

import "testing"

func TestUsageMerge(t *testing.T) {
	tests := []struct {
		name string
		base Usage
		in   *Usage
		want Usage
	}{
		{
			name: "initial merge records both fields",
			base: Usage{},
			in:   &Usage{InputTokens: 5, OutputTokens: 1},
			want: Usage{InputTokens: 5, OutputTokens: 1},
		},
		{
			name: "later fragment refines output only",
			base: Usage{InputTokens: 5, OutputTokens: 1},
			in:   &Usage{OutputTokens: 7},
			want: Usage{InputTokens: 5, OutputTokens: 7},
		},
		{
			name: "zero fragment never lowers a recorded value",
			base: Usage{InputTokens: 5, OutputTokens: 7},
			in:   &Usage{},
			want: Usage{InputTokens: 5, OutputTokens: 7},
		},
		{
			name: "nil merge is a no-op",
			base: Usage{InputTokens: 5, OutputTokens: 7},
			in:   nil,
			want: Usage{InputTokens: 5, OutputTokens: 7},
		},
		{
			name: "non-zero values supersede",
			base: Usage{InputTokens: 5, OutputTokens: 7},
			in:   &Usage{InputTokens: 6, OutputTokens: 9},
			want: Usage{InputTokens: 6, OutputTokens: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.base
			got.Merge(tt.in)
			if got != tt.want {
				t.Errorf("Merge() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
