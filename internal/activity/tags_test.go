package activity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "trims and deduplicates",
			in:   []string{" go ", "go", "cloud", "  cloud"},
			want: []string{"go", "cloud"},
		},
		{
			name: "drops empty after trim",
			in:   []string{"", "   ", "kernel"},
			want: []string{"kernel"},
		},
		{
			name: "dedup is case sensitive",
			in:   []string{"Linux", "linux"},
			want: []string{"Linux", "linux"},
		},
		{
			name: "preserves first occurrence order",
			in:   []string{"c", "a", "b", "a", "c"},
			want: []string{"c", "a", "b"},
		},
		{
			name: "empty input",
			in:   nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OptimizeTags(tt.in))
		})
	}
}

func TestOptimizeTagsIdempotent(t *testing.T) {
	in := []string{"  alpha", "beta  ", "alpha", "", "gamma"}
	once := OptimizeTags(in)
	twice := OptimizeTags(once)
	assert.Equal(t, once, twice)

	for _, tag := range once {
		assert.NotEmpty(t, tag)
		assert.Equal(t, strings.TrimSpace(tag), tag)
	}
}
