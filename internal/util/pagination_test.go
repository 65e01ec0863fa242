package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		page, size      int
		wantFrom, wantN int
	}{
		{1, 10, 0, 10},
		{3, 20, 40, 20},
		{0, 0, 0, DefaultPageSize},
		{-2, 500, 0, DefaultPageSize},
		{2, MaxPageSize, MaxPageSize, MaxPageSize},
	}
	for _, tt := range tests {
		from, n := Calculate(tt.page, tt.size)
		assert.Equal(t, tt.wantFrom, from, "page=%d size=%d", tt.page, tt.size)
		assert.Equal(t, tt.wantN, n, "page=%d size=%d", tt.page, tt.size)
	}
}

func TestParsePage(t *testing.T) {
	t.Parallel()
	page, from, limit := ParsePage("2", "5")
	assert.Equal(t, []int{2, 5, 5}, []int{page, from, limit})

	page, from, limit = ParsePage("x", "")
	assert.Equal(t, []int{1, 0, DefaultPageSize}, []int{page, from, limit})
}

func TestNewPage(t *testing.T) {
	t.Parallel()
	first := NewPage(1, 0, 10, 25)
	assert.Equal(t, Page{Page: 1, Size: 10, Total: 25, TotalPages: 3, HasPrev: false, HasNext: true}, first)

	last := NewPage(3, 20, 10, 25)
	assert.Equal(t, int64(3), last.TotalPages)
	assert.True(t, last.HasPrev)
	assert.False(t, last.HasNext)

	empty := NewPage(1, 0, 10, 0)
	assert.Zero(t, empty.TotalPages)
	assert.False(t, empty.HasNext)
}
