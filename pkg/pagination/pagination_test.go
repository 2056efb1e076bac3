package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 12, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products?page=3&per_page=50", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PerPage)
	assert.Equal(t, 100, p.Offset) // (3-1) * 50
}

func TestFromRequest_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"negative page", "page=-1"},
		{"zero page", "page=0"},
		{"page not a number", "page=abc"},
		{"per_page over cap", "per_page=200"},
		{"zero per_page", "per_page=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/products?"+tt.query, nil)
			assert.Equal(t, DefaultParams(), FromRequest(req))
		})
	}
}

func TestFromRequest_PerPage_Exactly100(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products?per_page=100", nil)
	assert.Equal(t, 100, FromRequest(req).PerPage)
}

func TestNewResult(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		page       int
		perPage    int
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{"empty", 0, 1, 12, 0, false, false},
		{"exact fit", 24, 1, 12, 2, true, false},
		{"partial last page", 25, 3, 12, 3, false, true},
		{"middle page", 36, 2, 12, 3, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult[int](nil, tt.total, Params{Page: tt.page, PerPage: tt.perPage})
			assert.Equal(t, tt.totalPages, r.TotalPages)
			assert.Equal(t, tt.hasNext, r.HasNext)
			assert.Equal(t, tt.hasPrev, r.HasPrev)
			assert.NotNil(t, r.Items)
		})
	}
}

func TestPaginate(t *testing.T) {
	all := make([]int, 25)
	for i := range all {
		all[i] = i
	}

	r := Paginate(all, Params{Page: 1, PerPage: 12, Offset: 0})
	assert.Equal(t, all[:12], r.Items)
	assert.Equal(t, 3, r.TotalPages)

	r = Paginate(all, Params{Page: 3, PerPage: 12, Offset: 24})
	assert.Equal(t, []int{24}, r.Items)
	assert.False(t, r.HasNext)

	r = Paginate(all, Params{Page: 9, PerPage: 12, Offset: 96})
	assert.Empty(t, r.Items)
	assert.Equal(t, 25, r.Total)
	assert.True(t, r.HasPrev)
}
