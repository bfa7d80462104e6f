package pagination_test

import (
	"net/url"
	"testing"

	"github.com/JaimeStill/smartwaste/pkg/pagination"
)

var cfg = pagination.Config{DefaultPageSize: 25, MaxPageSize: 100}

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		page     int
		pageSize int
		sorts    int
	}{
		{"empty", "", 1, 25, 0},
		{"explicit", "page=3&page_size=10", 3, 10, 0},
		{"clamped", "page=-2&page_size=500", 1, 100, 0},
		{"garbage", "page=x&page_size=y", 1, 25, 0},
		{"sorted", "sort=createdAt,-status", 1, 25, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}

			req := pagination.FromQuery(values, cfg)

			if req.Page != tt.page {
				t.Errorf("page: got %d, want %d", req.Page, tt.page)
			}
			if req.PageSize != tt.pageSize {
				t.Errorf("page size: got %d, want %d", req.PageSize, tt.pageSize)
			}
			if len(req.Sort) != tt.sorts {
				t.Errorf("sort fields: got %d, want %d", len(req.Sort), tt.sorts)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 4, PageSize: 25}
	if got := req.Offset(); got != 75 {
		t.Errorf("offset: got %d, want 75", got)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		pageSize   int
		totalPages int
	}{
		{"empty", 0, 25, 1},
		{"exact", 50, 25, 2},
		{"remainder", 51, 25, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := pagination.NewPageResult[string](nil, tt.total, 1, tt.pageSize)
			if res.TotalPages != tt.totalPages {
				t.Errorf("total pages: got %d, want %d", res.TotalPages, tt.totalPages)
			}
			if res.Data == nil {
				t.Error("data should be an empty slice, not nil")
			}
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_PAGE_MAX", "40")

	c := pagination.Config{}
	if err := c.Finalize(&pagination.ConfigEnv{MaxPageSize: "TEST_PAGE_MAX"}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if c.DefaultPageSize != 25 || c.MaxPageSize != 40 {
		t.Errorf("got %+v", c)
	}

	bad := pagination.Config{DefaultPageSize: 50, MaxPageSize: 10}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected error when default exceeds max")
	}
}
