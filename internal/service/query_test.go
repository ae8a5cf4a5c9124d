package service

import (
	"testing"

	"taskmanager/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageWindow(t *testing.T) {
	query := QueryConfig{PageSize: 10, MaxPageSize: 100}

	tests := []struct {
		name string
		opts ListOptions
		want struct {
			page   int
			size   int
			offset int
		}
	}{
		{
			name: "defaults",
			opts: ListOptions{},
			want: struct {
				page   int
				size   int
				offset int
			}{
				page: 1, size: 10, offset: 0,
			},
		},
		{
			name: "explicit page and size",
			opts: ListOptions{Page: 3, PageSize: 25},
			want: struct {
				page   int
				size   int
				offset int
			}{
				page: 3, size: 25, offset: 50,
			},
		},
		{
			name: "oversized page clamped not rejected",
			opts: ListOptions{Page: 1, PageSize: 500},
			want: struct {
				page   int
				size   int
				offset int
			}{
				page: 1, size: 100, offset: 0,
			},
		},
		{
			name: "negative page treated as first",
			opts: ListOptions{Page: -2, PageSize: 5},
			want: struct {
				page   int
				size   int
				offset int
			}{
				page: 1, size: 5, offset: 0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, size, offset := query.pageWindow(tt.opts)
			assert.Equal(t, tt.want.page, page)
			assert.Equal(t, tt.want.size, size)
			assert.Equal(t, tt.want.offset, offset)
		})
	}
}

func TestResolveOrdering(t *testing.T) {
	tests := []struct {
		name     string
		ordering string
		want     struct {
			column string
			desc   bool
			ok     bool
		}
	}{
		{
			name:     "ascending due date",
			ordering: "due_date",
			want: struct {
				column string
				desc   bool
				ok     bool
			}{
				column: "due_date", desc: false, ok: true,
			},
		},
		{
			name:     "descending due date",
			ordering: "-due_date",
			want: struct {
				column string
				desc   bool
				ok     bool
			}{
				column: "due_date", desc: true, ok: true,
			},
		},
		{
			name:     "unknown field fails closed",
			ordering: "password",
			want: struct {
				column string
				desc   bool
				ok     bool
			}{
				column: "", desc: false, ok: false,
			},
		},
		{
			name:     "empty ordering",
			ordering: "",
			want: struct {
				column string
				desc   bool
				ok     bool
			}{
				column: "", desc: false, ok: false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			column, desc, ok := resolveOrdering(tt.ordering, taskOrderFields)
			assert.Equal(t, tt.want.column, column)
			assert.Equal(t, tt.want.desc, desc)
			assert.Equal(t, tt.want.ok, ok)
		})
	}
}

func TestTaskFilterDueDate(t *testing.T) {
	query := QueryConfig{PageSize: 10, MaxPageSize: 100}

	filter, err := query.taskFilter(ListOptions{Filters: map[string]string{"due_date": "2025-06-15"}})
	require.NoError(t, err)
	require.NotNil(t, filter.DueDate)
	assert.Equal(t, "2025-06-15", filter.DueDate.String())

	_, err = query.taskFilter(ListOptions{Filters: map[string]string{"due_date": "июнь"}})
	assert.Equal(t, errors.ErrInvalidDueDate, err)
}

func TestQueryConfigNormalized(t *testing.T) {
	query := QueryConfig{}.normalized()
	assert.Equal(t, defaultPageSize, query.PageSize)
	assert.Equal(t, maxPageSize, query.MaxPageSize)
}
