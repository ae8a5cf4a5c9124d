package service

import (
	"strings"

	"taskmanager/internal/domain/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// QueryConfig задаёт параметры пагинации для конкретного развёртывания.
type QueryConfig struct {
	PageSize    int
	MaxPageSize int
}

func (c QueryConfig) normalized() QueryConfig {
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = maxPageSize
	}
	return c
}

// ListOptions — распознанные параметры списочного запроса. Неизвестные ключи
// фильтров игнорируются ещё на стороне транспорта.
type ListOptions struct {
	Filters  map[string]string
	Search   string
	Ordering string
	Page     int
	PageSize int
}

var taskOrderFields = map[string]string{
	"due_date":   "due_date",
	"priority":   "priority",
	"created_at": "created_at",
}

var categoryOrderFields = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

// resolveOrdering разбирает значение вида "-due_date" по белому списку полей.
// Неизвестное поле не ошибка: действует порядок по умолчанию.
func resolveOrdering(ordering string, allowed map[string]string) (string, bool, bool) {
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")
	column, ok := allowed[field]
	if !ok {
		return "", false, false
	}
	return column, desc, true
}

func (c QueryConfig) pageWindow(opts ListOptions) (page, size, offset int) {
	c = c.normalized()
	page = opts.Page
	if page < 1 {
		page = 1
	}
	size = opts.PageSize
	if size <= 0 {
		size = c.PageSize
	}
	if size > c.MaxPageSize {
		size = c.MaxPageSize
	}
	offset = (page - 1) * size
	return page, size, offset
}

func (c QueryConfig) taskFilter(opts ListOptions) (models.TaskFilter, error) {
	filter := models.TaskFilter{
		Priority:   opts.Filters["priority"],
		Status:     opts.Filters["status"],
		CategoryID: opts.Filters["category"],
		Search:     opts.Search,
	}

	if raw, ok := opts.Filters["due_date"]; ok && raw != "" {
		due, err := models.ParseDateOnly(raw)
		if err != nil {
			return models.TaskFilter{}, err
		}
		filter.DueDate = &due
	}

	if column, desc, ok := resolveOrdering(opts.Ordering, taskOrderFields); ok {
		filter.OrderBy = column
		filter.Desc = desc
	}

	_, filter.Limit, filter.Offset = c.pageWindow(opts)
	return filter, nil
}

func (c QueryConfig) categoryFilter(opts ListOptions) models.CategoryFilter {
	filter := models.CategoryFilter{Search: opts.Search}

	if column, desc, ok := resolveOrdering(opts.Ordering, categoryOrderFields); ok {
		filter.OrderBy = column
		filter.Desc = desc
	}

	_, filter.Limit, filter.Offset = c.pageWindow(opts)
	return filter
}
