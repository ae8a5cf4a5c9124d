package service

import (
	"context"
	"strings"
	"testing"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	inmemory "taskmanager/repository/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCategoryService() (*CategoryService, *TaskService) {
	store := inmemory.NewStorage()
	query := QueryConfig{PageSize: 10, MaxPageSize: 100}
	return NewCategoryService(store, query), NewTaskService(store, store, query)
}

func TestCreateCategory(t *testing.T) {
	svc, _ := newCategoryService()
	p := NewPrincipal("user1", "eve")

	category, err := svc.Create(context.Background(), p, models.CreateCategoryRequest{Name: "Hobbies"})
	require.NoError(t, err)
	assert.Equal(t, "Hobbies", category.Name)
	assert.Equal(t, "eve", category.User)
	assert.NotEmpty(t, category.ID)
}

func TestCreateCategoryDuplicateCaseInsensitive(t *testing.T) {
	svc, _ := newCategoryService()
	alice := NewPrincipal("user1", "alice")
	bob := NewPrincipal("user2", "bob")

	_, err := svc.Create(context.Background(), alice, models.CreateCategoryRequest{Name: "Work"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), alice, models.CreateCategoryRequest{Name: "work"})
	assert.Equal(t, errors.ErrCategoryExists, err)

	// у другого пользователя то же имя свободно
	_, err = svc.Create(context.Background(), bob, models.CreateCategoryRequest{Name: "Work"})
	assert.NoError(t, err)
}

func TestCreateCategoryValidation(t *testing.T) {
	svc, _ := newCategoryService()
	p := NewPrincipal("user1", "eve")

	tests := []struct {
		name         string
		categoryName string
	}{
		{name: "empty name", categoryName: ""},
		{name: "whitespace only", categoryName: "   "},
		{name: "too long", categoryName: strings.Repeat("a", 101)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), p, models.CreateCategoryRequest{Name: tt.categoryName})
			assert.Equal(t, errors.ErrInvalidCategoryName, err)
		})
	}
}

func TestRenameCategoryCaseOnly(t *testing.T) {
	svc, _ := newCategoryService()
	p := NewPrincipal("user1", "eve")

	category, err := svc.Create(context.Background(), p, models.CreateCategoryRequest{Name: "Work"})
	require.NoError(t, err)

	renamed, err := svc.Update(context.Background(), p, category.ID, models.UpdateCategoryRequest{Name: "WORK"})
	require.NoError(t, err)
	assert.Equal(t, "WORK", renamed.Name)
}

func TestRenameCategoryCollision(t *testing.T) {
	svc, _ := newCategoryService()
	p := NewPrincipal("user1", "eve")

	_, err := svc.Create(context.Background(), p, models.CreateCategoryRequest{Name: "Work"})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), p, models.CreateCategoryRequest{Name: "Personal"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), p, second.ID, models.UpdateCategoryRequest{Name: "work"})
	assert.Equal(t, errors.ErrCategoryExists, err)
}

func TestGetCategoryScopedToOwner(t *testing.T) {
	svc, _ := newCategoryService()
	owner := NewPrincipal("user1", "eve")
	intruder := NewPrincipal("user2", "frank")

	category, err := svc.Create(context.Background(), owner, models.CreateCategoryRequest{Name: "Private"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), intruder, category.ID)
	assert.Equal(t, errors.ErrNotFound, err)
}

func TestDeleteCategoryClearsTaskReference(t *testing.T) {
	svc, tasks := newCategoryService()
	p := NewPrincipal("user1", "eve")

	category, err := svc.Create(context.Background(), p, models.CreateCategoryRequest{Name: "Work"})
	require.NoError(t, err)

	task, err := tasks.Create(context.Background(), p, models.CreateTaskRequest{
		Title:      "linked",
		DueDate:    "2025-01-01",
		CategoryID: &category.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, task.CategoryID)

	require.NoError(t, svc.Delete(context.Background(), p, category.ID))

	survivor, err := tasks.Get(context.Background(), p, task.ID)
	require.NoError(t, err)
	assert.Nil(t, survivor.CategoryID)
}

func TestListCategoriesDefaultOrderByName(t *testing.T) {
	svc, _ := newCategoryService()
	p := NewPrincipal("user1", "eve")

	for _, name := range []string{"Zebra", "Alpha", "Middle"} {
		_, err := svc.Create(context.Background(), p, models.CreateCategoryRequest{Name: name})
		require.NoError(t, err)
	}

	categories, total, err := svc.List(context.Background(), p, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, categories, 3)
	assert.Equal(t, "Alpha", categories[0].Name)
	assert.Equal(t, "Middle", categories[1].Name)
	assert.Equal(t, "Zebra", categories[2].Name)
}

func TestListCategoriesSearch(t *testing.T) {
	svc, _ := newCategoryService()
	p := NewPrincipal("user1", "eve")

	for _, name := range []string{"Work", "Workout", "Personal"} {
		_, err := svc.Create(context.Background(), p, models.CreateCategoryRequest{Name: name})
		require.NoError(t, err)
	}

	categories, total, err := svc.List(context.Background(), p, ListOptions{Search: "work"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, categories, 2)
}
