package storage

import (
	"context"
	"testing"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(id, ownerID, title, priority, due string, createdAt time.Time) *models.Task {
	dueDate, _ := models.ParseDateOnly(due)
	return &models.Task{
		ID:        id,
		UserID:    ownerID,
		Title:     title,
		DueDate:   dueDate,
		Priority:  priority,
		Status:    models.StatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestUserUniqueCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "u1", Username: "Alice"}))

	err := store.CreateUser(ctx, &models.User{ID: "u2", Username: "alice"})
	assert.Equal(t, errors.ErrUserAlreadyExists, err)

	user, err := store.GetUserByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = store.GetUserByUsername(ctx, "bob")
	assert.Equal(t, errors.ErrUserNotFound, err)
}

func TestTaskOwnership(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	task := newTask("t1", "alice", "Задача Алисы", models.PriorityMedium, "2025-07-01", time.Now())
	require.NoError(t, store.CreateTask(ctx, task))

	_, err := store.GetTask(ctx, "t1", "bob")
	assert.Equal(t, errors.ErrNotFound, err)

	foreign := *task
	foreign.UserID = "bob"
	assert.Equal(t, errors.ErrNotFound, store.UpdateTask(ctx, &foreign))

	assert.Equal(t, errors.ErrNotFound, store.DeleteTask(ctx, "t1", "bob"))

	got, err := store.GetTask(ctx, "t1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Задача Алисы", got.Title)
	require.NoError(t, store.DeleteTask(ctx, "t1", "alice"))

	_, err = store.GetTask(ctx, "t1", "alice")
	assert.Equal(t, errors.ErrNotFound, err)
}

func TestListTasksFiltering(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateTask(ctx, newTask("t1", "alice", "Подготовить отчёт", models.PriorityHigh, "2025-07-03", base)))
	require.NoError(t, store.CreateTask(ctx, newTask("t2", "alice", "Назначить meeting", models.PriorityHigh, "2025-07-01", base.Add(time.Hour))))
	require.NoError(t, store.CreateTask(ctx, newTask("t3", "alice", "Полить цветы", models.PriorityLow, "2025-07-02", base.Add(2*time.Hour))))
	require.NoError(t, store.CreateTask(ctx, newTask("t4", "bob", "Чужая задача", models.PriorityHigh, "2025-07-01", base)))

	t.Run("scoped to owner", func(t *testing.T) {
		tasks, total, err := store.ListTasks(ctx, "alice", models.TaskFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, tasks, 3)
	})

	t.Run("default order newest first", func(t *testing.T) {
		tasks, _, err := store.ListTasks(ctx, "alice", models.TaskFilter{})
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "t3", tasks[0].ID)
		assert.Equal(t, "t1", tasks[2].ID)
	})

	t.Run("priority filter", func(t *testing.T) {
		tasks, total, err := store.ListTasks(ctx, "alice", models.TaskFilter{Priority: models.PriorityHigh})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, task := range tasks {
			assert.Equal(t, models.PriorityHigh, task.Priority)
		}
	})

	t.Run("due date filter", func(t *testing.T) {
		due, err := models.ParseDateOnly("2025-07-02")
		require.NoError(t, err)
		tasks, total, err := store.ListTasks(ctx, "alice", models.TaskFilter{DueDate: &due})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, tasks, 1)
		assert.Equal(t, "t3", tasks[0].ID)
	})

	t.Run("search over title", func(t *testing.T) {
		tasks, total, err := store.ListTasks(ctx, "alice", models.TaskFilter{Search: "MEETING"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, tasks, 1)
		assert.Equal(t, "t2", tasks[0].ID)
	})

	t.Run("ordering by due date desc", func(t *testing.T) {
		tasks, _, err := store.ListTasks(ctx, "alice", models.TaskFilter{OrderBy: "due_date", Desc: true})
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "t1", tasks[0].ID)
		assert.Equal(t, "t2", tasks[2].ID)
	})

	t.Run("pagination keeps full count", func(t *testing.T) {
		tasks, total, err := store.ListTasks(ctx, "alice", models.TaskFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, tasks, 1)
	})

	t.Run("offset past the end", func(t *testing.T) {
		tasks, total, err := store.ListTasks(ctx, "alice", models.TaskFilter{Limit: 10, Offset: 50})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Empty(t, tasks)
	})
}

func TestCategoryNameUniquePerOwner(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	require.NoError(t, store.CreateCategory(ctx, &models.Category{ID: "c1", UserID: "alice", Name: "Работа"}))

	err := store.CreateCategory(ctx, &models.Category{ID: "c2", UserID: "alice", Name: "работа"})
	assert.Equal(t, errors.ErrCategoryExists, err)

	// У другого владельца то же имя свободно.
	require.NoError(t, store.CreateCategory(ctx, &models.Category{ID: "c3", UserID: "bob", Name: "Работа"}))

	taken, err := store.CategoryNameTaken(ctx, "alice", "РАБОТА", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.CategoryNameTaken(ctx, "alice", "РАБОТА", "c1")
	require.NoError(t, err)
	assert.False(t, taken, "сама категория исключается из проверки")
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	require.NoError(t, store.CreateCategory(ctx, &models.Category{ID: "c1", UserID: "alice", Name: "Работа"}))
	require.NoError(t, store.CreateCategory(ctx, &models.Category{ID: "c2", UserID: "alice", Name: "Дом"}))

	// Смена только регистра имени проходит.
	require.NoError(t, store.UpdateCategory(ctx, &models.Category{ID: "c1", UserID: "alice", Name: "РАБОТА"}))

	err := store.UpdateCategory(ctx, &models.Category{ID: "c2", UserID: "alice", Name: "работа"})
	assert.Equal(t, errors.ErrCategoryExists, err)

	err = store.UpdateCategory(ctx, &models.Category{ID: "c1", UserID: "bob", Name: "Хобби"})
	assert.Equal(t, errors.ErrNotFound, err)
}

func TestDeleteCategoryClearsTaskReference(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	require.NoError(t, store.CreateCategory(ctx, &models.Category{ID: "c1", UserID: "alice", Name: "Работа"}))

	categoryID := "c1"
	task := newTask("t1", "alice", "Задача в категории", models.PriorityMedium, "2025-07-01", time.Now())
	task.CategoryID = &categoryID
	require.NoError(t, store.CreateTask(ctx, task))

	assert.Equal(t, errors.ErrNotFound, store.DeleteCategory(ctx, "c1", "bob"))
	require.NoError(t, store.DeleteCategory(ctx, "c1", "alice"))

	got, err := store.GetTask(ctx, "t1", "alice")
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestListCategoriesOrderAndSearch(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	require.NoError(t, store.CreateCategory(ctx, &models.Category{ID: "c1", UserID: "alice", Name: "работа", CreatedAt: time.Now()}))
	require.NoError(t, store.CreateCategory(ctx, &models.Category{ID: "c2", UserID: "alice", Name: "Дом", CreatedAt: time.Now().Add(time.Hour)}))
	require.NoError(t, store.CreateCategory(ctx, &models.Category{ID: "c3", UserID: "bob", Name: "Архив"}))

	categories, total, err := store.ListCategories(ctx, "alice", models.CategoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, categories, 2)
	assert.Equal(t, "Дом", categories[0].Name)
	assert.Equal(t, "работа", categories[1].Name)

	categories, total, err = store.ListCategories(ctx, "alice", models.CategoryFilter{Search: "раб"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, categories, 1)
	assert.Equal(t, "c1", categories[0].ID)
}
