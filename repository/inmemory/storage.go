package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
)

// Storage — резервное хранилище в памяти. Реализует те же интерфейсы, что и
// repository/db, включая фильтрацию и пагинацию списков.
type Storage struct {
	mu         sync.RWMutex
	users      map[string]models.User
	categories map[string]models.Category
	tasks      map[string]models.Task
}

func NewStorage() *Storage {
	return &Storage{
		users:      make(map[string]models.User),
		categories: make(map[string]models.Category),
		tasks:      make(map[string]models.Task),
	}
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return errors.ErrUserAlreadyExists
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, errors.ErrUserNotFound
	}
	return &user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Username, username) {
			return &user, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = *task
	return nil
}

func (s *Storage) GetTask(ctx context.Context, id, ownerID string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[id]
	if !exists || task.Deleted || task.UserID != ownerID {
		return nil, errors.ErrNotFound
	}
	return &task, nil
}

func (s *Storage) ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []models.Task{}
	for _, t := range s.tasks {
		if t.UserID != ownerID || t.Deleted {
			continue
		}
		if !taskMatches(t, filter) {
			continue
		}
		matched = append(matched, t)
	}

	sortTasks(matched, filter.OrderBy, filter.Desc)
	total := int64(len(matched))
	return paginateTasks(matched, filter.Limit, filter.Offset), total, nil
}

func (s *Storage) UpdateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.tasks[task.ID]
	if !exists || existing.Deleted || existing.UserID != task.UserID {
		return errors.ErrNotFound
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists || task.Deleted || task.UserID != ownerID {
		return errors.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Storage) CreateCategory(ctx context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTakenLocked(category.UserID, category.Name, "") {
		return errors.ErrCategoryExists
	}
	s.categories[category.ID] = *category
	return nil
}

func (s *Storage) GetCategory(ctx context.Context, id, ownerID string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categories[id]
	if !exists || category.UserID != ownerID {
		return nil, errors.ErrNotFound
	}
	return &category, nil
}

func (s *Storage) ListCategories(ctx context.Context, ownerID string, filter models.CategoryFilter) ([]models.Category, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []models.Category{}
	search := strings.ToLower(filter.Search)
	for _, c := range s.categories {
		if c.UserID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		matched = append(matched, c)
	}

	sortCategories(matched, filter.OrderBy, filter.Desc)
	total := int64(len(matched))
	return paginateCategories(matched, filter.Limit, filter.Offset), total, nil
}

func (s *Storage) UpdateCategory(ctx context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.categories[category.ID]
	if !exists || existing.UserID != category.UserID {
		return errors.ErrNotFound
	}
	if s.nameTakenLocked(category.UserID, category.Name, category.ID) {
		return errors.ErrCategoryExists
	}
	s.categories[category.ID] = *category
	return nil
}

// DeleteCategory обнуляет ссылку на категорию у задач владельца, сами задачи
// не удаляются.
func (s *Storage) DeleteCategory(ctx context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, exists := s.categories[id]
	if !exists || category.UserID != ownerID {
		return errors.ErrNotFound
	}
	delete(s.categories, id)

	for taskID, task := range s.tasks {
		if task.CategoryID != nil && *task.CategoryID == id {
			task.CategoryID = nil
			s.tasks[taskID] = task
		}
	}
	return nil
}

func (s *Storage) CategoryNameTaken(ctx context.Context, ownerID, name, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nameTakenLocked(ownerID, name, excludeID), nil
}

func (s *Storage) nameTakenLocked(ownerID, name, excludeID string) bool {
	for _, c := range s.categories {
		if c.UserID != ownerID || c.ID == excludeID {
			continue
		}
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func taskMatches(t models.Task, f models.TaskFilter) bool {
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.CategoryID != "" && (t.CategoryID == nil || *t.CategoryID != f.CategoryID) {
		return false
	}
	if f.DueDate != nil && !t.DueDate.Time.Equal(f.DueDate.Time) {
		return false
	}
	if f.Search != "" {
		search := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			return false
		}
	}
	return true
}

func sortTasks(tasks []models.Task, orderBy string, desc bool) {
	less := func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) }
	switch orderBy {
	case "due_date":
		less = func(i, j int) bool { return tasks[i].DueDate.Time.Before(tasks[j].DueDate.Time) }
	case "priority":
		less = func(i, j int) bool { return tasks[i].Priority < tasks[j].Priority }
	case "created_at":
		less = func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) }
	default:
		// порядок по умолчанию: новые первыми
		desc = false
	}
	if desc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(tasks, less)
}

func sortCategories(categories []models.Category, orderBy string, desc bool) {
	less := func(i, j int) bool {
		return strings.ToLower(categories[i].Name) < strings.ToLower(categories[j].Name)
	}
	if orderBy == "created_at" {
		less = func(i, j int) bool { return categories[i].CreatedAt.Before(categories[j].CreatedAt) }
	}
	if desc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(categories, less)
}

func paginateTasks(tasks []models.Task, limit, offset int) []models.Task {
	if offset >= len(tasks) {
		return []models.Task{}
	}
	tasks = tasks[offset:]
	if limit > 0 && limit < len(tasks) {
		tasks = tasks[:limit]
	}
	return tasks
}

func paginateCategories(categories []models.Category, limit, offset int) []models.Category {
	if offset >= len(categories) {
		return []models.Category{}
	}
	categories = categories[offset:]
	if limit > 0 && limit < len(categories) {
		categories = categories[:limit]
	}
	return categories
}
