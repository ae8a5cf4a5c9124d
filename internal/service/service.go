package service

import (
	"context"

	"taskmanager/internal/domain/models"
)

// Principal — подтверждённая личность запроса. Создаётся только middleware
// аутентификации; поля закрыты, чтобы owner нельзя было подменить из тела
// запроса.
type Principal struct {
	userID   string
	username string
}

func NewPrincipal(userID, username string) Principal {
	return Principal{userID: userID, username: username}
}

func (p Principal) UserID() string   { return p.userID }
func (p Principal) Username() string { return p.username }

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// TaskRepository: каждый вызов чтения/изменения получает владельца явно —
// запись другого пользователя неотличима от отсутствующей.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id, ownerID string) (*models.Task, error)
	ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, int64, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id, ownerID string) error
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id, ownerID string) (*models.Category, error)
	ListCategories(ctx context.Context, ownerID string, filter models.CategoryFilter) ([]models.Category, int64, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id, ownerID string) error
	CategoryNameTaken(ctx context.Context, ownerID, name, excludeID string) (bool, error)
}
