package service

import (
	"context"
	"strings"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
)

// Проверки инвариантов выполняются здесь, а не в обработчиках: это
// единственное место, где сходятся правила между сущностями.

func validatePriority(value string) (string, error) {
	if value == "" {
		return models.PriorityMedium, nil
	}
	for _, p := range models.TaskPriorities {
		if value == p {
			return value, nil
		}
	}
	return "", errors.ErrInvalidPriority
}

func validateStatus(value string) (string, error) {
	if value == "" {
		return models.StatusPending, nil
	}
	for _, s := range models.TaskStatuses {
		if value == s {
			return value, nil
		}
	}
	return "", errors.ErrInvalidStatus
}

func validateTitle(title string) error {
	if title == "" || len(title) > 255 {
		return errors.ErrInvalidTitle
	}
	return nil
}

func validateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return errors.ErrInvalidCategoryName
	}
	return nil
}

// resolveCategory проверяет, что категория существует в области видимости
// запрашивающего. Чужая категория по контракту — ошибка валидации, а не 404:
// сам идентификатор пришёл в теле запроса, скрывать нечего.
func resolveCategory(ctx context.Context, repo CategoryRepository, p Principal, categoryID string) (*models.Category, error) {
	category, err := repo.GetCategory(ctx, categoryID, p.UserID())
	if err != nil {
		if err == errors.ErrNotFound {
			return nil, errors.ErrForeignCategory
		}
		return nil, err
	}
	return category, nil
}
