package service

import (
	"context"
	"log"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/google/uuid"
)

type CategoryService struct {
	categories CategoryRepository
	query      QueryConfig
	now        func() time.Time
}

func NewCategoryService(categories CategoryRepository, query QueryConfig) *CategoryService {
	return &CategoryService{
		categories: categories,
		query:      query.normalized(),
		now:        time.Now,
	}
}

func (s *CategoryService) Create(ctx context.Context, p Principal, req models.CreateCategoryRequest) (*models.Category, error) {
	if err := validateCategoryName(req.Name); err != nil {
		return nil, err
	}

	taken, err := s.categories.CategoryNameTaken(ctx, p.UserID(), req.Name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.ErrCategoryExists
	}

	category := &models.Category{
		ID:        uuid.New().String(),
		UserID:    p.UserID(),
		User:      p.Username(),
		Name:      req.Name,
		CreatedAt: s.now(),
	}

	// Повторная проверка уникальности выполняется хранилищем в одной
	// транзакции с вставкой: гонка двух одинаковых имён оканчивается тем же
	// ErrCategoryExists.
	if err := s.categories.CreateCategory(ctx, category); err != nil {
		log.Println("[ERROR] Не удалось создать категорию:", err)
		return nil, err
	}
	log.Println("[SUCCESS] Категория успешно создана:", category.ID)
	return category, nil
}

func (s *CategoryService) Get(ctx context.Context, p Principal, id string) (*models.Category, error) {
	category, err := s.categories.GetCategory(ctx, id, p.UserID())
	if err != nil {
		return nil, err
	}
	category.User = p.Username()
	return category, nil
}

func (s *CategoryService) List(ctx context.Context, p Principal, opts ListOptions) ([]models.Category, int64, error) {
	filter := s.query.categoryFilter(opts)

	categories, total, err := s.categories.ListCategories(ctx, p.UserID(), filter)
	if err != nil {
		log.Println("[ERROR] Не удалось получить категории:", err)
		return nil, 0, err
	}
	for i := range categories {
		categories[i].User = p.Username()
	}
	return categories, total, nil
}

// Update переименовывает категорию. Сама категория исключается из проверки
// коллизий, поэтому смена только регистра имени проходит.
func (s *CategoryService) Update(ctx context.Context, p Principal, id string, req models.UpdateCategoryRequest) (*models.Category, error) {
	category, err := s.categories.GetCategory(ctx, id, p.UserID())
	if err != nil {
		return nil, err
	}

	if err := validateCategoryName(req.Name); err != nil {
		return nil, err
	}

	taken, err := s.categories.CategoryNameTaken(ctx, p.UserID(), req.Name, category.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.ErrCategoryExists
	}

	category.Name = req.Name
	if err := s.categories.UpdateCategory(ctx, category); err != nil {
		log.Println("[ERROR] Не удалось обновить категорию:", err)
		return nil, err
	}
	log.Println("[SUCCESS] Категория успешно обновлена:", category.ID)
	category.User = p.Username()
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, p Principal, id string) error {
	if err := s.categories.DeleteCategory(ctx, id, p.UserID()); err != nil {
		return err
	}
	log.Println("[SUCCESS] Категория успешно удалена:", id)
	return nil
}
