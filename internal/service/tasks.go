package service

import (
	"context"
	"log"
	"time"

	"taskmanager/internal/domain/models"

	"github.com/google/uuid"
)

// TaskService — единственный путь чтения и изменения задач. Все операции
// ограничены владельцем из Principal.
type TaskService struct {
	tasks      TaskRepository
	categories CategoryRepository
	query      QueryConfig
	now        func() time.Time
}

func NewTaskService(tasks TaskRepository, categories CategoryRepository, query QueryConfig) *TaskService {
	return &TaskService{
		tasks:      tasks,
		categories: categories,
		query:      query.normalized(),
		now:        time.Now,
	}
}

func (s *TaskService) Create(ctx context.Context, p Principal, req models.CreateTaskRequest) (*models.Task, error) {
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}

	priority, err := validatePriority(req.Priority)
	if err != nil {
		return nil, err
	}

	status, err := validateStatus(req.Status)
	if err != nil {
		return nil, err
	}

	due, err := models.ParseDateOnly(req.DueDate)
	if err != nil {
		return nil, err
	}

	var categoryID *string
	if req.CategoryID != nil && *req.CategoryID != "" {
		category, err := resolveCategory(ctx, s.categories, p, *req.CategoryID)
		if err != nil {
			return nil, err
		}
		categoryID = &category.ID
	}

	now := s.now()
	task := &models.Task{
		ID:          uuid.New().String(),
		UserID:      p.UserID(),
		User:        p.Username(),
		CategoryID:  categoryID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		Priority:    priority,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status == models.StatusCompleted {
		task.CompletedAt = &now
	}

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		log.Println("[ERROR] Не удалось создать задачу:", err)
		return nil, err
	}
	log.Println("[SUCCESS] Задача успешно создана:", task.ID)
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, p Principal, id string) (*models.Task, error) {
	task, err := s.tasks.GetTask(ctx, id, p.UserID())
	if err != nil {
		return nil, err
	}
	task.User = p.Username()
	return task, nil
}

func (s *TaskService) List(ctx context.Context, p Principal, opts ListOptions) ([]models.Task, int64, error) {
	filter, err := s.query.taskFilter(opts)
	if err != nil {
		return nil, 0, err
	}

	tasks, total, err := s.tasks.ListTasks(ctx, p.UserID(), filter)
	if err != nil {
		log.Println("[ERROR] Не удалось получить задачи:", err)
		return nil, 0, err
	}
	for i := range tasks {
		tasks[i].User = p.Username()
	}
	return tasks, total, nil
}

func (s *TaskService) Update(ctx context.Context, p Principal, id string, req models.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.tasks.GetTask(ctx, id, p.UserID())
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		if err := validateTitle(req.Title); err != nil {
			return nil, err
		}
		task.Title = req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != "" {
		due, err := models.ParseDateOnly(req.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = due
	}
	if req.Priority != "" {
		priority, err := validatePriority(req.Priority)
		if err != nil {
			return nil, err
		}
		task.Priority = priority
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			task.CategoryID = nil
		} else {
			category, err := resolveCategory(ctx, s.categories, p, *req.CategoryID)
			if err != nil {
				return nil, err
			}
			task.CategoryID = &category.ID
		}
	}
	if req.Status != "" {
		status, err := validateStatus(req.Status)
		if err != nil {
			return nil, err
		}
		s.transition(task, status)
	}

	task.UpdatedAt = s.now()
	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		log.Println("[ERROR] Не удалось обновить задачу:", err)
		return nil, err
	}
	log.Println("[SUCCESS] Задача успешно обновлена:", task.ID)
	task.User = p.Username()
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, p Principal, id string) error {
	if err := s.tasks.DeleteTask(ctx, id, p.UserID()); err != nil {
		return err
	}
	log.Println("[SUCCESS] Задача помечена как удалённая:", id)
	return nil
}

// Toggle переводит задачу между PENDING и COMPLETED. Явный статус в запросе
// применяется как есть, отсутствующий или нераспознанный переключает текущее
// состояние. Явный COMPLETED намеренно перештамповывает CompletedAt даже у
// уже завершённой задачи.
func (s *TaskService) Toggle(ctx context.Context, p Principal, id, requested string) (*models.Task, error) {
	task, err := s.tasks.GetTask(ctx, id, p.UserID())
	if err != nil {
		return nil, err
	}

	target := requested
	if target != models.StatusCompleted && target != models.StatusPending {
		if task.Status == models.StatusPending {
			target = models.StatusCompleted
		} else {
			target = models.StatusPending
		}
	}

	s.transition(task, target)
	task.UpdatedAt = s.now()

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		log.Println("[ERROR] Не удалось переключить статус задачи:", err)
		return nil, err
	}
	log.Println("[SUCCESS] Статус задачи переключён:", task.ID, "->", task.Status)
	task.User = p.Username()
	return task, nil
}

// transition — единственное место, меняющее пару status/completed_at.
func (s *TaskService) transition(task *models.Task, target string) {
	switch target {
	case models.StatusCompleted:
		now := s.now()
		task.Status = models.StatusCompleted
		task.CompletedAt = &now
	case models.StatusPending:
		task.Status = models.StatusPending
		task.CompletedAt = nil
	}
}
