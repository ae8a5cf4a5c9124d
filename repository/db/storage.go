package db

import (
	"context"
	stderrors "errors"
	"log"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type Storage struct {
	conn               *pgx.Conn
	prepCreateTask     string
	prepGetTask        string
	prepUpdateTask     string
	prepDeleteTask     string
	prepCreateCategory string
	prepGetCategory    string
	prepUpdateCategory string
	prepDeleteCategory string
	prepNameTaken      string
	prepCreateUser     string
	prepGetUserByID    string
	prepGetUserByName  string
	deleteQueue        chan struct{}
}

func NewStorage(connStr string) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Println("[ERROR] Не удалось подключиться к базе данных:", err)
		return nil, err
	}

	s := &Storage{
		conn: conn,
		prepCreateTask: `INSERT INTO tasks (id, user_id, category_id, title, description, due_date, priority, status, completed_at, created_at, updated_at, deleted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false)`,
		prepGetTask: `SELECT id, user_id, category_id, title, description, due_date, priority, status, completed_at, created_at, updated_at
			FROM tasks WHERE id = $1 AND user_id = $2 AND deleted = false`,
		prepUpdateTask: `UPDATE tasks SET category_id = $1, title = $2, description = $3, due_date = $4, priority = $5, status = $6, completed_at = $7, updated_at = $8
			WHERE id = $9 AND user_id = $10 AND deleted = false`,
		prepDeleteTask:     `UPDATE tasks SET deleted = true WHERE id = $1 AND user_id = $2 AND deleted = false`,
		prepCreateCategory: `INSERT INTO categories (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		prepGetCategory:    `SELECT id, user_id, name, created_at FROM categories WHERE id = $1 AND user_id = $2`,
		prepUpdateCategory: `UPDATE categories SET name = $1 WHERE id = $2 AND user_id = $3`,
		prepDeleteCategory: `DELETE FROM categories WHERE id = $1 AND user_id = $2`,
		prepNameTaken:      `SELECT EXISTS(SELECT 1 FROM categories WHERE user_id = $1 AND LOWER(name) = LOWER($2) AND id <> $3)`,
		prepCreateUser:     `INSERT INTO users (id, username, email, password, created_at) VALUES ($1, $2, $3, $4, $5)`,
		prepGetUserByID:    `SELECT id, username, email, password, created_at FROM users WHERE id = $1`,
		prepGetUserByName:  `SELECT id, username, email, password, created_at FROM users WHERE LOWER(username) = LOWER($1)`,
		deleteQueue:        make(chan struct{}, 10),
	}
	log.Println("[SUCCESS] Соединение с базой данных установлено успешно")
	return s, nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "create_task", s.prepCreateTask)
	if err != nil {
		log.Println("[ERROR] Не удалось подготовить запрос на создание задачи:", err)
		return err
	}
	_, err = s.conn.Exec(ctx, stmt.Name,
		task.ID, task.UserID, task.CategoryID, task.Title, task.Description,
		task.DueDate.Time, task.Priority, task.Status, task.CompletedAt,
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		log.Println("[ERROR] Не удалось создать задачу:", err)
		return err
	}
	return nil
}

func (s *Storage) GetTask(ctx context.Context, id, ownerID string) (*models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_task", s.prepGetTask)
	if err != nil {
		log.Println("[ERROR] Не удалось подготовить запрос на получение задачи:", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, id, ownerID)
	task, err := scanTask(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		log.Println("[ERROR] Ошибка при получении задачи:", err)
		return nil, err
	}
	return task, nil
}

// ListTasks строит запрос динамически: состав фильтров известен только во
// время запроса. Область владельца добавляется первой и безусловно.
func (s *Storage) ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	base := sq.Select(
		"id", "user_id", "category_id", "title", "description", "due_date",
		"priority", "status", "completed_at", "created_at", "updated_at",
	).From("tasks")
	base = applyTaskFilter(base, ownerID, filter)

	column := filter.OrderBy
	desc := filter.Desc
	if column == "" {
		column, desc = "created_at", true
	}
	direction := " ASC"
	if desc {
		direction = " DESC"
	}
	base = base.OrderBy(column + direction)
	if filter.Limit > 0 {
		base = base.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		base = base.Offset(uint64(filter.Offset))
	}

	query, args, err := base.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		log.Println("[ERROR] Не удалось получить задачи:", err)
		return nil, 0, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Println("[ERROR] Ошибка при чтении задач:", err)
			return nil, 0, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := applyTaskFilter(sq.Select("COUNT(*)").From("tasks"), ownerID, filter).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		log.Println("[ERROR] Не удалось посчитать задачи:", err)
		return nil, 0, err
	}
	return tasks, total, nil
}

func applyTaskFilter(builder sq.SelectBuilder, ownerID string, filter models.TaskFilter) sq.SelectBuilder {
	builder = builder.Where(sq.Eq{"user_id": ownerID, "deleted": false})
	if filter.Priority != "" {
		builder = builder.Where(sq.Eq{"priority": filter.Priority})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}
	if filter.CategoryID != "" {
		builder = builder.Where(sq.Eq{"category_id": filter.CategoryID})
	}
	if filter.DueDate != nil {
		builder = builder.Where(sq.Eq{"due_date": filter.DueDate.Time})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
		})
	}
	return builder
}

func (s *Storage) UpdateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "update_task", s.prepUpdateTask)
	if err != nil {
		log.Println("[ERROR] Не удалось подготовить запрос на обновление задачи:", err)
		return err
	}
	ct, err := s.conn.Exec(ctx, stmt.Name,
		task.CategoryID, task.Title, task.Description, task.DueDate.Time,
		task.Priority, task.Status, task.CompletedAt, task.UpdatedAt,
		task.ID, task.UserID)
	if err != nil {
		log.Println("[ERROR] Не удалось обновить задачу:", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "delete_task_soft", s.prepDeleteTask)
	if err != nil {
		log.Println("[ERROR] Не удалось подготовить запрос на пометку задачи как удалённой:", err)
		return err
	}
	ct, err := s.conn.Exec(ctx, stmt.Name, id, ownerID)
	if err != nil {
		log.Println("[ERROR] Не удалось пометить задачу как удалённую:", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	s.tryEnqueueOrFlush()
	return nil
}

// CreateCategory выполняет проверку уникальности и вставку в одной
// транзакции; гонку страхует уникальный индекс по (user_id, LOWER(name)).
func (s *Storage) CreateCategory(ctx context.Context, category *models.Category) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}

	var taken bool
	if err := tx.QueryRow(ctx, s.prepNameTaken, category.UserID, category.Name, "").Scan(&taken); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if taken {
		_ = tx.Rollback(ctx)
		return errors.ErrCategoryExists
	}

	if _, err := tx.Exec(ctx, s.prepCreateCategory, category.ID, category.UserID, category.Name, category.CreatedAt); err != nil {
		_ = tx.Rollback(ctx)
		return mapUniqueViolation(err, errors.ErrCategoryExists)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapUniqueViolation(err, errors.ErrCategoryExists)
	}
	return nil
}

func (s *Storage) GetCategory(ctx context.Context, id, ownerID string) (*models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_category", s.prepGetCategory)
	if err != nil {
		log.Println("[ERROR] Не удалось подготовить запрос на получение категории:", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, id, ownerID)
	category := &models.Category{}
	if err := row.Scan(&category.ID, &category.UserID, &category.Name, &category.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		log.Println("[ERROR] Ошибка при получении категории:", err)
		return nil, err
	}
	return category, nil
}

func (s *Storage) ListCategories(ctx context.Context, ownerID string, filter models.CategoryFilter) ([]models.Category, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	base := sq.Select("id", "user_id", "name", "created_at").From("categories")
	base = applyCategoryFilter(base, ownerID, filter)

	column := filter.OrderBy
	desc := filter.Desc
	if column == "" {
		column, desc = "name", false
	}
	direction := " ASC"
	if desc {
		direction = " DESC"
	}
	base = base.OrderBy(column + direction)
	if filter.Limit > 0 {
		base = base.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		base = base.Offset(uint64(filter.Offset))
	}

	query, args, err := base.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		log.Println("[ERROR] Не удалось получить категории:", err)
		return nil, 0, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		category := models.Category{}
		if err := rows.Scan(&category.ID, &category.UserID, &category.Name, &category.CreatedAt); err != nil {
			log.Println("[ERROR] Ошибка при чтении категорий:", err)
			return nil, 0, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := applyCategoryFilter(sq.Select("COUNT(*)").From("categories"), ownerID, filter).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		log.Println("[ERROR] Не удалось посчитать категории:", err)
		return nil, 0, err
	}
	return categories, total, nil
}

func applyCategoryFilter(builder sq.SelectBuilder, ownerID string, filter models.CategoryFilter) sq.SelectBuilder {
	builder = builder.Where(sq.Eq{"user_id": ownerID})
	if filter.Search != "" {
		builder = builder.Where(sq.ILike{"name": "%" + filter.Search + "%"})
	}
	return builder
}

func (s *Storage) UpdateCategory(ctx context.Context, category *models.Category) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}

	var taken bool
	if err := tx.QueryRow(ctx, s.prepNameTaken, category.UserID, category.Name, category.ID).Scan(&taken); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if taken {
		_ = tx.Rollback(ctx)
		return errors.ErrCategoryExists
	}

	ct, err := tx.Exec(ctx, s.prepUpdateCategory, category.Name, category.ID, category.UserID)
	if err != nil {
		_ = tx.Rollback(ctx)
		return mapUniqueViolation(err, errors.ErrCategoryExists)
	}
	if ct.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return errors.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return mapUniqueViolation(err, errors.ErrCategoryExists)
	}
	return nil
}

// DeleteCategory: ссылки задач обнуляются внешним ключом ON DELETE SET NULL.
func (s *Storage) DeleteCategory(ctx context.Context, id, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "delete_category", s.prepDeleteCategory)
	if err != nil {
		log.Println("[ERROR] Не удалось подготовить запрос на удаление категории:", err)
		return err
	}
	ct, err := s.conn.Exec(ctx, stmt.Name, id, ownerID)
	if err != nil {
		log.Println("[ERROR] Не удалось удалить категорию:", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (s *Storage) CategoryNameTaken(ctx context.Context, ownerID, name, excludeID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	var taken bool
	if err := s.conn.QueryRow(ctx, s.prepNameTaken, ownerID, name, excludeID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "create_user", s.prepCreateUser)
	if err != nil {
		log.Println("[ERROR] Не удалось подготовить запрос на создание пользователя:", err)
		return err
	}
	_, err = s.conn.Exec(ctx, stmt.Name, user.ID, user.Username, user.Email, user.Password, user.CreatedAt)
	if err != nil {
		log.Println("[ERROR] Не удалось создать пользователя:", err)
		return mapUniqueViolation(err, errors.ErrUserAlreadyExists)
	}
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_user_by_id", s.prepGetUserByID)
	if err != nil {
		log.Println("[ERROR] Не удалось подготовить запрос на получение пользователя по ID:", err)
		return nil, err
	}
	return s.scanUser(s.conn.QueryRow(ctx, stmt.Name, id))
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_user_by_username", s.prepGetUserByName)
	if err != nil {
		log.Println("[ERROR] Не удалось подготовить запрос на получение пользователя по имени:", err)
		return nil, err
	}
	return s.scanUser(s.conn.QueryRow(ctx, stmt.Name, username))
}

func (s *Storage) scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		log.Println("[ERROR] Ошибка при получении пользователя:", err)
		return nil, err
	}
	return user, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(&task.ID, &task.UserID, &task.CategoryID, &task.Title,
		&task.Description, &task.DueDate, &task.Priority, &task.Status,
		&task.CompletedAt, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func mapUniqueViolation(err, mapped error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return mapped
	}
	return err
}

func (s *Storage) tryEnqueueOrFlush() {
	if s.deleteQueue == nil {
		return
	}
	select {
	case s.deleteQueue <- struct{}{}:
	default:
		s.drainDeleteQueue()
		if affected, err := s.PurgeDeleted(context.Background()); err != nil {
			log.Println("[ERROR] Ошибка при удалении задач с признаком deleted:", err)
		} else if affected > 0 {
			log.Println("[SUCCESS] Жёстко удалено задач:", affected)
		}
	}
}

func (s *Storage) drainDeleteQueue() {
	if s.deleteQueue == nil {
		return
	}
	for {
		select {
		case <-s.deleteQueue:
		default:
			return
		}
	}
}

// PurgeDeleted окончательно удаляет задачи с выставленным признаком deleted.
// Вызывается из планировщика и при переполнении очереди отложенных удалений.
func (s *Storage) PurgeDeleted(ctx context.Context) (int64, error) {
	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	tx, err := s.conn.Begin(c)
	if err != nil {
		return 0, err
	}
	ct, err := tx.Exec(c, `DELETE FROM tasks WHERE deleted = true`)
	if err != nil {
		_ = tx.Rollback(c)
		return 0, err
	}
	if err := tx.Commit(c); err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
