package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"taskmanager/internal/domain/errors"
)

const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"

	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
)

// TaskPriorities and TaskStatuses enumerate the allowed enum values in the
// order they are reported to clients.
var (
	TaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
	TaskStatuses   = []string{StatusPending, StatusCompleted}
)

const dateLayout = "2006-01-02"

// DateOnly is a calendar date without a time component. It marshals as
// "ГГГГ-ММ-ДД" and maps to the SQL date type.
type DateOnly struct {
	time.Time
}

func NewDateOnly(t time.Time) DateOnly {
	return DateOnly{Time: t}
}

func ParseDateOnly(s string) (DateOnly, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return DateOnly{}, errors.ErrInvalidDueDate
	}
	return DateOnly{Time: t}, nil
}

func (d DateOnly) String() string {
	return d.Format(dateLayout)
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", d.Format(dateLayout))), nil
}

func (d *DateOnly) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return errors.ErrInvalidDueDate
	}
	d.Time = t
	return nil
}

func (d DateOnly) Value() (driver.Value, error) {
	return d.Time, nil
}

func (d *DateOnly) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v
		return nil
	case string:
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return err
		}
		d.Time = t
		return nil
	default:
		return errors.ErrInvalidDueDate
	}
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Category groups a user's tasks. Имя уникально в пределах владельца без
// учёта регистра.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	User      string    `json:"user"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Task принадлежит ровно одному пользователю. CompletedAt заполнен тогда и
// только тогда, когда Status == COMPLETED.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	User        string     `json:"user"`
	CategoryID  *string    `json:"category"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     DateOnly   `json:"due_date"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Deleted     bool       `json:"-"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=255"`
	Description string  `json:"description" validate:"omitempty"`
	DueDate     string  `json:"due_date" validate:"required"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Status      string  `json:"status" validate:"omitempty,oneof=PENDING COMPLETED"`
	CategoryID  *string `json:"category" validate:"omitempty"`
}

// UpdateTaskRequest допускает частичное обновление: указатели отличают
// отсутствующее поле от явного null/пустого значения.
type UpdateTaskRequest struct {
	Title       string  `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty"`
	DueDate     string  `json:"due_date" validate:"omitempty"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Status      string  `json:"status" validate:"omitempty,oneof=PENDING COMPLETED"`
	CategoryID  *string `json:"category" validate:"omitempty"`
}

// ToggleTaskRequest несёт необязательный целевой статус; нераспознанное
// значение трактуется как переключение текущего состояния.
type ToggleTaskRequest struct {
	Status string `json:"status"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type UpdateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// TaskFilter — разрешённый запрос к хранилищу задач: владелец подставляется
// хранилищем отдельно и обязателен в каждом вызове.
type TaskFilter struct {
	Priority   string
	Status     string
	DueDate    *DateOnly
	CategoryID string
	Search     string
	OrderBy    string
	Desc       bool
	Limit      int
	Offset     int
}

type CategoryFilter struct {
	Search  string
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// Page — конверт списочного ответа в стиле DRF.
type Page struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}
