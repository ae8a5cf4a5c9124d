package service

import (
	"context"
	"log"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users UserRepository
	now   func() time.Time
}

func NewAuthService(users UserRepository) *AuthService {
	return &AuthService{users: users, now: time.Now}
}

// Register создаёт пользователя. Имена сравниваются без учёта регистра —
// хранилище ищет и ограничивает уникальность по lower(username).
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	existing, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil && err != errors.ErrUserNotFound {
		return nil, err
	}
	if existing != nil {
		return nil, errors.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Println("[ERROR] Не удалось захешировать пароль:", err)
		return nil, errors.ErrInternalServer
	}

	user := &models.User{
		ID:        uuid.New().String(),
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hash),
		CreatedAt: s.now(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		log.Println("[ERROR] Не удалось создать пользователя:", err)
		return nil, err
	}
	log.Println("[SUCCESS] Пользователь успешно создан:", user.ID)
	return user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, errors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errors.ErrInvalidCredentials
	}
	return user, nil
}

// Lookup проверяет, что владелец refresh-токена всё ещё существует.
func (s *AuthService) Lookup(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, errors.ErrInvalidCredentials
	}
	return user, nil
}
