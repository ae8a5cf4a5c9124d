package errors

import "errors"

var (
	ErrUserNotFound       = errors.New("пользователь не найден")
	ErrUserAlreadyExists  = errors.New("пользователь уже существует")
	ErrInvalidCredentials = errors.New("неверные учетные данные")
	ErrInvalidInput       = errors.New("некорректные входные данные")
	ErrValidationFailed   = errors.New("ошибка валидации")
	ErrUnauthorized       = errors.New("нет доступа")
	ErrInternalServer     = errors.New("внутренняя ошибка сервера")
	ErrBadRequest         = errors.New("неверный запрос")
	ErrNotFound           = errors.New("ресурс не найден")
	ErrConflict           = errors.New("конфликт ресурса")

	ErrInvalidUsername    = errors.New("некорректное имя пользователя")
	ErrInvalidEmail       = errors.New("некорректный email")
	ErrInvalidPassword    = errors.New("пароль должен содержать не менее 8 символов")
	ErrInvalidTitle       = errors.New("некорректный заголовок задачи: от 1 до 255 символов")
	ErrInvalidDescription = errors.New("некорректное описание задачи")
	ErrInvalidPriority    = errors.New("недопустимый приоритет задачи: допустимые значения LOW, MEDIUM, HIGH")
	ErrInvalidStatus      = errors.New("недопустимый статус задачи: допустимые значения PENDING, COMPLETED")
	ErrInvalidDueDate     = errors.New("некорректный срок задачи: ожидается дата в формате ГГГГ-ММ-ДД")
	ErrInvalidCategory    = errors.New("некорректный идентификатор категории")

	ErrInvalidCategoryName = errors.New("некорректное имя категории: от 1 до 100 символов")
	ErrCategoryExists      = errors.New("категория с таким именем уже существует")
	ErrForeignCategory     = errors.New("нельзя назначить категорию другого пользователя")

	ErrInvalidToken = errors.New("недействительный токен")
	ErrTokenExpired = errors.New("срок действия токена истёк")

	ErrConfigFileReadFailed = errors.New("не удалось прочитать файл конфигурации")
	ErrConfigParseFailed    = errors.New("не удалось разобрать файл конфигурации")
	ErrConfigInvalidFormat  = errors.New("некорректный формат значения конфигурации")

	ErrInvalidGzipRequest    = errors.New("некорректное gzip-тело запроса")
	ErrGzipCompressionFailed = errors.New("ошибка сжатия ответа")
)
