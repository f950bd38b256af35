package i18n

// Message keys. Arguments are always passed as strings.
const (
	ErrUserNotFoundID    = "error.user.not_found_id"
	ErrUserNotFoundEmail = "error.user.not_found_email"
	ErrAlreadyExists     = "error.details.already_exist"
	ErrInvalidID         = "error.details.invalid_id"
	ErrMalformedBody     = "error.details.malformed_body"
	ErrTooManyRequests   = "error.details.too_many_requests"
	ErrUnauthorized      = "error.details.unauthorized"
	ErrUnavailable       = "error.details.unavailable"
	ErrInternal          = "error.details.internal"

	TitleNotFound        = "error.title.not_found"
	TitleValidation      = "error.title.validation"
	TitleAlreadyExists   = "error.title.already_exist"
	TitleUnauthorized    = "error.title.unauthorized"
	TitleTooManyRequests = "error.title.too_many_requests"
	TitleUnavailable     = "error.title.unavailable"
	TitleInternal        = "error.title.internal"

	InfoUserUpdated     = "info.user.update"
	InfoUserDeleted     = "info.user.delete"
	InfoEmailConfirmed  = "info.user.email_confirmed"
	InfoPasswordUpdated = "info.user.password_updated"

	ValidationRequired   = "validation.required"
	ValidationEmail      = "validation.email"
	ValidationMin        = "validation.min"
	ValidationMax        = "validation.max"
	ValidationOneOf      = "validation.oneof"
	ValidationPassword   = "validation.pwd"
	ValidationPersonName = "validation.personname"
	ValidationInvalid    = "validation.invalid"
	ValidationBcryptHash = "validation.bcrypthash"
	ValidationImmutable  = "validation.immutable"
)

type translation struct {
	en, ru string
}

var messages = map[string]translation{
	ErrUserNotFoundID:    {"User with id %s not found", "Пользователь с id %s не найден"},
	ErrUserNotFoundEmail: {"User with email %s not found", "Пользователь с электронной почтой %s не найден"},
	ErrAlreadyExists:     {"User with email %s already exists", "Пользователь с электронной почтой %s уже существует"},
	ErrInvalidID:         {"Invalid user id %s", "Некорректный id пользователя %s"},
	ErrMalformedBody:     {"Malformed request body", "Некорректное тело запроса"},
	ErrTooManyRequests:   {"Rate limit exceeded, retry in %s seconds", "Превышен лимит запросов, повторите через %s с"},
	ErrUnauthorized:      {"Missing or invalid bearer token", "Отсутствует или недействителен токен доступа"},
	ErrUnavailable:       {"The service is temporarily unavailable", "Сервис временно недоступен"},
	ErrInternal:          {"An unexpected error occurred", "Произошла непредвиденная ошибка"},

	TitleNotFound:        {"Not found", "Не найдено"},
	TitleValidation:      {"Validation error", "Ошибка валидации"},
	TitleAlreadyExists:   {"Already exists", "Уже существует"},
	TitleUnauthorized:    {"Unauthorized", "Не авторизован"},
	TitleTooManyRequests: {"Too many requests", "Слишком много запросов"},
	TitleUnavailable:     {"Service unavailable", "Сервис недоступен"},
	TitleInternal:        {"Internal server error", "Внутренняя ошибка сервера"},

	InfoUserUpdated:     {"User updated", "Пользователь обновлён"},
	InfoUserDeleted:     {"User deleted", "Пользователь удалён"},
	InfoEmailConfirmed:  {"Email confirmed", "Электронная почта подтверждена"},
	InfoPasswordUpdated: {"Password updated", "Пароль обновлён"},

	ValidationRequired:   {"%s is required", "Поле %s обязательно"},
	ValidationEmail:      {"%s must be a valid email address", "Поле %s должно содержать корректный адрес электронной почты"},
	ValidationMin:        {"%s must be at least %s characters long", "Поле %s должно содержать не менее %s символов"},
	ValidationMax:        {"%s must be at most %s characters long", "Поле %s должно содержать не более %s символов"},
	ValidationOneOf:      {"%s must be one of: %s", "Поле %s должно быть одним из: %s"},
	ValidationPassword:   {"%s must be 8-50 characters and contain a letter and a digit", "Поле %s должно содержать 8-50 символов, букву и цифру"},
	ValidationPersonName: {"%s may contain only letters, spaces, hyphens and apostrophes", "Поле %s может содержать только буквы, пробелы, дефисы и апострофы"},
	ValidationInvalid:    {"%s is invalid", "Поле %s заполнено некорректно"},
	ValidationBcryptHash: {"%s must be a bcrypt hash", "Поле %s должно содержать bcrypt-хеш"},
	ValidationImmutable:  {"%s cannot be changed", "Поле %s нельзя изменить"},
}
