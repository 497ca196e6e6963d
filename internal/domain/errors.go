package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoDrafts возвращается генератором, если модель не дала ни одного черновика.
var ErrNoDrafts = errors.New("генератор не вернул ни одного черновика")

// ErrEmptyTimeline возвращается, если для генерации нет ни одного поста.
var ErrEmptyTimeline = errors.New("таймлайн пуст")

// PlatformError — типизированная ошибка платформы X.
// Код статуса сохраняется, чтобы вызывающий мог различить 401/429/5xx.
type PlatformError struct {
	StatusCode int
	Message    string
}

func (e *PlatformError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform: status %d", e.StatusCode)
	}
	return fmt.Sprintf("platform: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized сообщает, что платформа отклонила авторизацию.
func (e *PlatformError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

// IsRateLimited сообщает, что платформа ограничила частоту запросов.
func (e *PlatformError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsServerError сообщает о сбое на стороне платформы.
func (e *PlatformError) IsServerError() bool { return e.StatusCode >= 500 }

// PublishError сообщает о частичной публикации цепочки: сколько черновиков
// успело уйти до первого сбоя. Уже опубликованные посты остаются на платформе.
type PublishError struct {
	Published int
	Total     int
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("опубликовано %d из %d: %v", e.Published, e.Total, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
