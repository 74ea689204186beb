package services

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError - типизированная ошибка удалённого API с HTTP-кодом состояния.
type APIError struct {
	StatusCode int
	Message    string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	return fmt.Sprintf("remote api: status %d: %s", e.StatusCode, e.Message)
}

// IsTransient сообщает, ожидается ли успех операции при повторе.
// Временными считаются сетевые ошибки (любая ошибка без кода состояния),
// таймауты запроса (408), ограничение частоты (429) и ошибки сервера (5xx).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return true
	}
	switch {
	case apiErr.StatusCode == http.StatusRequestTimeout,
		apiErr.StatusCode == http.StatusTooManyRequests,
		apiErr.StatusCode >= 500:
		return true
	}
	return false
}

// IsPermanent сообщает, что повтор операции детерминированно провалится
// (4xx за исключением 408 и 429).
func IsPermanent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && !IsTransient(err)
}
