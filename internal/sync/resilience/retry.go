// Package resilience содержит механизмы отказоустойчивости удалённых
// вызовов движка синхронизации.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"notesync/internal/sync/ports/services"
	"notesync/pkg/logger"
)

// RetryConfig содержит настройки retry механизма.
type RetryConfig struct {
	// MaxAttempts - максимальное количество попыток (включая первую).
	MaxAttempts int
	// InitialBackoff - начальная задержка между попытками.
	InitialBackoff time.Duration
	// MaxBackoff - максимальная задержка между попытками.
	MaxBackoff time.Duration
	// BackoffFactor - множитель для экспоненциального отступа.
	BackoffFactor float64
	// ShouldRetry - функция, определяющая, имеет ли смысл повтор.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию: два быстрых
// повтора только для временных ошибок удалённого API.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		BackoffFactor:  2.0,
		ShouldRetry:    defaultShouldRetry,
	}
}

// ErrContextCanceled возвращается, когда контекст был отменен во время
// ожидания перед повторной попыткой.
var ErrContextCanceled = errors.New("context was canceled during retry")

func defaultShouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return services.IsTransient(err)
}

// Константы для логирования.
const (
	logRetryAttempt     = "retry attempt"
	logRetrySuccess     = "retry succeeded"
	logRetryMaxAttempts = "retry max attempts reached"
)

// Retry выполняет функцию с повторными попытками.
type Retry struct {
	name   string
	config RetryConfig
}

// NewRetry создает новый экземпляр retry механизма.
func NewRetry(name string, config RetryConfig) *Retry {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.ShouldRetry == nil {
		config.ShouldRetry = defaultShouldRetry
	}
	return &Retry{name: name, config: config}
}

// Execute выполняет функцию с автоматическими повторными попытками.
func (r *Retry) Execute(ctx context.Context, operation func() error) error {
	log := logger.Log(ctx).With(zap.String("retry", r.name))

	var err error
	backoff := r.config.InitialBackoff
	attempts := 0

	for attempts < r.config.MaxAttempts {
		attempts++

		err = operation()

		if err == nil || !r.config.ShouldRetry(err) {
			if attempts > 1 && err == nil {
				log.Info(ctx, logRetrySuccess, zap.Int("attempts", attempts))
			}
			return err
		}

		if attempts >= r.config.MaxAttempts {
			log.Warn(ctx, logRetryMaxAttempts,
				zap.Int("attempts", attempts),
				zap.Error(err))
			return err
		}

		log.Debug(ctx, logRetryAttempt,
			zap.Int("attempt", attempts),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
		}

		backoff = time.Duration(float64(backoff) * r.config.BackoffFactor)
		if backoff > r.config.MaxBackoff {
			backoff = r.config.MaxBackoff
		}
	}

	return err
}
