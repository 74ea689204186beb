package resilience

import (
	"sync"
	"time"
)

// CircuitState представляет состояние Circuit Breaker.
type CircuitState int

// Состояния Circuit Breaker.
const (
	// StateClosed - нормальное состояние, запросы проходят.
	StateClosed CircuitState = iota
	// StateOpen - состояние отказа, запросы блокируются.
	StateOpen
	// StateHalfOpen - промежуточное состояние, пробные запросы.
	StateHalfOpen
)

// CircuitBreakerConfig содержит настройки Circuit Breaker.
type CircuitBreakerConfig struct {
	// ErrorThreshold - количество подряд идущих ошибок до размыкания.
	ErrorThreshold int
	// Timeout - время, через которое размыкатель пробует полуоткрытое состояние.
	Timeout time.Duration
	// SuccessThreshold - количество успехов для возврата в закрытое состояние.
	SuccessThreshold int
}

// DefaultCircuitBreakerConfig возвращает конфигурацию по умолчанию.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		ErrorThreshold:   5,
		Timeout:          30 * time.Second,
		SuccessThreshold: 2,
	}
}

// CircuitBreaker подавляет удалённые попытки после серии отказов.
// Разомкнутый размыкатель оркестратор трактует как оффлайн: изменения
// ставятся в очередь без попытки сети.
type CircuitBreaker struct {
	mu        sync.Mutex
	config    CircuitBreakerConfig
	state     CircuitState
	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time
}

// NewCircuitBreaker создает новый Circuit Breaker в закрытом состоянии.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.ErrorThreshold < 1 {
		config.ErrorThreshold = 1
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Allow сообщает, можно ли выполнять удалённый вызов.
// По истечении таймаута разомкнутое состояние переходит в полуоткрытое.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.state = StateHalfOpen
		cb.successes = 0
	}
	return cb.state != StateOpen
}

// Success фиксирует успешный вызов.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failures = 0
		}
	case StateClosed:
		cb.failures = 0
	case StateOpen:
	}
}

// Failure фиксирует неуспешный вызов.
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		cb.openedAt = cb.now()
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.ErrorThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	case StateOpen:
	}
}

// State возвращает текущее состояние размыкателя.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
