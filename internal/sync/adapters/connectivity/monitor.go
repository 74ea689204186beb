// Package connectivity реализует сигнал связности устройства.
package connectivity

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"notesync/pkg/logger"
)

// Константы для логирования монитора.
const (
	logProbeTransition = "connectivity state changed"
)

// ProbeFunc проверяет доступность удалённого сервиса.
type ProbeFunc func(ctx context.Context) error

// Monitor отслеживает состояние связности. Текущее состояние читается
// синхронно через Online; переходы доставляются через Events. Канал
// событий буферизован: при отставшем потребителе промежуточные переходы
// теряются, актуальным считается последнее значение.
type Monitor struct {
	online   atomic.Bool
	events   chan bool
	probe    ProbeFunc
	interval time.Duration
}

// NewMonitor создает монитор связности. Начальное состояние - оффлайн,
// до первого успешного пробного запроса.
func NewMonitor(probe ProbeFunc, interval time.Duration) *Monitor {
	return &Monitor{
		events:   make(chan bool, 8),
		probe:    probe,
		interval: interval,
	}
}

// Online сообщает текущее состояние связности.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Events возвращает канал переходов состояния.
func (m *Monitor) Events() <-chan bool {
	return m.events
}

// Set выставляет состояние связности напрямую (ручное управление и
// тесты). Событие публикуется только при фактическом переходе.
func (m *Monitor) Set(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	select {
	case m.events <- online:
	default:
	}
}

// Check выполняет один пробный запрос синхронно и обновляет состояние.
// Полезен перед Start, когда решение нужно до первого тика цикла.
func (m *Monitor) Check(ctx context.Context) {
	if m.probe == nil {
		return
	}
	m.check(ctx, logger.Log(ctx))
}

// Start запускает цикл пробных запросов до отмены контекста.
// Предназначен для запуска в отдельной горутине.
func (m *Monitor) Start(ctx context.Context) {
	if m.probe == nil {
		return
	}

	log := logger.Log(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx, log)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx, log)
		}
	}
}

func (m *Monitor) check(ctx context.Context, log *logger.Logger) {
	err := m.probe(ctx)
	online := err == nil
	if m.online.Load() != online {
		log.Info(ctx, logProbeTransition, zap.Bool("online", online), zap.Error(err))
	}
	m.Set(online)
}
